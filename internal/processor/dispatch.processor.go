package processor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/queue"
	"github.com/sindbad/engage/internal/services"
	"github.com/sindbad/engage/pkg/logger"
	"github.com/sindbad/engage/pkg/prom"
)

type DispatchProcessor struct {
	dispatcher  services.Dispatcher
	idempotency *IdempotencyService
}

func NewDispatchProcessor(dispatcher services.Dispatcher, idempotency *IdempotencyService) *DispatchProcessor {
	return &DispatchProcessor{
		dispatcher:  dispatcher,
		idempotency: idempotency,
	}
}

func (p *DispatchProcessor) GetType() string {
	return "dispatch"
}

// Process delivers one queued dispatch job with idempotency guarantees.
// The stream entry ID is the idempotency key: a redelivered entry that
// already went out is ACKed without contacting the providers again.
func (p *DispatchProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	// Step 1: Parse job
	var req model.DispatchRequest
	if err := json.Unmarshal(queueMessage.Data, &req); err != nil {
		logger.Error("Failed to unmarshal dispatch job", "job_id", queueMessage.ID, "error", err)
		return err // Return error to trigger DLQ move
	}

	jobID := queueMessage.ID

	// Step 2: Acquire processing lock and check idempotency
	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			// Job already delivered - ACK to remove from queue
			logger.Info("Dispatch job already processed, skipping", "job_id", jobID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Max retries exceeded for dispatch job", "job_id", jobID, "campaign_id", req.CampaignID)
			return nil // ACK to move to DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			// Another consumer is processing - NACK to retry later
			logger.Info("Lock held by another consumer, will retry", "job_id", jobID)
			return errors.New("lock held by another consumer")
		}
		// Unexpected error - NACK to retry
		logger.Error("Failed to acquire lock", "job_id", jobID, "error", err)
		return err
	}

	// Ensure lock is released on exit (if not already marked success/failure)
	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Processing dispatch job",
		"job_id", jobID,
		"channel", req.Channel,
		"campaign_id", req.CampaignID,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	// Step 3: Dispatch
	start := time.Now()
	outcomes, err := p.dispatcher.Send(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrNothingToSend) {
			// Bad input never succeeds on retry - mark done and ACK
			logger.Warn("Dropping undeliverable dispatch job", "job_id", jobID, "error", err)
			if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
				logger.Error("Failed to mark job as done", "job_id", jobID, "error", markErr)
			}
			return nil
		}
		logger.Error("Dispatch failed", "job_id", jobID, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "job_id", jobID, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	// Step 4: Per-channel accounting. A retry would re-send channels
	// that already went out, so the job is only NACKed when every
	// channel failed and nothing was recorded.
	elapsed := time.Since(start).Seconds()
	sent, failed := 0, 0
	var lastErr error
	for _, outcome := range outcomes {
		switch outcome.Status {
		case services.OutcomeSent:
			sent++
			prom.AddDispatchDuration(elapsed, string(outcome.Channel))
		case services.OutcomeFailed:
			failed++
			lastErr = outcome.Err
		}
	}

	if failed > 0 && sent == 0 {
		logger.Warn("All channels failed for dispatch job", "job_id", jobID, "failed", failed, "error", lastErr)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, lastErr); markErr != nil {
			logger.Error("Failed to mark failure", "job_id", jobID, "error", markErr)
		}
		return services.ErrDelivery // NACK to retry
	}

	logger.Info("Dispatch job processed",
		"job_id", jobID,
		"sent", sent,
		"failed", failed,
		"outcomes", len(outcomes),
		"retry_count", procCtx.RetryCount)

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "job_id", jobID, "error", markErr)
		// Continue - the job itself went through
	}
	return nil // ACK message
}
