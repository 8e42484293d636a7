package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/queue"
	"github.com/sindbad/engage/internal/services"
)

type stubDispatcher struct {
	outcomes []services.ChannelOutcome
	err      error
	calls    int
}

func (d *stubDispatcher) Send(ctx context.Context, req model.DispatchRequest) ([]services.ChannelOutcome, error) {
	d.calls++
	return d.outcomes, d.err
}

func dispatchJob(t *testing.T, id string) *queue.Message {
	t.Helper()
	data, err := json.Marshal(model.DispatchRequest{
		Phone:   "+31601234567",
		Body:    "hello",
		Channel: model.ChannelWhatsApp,
	})
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	return &queue.Message{ID: id, Data: data}
}

func TestDispatchProcessor_Success(t *testing.T) {
	mockRedis := newMockRedisAdapter()
	idempotency := NewIdempotencyService(mockRedis, DefaultIdempotencyConfig())
	dispatcher := &stubDispatcher{
		outcomes: []services.ChannelOutcome{{Channel: model.ChannelWhatsApp, Status: services.OutcomeSent}},
	}
	processor := NewDispatchProcessor(dispatcher, idempotency)

	ctx := context.Background()
	err := processor.Process(ctx, dispatchJob(t, "1-0"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if dispatcher.calls != 1 {
		t.Errorf("Expected 1 dispatch call, got %d", dispatcher.calls)
	}

	processed, err := idempotency.IsProcessed(ctx, "1-0")
	if err != nil {
		t.Fatalf("IsProcessed check failed: %v", err)
	}
	if !processed {
		t.Error("Job should be marked as processed")
	}
}

func TestDispatchProcessor_RedeliveryIsSkipped(t *testing.T) {
	mockRedis := newMockRedisAdapter()
	idempotency := NewIdempotencyService(mockRedis, DefaultIdempotencyConfig())
	dispatcher := &stubDispatcher{
		outcomes: []services.ChannelOutcome{{Channel: model.ChannelWhatsApp, Status: services.OutcomeSent}},
	}
	processor := NewDispatchProcessor(dispatcher, idempotency)

	ctx := context.Background()
	if err := processor.Process(ctx, dispatchJob(t, "2-0")); err != nil {
		t.Fatalf("First delivery failed: %v", err)
	}

	// Redelivery of the same stream entry must not hit the providers
	if err := processor.Process(ctx, dispatchJob(t, "2-0")); err != nil {
		t.Fatalf("Redelivery should ACK, got: %v", err)
	}

	if dispatcher.calls != 1 {
		t.Errorf("Expected 1 dispatch call after redelivery, got %d", dispatcher.calls)
	}
}

func TestDispatchProcessor_AllChannelsFailedRetries(t *testing.T) {
	mockRedis := newMockRedisAdapter()
	idempotency := NewIdempotencyService(mockRedis, DefaultIdempotencyConfig())
	dispatcher := &stubDispatcher{
		outcomes: []services.ChannelOutcome{
			{Channel: model.ChannelWhatsApp, Status: services.OutcomeFailed, Err: errors.New("provider 500")},
		},
	}
	processor := NewDispatchProcessor(dispatcher, idempotency)

	ctx := context.Background()
	err := processor.Process(ctx, dispatchJob(t, "3-0"))
	if !errors.Is(err, services.ErrDelivery) {
		t.Fatalf("Expected delivery error for NACK, got: %v", err)
	}

	count, err := idempotency.GetRetryCount(ctx, "3-0")
	if err != nil {
		t.Fatalf("GetRetryCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected retry count 1, got %d", count)
	}
}

func TestDispatchProcessor_PartialFailureAcks(t *testing.T) {
	mockRedis := newMockRedisAdapter()
	idempotency := NewIdempotencyService(mockRedis, DefaultIdempotencyConfig())
	dispatcher := &stubDispatcher{
		outcomes: []services.ChannelOutcome{
			{Channel: model.ChannelWhatsApp, Status: services.OutcomeSent},
			{Channel: model.ChannelSMS, Status: services.OutcomeFailed, Err: errors.New("provider 500")},
		},
	}
	processor := NewDispatchProcessor(dispatcher, idempotency)

	ctx := context.Background()
	// A retry would re-send the channel that already went out
	if err := processor.Process(ctx, dispatchJob(t, "4-0")); err != nil {
		t.Fatalf("Partial failure should ACK, got: %v", err)
	}

	processed, _ := idempotency.IsProcessed(ctx, "4-0")
	if !processed {
		t.Error("Job should be marked as processed")
	}
}

func TestDispatchProcessor_UnknownRecipientAcks(t *testing.T) {
	mockRedis := newMockRedisAdapter()
	idempotency := NewIdempotencyService(mockRedis, DefaultIdempotencyConfig())
	dispatcher := &stubDispatcher{err: services.ErrUserNotFound}
	processor := NewDispatchProcessor(dispatcher, idempotency)

	ctx := context.Background()
	if err := processor.Process(ctx, dispatchJob(t, "5-0")); err != nil {
		t.Fatalf("Undeliverable job should ACK, got: %v", err)
	}

	processed, _ := idempotency.IsProcessed(ctx, "5-0")
	if !processed {
		t.Error("Job should be marked as processed so redelivery skips it")
	}
}

func TestDispatchProcessor_NoEligibleChannelAcks(t *testing.T) {
	mockRedis := newMockRedisAdapter()
	idempotency := NewIdempotencyService(mockRedis, DefaultIdempotencyConfig())
	dispatcher := &stubDispatcher{err: services.ErrNothingToSend}
	processor := NewDispatchProcessor(dispatcher, idempotency)

	ctx := context.Background()
	if err := processor.Process(ctx, dispatchJob(t, "7-0")); err != nil {
		t.Fatalf("Job with no eligible channel should ACK, got: %v", err)
	}

	processed, _ := idempotency.IsProcessed(ctx, "7-0")
	if !processed {
		t.Error("Job should be marked as processed so redelivery skips it")
	}
}

func TestDispatchProcessor_MalformedJobGoesToDLQ(t *testing.T) {
	mockRedis := newMockRedisAdapter()
	idempotency := NewIdempotencyService(mockRedis, DefaultIdempotencyConfig())
	dispatcher := &stubDispatcher{}
	processor := NewDispatchProcessor(dispatcher, idempotency)

	err := processor.Process(context.Background(), &queue.Message{ID: "6-0", Data: []byte("{not json")})
	if err == nil {
		t.Fatal("Expected error for malformed job")
	}
	if dispatcher.calls != 0 {
		t.Errorf("Dispatcher should not be called, got %d calls", dispatcher.calls)
	}
}
