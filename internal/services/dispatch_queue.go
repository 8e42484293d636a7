package services

import (
	"context"
	"fmt"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/queue"
)

// OutcomeQueued means the dispatch was accepted for asynchronous
// delivery; per-channel results land in the worker's logs and metrics.
const OutcomeQueued OutcomeStatus = "queued"

// QueueDispatcher satisfies Dispatcher by handing the request to the
// dispatch queue instead of sending inline. The worker consumes the
// queue and runs the real DispatchService against the providers.
type QueueDispatcher struct {
	queue *queue.Queue
}

func NewQueueDispatcher(q *queue.Queue) *QueueDispatcher {
	return &QueueDispatcher{queue: q}
}

func (d *QueueDispatcher) Send(ctx context.Context, req model.DispatchRequest) ([]ChannelOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := d.queue.PublishJSON(ctx, req, map[string]string{
		"campaign_id": req.CampaignID,
	}); err != nil {
		return nil, fmt.Errorf("enqueue dispatch: %w", err)
	}
	return []ChannelOutcome{{Channel: req.Channel, Status: OutcomeQueued}}, nil
}

// AsyncDispatchService backs the message endpoints when dispatch runs
// through the queue. Sends are enqueued, reads still hit the store.
type AsyncDispatchService struct {
	*QueueDispatcher
	messages DispatchMessageRepository
}

func NewAsyncDispatchService(q *queue.Queue, messages DispatchMessageRepository) *AsyncDispatchService {
	return &AsyncDispatchService{
		QueueDispatcher: NewQueueDispatcher(q),
		messages:        messages,
	}
}

func (s *AsyncDispatchService) List(ctx context.Context, filter model.MessageFilter) ([]*model.Message, int64, error) {
	return s.messages.List(ctx, filter)
}
