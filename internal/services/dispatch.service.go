package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/repository"
	"github.com/sindbad/engage/internal/routing"
	"github.com/sindbad/engage/pkg/logger"
)

var (
	ErrUserNotFound             = errors.New("recipient not found")
	ErrNothingToSend            = errors.New("no channel available for recipient")
	ErrDelivery                 = errors.New("delivery failed")
	ErrPersistenceInconsistency = errors.New("message delivered but not recorded")

	errQuotaDenied = errors.New("quota denied")
)

// Transport delivers a rendered message over one concrete channel.
type Transport interface {
	Send(ctx context.Context, ch model.Channel, recipient, subject, body string) error
}

// Dispatcher is the narrow surface other services use to send messages.
// The campaign engine and the webhook flows depend on this instead of
// the concrete DispatchService so tests can run synchronously and the
// API process can swap in a queue-backed implementation.
type Dispatcher interface {
	Send(ctx context.Context, req model.DispatchRequest) ([]ChannelOutcome, error)
}

type OutcomeStatus string

const (
	OutcomeSent         OutcomeStatus = "sent"
	OutcomeSkipped      OutcomeStatus = "skipped"
	OutcomeFailed       OutcomeStatus = "failed"
	OutcomeInconsistent OutcomeStatus = "inconsistent"
)

// ChannelOutcome is the per-channel result of a dispatch. A multi send
// produces one outcome per expanded channel; a failure on one channel
// never aborts the others.
type ChannelOutcome struct {
	Channel model.Channel `json:"channel"`
	Status  OutcomeStatus `json:"status"`
	Err     error         `json:"-"`
}

type DispatchUserRepository interface {
	FindByPhoneOrEmail(ctx context.Context, phone, email string) (*model.User, error)
	LockForUpdate(ctx context.Context, userID string) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type DispatchMessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	CountSince(ctx context.Context, phone string, since time.Time) (int64, error)
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
}

type DispatchCampaignRepository interface {
	IncrementSent(ctx context.Context, id, variantKey string) (int64, error)
}

type DispatchService struct {
	users          DispatchUserRepository
	messages       DispatchMessageRepository
	campaigns      DispatchCampaignRepository
	transport      Transport
	defaultSubject string
}

func NewDispatchService(users DispatchUserRepository, messages DispatchMessageRepository, campaigns DispatchCampaignRepository, transport Transport, defaultSubject string) *DispatchService {
	if defaultSubject == "" {
		defaultSubject = "Sindbad Offer"
	}
	return &DispatchService{
		users:          users,
		messages:       messages,
		campaigns:      campaigns,
		transport:      transport,
		defaultSubject: defaultSubject,
	}
}

// Send resolves the recipient, expands the requested channel and
// attempts delivery on every candidate. It returns one outcome per
// candidate channel; the error return is reserved for failures that
// prevent dispatch entirely (bad request, unknown recipient).
func (s *DispatchService) Send(ctx context.Context, req model.DispatchRequest) ([]ChannelOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByPhoneOrEmail(ctx, req.Phone, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}

	candidates := routing.Expand(req.Channel, user)
	if len(candidates) == 0 {
		return nil, ErrNothingToSend
	}
	outcomes := make([]ChannelOutcome, 0, len(candidates))
	for _, ch := range candidates {
		outcomes = append(outcomes, s.sendOne(ctx, user, ch, req))
	}
	return outcomes, nil
}

// List exposes the message audit log.
func (s *DispatchService) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	return s.messages.List(ctx, f)
}

// sendOne attempts delivery on a single concrete channel. The quota
// count, the delivery and the message insert run in one transaction
// with the user row locked, so two concurrent sends to the same
// recipient cannot both pass the quota check at its edge. That
// serialization rests on postgres row locks; sqlite has no FOR UPDATE
// and relies on its global write serialization instead.
func (s *DispatchService) sendOne(ctx context.Context, u *model.User, ch model.Channel, req model.DispatchRequest) ChannelOutcome {
	recipient, ok := s.recipient(u, ch)
	if !ok {
		return ChannelOutcome{Channel: ch, Status: OutcomeSkipped}
	}

	delivered := false
	err := s.users.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.LockForUpdate(ctx, u.ID); err != nil {
			return fmt.Errorf("lock recipient: %w", err)
		}

		count, err := s.messages.CountSince(ctx, u.Phone, time.Now().Add(-routing.QuotaWindow))
		if err != nil {
			return fmt.Errorf("count trailing messages: %w", err)
		}
		if !routing.Allowed(u.Plan, ch, count) {
			return errQuotaDenied
		}

		subject := req.Subject
		if ch == model.ChannelEmail && subject == "" {
			subject = s.defaultSubject
		}
		if err := s.transport.Send(ctx, ch, recipient, subject, req.Body); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrDelivery, ch, err)
		}
		delivered = true

		msg := &model.Message{
			Phone:      u.Phone,
			Email:      u.Email,
			Content:    req.Body,
			Channel:    ch,
			CampaignID: req.CampaignID,
			Variant:    req.Variant,
		}
		if _, err := s.messages.Create(ctx, msg); err != nil {
			return fmt.Errorf("record message: %w", err)
		}

		if req.CampaignID != "" {
			variantKey := req.Variant
			if variantKey == "" {
				variantKey = string(ch)
			}
			if _, err := s.campaigns.IncrementSent(ctx, req.CampaignID, variantKey); err != nil {
				return fmt.Errorf("increment campaign counter: %w", err)
			}
		}
		return nil
	})

	switch {
	case err == nil:
		observeDispatch(ch, OutcomeSent)
		return ChannelOutcome{Channel: ch, Status: OutcomeSent}
	case errors.Is(err, errQuotaDenied):
		observeDispatch(ch, OutcomeSkipped)
		return ChannelOutcome{Channel: ch, Status: OutcomeSkipped}
	case delivered:
		// The provider accepted the message but the bookkeeping
		// transaction rolled back. The audit log now undercounts, which
		// the caller must be able to tell apart from a plain failure.
		logger.Error("[dispatch] delivered but not recorded", "channel", ch, "phone", u.Phone, "error", err)
		observeDispatch(ch, OutcomeInconsistent)
		return ChannelOutcome{Channel: ch, Status: OutcomeInconsistent, Err: fmt.Errorf("%w: %s", ErrPersistenceInconsistency, err)}
	default:
		logger.Warn("[dispatch] delivery failed", "channel", ch, "phone", u.Phone, "error", err)
		observeDispatch(ch, OutcomeFailed)
		return ChannelOutcome{Channel: ch, Status: OutcomeFailed, Err: err}
	}
}

func (s *DispatchService) recipient(u *model.User, ch model.Channel) (string, bool) {
	switch ch {
	case model.ChannelWhatsApp, model.ChannelSMS:
		if !u.OptIn || u.Phone == "" {
			return "", false
		}
		return u.Phone, true
	case model.ChannelEmail:
		if !u.OptInEmail || u.Email == "" {
			return "", false
		}
		return u.Email, true
	}
	return "", false
}

// SentCount reports how many outcomes in a dispatch result actually
// went out.
func SentCount(outcomes []ChannelOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == OutcomeSent {
			n++
		}
	}
	return n
}
