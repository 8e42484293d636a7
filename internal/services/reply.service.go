package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/repository"
	"github.com/sindbad/engage/pkg/logger"
)

const fallbackReply = "Hi! I'm here to help."

// Responder produces a reply to an inbound message, typically backed
// by an assistant API.
type Responder interface {
	Reply(ctx context.Context, u *model.User, text string) (string, error)
}

type ReplyUserRepository interface {
	FindByPhoneOrEmail(ctx context.Context, phone, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) (*model.User, error)
}

// InboundMessage is a message a recipient sent us over one of the
// provider webhooks.
type InboundMessage struct {
	Phone   string        `json:"phone"`
	Email   string        `json:"email"`
	Text    string        `json:"text"`
	Channel model.Channel `json:"channel"`
}

// ReplyService answers inbound messages on the channel they arrived
// on. Unknown senders are registered on the fly so the conversation can
// continue; a responder failure degrades to a canned reply instead of
// silence.
type ReplyService struct {
	users      ReplyUserRepository
	responder  Responder
	dispatcher Dispatcher
}

func NewReplyService(users ReplyUserRepository, responder Responder, dispatcher Dispatcher) *ReplyService {
	return &ReplyService{
		users:      users,
		responder:  responder,
		dispatcher: dispatcher,
	}
}

func (s *ReplyService) Handle(ctx context.Context, in InboundMessage) error {
	if strings.TrimSpace(in.Text) == "" {
		return errors.New("empty inbound message")
	}
	if !in.Channel.Concrete() {
		return errors.New("unknown inbound channel: " + string(in.Channel))
	}

	user, err := s.users.FindByPhoneOrEmail(ctx, in.Phone, in.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.users.Create(ctx, &model.User{
			Phone:      in.Phone,
			Email:      in.Email,
			OptIn:      in.Phone != "",
			OptInEmail: in.Email != "",
		})
		if err != nil {
			return fmt.Errorf("register sender: %w", err)
		}
		logger.Info("[reply] new sender registered", "phone", in.Phone, "email", in.Email)
	} else if err != nil {
		return fmt.Errorf("find sender: %w", err)
	}

	reply, err := s.responder.Reply(ctx, user, in.Text)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			logger.Warn("[reply] responder failed, using fallback", "phone", in.Phone, "error", err)
		}
		reply = fallbackReply
	}

	outcomes, err := s.dispatcher.Send(ctx, model.DispatchRequest{
		Phone:   user.Phone,
		Email:   user.Email,
		Body:    reply,
		Subject: "Sindbad Response",
		Channel: in.Channel,
	})
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	if SentCount(outcomes) == 0 {
		logger.Warn("[reply] reply not delivered", "phone", user.Phone, "channel", in.Channel)
	}
	return nil
}
