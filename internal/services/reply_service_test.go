package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReplyService_Handle(t *testing.T) {
	users := new(MockUserRepository)
	responder := new(MockResponder)
	dispatcher := new(MockDispatcher)
	svc := NewReplyService(users, responder, dispatcher)
	ctx := context.Background()

	user := &model.User{ID: "u1", Phone: "+31601", OptIn: true}
	users.On("FindByPhoneOrEmail", ctx, user.Phone, "").Return(user, nil)
	responder.On("Reply", ctx, user, "where is my order?").Return("It ships tomorrow.", nil)

	var sent model.DispatchRequest
	dispatcher.On("Send", ctx, mock.AnythingOfType("model.DispatchRequest")).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(model.DispatchRequest)
		}).
		Return(sentOutcome(model.ChannelWhatsApp), nil)

	err := svc.Handle(ctx, InboundMessage{
		Phone:   user.Phone,
		Text:    "where is my order?",
		Channel: model.ChannelWhatsApp,
	})
	require.NoError(t, err)

	assert.Equal(t, "It ships tomorrow.", sent.Body)
	assert.Equal(t, model.ChannelWhatsApp, sent.Channel)
	assert.Equal(t, "Sindbad Response", sent.Subject)
}

func TestReplyService_Handle_ResponderFallback(t *testing.T) {
	users := new(MockUserRepository)
	responder := new(MockResponder)
	dispatcher := new(MockDispatcher)
	svc := NewReplyService(users, responder, dispatcher)
	ctx := context.Background()

	user := &model.User{ID: "u1", Phone: "+31601", OptIn: true}
	users.On("FindByPhoneOrEmail", ctx, user.Phone, "").Return(user, nil)
	responder.On("Reply", ctx, user, "hi").Return("", errors.New("assistant down"))

	var sent model.DispatchRequest
	dispatcher.On("Send", ctx, mock.AnythingOfType("model.DispatchRequest")).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(model.DispatchRequest)
		}).
		Return(sentOutcome(model.ChannelWhatsApp), nil)

	err := svc.Handle(ctx, InboundMessage{Phone: user.Phone, Text: "hi", Channel: model.ChannelWhatsApp})
	require.NoError(t, err)
	assert.Equal(t, "Hi! I'm here to help.", sent.Body)
}

func TestReplyService_Handle_UnknownSenderRegistered(t *testing.T) {
	users := new(MockUserRepository)
	responder := new(MockResponder)
	dispatcher := new(MockDispatcher)
	svc := NewReplyService(users, responder, dispatcher)
	ctx := context.Background()

	users.On("FindByPhoneOrEmail", ctx, "+31699", "").
		Return(nil, repository.ErrUserNotFound)
	created := &model.User{ID: "u2", Phone: "+31699", OptIn: true}
	users.On("Create", ctx, mock.AnythingOfType("*model.User")).Return(created, nil)
	responder.On("Reply", ctx, created, "hello there").Return("Welcome!", nil)
	dispatcher.On("Send", ctx, mock.AnythingOfType("model.DispatchRequest")).
		Return(sentOutcome(model.ChannelSMS), nil)

	err := svc.Handle(ctx, InboundMessage{Phone: "+31699", Text: "hello there", Channel: model.ChannelSMS})
	require.NoError(t, err)

	// The sender is registered with consent on the channel they used.
	registered := users.Calls[1].Arguments.Get(1).(*model.User)
	assert.True(t, registered.OptIn)
	assert.False(t, registered.OptInEmail)
}

func TestReplyService_Handle_BadInput(t *testing.T) {
	svc := NewReplyService(new(MockUserRepository), new(MockResponder), new(MockDispatcher))
	ctx := context.Background()

	assert.Error(t, svc.Handle(ctx, InboundMessage{Phone: "+31601", Text: "  ", Channel: model.ChannelSMS}))
	assert.Error(t, svc.Handle(ctx, InboundMessage{Phone: "+31601", Text: "hi", Channel: model.ChannelMulti}))
}
