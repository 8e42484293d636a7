package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/services"
	xhttp "github.com/sindbad/engage/pkg/http"
	"github.com/sindbad/engage/pkg/logger"
)

type ReplyService interface {
	Handle(ctx context.Context, in services.InboundMessage) error
}

type BillingWebhookService interface {
	HandlePaymentWebhook(ctx context.Context, event model.PaymentEvent) error
	HandleSubscriptionWebhook(ctx context.Context, event model.SubscriptionEvent) error
}

// WebhookHandler terminates the provider callbacks. Providers retry on
// non-2xx and disable endpoints that keep failing, so every route acks
// with 200 and the real error goes to the log.
type WebhookHandler struct {
	replies ReplyService
	billing BillingWebhookService
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.POST("/webhook", h.WhatsAppInbound)
	e.POST("/sms/webhook", h.SMSInbound)
	e.POST("/email/webhook", h.EmailInbound)
	e.POST("/payment/webhook", h.PaymentCompleted)
	e.POST("/subscription/webhook", h.SubscriptionActivated)
}

func NewWebhookHandler(replyService ReplyService, billingService BillingWebhookService) *WebhookHandler {
	return &WebhookHandler{
		replies: replyService,
		billing: billingService,
	}
}

func ack(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, 200, map[string]string{"status": "ok"})
}

type whatsappInboundPayload struct {
	From string `json:"from"`
	Text string `json:"text"`
}

func (h *WebhookHandler) WhatsAppInbound(ctx *xhttp.RequestCtx) {
	var payload whatsappInboundPayload
	if err := readJSON(ctx, &payload); err != nil {
		logger.Warn("[webhook] bad whatsapp payload", "error", err)
		ack(ctx)
		return
	}

	err := h.replies.Handle(ctx, services.InboundMessage{
		Phone:   payload.From,
		Text:    payload.Text,
		Channel: model.ChannelWhatsApp,
	})
	if err != nil {
		logger.Error("[webhook] whatsapp reply failed", "from", payload.From, "error", err)
	}
	ack(ctx)
}

// SMSInbound receives the sms provider callback, which posts
// form-encoded From/Body pairs rather than JSON.
func (h *WebhookHandler) SMSInbound(ctx *xhttp.RequestCtx) {
	from := string(ctx.PostArgs().Peek("From"))
	body := string(ctx.PostArgs().Peek("Body"))

	err := h.replies.Handle(ctx, services.InboundMessage{
		Phone:   from,
		Text:    body,
		Channel: model.ChannelSMS,
	})
	if err != nil {
		logger.Error("[webhook] sms reply failed", "from", from, "error", err)
	}
	ack(ctx)
}

type emailInboundPayload struct {
	From string `json:"from"`
	Text string `json:"text"`
}

func (h *WebhookHandler) EmailInbound(ctx *xhttp.RequestCtx) {
	var payload emailInboundPayload
	if err := readJSON(ctx, &payload); err != nil {
		logger.Warn("[webhook] bad email payload", "error", err)
		ack(ctx)
		return
	}

	err := h.replies.Handle(ctx, services.InboundMessage{
		Email:   payload.From,
		Text:    payload.Text,
		Channel: model.ChannelEmail,
	})
	if err != nil {
		logger.Error("[webhook] email reply failed", "from", payload.From, "error", err)
	}
	ack(ctx)
}

type paymentWebhookPayload struct {
	Amount   float64 `json:"amount"`
	Metadata struct {
		CampaignID string `json:"campaign_id"`
		URL        string `json:"url"`
	} `json:"metadata"`
}

func (h *WebhookHandler) PaymentCompleted(ctx *xhttp.RequestCtx) {
	var payload paymentWebhookPayload
	if err := readJSON(ctx, &payload); err != nil {
		logger.Warn("[webhook] bad payment payload", "error", err)
		ack(ctx)
		return
	}

	err := h.billing.HandlePaymentWebhook(ctx, model.PaymentEvent{
		Amount:     payload.Amount,
		URL:        payload.Metadata.URL,
		CampaignID: payload.Metadata.CampaignID,
	})
	if err != nil {
		logger.Error("[webhook] payment processing failed", "campaign_id", payload.Metadata.CampaignID, "error", err)
	}
	ack(ctx)
}

type subscriptionWebhookPayload struct {
	CustomerEmail string `json:"customer_email"`
	CustomerID    string `json:"customer_id"`
	Plan          string `json:"plan"`
}

func (h *WebhookHandler) SubscriptionActivated(ctx *xhttp.RequestCtx) {
	var payload subscriptionWebhookPayload
	if err := readJSON(ctx, &payload); err != nil {
		logger.Warn("[webhook] bad subscription payload", "error", err)
		ack(ctx)
		return
	}

	err := h.billing.HandleSubscriptionWebhook(ctx, model.SubscriptionEvent{
		Email:      payload.CustomerEmail,
		CustomerID: payload.CustomerID,
		Plan:       model.Plan(payload.Plan),
	})
	if err != nil {
		logger.Error("[webhook] subscription processing failed", "email", payload.CustomerEmail, "error", err)
	}
	ack(ctx)
}
