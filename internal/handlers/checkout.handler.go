package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/services"
	xhttp "github.com/sindbad/engage/pkg/http"
)

type CheckoutService interface {
	SendProductCheckout(ctx context.Context, req model.ProductCheckoutRequest) ([]services.ChannelOutcome, error)
	CreatePaymentLink(ctx context.Context, req model.PaymentLinkRequest) (*model.PaymentLink, error)
	Subscribe(ctx context.Context, req model.SubscribeRequest) (*model.CheckoutSession, error)
}

type CheckoutHandler struct {
	svc CheckoutService
}

func RegisterCheckoutRoutes(e *router.Group, h *CheckoutHandler) {
	e.POST("/product", h.SendProduct)
	e.POST("/payment", h.CreatePayment)
	e.POST("/subscription", h.Subscribe)
}

func NewCheckoutHandler(checkoutService CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		svc: checkoutService,
	}
}

type sendProductRequest struct {
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	ProductID  string `json:"product_id"`
	Channel    string `json:"channel"`
	CampaignID string `json:"campaign_id"`
}

type createPaymentRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	CampaignID  string  `json:"campaign_id"`
}

type subscribeRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

func (h *CheckoutHandler) SendProduct(ctx *xhttp.RequestCtx) {
	var req sendProductRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Channel == "" {
		req.Channel = string(model.ChannelWhatsApp)
	}

	outcomes, err := h.svc.SendProductCheckout(ctx, model.ProductCheckoutRequest{
		Phone:      req.Phone,
		Email:      req.Email,
		ProductID:  req.ProductID,
		Channel:    model.Channel(req.Channel),
		CampaignID: req.CampaignID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownProduct):
			writeError(ctx, 404, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			writeError(ctx, 404, err.Error())
		default:
			writeError(ctx, 400, err.Error())
		}
		return
	}

	resp := sendMessageResponse{Status: "success"}
	for _, o := range outcomes {
		resp.Outcomes = append(resp.Outcomes, channelOutcomeResponse{
			Channel: string(o.Channel),
			Status:  string(o.Status),
		})
	}
	writeJSON(ctx, 200, resp)
}

func (h *CheckoutHandler) CreatePayment(ctx *xhttp.RequestCtx) {
	var req createPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	link, err := h.svc.CreatePaymentLink(ctx, model.PaymentLinkRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		CampaignID:  req.CampaignID,
	})
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, map[string]any{
		"status": "success",
		"link":   link,
	})
}

func (h *CheckoutHandler) Subscribe(ctx *xhttp.RequestCtx) {
	var req subscribeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	session, err := h.svc.Subscribe(ctx, model.SubscribeRequest{
		Phone: req.Phone,
		Email: req.Email,
		Plan:  model.Plan(req.Plan),
	})
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{
		"status":       "success",
		"checkout_url": session.URL,
	})
}
