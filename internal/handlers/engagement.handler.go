package handlers

import (
	"context"

	"github.com/fasthttp/router"
	xhttp "github.com/sindbad/engage/pkg/http"
	"github.com/sindbad/engage/pkg/logger"
)

type EngagementService interface {
	RecordOpen(ctx context.Context, campaignID, url string) error
	RecordClick(ctx context.Context, campaignID, url string) error
}

// EngagementHandler serves the tracking endpoints embedded in campaign
// messages. They fire from mail clients and browsers, so failures are
// logged and swallowed; the caller always gets a 200.
type EngagementHandler struct {
	svc EngagementService
}

func RegisterEngagementRoutes(e *router.Group, h *EngagementHandler) {
	e.GET("/track/open", h.TrackOpen)
	e.GET("/track/click", h.TrackClick)
}

func NewEngagementHandler(engagementService EngagementService) *EngagementHandler {
	return &EngagementHandler{
		svc: engagementService,
	}
}

func (h *EngagementHandler) TrackOpen(ctx *xhttp.RequestCtx) {
	campaignID := query(ctx, "campaign_id")
	url := query(ctx, "url")

	if err := h.svc.RecordOpen(ctx, campaignID, url); err != nil {
		logger.Warn("[engagement] open not recorded", "campaign_id", campaignID, "error", err)
	}
	ack(ctx)
}

func (h *EngagementHandler) TrackClick(ctx *xhttp.RequestCtx) {
	campaignID := query(ctx, "campaign_id")
	url := query(ctx, "url")

	if err := h.svc.RecordClick(ctx, campaignID, url); err != nil {
		logger.Warn("[engagement] click not recorded", "campaign_id", campaignID, "error", err)
		ack(ctx)
		return
	}

	// Clicks forward to the destination once counted.
	if url != "" {
		ctx.Redirect(url, 302)
		return
	}
	ack(ctx)
}
