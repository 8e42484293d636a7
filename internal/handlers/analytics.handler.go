package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/sindbad/engage/internal/services"
	xhttp "github.com/sindbad/engage/pkg/http"
)

type AnalyticsService interface {
	Detailed(ctx context.Context, from, to time.Time) (*services.DetailedReport, error)
	ROI(ctx context.Context, from, to time.Time) (*services.ROIReport, error)
}

type AnalyticsHandler struct {
	svc AnalyticsService
}

func RegisterAnalyticsRoutes(e *router.Group, h *AnalyticsHandler) {
	e.GET("/analytics/detailed", h.Detailed)
	e.GET("/analytics/roi", h.ROI)
}

func NewAnalyticsHandler(analyticsService AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc: analyticsService,
	}
}

// reportWindow parses from/to query params, defaulting to the trailing
// 30 days.
func reportWindow(ctx *xhttp.RequestCtx) (time.Time, time.Time) {
	to := time.Now()
	from := to.Add(-30 * 24 * time.Hour)

	if v := query(ctx, "from"); v != "" {
		if t, err := parseTime(v); err == nil {
			from = t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, err := parseTime(v); err == nil {
			to = t
		}
	}
	return from, to
}

func (h *AnalyticsHandler) Detailed(ctx *xhttp.RequestCtx) {
	from, to := reportWindow(ctx)

	report, err := h.svc.Detailed(ctx, from, to)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, report)
}

func (h *AnalyticsHandler) ROI(ctx *xhttp.RequestCtx) {
	from, to := reportWindow(ctx)

	report, err := h.svc.ROI(ctx, from, to)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, report)
}
