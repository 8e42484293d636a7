package handlers

import (
	"github.com/fasthttp/router"
	gateway "github.com/sindbad/engage/internal/gateways"
	xhttp "github.com/sindbad/engage/pkg/http"
)

type TransportStats interface {
	Stats() []gateway.ProviderStats
}

type HealthHandler struct {
	transport TransportStats
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
	e.GET("/health/providers", h.GetProviders)
}

// NewHealthHandler builds the health surface. transport may be nil in
// processes that do not deliver messages themselves.
func NewHealthHandler(transport TransportStats) *HealthHandler {
	return &HealthHandler{
		transport: transport,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	ctx.Response.SetBodyString("success")
}

func (h *HealthHandler) GetProviders(ctx *xhttp.RequestCtx) {
	if h.transport == nil {
		writeJSON(ctx, 200, []gateway.ProviderStats{})
		return
	}
	writeJSON(ctx, 200, h.transport.Stats())
}
