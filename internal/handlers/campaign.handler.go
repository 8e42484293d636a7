package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/repository"
	"github.com/sindbad/engage/internal/services"
	xhttp "github.com/sindbad/engage/pkg/http"
)

type CampaignService interface {
	Create(ctx context.Context, req model.CampaignCreateRequest) (*services.CampaignResult, error)
	CreateAB(ctx context.Context, req model.ABCampaignCreateRequest) (*services.CampaignResult, error)
	Get(ctx context.Context, id, variant string) (*model.Campaign, error)
}

type CampaignHandler struct {
	svc CampaignService
}

func RegisterCampaignRoutes(e *router.Group, h *CampaignHandler) {
	e.POST("/campaign", h.CreateCampaign)
	e.POST("/ab_campaign", h.CreateABCampaign)
	e.GET("/campaign/{id}", h.GetCampaign)
}

func NewCampaignHandler(campaignService CampaignService) *CampaignHandler {
	return &CampaignHandler{
		svc: campaignService,
	}
}

type createCampaignRequest struct {
	Name     string `json:"name"`
	Message  string `json:"message"`
	Subject  string `json:"subject"`
	Audience string `json:"audience"`
	Channel  string `json:"channel"`
}

type createABCampaignRequest struct {
	Name       string  `json:"name"`
	MessageA   string  `json:"message_a"`
	MessageB   string  `json:"message_b"`
	SubjectA   string  `json:"subject_a"`
	SubjectB   string  `json:"subject_b"`
	Audience   string  `json:"audience"`
	Channel    string  `json:"channel"`
	SplitRatio float64 `json:"split_ratio"`
}

type campaignResponse struct {
	Status string `json:"status"`
	*services.CampaignResult
}

func (h *CampaignHandler) CreateCampaign(ctx *xhttp.RequestCtx) {
	var req createCampaignRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Audience == "" {
		req.Audience = "all"
	}

	result, err := h.svc.Create(ctx, model.CampaignCreateRequest{
		Name:     req.Name,
		Message:  req.Message,
		Subject:  req.Subject,
		Audience: req.Audience,
		Channel:  model.Channel(req.Channel),
	})
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, campaignResponse{Status: "success", CampaignResult: result})
}

func (h *CampaignHandler) CreateABCampaign(ctx *xhttp.RequestCtx) {
	var req createABCampaignRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Audience == "" {
		req.Audience = "all"
	}

	result, err := h.svc.CreateAB(ctx, model.ABCampaignCreateRequest{
		Name:       req.Name,
		MessageA:   req.MessageA,
		MessageB:   req.MessageB,
		SubjectA:   req.SubjectA,
		SubjectB:   req.SubjectB,
		Audience:   req.Audience,
		Channel:    model.Channel(req.Channel),
		SplitRatio: req.SplitRatio,
	})
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, campaignResponse{Status: "success", CampaignResult: result})
}

func (h *CampaignHandler) GetCampaign(ctx *xhttp.RequestCtx) {
	id, ok := ctx.UserValue("id").(string)
	if !ok || id == "" {
		writeError(ctx, 400, "campaign id is required")
		return
	}
	variant := query(ctx, "variant")
	if variant == "" {
		variant = query(ctx, "channel")
	}
	if variant == "" {
		writeError(ctx, 400, "variant is required")
		return
	}

	campaign, err := h.svc.Get(ctx, id, variant)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, campaign)
}
