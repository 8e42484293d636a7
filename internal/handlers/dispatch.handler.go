package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/services"
	xhttp "github.com/sindbad/engage/pkg/http"
)

type DispatchService interface {
	Send(ctx context.Context, req model.DispatchRequest) ([]services.ChannelOutcome, error)
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
}

type DispatchHandler struct {
	svc DispatchService
}

func RegisterDispatchRoutes(e *router.Group, h *DispatchHandler) {
	e.POST("/messages", h.SendMessage)
	e.GET("/messages", h.ListMessages)
}

func NewDispatchHandler(dispatchService DispatchService) *DispatchHandler {
	return &DispatchHandler{
		svc: dispatchService,
	}
}

type sendMessageRequest struct {
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Body       string `json:"body"`
	Subject    string `json:"subject"`
	Channel    string `json:"channel"`
	CampaignID string `json:"campaign_id"`
}

type channelOutcomeResponse struct {
	Channel string `json:"channel"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type sendMessageResponse struct {
	Status   string                   `json:"status"`
	Outcomes []channelOutcomeResponse `json:"outcomes"`
}

type listResponse struct {
	Items []*model.Message `json:"items"`
	Total int64            `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *DispatchHandler) SendMessage(ctx *xhttp.RequestCtx) {
	var req sendMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	outcomes, err := h.svc.Send(ctx, model.DispatchRequest{
		Phone:      req.Phone,
		Email:      req.Email,
		Body:       req.Body,
		Subject:    req.Subject,
		Channel:    model.Channel(req.Channel),
		CampaignID: req.CampaignID,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 400, err.Error())
		return
	}

	resp := sendMessageResponse{Status: "success"}
	for _, o := range outcomes {
		r := channelOutcomeResponse{Channel: string(o.Channel), Status: string(o.Status)}
		if o.Err != nil {
			r.Error = o.Err.Error()
		}
		resp.Outcomes = append(resp.Outcomes, r)
	}
	writeJSON(ctx, 200, resp)
}

func (h *DispatchHandler) ListMessages(ctx *xhttp.RequestCtx) {
	var f model.MessageFilter

	if v := query(ctx, "phone"); v != "" {
		f.Phone = &v
	}
	if v := query(ctx, "channel"); v != "" {
		ch := model.Channel(v)
		f.Channel = &ch
	}
	if v := query(ctx, "campaign_id"); v != "" {
		f.CampaignID = &v
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, listResponse{Items: items, Total: total})
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
