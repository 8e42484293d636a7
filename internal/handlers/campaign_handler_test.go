package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/repository"
	"github.com/sindbad/engage/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) Create(ctx context.Context, req model.CampaignCreateRequest) (*services.CampaignResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CampaignResult), args.Error(1)
}

func (m *MockCampaignService) CreateAB(ctx context.Context, req model.ABCampaignCreateRequest) (*services.CampaignResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CampaignResult), args.Error(1)
}

func (m *MockCampaignService) Get(ctx context.Context, id, variant string) (*model.Campaign, error) {
	args := m.Called(ctx, id, variant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func TestCampaignHandler_CreateCampaign(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		bodyBytes, _ := json.Marshal(createCampaignRequest{
			Name:     "spring sale",
			Message:  "20% off",
			Audience: "vip",
			Channel:  "whatsapp",
		})

		svc.On("Create", mock.Anything, mock.MatchedBy(func(r model.CampaignCreateRequest) bool {
			return r.Name == "spring sale" && r.Channel == model.ChannelWhatsApp
		})).Return(&services.CampaignResult{
			CampaignID: "123456",
			Recipients: 10,
			Sent:       8,
		}, nil)

		ctx := setupTestContext("POST", "/campaign", bodyBytes)
		handler.CreateCampaign(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response campaignResponse
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, "success", response.Status)
		assert.Equal(t, "123456", response.CampaignID)
		assert.Equal(t, 8, response.Sent)

		svc.AssertExpectations(t)
	})

	t.Run("empty audience defaults to all", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		bodyBytes, _ := json.Marshal(createCampaignRequest{
			Name:    "x",
			Message: "y",
			Channel: "sms",
		})

		svc.On("Create", mock.Anything, mock.MatchedBy(func(r model.CampaignCreateRequest) bool {
			return r.Audience == "all"
		})).Return(&services.CampaignResult{CampaignID: "222222"}, nil)

		ctx := setupTestContext("POST", "/campaign", bodyBytes)
		handler.CreateCampaign(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		bodyBytes, _ := json.Marshal(createCampaignRequest{Channel: "sms"})
		svc.On("Create", mock.Anything, mock.Anything).
			Return(nil, model.CampaignCreateRequest{}.Validate())

		ctx := setupTestContext("POST", "/campaign", bodyBytes)
		handler.CreateCampaign(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestCampaignHandler_CreateABCampaign(t *testing.T) {
	svc := new(MockCampaignService)
	handler := NewCampaignHandler(svc)

	bodyBytes, _ := json.Marshal(createABCampaignRequest{
		Name:       "subject test",
		MessageA:   "a body",
		MessageB:   "b body",
		Audience:   "all",
		Channel:    "email",
		SplitRatio: 0.3,
	})

	svc.On("CreateAB", mock.Anything, mock.MatchedBy(func(r model.ABCampaignCreateRequest) bool {
		return r.SplitRatio == 0.3 && r.Channel == model.ChannelEmail
	})).Return(&services.CampaignResult{
		CampaignID: "654321",
		Recipients: 10,
		Sent:       10,
		VariantA:   3,
		VariantB:   7,
	}, nil)

	ctx := setupTestContext("POST", "/ab_campaign", bodyBytes)
	handler.CreateABCampaign(ctx)

	assert.Equal(t, 201, ctx.Response.StatusCode())

	var response campaignResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, 3, response.VariantA)
	assert.Equal(t, 7, response.VariantB)
}

func TestCampaignHandler_GetCampaign(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("Get", mock.Anything, "123456", "whatsapp").
			Return(&model.Campaign{ID: "123456", Variant: "whatsapp", Sent: 40}, nil)

		ctx := setupTestContext("GET", "/campaign/123456?variant=whatsapp", nil)
		ctx.SetUserValue("id", "123456")
		handler.GetCampaign(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response model.Campaign
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Equal(t, int64(40), response.Sent)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("Get", mock.Anything, "000000", "A").
			Return(nil, repository.ErrCampaignNotFound)

		ctx := setupTestContext("GET", "/campaign/000000?variant=A", nil)
		ctx.SetUserValue("id", "000000")
		handler.GetCampaign(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("missing variant", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		ctx := setupTestContext("GET", "/campaign/123456", nil)
		ctx.SetUserValue("id", "123456")
		handler.GetCampaign(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}
