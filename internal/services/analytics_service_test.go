package services

import (
	"context"
	"testing"
	"time"

	"github.com/sindbad/engage/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsService_Detailed(t *testing.T) {
	messages := new(MockMessageRepository)
	campaigns := new(MockCampaignRepository)
	svc := NewAnalyticsService(messages, campaigns)
	ctx := context.Background()

	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()

	messages.On("CountByChannel", ctx, from, to).Return([]model.ChannelCount{
		{Channel: model.ChannelWhatsApp, Count: 40},
		{Channel: model.ChannelEmail, Count: 10},
	}, nil)
	messages.On("TimeSeries", ctx, from, to).Return([]model.DailyChannelCount{}, nil)
	messages.On("SegmentStats", ctx, from, to).Return([]model.SegmentStats{
		{Segment: "vip", Messages: 50},
	}, nil)
	campaigns.On("ListBetween", ctx, from, to).Return([]*model.Campaign{
		{ID: "111111", Variant: "whatsapp", Sent: 40, Opened: 20, Clicked: 10, Converted: 4},
		{ID: "222222", Variant: "email", Sent: 0},
	}, nil)

	report, err := svc.Detailed(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, report.Campaigns, 2)

	first := report.Campaigns[0]
	assert.Equal(t, 50.0, first.OpenRate)
	assert.Equal(t, 25.0, first.ClickRate)
	assert.Equal(t, 10.0, first.ConversionRate)

	// A campaign that never sent has zero rates, not NaN.
	assert.Zero(t, report.Campaigns[1].OpenRate)
	assert.Len(t, report.ByChannel, 2)
}

func TestAnalyticsService_ROI(t *testing.T) {
	messages := new(MockMessageRepository)
	campaigns := new(MockCampaignRepository)
	svc := NewAnalyticsService(messages, campaigns)
	ctx := context.Background()

	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()

	campaigns.On("ListBetween", ctx, from, to).Return([]*model.Campaign{
		{ID: "111111", Variant: "whatsapp", Channel: model.ChannelWhatsApp, Sent: 100, Converted: 3, ConvertedValue: 20},
		{ID: "222222", Variant: "email", Channel: model.ChannelEmail, Sent: 1000, ConvertedValue: 1.5},
		{ID: "333333", Variant: "sms", Channel: model.ChannelSMS, Sent: 0},
	}, nil)

	report, err := svc.ROI(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, report.Campaigns, 3)

	whatsapp := report.Campaigns[0]
	assert.Equal(t, 5.0, whatsapp.Cost)
	assert.Equal(t, 20.0, whatsapp.Revenue)
	assert.Equal(t, 300.0, whatsapp.ROI)

	email := report.Campaigns[1]
	assert.Equal(t, 3.0, email.Cost)
	assert.Equal(t, -50.0, email.ROI)

	// Zero spend reports zero ROI instead of dividing by zero.
	assert.Zero(t, report.Campaigns[2].ROI)

	assert.Equal(t, 8.0, report.TotalCost)
	assert.Equal(t, 21.5, report.TotalRevenue)
	assert.Equal(t, 168.75, report.OverallROI)
}

func TestCostPerMessage_UnknownChannelUsesDefault(t *testing.T) {
	assert.Equal(t, defaultMessageCost, costPerMessage(model.Channel("fax")))
	assert.Equal(t, 0.003, costPerMessage(model.ChannelEmail))
}
