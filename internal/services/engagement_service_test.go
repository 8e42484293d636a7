package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEngagementService_RecordClick(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewEngagementService(campaigns)
	ctx := context.Background()

	campaigns.On("Exists", ctx, "123456").Return(true, nil)
	campaigns.On("IncrementClicked", ctx, "123456", "https://shop.example/x").
		Return(int64(1), nil)

	err := svc.RecordClick(ctx, "123456", "https://shop.example/x")
	require.NoError(t, err)
	campaigns.AssertExpectations(t)
}

func TestEngagementService_ReplayCountsAgain(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewEngagementService(campaigns)
	ctx := context.Background()

	campaigns.On("Exists", ctx, "123456").Return(true, nil)
	campaigns.On("IncrementClicked", ctx, "123456", "https://shop.example/x").
		Return(int64(1), nil)

	require.NoError(t, svc.RecordClick(ctx, "123456", "https://shop.example/x"))
	require.NoError(t, svc.RecordClick(ctx, "123456", "https://shop.example/x"))

	campaigns.AssertNumberOfCalls(t, "IncrementClicked", 2)
}

func TestEngagementService_RecordConversion(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewEngagementService(campaigns)
	ctx := context.Background()

	campaigns.On("Exists", ctx, "123456").Return(true, nil)
	campaigns.On("IncrementConverted", ctx, "123456", "https://shop.example/x", 49.95).
		Return(int64(1), nil)

	err := svc.RecordConversion(ctx, "123456", "https://shop.example/x", 49.95)
	require.NoError(t, err)
	campaigns.AssertExpectations(t)
}

func TestEngagementService_UnknownCampaignDropped(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewEngagementService(campaigns)
	ctx := context.Background()

	campaigns.On("Exists", ctx, "000000").Return(false, nil)

	err := svc.RecordOpen(ctx, "000000", "https://shop.example/x")
	require.NoError(t, err)
	campaigns.AssertNotCalled(t, "IncrementOpened", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngagementService_MissingInput(t *testing.T) {
	svc := NewEngagementService(new(MockCampaignRepository))
	ctx := context.Background()

	assert.ErrorIs(t, svc.RecordClick(ctx, "", "https://shop.example/x"), ErrEngagementInput)
	assert.ErrorIs(t, svc.RecordClick(ctx, "123456", ""), ErrEngagementInput)
}
