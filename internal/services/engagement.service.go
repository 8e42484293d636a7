package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sindbad/engage/pkg/logger"
)

var (
	ErrEngagementInput = errors.New("campaign id and url are required")
)

type EngagementCampaignRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	IncrementOpened(ctx context.Context, id, url string) (int64, error)
	IncrementClicked(ctx context.Context, id, url string) (int64, error)
	IncrementConverted(ctx context.Context, id, url string, value float64) (int64, error)
}

// EngagementService records opens, clicks and conversions against
// campaign counters. Attribution is by substring: an event counts
// toward every variant whose message contains the reported url.
// Recording is not idempotent; callers that replay an event bump the
// counter again.
type EngagementService struct {
	campaigns EngagementCampaignRepository
}

func NewEngagementService(campaigns EngagementCampaignRepository) *EngagementService {
	return &EngagementService{campaigns: campaigns}
}

func (s *EngagementService) RecordOpen(ctx context.Context, campaignID, url string) error {
	rows, err := s.record(ctx, campaignID, url, func(ctx context.Context) (int64, error) {
		return s.campaigns.IncrementOpened(ctx, campaignID, url)
	})
	if err != nil {
		return err
	}
	logger.Debug("[engagement] open recorded", "campaign_id", campaignID, "variants", rows)
	return nil
}

func (s *EngagementService) RecordClick(ctx context.Context, campaignID, url string) error {
	rows, err := s.record(ctx, campaignID, url, func(ctx context.Context) (int64, error) {
		return s.campaigns.IncrementClicked(ctx, campaignID, url)
	})
	if err != nil {
		return err
	}
	logger.Debug("[engagement] click recorded", "campaign_id", campaignID, "variants", rows)
	return nil
}

// RecordConversion bumps the conversion counter and accumulates the
// purchase value on every matching variant.
func (s *EngagementService) RecordConversion(ctx context.Context, campaignID, url string, value float64) error {
	rows, err := s.record(ctx, campaignID, url, func(ctx context.Context) (int64, error) {
		return s.campaigns.IncrementConverted(ctx, campaignID, url, value)
	})
	if err != nil {
		return err
	}
	logger.Debug("[engagement] conversion recorded", "campaign_id", campaignID, "value", value, "variants", rows)
	return nil
}

func (s *EngagementService) record(ctx context.Context, campaignID, url string, inc func(ctx context.Context) (int64, error)) (int64, error) {
	if campaignID == "" || url == "" {
		return 0, ErrEngagementInput
	}
	exists, err := s.campaigns.Exists(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("check campaign: %w", err)
	}
	if !exists {
		// Events for unknown campaigns are dropped, not failed: the
		// trackers fire from public pages and stale links are routine.
		logger.Warn("[engagement] event for unknown campaign dropped", "campaign_id", campaignID)
		return 0, nil
	}
	rows, err := inc(ctx)
	if err != nil {
		return 0, fmt.Errorf("record engagement: %w", err)
	}
	return rows, nil
}
