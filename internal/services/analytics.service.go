package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sindbad/engage/internal/model"
)

// messageCosts is the per-delivery cost in EUR used for ROI reporting.
var messageCosts = map[model.Channel]float64{
	model.ChannelWhatsApp: 0.05,
	model.ChannelSMS:      0.06,
	model.ChannelEmail:    0.003,
}

const defaultMessageCost = 0.05

type AnalyticsMessageRepository interface {
	CountByChannel(ctx context.Context, from, to time.Time) ([]model.ChannelCount, error)
	TimeSeries(ctx context.Context, from, to time.Time) ([]model.DailyChannelCount, error)
	SegmentStats(ctx context.Context, from, to time.Time) ([]model.SegmentStats, error)
}

type AnalyticsCampaignRepository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]*model.Campaign, error)
}

// CampaignPerformance is one campaign variant with its engagement rates.
type CampaignPerformance struct {
	ID             string        `json:"id"`
	Variant        string        `json:"variant"`
	Name           string        `json:"name"`
	Channel        model.Channel `json:"channel"`
	Sent           int64         `json:"sent"`
	Opened         int64         `json:"opened"`
	Clicked        int64         `json:"clicked"`
	Converted      int64         `json:"converted"`
	ConvertedValue float64       `json:"converted_value"`
	OpenRate       float64       `json:"open_rate"`
	ClickRate      float64       `json:"click_rate"`
	ConversionRate float64       `json:"conversion_rate"`
}

// DetailedReport is the full analytics dashboard payload.
type DetailedReport struct {
	From      time.Time                 `json:"from"`
	To        time.Time                 `json:"to"`
	ByChannel []model.ChannelCount      `json:"by_channel"`
	Daily     []model.DailyChannelCount `json:"daily"`
	Segments  []model.SegmentStats      `json:"segments"`
	Campaigns []CampaignPerformance     `json:"campaigns"`
}

// CampaignROI is the cost and return of one campaign variant.
type CampaignROI struct {
	ID        string        `json:"id"`
	Variant   string        `json:"variant"`
	Name      string        `json:"name"`
	Channel   model.Channel `json:"channel"`
	Sent      int64         `json:"sent"`
	Converted int64         `json:"converted"`
	Cost      float64       `json:"cost"`
	Revenue   float64       `json:"revenue"`
	ROI       float64       `json:"roi"`
}

type ROIReport struct {
	Campaigns    []CampaignROI `json:"campaigns"`
	TotalCost    float64       `json:"total_cost"`
	TotalRevenue float64       `json:"total_revenue"`
	OverallROI   float64       `json:"overall_roi"`
}

type AnalyticsService struct {
	messages  AnalyticsMessageRepository
	campaigns AnalyticsCampaignRepository
}

func NewAnalyticsService(messages AnalyticsMessageRepository, campaigns AnalyticsCampaignRepository) *AnalyticsService {
	return &AnalyticsService{messages: messages, campaigns: campaigns}
}

func (s *AnalyticsService) Detailed(ctx context.Context, from, to time.Time) (*DetailedReport, error) {
	byChannel, err := s.messages.CountByChannel(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("count by channel: %w", err)
	}
	daily, err := s.messages.TimeSeries(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("time series: %w", err)
	}
	segments, err := s.messages.SegmentStats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("segment stats: %w", err)
	}
	campaigns, err := s.campaigns.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	perf := make([]CampaignPerformance, 0, len(campaigns))
	for _, c := range campaigns {
		perf = append(perf, CampaignPerformance{
			ID:             c.ID,
			Variant:        c.Variant,
			Name:           c.Name,
			Channel:        c.Channel,
			Sent:           c.Sent,
			Opened:         c.Opened,
			Clicked:        c.Clicked,
			Converted:      c.Converted,
			ConvertedValue: c.ConvertedValue,
			OpenRate:       rate(c.Opened, c.Sent),
			ClickRate:      rate(c.Clicked, c.Sent),
			ConversionRate: rate(c.Converted, c.Sent),
		})
	}

	return &DetailedReport{
		From:      from,
		To:        to,
		ByChannel: byChannel,
		Daily:     daily,
		Segments:  segments,
		Campaigns: perf,
	}, nil
}

// ROI prices every sent message at its channel rate and compares the
// spend to the attributed conversion value. Campaigns with zero cost
// report zero ROI rather than dividing by zero.
func (s *AnalyticsService) ROI(ctx context.Context, from, to time.Time) (*ROIReport, error) {
	campaigns, err := s.campaigns.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	report := &ROIReport{Campaigns: make([]CampaignROI, 0, len(campaigns))}
	for _, c := range campaigns {
		cost := round2(float64(c.Sent) * costPerMessage(c.Channel))
		revenue := round2(c.ConvertedValue)
		report.Campaigns = append(report.Campaigns, CampaignROI{
			ID:        c.ID,
			Variant:   c.Variant,
			Name:      c.Name,
			Channel:   c.Channel,
			Sent:      c.Sent,
			Converted: c.Converted,
			Cost:      cost,
			Revenue:   revenue,
			ROI:       roi(revenue, cost),
		})
		report.TotalCost += cost
		report.TotalRevenue += revenue
	}
	report.TotalCost = round2(report.TotalCost)
	report.TotalRevenue = round2(report.TotalRevenue)
	report.OverallROI = roi(report.TotalRevenue, report.TotalCost)
	return report, nil
}

func costPerMessage(ch model.Channel) float64 {
	if c, ok := messageCosts[ch]; ok {
		return c
	}
	return defaultMessageCost
}

func roi(revenue, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	return round2((revenue - cost) / cost * 100)
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
