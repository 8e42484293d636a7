package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/pkg/logger"
	"github.com/sindbad/engage/pkg/prom"
)

var (
	ErrCampaignIDExhausted = errors.New("could not allocate a free campaign id")
)

const campaignIDAttempts = 10

type CampaignUserRepository interface {
	EligibleBySegment(ctx context.Context, segment string) ([]*model.User, error)
}

type CampaignRepository interface {
	Insert(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id, variant string) (*model.Campaign, error)
}

// CampaignResult summarizes a campaign fan-out. Sent counts actual
// deliveries, so it can be lower than Recipients when consent or quota
// filtered someone out.
type CampaignResult struct {
	CampaignID string `json:"campaign_id"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	VariantA   int    `json:"variant_a,omitempty"`
	VariantB   int    `json:"variant_b,omitempty"`
}

type CampaignService struct {
	users      CampaignUserRepository
	campaigns  CampaignRepository
	dispatcher Dispatcher
	rnd        *rand.Rand
}

// NewCampaignService builds the campaign engine. rnd drives campaign
// id allocation and split-test shuffling; pass a seeded source in tests
// for a deterministic split.
func NewCampaignService(users CampaignUserRepository, campaigns CampaignRepository, dispatcher Dispatcher, rnd *rand.Rand) *CampaignService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CampaignService{
		users:      users,
		campaigns:  campaigns,
		dispatcher: dispatcher,
		rnd:        rnd,
	}
}

// Create launches a single-message campaign: one counter row keyed by
// the campaign's channel, then a dispatch per eligible recipient.
// Recipients that fail do not stop the fan-out.
func (s *CampaignService) Create(ctx context.Context, req model.CampaignCreateRequest) (*CampaignResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := s.newCampaignID(ctx)
	if err != nil {
		return nil, err
	}

	_, err = s.campaigns.Insert(ctx, &model.Campaign{
		ID:       id,
		Variant:  string(req.Channel),
		Name:     req.Name,
		Message:  req.Message,
		Subject:  req.Subject,
		Audience: req.Audience,
		Channel:  req.Channel,
	})
	if err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}

	users, err := s.users.EligibleBySegment(ctx, req.Audience)
	if err != nil {
		return nil, fmt.Errorf("load audience: %w", err)
	}

	result := &CampaignResult{CampaignID: id, Recipients: len(users)}
	for _, u := range users {
		s.sendTo(ctx, u, model.DispatchRequest{
			Body:       req.Message,
			Subject:    req.Subject,
			Channel:    req.Channel,
			CampaignID: id,
			Variant:    string(req.Channel),
		}, result)
	}

	prom.IncCounterVec(prom.SystemCampaigns, prom.MetricCampaignsCreated, "single")
	logger.Info("[campaign] launched", "id", id, "audience", req.Audience, "recipients", result.Recipients, "sent", result.Sent)
	return result, nil
}

// CreateAB launches a split-test campaign: two counter rows keyed A and
// B, the audience shuffled and cut at floor(len * ratio), the first
// part on variant A and the rest on variant B.
func (s *CampaignService) CreateAB(ctx context.Context, req model.ABCampaignCreateRequest) (*CampaignResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := s.newCampaignID(ctx)
	if err != nil {
		return nil, err
	}

	variants := []struct {
		key     string
		message string
		subject string
	}{
		{model.VariantA, req.MessageA, req.SubjectA},
		{model.VariantB, req.MessageB, req.SubjectB},
	}
	for _, v := range variants {
		_, err = s.campaigns.Insert(ctx, &model.Campaign{
			ID:       id,
			Variant:  v.key,
			Name:     fmt.Sprintf("%s (%s)", req.Name, v.key),
			Message:  v.message,
			Subject:  v.subject,
			Audience: req.Audience,
			Channel:  req.Channel,
		})
		if err != nil {
			return nil, fmt.Errorf("insert campaign variant %s: %w", v.key, err)
		}
	}

	users, err := s.users.EligibleBySegment(ctx, req.Audience)
	if err != nil {
		return nil, fmt.Errorf("load audience: %w", err)
	}

	s.rnd.Shuffle(len(users), func(i, j int) {
		users[i], users[j] = users[j], users[i]
	})
	split := int(float64(len(users)) * req.SplitRatio)

	result := &CampaignResult{CampaignID: id, Recipients: len(users)}
	for i, u := range users {
		variant := model.VariantB
		message := req.MessageB
		subject := req.SubjectB
		if i < split {
			variant = model.VariantA
			message = req.MessageA
			subject = req.SubjectA
		}
		before := result.Sent
		s.sendTo(ctx, u, model.DispatchRequest{
			Body:       message,
			Subject:    subject,
			Channel:    req.Channel,
			CampaignID: id,
			Variant:    variant,
		}, result)
		if delta := result.Sent - before; delta > 0 {
			if variant == model.VariantA {
				result.VariantA += delta
			} else {
				result.VariantB += delta
			}
		}
	}

	prom.IncCounterVec(prom.SystemCampaigns, prom.MetricCampaignsCreated, "split")
	logger.Info("[campaign] split test launched", "id", id, "audience", req.Audience,
		"recipients", result.Recipients, "variant_a", result.VariantA, "variant_b", result.VariantB)
	return result, nil
}

// Get returns one counter row of a campaign.
func (s *CampaignService) Get(ctx context.Context, id, variant string) (*model.Campaign, error) {
	return s.campaigns.Get(ctx, id, variant)
}

func (s *CampaignService) sendTo(ctx context.Context, u *model.User, req model.DispatchRequest, result *CampaignResult) {
	req.Phone = u.Phone
	req.Email = u.Email
	outcomes, err := s.dispatcher.Send(ctx, req)
	if err != nil {
		result.Failed++
		logger.Warn("[campaign] dispatch failed", "campaign_id", req.CampaignID, "phone", u.Phone, "error", err)
		return
	}
	result.Sent += SentCount(outcomes)
	for _, o := range outcomes {
		if o.Status == OutcomeFailed || o.Status == OutcomeInconsistent {
			result.Failed++
		}
	}
}

// newCampaignID allocates a 6-digit id, rerolling on collision. The
// space is small enough that collisions are expected once campaigns
// accumulate, so allocation is checked instead of fire-and-forget.
func (s *CampaignService) newCampaignID(ctx context.Context) (string, error) {
	for i := 0; i < campaignIDAttempts; i++ {
		id := fmt.Sprintf("%06d", 100000+s.rnd.Intn(900000))
		exists, err := s.campaigns.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check campaign id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrCampaignIDExhausted
}
