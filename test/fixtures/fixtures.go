package fixtures

import (
	"time"

	"github.com/sindbad/engage/internal/model"
)

var (
	TestUserFree = model.User{
		Phone:      "+31601000001",
		Email:      "free@example.com",
		OptIn:      true,
		OptInEmail: true,
		Language:   "en",
		Segment:    "all",
		Plan:       model.PlanFree,
	}

	TestUserStarter = model.User{
		Phone:      "+31601000002",
		Email:      "starter@example.com",
		OptIn:      true,
		OptInEmail: true,
		Language:   "en",
		Segment:    "all",
		Plan:       model.PlanStarter,
	}

	TestUserPro = model.User{
		Phone:      "+31601000003",
		Email:      "pro@example.com",
		OptIn:      true,
		OptInEmail: true,
		Language:   "nl",
		Segment:    "vip",
		Plan:       model.PlanPro,
	}

	TestUserNoConsent = model.User{
		Phone:      "+31601000004",
		Email:      "quiet@example.com",
		OptIn:      false,
		OptInEmail: false,
		Language:   "en",
		Segment:    "all",
		Plan:       model.PlanFree,
	}
)

func NewTestUser(phone, email, segment string, plan model.Plan) *model.User {
	return &model.User{
		Phone:      phone,
		Email:      email,
		OptIn:      true,
		OptInEmail: true,
		Language:   "en",
		Segment:    segment,
		Plan:       plan,
	}
}

func NewTestCampaign(id, variant, message string, channel model.Channel) *model.Campaign {
	return &model.Campaign{
		ID:        id,
		Variant:   variant,
		Name:      "test campaign " + id,
		Message:   message,
		Audience:  "all",
		Channel:   channel,
		CreatedAt: time.Now(),
	}
}

func NewDispatchRequest(phone, body string, channel model.Channel) model.DispatchRequest {
	return model.DispatchRequest{
		Phone:   phone,
		Body:    body,
		Channel: channel,
	}
}

var (
	ValidPhoneNumbers = []string{
		"+31601234567",
		"+9876543210",
		"+4412345678",
		"+33123456789",
		"+81312345678",
	}

	ValidMessageBodies = []string{
		"Hello World",
		"Flash sale ends tonight",
		"Short",
		"This is a longer message with more content for testing purposes",
	}
)

func CampaignCreateRequestWhatsApp() model.CampaignCreateRequest {
	return model.CampaignCreateRequest{
		Name:     "spring sale",
		Message:  "20% off everything",
		Audience: "all",
		Channel:  model.ChannelWhatsApp,
	}
}

func ABCampaignCreateRequest(ratio float64) model.ABCampaignCreateRequest {
	return model.ABCampaignCreateRequest{
		Name:       "subject test",
		MessageA:   "Deal ends tonight",
		MessageB:   "Last chance for the deal",
		Audience:   "all",
		Channel:    model.ChannelWhatsApp,
		SplitRatio: ratio,
	}
}

func MessageFilterByPhone(phone string) model.MessageFilter {
	return model.MessageFilter{
		Phone:  &phone,
		Limit:  50,
		Offset: 0,
		Desc:   false,
	}
}

func MessageFilterByCampaign(campaignID string) model.MessageFilter {
	return model.MessageFilter{
		CampaignID: &campaignID,
		Limit:      50,
		Offset:     0,
		Desc:       false,
	}
}

func MessageFilterByTimeRange(from, to time.Time) model.MessageFilter {
	return model.MessageFilter{
		From:   &from,
		To:     &to,
		Limit:  50,
		Offset: 0,
		Desc:   false,
	}
}
