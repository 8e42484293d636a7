package model

import (
	"errors"
	"time"
)

// Variant keys for split-test campaigns. Non-split campaigns use the
// channel name as the variant key instead.
const (
	VariantA = "A"
	VariantB = "B"
)

// Campaign is one arm of a campaign, keyed by (ID, Variant). Counters
// are increment-only and maintained by the dispatcher and the
// engagement recorder; they are never overwritten.
type Campaign struct {
	ID             string    `json:"id"`
	Variant        string    `json:"variant"`
	Name           string    `json:"name"`
	Message        string    `json:"message"`
	Subject        string    `json:"subject,omitempty"` // email only
	Audience       string    `json:"audience"`
	Channel        Channel   `json:"channel"`
	Sent           int64     `json:"sent"`
	Opened         int64     `json:"opened"`
	Clicked        int64     `json:"clicked"`
	Converted      int64     `json:"converted"`
	ConvertedValue float64   `json:"converted_value"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Campaign) TableName() string { return "campaigns" }

// CampaignCreateRequest is the input for a single-message campaign.
type CampaignCreateRequest struct {
	Name     string
	Message  string
	Subject  string
	Audience string
	Channel  Channel
}

func (r CampaignCreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	if r.Audience == "" {
		return errors.New("audience is required")
	}
	if !r.Channel.Concrete() && r.Channel != ChannelMulti {
		return errors.New("unknown channel: " + string(r.Channel))
	}
	return nil
}

// ABCampaignCreateRequest is the input for a split-test campaign.
// SplitRatio is the share of the audience assigned to variant A; 0 and 1
// are legal and degenerate to an all-B or all-A send.
type ABCampaignCreateRequest struct {
	Name       string
	MessageA   string
	MessageB   string
	SubjectA   string
	SubjectB   string
	Audience   string
	Channel    Channel
	SplitRatio float64
}

func (r ABCampaignCreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.MessageA == "" || r.MessageB == "" {
		return errors.New("both variant messages are required")
	}
	if r.Audience == "" {
		return errors.New("audience is required")
	}
	if !r.Channel.Concrete() && r.Channel != ChannelMulti {
		return errors.New("unknown channel: " + string(r.Channel))
	}
	if r.SplitRatio < 0 || r.SplitRatio > 1 {
		return errors.New("split_ratio must be within [0, 1]")
	}
	return nil
}
