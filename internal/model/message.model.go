package model

import (
	"errors"
	"time"
)

// Message is one actually-sent delivery attempt. Rows are immutable:
// they serve as the audit log and as the basis for trailing quota
// counts.
type Message struct {
	ID         string    `json:"id"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	Content    string    `json:"content"`
	Response   string    `json:"response"`
	Channel    Channel   `json:"channel"`
	CampaignID string    `json:"campaign_id"`
	Variant    string    `json:"variant"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// DispatchRequest is one logical message to one recipient. Variant is
// empty outside split tests; the dispatcher then falls back to the
// channel name when matching the campaign counter row.
type DispatchRequest struct {
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
	Body       string  `json:"body"`
	Subject    string  `json:"subject"`
	Channel    Channel `json:"channel"`
	CampaignID string  `json:"campaign_id"`
	Variant    string  `json:"variant"`
}

func (r DispatchRequest) Validate() error {
	if r.Phone == "" && r.Email == "" {
		return errors.New("phone or email is required")
	}
	if r.Body == "" {
		return errors.New("body is required")
	}
	if !r.Channel.Concrete() && r.Channel != ChannelMulti {
		return errors.New("unknown channel: " + string(r.Channel))
	}
	return nil
}

// MessageFilter controls message list queries.
type MessageFilter struct {
	Phone      *string
	Channel    *Channel
	CampaignID *string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
	Desc       bool
}

// ChannelCount is a per-channel message count for reporting.
type ChannelCount struct {
	Channel Channel `json:"channel"`
	Count   int64   `json:"count"`
}

// DailyChannelCount is one point of the sends time series.
type DailyChannelCount struct {
	Date    string  `json:"date"`
	Channel Channel `json:"channel"`
	Count   int64   `json:"count"`
}

// SegmentStats aggregates activity per audience segment.
type SegmentStats struct {
	Segment   string `json:"segment"`
	Messages  int64  `json:"messages"`
	Sent      int64  `json:"sent"`
	Clicked   int64  `json:"clicked"`
	Converted int64  `json:"converted"`
}
