package model

// Channel identifies a delivery channel.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"

	// ChannelMulti is a pseudo-channel that fans a message out over every
	// channel the recipient has consented to.
	ChannelMulti Channel = "multi"
)

// Concrete reports whether the channel is a real transport (not a
// routing pseudo-channel).
func (c Channel) Concrete() bool {
	switch c {
	case ChannelWhatsApp, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

// Plan is a subscription tier. It gates channel availability and the
// trailing 30-day message quota.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// PlanPrices is the monthly price in EUR per paid plan.
var PlanPrices = map[Plan]float64{
	PlanStarter:    10.00,
	PlanPro:        30.00,
	PlanEnterprise: 80.00,
}
