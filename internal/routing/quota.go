// Package routing decides which channels a message may be sent over:
// pure consent, plan and quota policy with no I/O.
package routing

import (
	"time"

	"github.com/sindbad/engage/internal/model"
)

// QuotaWindow is the rolling period a user's trailing message count is
// computed over.
const QuotaWindow = 30 * 24 * time.Hour

// Trailing 30-day message limits for the capped plans.
const (
	FreePlanLimit    = 300
	StarterPlanLimit = 3000
)

// Allowed reports whether a send over ch is permitted for plan given the
// user's trailing 30-day message count. Unknown plan strings get the
// free tier's restrictions, the most restrictive treatment.
func Allowed(plan model.Plan, ch model.Channel, trailingCount int64) bool {
	switch plan {
	case model.PlanPro, model.PlanEnterprise:
		return true
	case model.PlanStarter:
		if ch == model.ChannelWhatsApp || ch == model.ChannelSMS {
			return trailingCount < StarterPlanLimit
		}
		return true
	default:
		// free: email and sms are plan-gated outright, chat is capped
		if ch == model.ChannelSMS || ch == model.ChannelEmail {
			return false
		}
		return trailingCount < FreePlanLimit
	}
}
