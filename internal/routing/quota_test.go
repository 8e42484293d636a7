package routing

import (
	"testing"

	"github.com/sindbad/engage/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestAllowed_FreePlan(t *testing.T) {
	t.Run("email always denied", func(t *testing.T) {
		assert.False(t, Allowed(model.PlanFree, model.ChannelEmail, 0))
	})

	t.Run("sms always denied", func(t *testing.T) {
		assert.False(t, Allowed(model.PlanFree, model.ChannelSMS, 0))
	})

	t.Run("whatsapp under the limit", func(t *testing.T) {
		assert.True(t, Allowed(model.PlanFree, model.ChannelWhatsApp, 0))
		assert.True(t, Allowed(model.PlanFree, model.ChannelWhatsApp, FreePlanLimit-1))
	})

	t.Run("whatsapp at the limit", func(t *testing.T) {
		assert.False(t, Allowed(model.PlanFree, model.ChannelWhatsApp, FreePlanLimit))
		assert.False(t, Allowed(model.PlanFree, model.ChannelWhatsApp, FreePlanLimit+500))
	})
}

func TestAllowed_StarterPlan(t *testing.T) {
	t.Run("chat and text capped at 3000", func(t *testing.T) {
		assert.True(t, Allowed(model.PlanStarter, model.ChannelWhatsApp, 2999))
		assert.False(t, Allowed(model.PlanStarter, model.ChannelWhatsApp, 3000))
		assert.True(t, Allowed(model.PlanStarter, model.ChannelSMS, 2999))
		assert.False(t, Allowed(model.PlanStarter, model.ChannelSMS, 3000))
	})

	t.Run("email uncapped", func(t *testing.T) {
		assert.True(t, Allowed(model.PlanStarter, model.ChannelEmail, 1_000_000))
	})
}

func TestAllowed_UncappedPlans(t *testing.T) {
	for _, plan := range []model.Plan{model.PlanPro, model.PlanEnterprise} {
		for _, ch := range []model.Channel{model.ChannelWhatsApp, model.ChannelSMS, model.ChannelEmail} {
			assert.True(t, Allowed(plan, ch, 1_000_000), "plan=%s channel=%s", plan, ch)
		}
	}
}

func TestAllowed_UnknownPlan(t *testing.T) {
	// legacy or mistyped plans fall back to free-tier restrictions
	assert.False(t, Allowed("legacy-gold", model.ChannelSMS, 0))
	assert.False(t, Allowed("legacy-gold", model.ChannelEmail, 0))
	assert.True(t, Allowed("legacy-gold", model.ChannelWhatsApp, FreePlanLimit-1))
	assert.False(t, Allowed("legacy-gold", model.ChannelWhatsApp, FreePlanLimit))
}
