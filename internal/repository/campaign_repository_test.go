package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sindbad/engage/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCampaign(t *testing.T, repo *CampaignRepository, id, variant, message string) {
	t.Helper()
	_, err := repo.Insert(context.Background(), &model.Campaign{
		ID:       id,
		Variant:  variant,
		Name:     "test campaign",
		Message:  message,
		Audience: "all",
		Channel:  model.ChannelWhatsApp,
	})
	require.NoError(t, err)
}

func TestCampaignRepository_InsertAndGet(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	seedCampaign(t, repo, "100001", "whatsapp", "Visit https://shop.example/x today")

	c, err := repo.Get(ctx, "100001", "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, "test campaign", c.Name)
	assert.Zero(t, c.Sent)

	t.Run("two variants under one id", func(t *testing.T) {
		seedCampaign(t, repo, "100002", model.VariantA, "A body")
		seedCampaign(t, repo, "100002", model.VariantB, "B body")

		a, err := repo.Get(ctx, "100002", model.VariantA)
		require.NoError(t, err)
		b, err := repo.Get(ctx, "100002", model.VariantB)
		require.NoError(t, err)
		assert.Equal(t, "A body", a.Message)
		assert.Equal(t, "B body", b.Message)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := repo.Get(ctx, "100001", "email")
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})
}

func TestCampaignRepository_Exists(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	seedCampaign(t, repo, "200001", "whatsapp", "body")

	ok, err := repo.Exists(ctx, "200001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "200002")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCampaignRepository_IncrementSent(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	seedCampaign(t, repo, "300001", "whatsapp", "body")

	rows, err := repo.IncrementSent(ctx, "300001", "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.IncrementSent(ctx, "300001", "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	c, err := repo.Get(ctx, "300001", "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Sent)

	t.Run("wrong variant key touches nothing", func(t *testing.T) {
		rows, err := repo.IncrementSent(ctx, "300001", "email")
		require.NoError(t, err)
		assert.Zero(t, rows)
	})
}

func TestCampaignRepository_EngagementCounters(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	url := "https://shop.example/offer"
	seedCampaign(t, repo, "400001", model.VariantA, "Check out "+url+" now")
	seedCampaign(t, repo, "400001", model.VariantB, "Totally different text")

	t.Run("click matches message substring", func(t *testing.T) {
		rows, err := repo.IncrementClicked(ctx, "400001", url)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rows)

		a, err := repo.Get(ctx, "400001", model.VariantA)
		require.NoError(t, err)
		assert.Equal(t, int64(1), a.Clicked)

		b, err := repo.Get(ctx, "400001", model.VariantB)
		require.NoError(t, err)
		assert.Zero(t, b.Clicked)
	})

	t.Run("click applies to every matching row", func(t *testing.T) {
		seedCampaign(t, repo, "400002", model.VariantA, "go to "+url)
		seedCampaign(t, repo, "400002", model.VariantB, "also go to "+url)

		rows, err := repo.IncrementClicked(ctx, "400002", url)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rows)
	})

	t.Run("conversion accumulates value", func(t *testing.T) {
		_, err := repo.IncrementConverted(ctx, "400001", url, 49.95)
		require.NoError(t, err)
		_, err = repo.IncrementConverted(ctx, "400001", url, 0)
		require.NoError(t, err)

		a, err := repo.Get(ctx, "400001", model.VariantA)
		require.NoError(t, err)
		assert.Equal(t, int64(2), a.Converted)
		assert.InDelta(t, 49.95, a.ConvertedValue, 0.001)
	})

	t.Run("open counter", func(t *testing.T) {
		rows, err := repo.IncrementOpened(ctx, "400001", url)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rows)
	})

	t.Run("no substring match touches nothing", func(t *testing.T) {
		rows, err := repo.IncrementClicked(ctx, "400001", "https://elsewhere.example")
		require.NoError(t, err)
		assert.Zero(t, rows)
	})
}

func TestCampaignRepository_ListBetween(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	seedCampaign(t, repo, "500001", "whatsapp", "body")
	seedCampaign(t, repo, "500002", "email", "body")

	campaigns, err := repo.ListBetween(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, campaigns, 2)

	campaigns, err = repo.ListBetween(ctx, time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, campaigns)
}
