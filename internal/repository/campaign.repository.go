package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrCampaignNotFound is returned when no campaign row matches.
	ErrCampaignNotFound = errors.New("campaign not found")
)

type CampaignRepository struct {
	*pg.DB
}

func NewCampaignRepository(db *pg.DB) *CampaignRepository {
	return &CampaignRepository{
		db,
	}
}

func (r *CampaignRepository) Insert(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	entity := toCampaignEntity(c)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCampaignModel(entity), nil
}

func (r *CampaignRepository) Get(ctx context.Context, id, variant string) (*model.Campaign, error) {
	var entity CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND variant = ?", id, variant).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return toCampaignModel(&entity), nil
}

// Exists reports whether any row carries the campaign id, across all
// variants. Used to reject id collisions before insert.
func (r *CampaignRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", id).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementSent bumps the sent counter on the row matching
// (id, variantKey). Returns the number of rows touched; zero means no
// campaign row existed for the key, which callers surface rather than
// swallow.
func (r *CampaignRepository) IncrementSent(ctx context.Context, id, variantKey string) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND variant = ?", id, variantKey).
		Update("sent", gorm.Expr("sent + 1"))
	return result.RowsAffected, result.Error
}

// IncrementClicked bumps clicked on every row of the campaign whose
// message text contains url. Substring attribution is the documented
// legacy contract: several variant rows may match and all are updated.
func (r *CampaignRepository) IncrementClicked(ctx context.Context, id, url string) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND message LIKE ?", id, "%"+url+"%").
		Update("clicked", gorm.Expr("clicked + 1"))
	return result.RowsAffected, result.Error
}

// IncrementOpened bumps opened with the same substring attribution as
// IncrementClicked.
func (r *CampaignRepository) IncrementOpened(ctx context.Context, id, url string) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND message LIKE ?", id, "%"+url+"%").
		Update("opened", gorm.Expr("opened + 1"))
	return result.RowsAffected, result.Error
}

// IncrementConverted bumps converted and accumulates the conversion
// value on every matching row.
func (r *CampaignRepository) IncrementConverted(ctx context.Context, id, url string, value float64) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND message LIKE ?", id, "%"+url+"%").
		Updates(map[string]interface{}{
			"converted":       gorm.Expr("converted + 1"),
			"converted_value": gorm.Expr("converted_value + ?", value),
		})
	return result.RowsAffected, result.Error
}

// ListBetween returns campaign rows created inside a period, the
// reporting window of the analytics queries.
func (r *CampaignRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Campaign, error) {
	var entities []*CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toCampaignModels(entities), nil
}
