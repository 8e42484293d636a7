package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{
		db,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	entity := toUserEntity(u)
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.Language == "" {
		entity.Language = "en"
	}
	if entity.Segment == "" {
		entity.Segment = "all"
	}
	if entity.Plan == "" {
		entity.Plan = string(model.PlanFree)
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toUserModel(entity), nil
}

// FindByPhoneOrEmail resolves a recipient by phone or email. An empty
// phone or email never matches; a row matching either populated field
// wins.
func (r *UserRepository) FindByPhoneOrEmail(ctx context.Context, phone, email string) (*model.User, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&UserEntity{})

	switch {
	case phone != "" && email != "":
		q = q.Where("phone = ? OR email = ?", phone, email)
	case phone != "":
		q = q.Where("phone = ?", phone)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		return nil, ErrUserNotFound
	}

	var entity UserEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toUserModel(&entity), nil
}

// EligibleBySegment returns the users in a segment holding at least one
// consent flag, the audience of a campaign send.
func (r *UserRepository) EligibleBySegment(ctx context.Context, segment string) ([]*model.User, error) {
	var entities []*UserEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("segment = ? AND (opt_in = ? OR opt_in_email = ?)", segment, true, true).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toUserModels(entities), nil
}

// UpdatePlan moves a user to a new plan and records the billing
// customer reference.
func (r *UserRepository) UpdatePlan(ctx context.Context, userID string, plan model.Plan, customerID string) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&UserEntity{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"plan":        string(plan),
			"customer_id": customerID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// LockForUpdate takes a row lock on the user inside the ambient
// transaction. Dispatch serializes its count-then-insert quota check on
// this lock so concurrent sends cannot both pass at the boundary.
func (r *UserRepository) LockForUpdate(ctx context.Context, userID string) error {
	tx := r.Write(ctx).WithContext(ctx)
	// sqlite has no SELECT FOR UPDATE; its writes are serialized anyway
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var entity UserEntity
	err := tx.
		Where("id = ?", userID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
