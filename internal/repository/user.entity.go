package repository

import (
	"time"

	"github.com/sindbad/engage/internal/model"
)

type UserEntity struct {
	ID         string    `db:"id"           gorm:"primaryKey;column:id"`
	Phone      string    `db:"phone"        gorm:"column:phone;index"`
	Email      string    `db:"email"        gorm:"column:email;index"`
	OptIn      bool      `db:"opt_in"       gorm:"column:opt_in;not null;default:false"`
	OptInEmail bool      `db:"opt_in_email" gorm:"column:opt_in_email;not null;default:false"`
	Language   string    `db:"language"     gorm:"column:language;not null;default:en"`
	Segment    string    `db:"segment"      gorm:"column:segment;not null;default:all;index"`
	Plan       string    `db:"plan"         gorm:"column:plan;not null;default:free"`
	CustomerID string    `db:"customer_id"  gorm:"column:customer_id"`
	CreatedAt  time.Time `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	if m == nil {
		return nil
	}
	return &UserEntity{
		ID:         m.ID,
		Phone:      m.Phone,
		Email:      m.Email,
		OptIn:      m.OptIn,
		OptInEmail: m.OptInEmail,
		Language:   m.Language,
		Segment:    m.Segment,
		Plan:       string(m.Plan),
		CustomerID: m.CustomerID,
		CreatedAt:  m.CreatedAt,
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:         e.ID,
		Phone:      e.Phone,
		Email:      e.Email,
		OptIn:      e.OptIn,
		OptInEmail: e.OptInEmail,
		Language:   e.Language,
		Segment:    e.Segment,
		Plan:       model.Plan(e.Plan),
		CustomerID: e.CustomerID,
		CreatedAt:  e.CreatedAt,
	}
}

func toUserModels(entities []*UserEntity) []*model.User {
	if entities == nil {
		return nil
	}
	models := make([]*model.User, len(entities))
	for i, e := range entities {
		models[i] = toUserModel(e)
	}
	return models
}
