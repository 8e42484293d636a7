package repository

import (
	"time"

	"github.com/sindbad/engage/internal/model"
)

// CampaignEntity is keyed by (id, variant): a split test has one row
// per arm, a plain campaign one row keyed by its channel name.
type CampaignEntity struct {
	ID             string    `db:"id"              gorm:"primaryKey;column:id"`
	Variant        string    `db:"variant"         gorm:"primaryKey;column:variant"`
	Name           string    `db:"name"            gorm:"column:name;not null"`
	Message        string    `db:"message"         gorm:"column:message;not null"`
	Subject        string    `db:"subject"         gorm:"column:subject"`
	Audience       string    `db:"audience"        gorm:"column:audience;index"`
	Channel        string    `db:"channel"         gorm:"column:channel;not null;default:whatsapp"`
	Sent           int64     `db:"sent"            gorm:"column:sent;not null;default:0"`
	Opened         int64     `db:"opened"          gorm:"column:opened;not null;default:0"`
	Clicked        int64     `db:"clicked"         gorm:"column:clicked;not null;default:0"`
	Converted      int64     `db:"converted"       gorm:"column:converted;not null;default:0"`
	ConvertedValue float64   `db:"converted_value" gorm:"column:converted_value;not null;default:0"`
	CreatedAt      time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime;index"`
}

func (CampaignEntity) TableName() string {
	return "campaigns"
}

func toCampaignEntity(m *model.Campaign) *CampaignEntity {
	if m == nil {
		return nil
	}
	return &CampaignEntity{
		ID:             m.ID,
		Variant:        m.Variant,
		Name:           m.Name,
		Message:        m.Message,
		Subject:        m.Subject,
		Audience:       m.Audience,
		Channel:        string(m.Channel),
		Sent:           m.Sent,
		Opened:         m.Opened,
		Clicked:        m.Clicked,
		Converted:      m.Converted,
		ConvertedValue: m.ConvertedValue,
		CreatedAt:      m.CreatedAt,
	}
}

func toCampaignModel(e *CampaignEntity) *model.Campaign {
	if e == nil {
		return nil
	}
	return &model.Campaign{
		ID:             e.ID,
		Variant:        e.Variant,
		Name:           e.Name,
		Message:        e.Message,
		Subject:        e.Subject,
		Audience:       e.Audience,
		Channel:        model.Channel(e.Channel),
		Sent:           e.Sent,
		Opened:         e.Opened,
		Clicked:        e.Clicked,
		Converted:      e.Converted,
		ConvertedValue: e.ConvertedValue,
		CreatedAt:      e.CreatedAt,
	}
}

func toCampaignModels(entities []*CampaignEntity) []*model.Campaign {
	if entities == nil {
		return nil
	}
	models := make([]*model.Campaign, len(entities))
	for i, e := range entities {
		models[i] = toCampaignModel(e)
	}
	return models
}
