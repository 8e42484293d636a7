package repository

import (
	"time"

	"github.com/sindbad/engage/internal/model"
)

// MessageEntity maps the legacy messages schema: the user_id column
// holds the recipient's phone number.
type MessageEntity struct {
	ID         string    `db:"id"          gorm:"primaryKey;column:id"`
	Phone      string    `db:"user_id"     gorm:"column:user_id;index"`
	Email      string    `db:"email"       gorm:"column:email"`
	Content    string    `db:"content"     gorm:"column:content;not null"`
	Response   string    `db:"response"    gorm:"column:response"`
	Channel    string    `db:"channel"     gorm:"column:channel;not null;default:whatsapp"`
	CampaignID string    `db:"campaign_id" gorm:"column:campaign_id;index"`
	Variant    string    `db:"variant"     gorm:"column:variant"`
	CreatedAt  time.Time `db:"created_at"  gorm:"column:created_at;autoCreateTime;index"`
}

func (MessageEntity) TableName() string {
	return "messages"
}

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		ID:         m.ID,
		Phone:      m.Phone,
		Email:      m.Email,
		Content:    m.Content,
		Response:   m.Response,
		Channel:    string(m.Channel),
		CampaignID: m.CampaignID,
		Variant:    m.Variant,
		CreatedAt:  m.CreatedAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		ID:         e.ID,
		Phone:      e.Phone,
		Email:      e.Email,
		Content:    e.Content,
		Response:   e.Response,
		Channel:    model.Channel(e.Channel),
		CampaignID: e.CampaignID,
		Variant:    e.Variant,
		CreatedAt:  e.CreatedAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
