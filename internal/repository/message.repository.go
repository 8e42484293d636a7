package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/pkg/pg"
)

type MessageRepository struct {
	*pg.DB
}

func NewMessageRepository(db *pg.DB) *MessageRepository {
	return &MessageRepository{
		db,
	}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	entity := toMessageEntity(msg)
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMessageModel(entity), nil
}

// CountSince returns the number of messages sent to a phone number
// after the given instant. This is the trailing count quota decisions
// are made on; inside a dispatch transaction it reads through the
// transaction so the count is serialized with the insert.
func (r *MessageRepository) CountSince(ctx context.Context, phone string, since time.Time) (int64, error) {
	var count int64
	err := r.Write(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("user_id = ? AND created_at > ?", phone, since).
		Count(&count).
		Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MessageRepository) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&MessageEntity{})

	if f.Phone != nil && *f.Phone != "" {
		q = q.Where("user_id = ?", *f.Phone)
	}
	if f.Channel != nil {
		q = q.Where("channel = ?", string(*f.Channel))
	}
	if f.CampaignID != nil && *f.CampaignID != "" {
		q = q.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*MessageEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toMessageModels(entities), total, nil
}

// CountByChannel aggregates sent messages per channel over a period.
func (r *MessageRepository) CountByChannel(ctx context.Context, from, to time.Time) ([]model.ChannelCount, error) {
	var rows []model.ChannelCount
	err := r.Read(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Select("channel, COUNT(*) AS count").
		Where("created_at BETWEEN ? AND ?", from, to).
		Group("channel").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TimeSeries returns daily per-channel send counts over a period.
func (r *MessageRepository) TimeSeries(ctx context.Context, from, to time.Time) ([]model.DailyChannelCount, error) {
	var rows []model.DailyChannelCount
	err := r.Read(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Select("DATE(created_at) AS date, channel, COUNT(*) AS count").
		Where("created_at BETWEEN ? AND ?", from, to).
		Group("DATE(created_at), channel").
		Order("date ASC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SegmentStats joins users, messages and campaigns into per-segment
// activity aggregates for the reporting surface.
func (r *MessageRepository) SegmentStats(ctx context.Context, from, to time.Time) ([]model.SegmentStats, error) {
	var rows []model.SegmentStats
	err := r.Read(ctx).WithContext(ctx).
		Raw(`
            SELECT u.segment,
                   COUNT(m.id)      AS messages,
                   SUM(c.sent)      AS sent,
                   SUM(c.clicked)   AS clicked,
                   SUM(c.converted) AS converted
            FROM users u
            LEFT JOIN messages m ON u.phone = m.user_id
            LEFT JOIN campaigns c ON c.audience = u.segment
            WHERE (m.created_at BETWEEN ? AND ?) OR (c.created_at BETWEEN ? AND ?)
            GROUP BY u.segment`,
			from, to, from, to).
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
