package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/model"
)

// ConversationHead: одна строка списка диалогов: собеседник,
// последнее сообщение и число непрочитанных у зрителя.
type ConversationHead struct {
	OtherID       uuid.UUID
	LastMessageID int64
	UnreadCount   int64
}

type ConversationCounts struct {
	ConversationCount int64
	MessageCount      int64
	UnreadCount       int64
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	Delete(ctx context.Context, id int64) error
	// Thread returns at most limit latest messages between a and b, oldest first.
	Thread(ctx context.Context, a, b uuid.UUID, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, from, to uuid.UUID, at time.Time) (int64, error)
	ConversationHeads(ctx context.Context, viewer uuid.UUID) ([]ConversationHead, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Message, error)
	Stats(ctx context.Context, viewer uuid.UUID) (ConversationCounts, error)
	CountUnread(ctx context.Context, viewer uuid.UUID) (int64, error)
	Search(ctx context.Context, a, b uuid.UUID, term string, limit int) ([]model.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *GormMessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormMessageRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Message{}).Error
}

func (r *GormMessageRepository) pair(q *gorm.DB, a, b uuid.UUID) *gorm.DB {
	return q.Where(
		"(sender_identity_id = ? AND receiver_identity_id = ?) OR (sender_identity_id = ? AND receiver_identity_id = ?)",
		a, b, b, a,
	)
}

func (r *GormMessageRepository) Thread(ctx context.Context, a, b uuid.UUID, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.pair(r.db.WithContext(ctx), a, b).
		Order("sent_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// newest-first from the store, callers want chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *GormMessageRepository) MarkRead(ctx context.Context, from, to uuid.UUID, at time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("sender_identity_id = ? AND receiver_identity_id = ? AND read_at IS NULL", from, to).
		Update("read_at", at)
	return tx.RowsAffected, tx.Error
}

func (r *GormMessageRepository) ConversationHeads(ctx context.Context, viewer uuid.UUID) ([]ConversationHead, error) {
	var heads []ConversationHead
	err := r.db.WithContext(ctx).Raw(
		`SELECT CASE WHEN sender_identity_id = ? THEN receiver_identity_id ELSE sender_identity_id END AS other_id,
		        MAX(id) AS last_message_id,
		        COUNT(CASE WHEN receiver_identity_id = ? AND read_at IS NULL THEN 1 END) AS unread_count
		 FROM messages
		 WHERE sender_identity_id = ? OR receiver_identity_id = ?
		 GROUP BY other_id`,
		viewer, viewer, viewer, viewer,
	).Scan(&heads).Error
	if err != nil {
		return nil, err
	}
	return heads, nil
}

func (r *GormMessageRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Message, error) {
	if len(ids) == 0 {
		return []model.Message{}, nil
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *GormMessageRepository) Stats(ctx context.Context, viewer uuid.UUID) (ConversationCounts, error) {
	var out ConversationCounts
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT CASE WHEN sender_identity_id = ? THEN receiver_identity_id ELSE sender_identity_id END) AS conversation_count,
		        COUNT(*) AS message_count,
		        COUNT(CASE WHEN receiver_identity_id = ? AND read_at IS NULL THEN 1 END) AS unread_count
		 FROM messages
		 WHERE sender_identity_id = ? OR receiver_identity_id = ?`,
		viewer, viewer, viewer, viewer,
	).Scan(&out).Error
	return out, err
}

func (r *GormMessageRepository) CountUnread(ctx context.Context, viewer uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("receiver_identity_id = ? AND read_at IS NULL", viewer).
		Count(&n).Error
	return n, err
}

func (r *GormMessageRepository) Search(ctx context.Context, a, b uuid.UUID, term string, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.pair(r.db.WithContext(ctx), a, b).
		Where("LOWER(body) LIKE ? ESCAPE '\\'", likePattern(term)).
		Order("sent_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
