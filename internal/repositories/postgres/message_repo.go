package postgres

import (
	"context"
	"time"

	"github.com/yoockh/yoodesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	// LatestN returns the newest n messages, oldest first.
	LatestN(ctx context.Context, conversationID string, n int) ([]models.Message, error)
	First(ctx context.Context, conversationID string) (*models.Message, error)
	Count(ctx context.Context, conversationID string) (int64, error)
	CountUnread(ctx context.Context, conversationID, viewerID string) (int64, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	ListVisibleSince(ctx context.Context, userID string, since time.Time) ([]models.Message, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, m *models.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

func (r *messageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	err := r.db.WithContext(ctx).Preload("Sender").Where("id = ?", id).Take(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var rows []models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *messageRepo) LatestN(ctx context.Context, conversationID string, n int) ([]models.Message, error) {
	if n <= 0 {
		n = 20
	}
	var rows []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *messageRepo) First(ctx context.Context, conversationID string) (*models.Message, error) {
	var m models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Take(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *messageRepo) Count(ctx context.Context, conversationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&n).Error
	return n, err
}

func (r *messageRepo) CountUnread(ctx context.Context, conversationID, viewerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND is_read = ? AND sender_id <> ?", conversationID, false, viewerID).
		Count(&n).Error
	return n, err
}

func (r *messageRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *messageRepo) ListVisibleSince(ctx context.Context, userID string, since time.Time) ([]models.Message, error) {
	visible := r.db.Model(&models.Conversation{}).
		Select("id").
		Where("initiator_id = ? OR assigned_expert_id = ?", userID, userID)

	var rows []models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id IN (?) AND created_at >= ?", visible, since).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
