package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepo interface {
	Create(ctx context.Context, c *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListForParticipant(ctx context.Context, userID string) ([]models.Conversation, error)
	ListForParticipantSince(ctx context.Context, userID string, since time.Time) ([]models.Conversation, error)
	ListWaiting(ctx context.Context, since *time.Time) ([]models.Conversation, error)
	ListActiveForExpert(ctx context.Context, expertID string, since *time.Time) ([]models.Conversation, error)

	// Assign moves an unassigned conversation to active under a row lock and
	// appends the assignment record. Returns utils.ErrNotFound when the
	// conversation or expert is missing and utils.ErrAlreadyAssigned when an
	// expert is already set.
	Assign(ctx context.Context, id, expertID, assignmentID string, now time.Time) (*models.ExpertAssignment, error)
	// Unassign is the inverse of Assign. Returns utils.ErrNotAssignee when
	// expertID does not hold the conversation at lock time.
	Unassign(ctx context.Context, id, expertID string, now time.Time) error

	// SetSummary writes both summary columns in one statement.
	SetSummary(ctx context.Context, id, summary string, messageCount int64) error
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) withUsers(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Initiator").Preload("AssignedExpert")
}

func (r *conversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *conversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	err := r.withUsers(ctx).Where("id = ?", id).Take(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *conversationRepo) ListForParticipant(ctx context.Context, userID string) ([]models.Conversation, error) {
	var rows []models.Conversation
	err := r.withUsers(ctx).
		Where("initiator_id = ? OR assigned_expert_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) ListForParticipantSince(ctx context.Context, userID string, since time.Time) ([]models.Conversation, error) {
	var rows []models.Conversation
	err := r.withUsers(ctx).
		Where("(initiator_id = ? OR assigned_expert_id = ?) AND updated_at >= ?", userID, userID, since).
		Order("updated_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) ListWaiting(ctx context.Context, since *time.Time) ([]models.Conversation, error) {
	q := r.withUsers(ctx).Where("status = ?", models.StatusWaiting)
	if since != nil {
		q = q.Where("updated_at >= ?", *since)
	}
	var rows []models.Conversation
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) ListActiveForExpert(ctx context.Context, expertID string, since *time.Time) ([]models.Conversation, error) {
	q := r.withUsers(ctx).Where("status = ? AND assigned_expert_id = ?", models.StatusActive, expertID)
	if since != nil {
		q = q.Where("updated_at >= ?", *since)
	}
	var rows []models.Conversation
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// lockConversation takes the row lock that serializes every assignment
// transition on a conversation. SQLite ignores FOR UPDATE and relies on its
// single writer instead.
func lockConversation(tx *gorm.DB, id string) (*models.Conversation, error) {
	var c models.Conversation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *conversationRepo) Assign(ctx context.Context, id, expertID, assignmentID string, now time.Time) (*models.ExpertAssignment, error) {
	var out *models.ExpertAssignment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockConversation(tx, id)
		if err != nil {
			return err
		}
		if c.AssignedExpertID != nil {
			return utils.ErrAlreadyAssigned
		}

		var experts int64
		if err := tx.Model(&models.User{}).Where("id = ?", expertID).Count(&experts).Error; err != nil {
			return err
		}
		if experts == 0 {
			return utils.ErrExpertNotFound
		}

		if err := tx.Model(&models.Conversation{}).Where("id = ?", id).Updates(map[string]any{
			"assigned_expert_id": expertID,
			"status":             models.StatusActive,
			"updated_at":         now,
		}).Error; err != nil {
			return err
		}

		a := &models.ExpertAssignment{
			ID:             assignmentID,
			ConversationID: id,
			ExpertID:       expertID,
			Status:         models.AssignmentActive,
			AssignedAt:     now,
		}
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) Unassign(ctx context.Context, id, expertID string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockConversation(tx, id)
		if err != nil {
			return err
		}
		if !c.IsAssignedTo(expertID) {
			return utils.ErrNotAssignee
		}

		if err := tx.Model(&models.Conversation{}).Where("id = ?", id).Updates(map[string]any{
			"assigned_expert_id": nil,
			"status":             models.StatusWaiting,
			"updated_at":         now,
		}).Error; err != nil {
			return err
		}

		var latest models.ExpertAssignment
		err = tx.Where("conversation_id = ? AND expert_id = ?", id, expertID).
			Order("assigned_at DESC").
			Take(&latest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		latest.Status = models.AssignmentResolved
		latest.ResolvedAt = &now
		return tx.Save(&latest).Error
	})
}

func (r *conversationRepo) SetSummary(ctx context.Context, id, summary string, messageCount int64) error {
	res := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"summary":                  summary,
			"message_count_at_summary": messageCount,
			"updated_at":               time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *conversationRepo) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_message_at": at,
			"updated_at":      at,
		}).Error
}
