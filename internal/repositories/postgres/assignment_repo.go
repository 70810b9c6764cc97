package postgres

import (
	"context"

	"github.com/yoockh/yoodesk/internal/models"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	ListByExpert(ctx context.Context, expertID string) ([]models.ExpertAssignment, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.ExpertAssignment, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) ListByExpert(ctx context.Context, expertID string) ([]models.ExpertAssignment, error) {
	var rows []models.ExpertAssignment
	err := r.db.WithContext(ctx).
		Where("expert_id = ?", expertID).
		Order("assigned_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *assignmentRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.ExpertAssignment, error) {
	var rows []models.ExpertAssignment
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("assigned_at ASC").
		Find(&rows).Error
	return rows, err
}
