package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "active"
	AssignmentResolved AssignmentStatus = "resolved"
)

// ExpertAssignment is an append-only record of one claim. Unclaiming resolves
// the row instead of deleting it.
type ExpertAssignment struct {
	ID             string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ConversationID string           `gorm:"column:conversation_id;type:uuid;not null;index" json:"conversation_id"`
	ExpertID       string           `gorm:"column:expert_id;type:uuid;not null;index" json:"expert_id"`
	Expert         *User            `gorm:"foreignKey:ExpertID" json:"-"`
	Status         AssignmentStatus `gorm:"column:status;size:16;not null" json:"status"`
	AssignedAt     time.Time        `gorm:"column:assigned_at;not null;index" json:"assigned_at"`
	ResolvedAt     *time.Time       `gorm:"column:resolved_at" json:"resolved_at"`
	Rating         *int             `gorm:"column:rating" json:"rating"`
	CreatedAt      time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (ExpertAssignment) TableName() string { return "expert_assignments" }

func (a *ExpertAssignment) BeforeSave(*gorm.DB) error {
	if a.Status == "" {
		a.Status = AssignmentActive
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	return a.Validate()
}

func (a *ExpertAssignment) Validate() error {
	switch {
	case a.ConversationID == "" || a.ExpertID == "":
		return errors.New("conversation and expert are required")
	case a.Status != AssignmentActive && a.Status != AssignmentResolved:
		return errors.New("invalid assignment status")
	case a.Status == AssignmentResolved && a.ResolvedAt == nil:
		return errors.New("resolved_at is required once resolved")
	case a.Rating != nil && a.Status != AssignmentResolved:
		return errors.New("rating is only allowed after resolution")
	case a.Rating != nil && (*a.Rating < 1 || *a.Rating > 5):
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}
