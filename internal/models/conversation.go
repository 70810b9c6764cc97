package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ConversationStatus string

const (
	StatusWaiting  ConversationStatus = "waiting"
	StatusActive   ConversationStatus = "active"
	StatusResolved ConversationStatus = "resolved" // reserved, nothing transitions into it yet
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusResolved:
		return true
	}
	return false
}

const MaxTitleLength = 255

type Conversation struct {
	ID               string             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title            string             `gorm:"column:title;size:255;not null" json:"title"`
	Status           ConversationStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	InitiatorID      string             `gorm:"column:initiator_id;type:uuid;not null;index" json:"initiator_id"`
	Initiator        *User              `gorm:"foreignKey:InitiatorID" json:"-"`
	AssignedExpertID *string            `gorm:"column:assigned_expert_id;type:uuid;index" json:"assigned_expert_id"`
	AssignedExpert   *User              `gorm:"foreignKey:AssignedExpertID" json:"-"`
	LastMessageAt    *time.Time         `gorm:"column:last_message_at" json:"last_message_at"`

	// Summary cache state. Both are nil until the first summary is stored.
	Summary               *string `gorm:"column:summary;type:text" json:"summary"`
	MessageCountAtSummary *int64  `gorm:"column:message_count_at_summary" json:"message_count_at_summary"`

	Messages    []Message          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Assignments []ExpertAssignment `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;index" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.Status == "" {
		c.Status = StatusWaiting
	}
	return c.Validate()
}

func (c *Conversation) Validate() error {
	title := strings.TrimSpace(c.Title)
	switch {
	case title == "":
		return errors.New("title is required")
	case len(title) > MaxTitleLength:
		return errors.New("title is too long")
	case c.InitiatorID == "":
		return errors.New("initiator is required")
	case !c.Status.Valid():
		return errors.New("invalid status")
	case (c.AssignedExpertID != nil) != (c.Status == StatusActive):
		return errors.New("assigned expert must be set exactly when status is active")
	}
	return nil
}

// IsParticipant reports whether userID is the initiator or the assigned expert.
func (c *Conversation) IsParticipant(userID string) bool {
	return c.InitiatorID == userID || c.IsAssignedTo(userID)
}

func (c *Conversation) IsAssignedTo(userID string) bool {
	return c.AssignedExpertID != nil && *c.AssignedExpertID == userID
}
