package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type SenderRole string

const (
	RoleInitiator SenderRole = "initiator"
	RoleExpert    SenderRole = "expert"
)

type Message struct {
	ID             string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ConversationID string     `gorm:"column:conversation_id;type:uuid;not null;index" json:"conversation_id"`
	SenderID       string     `gorm:"column:sender_id;type:uuid;not null;index" json:"sender_id"`
	Sender         *User      `gorm:"foreignKey:SenderID" json:"-"`
	SenderRole     SenderRole `gorm:"column:sender_role;size:16;not null" json:"sender_role"`
	Content        string     `gorm:"column:content;type:text;not null" json:"content"`
	IsRead         bool       `gorm:"column:is_read;not null;default:false" json:"is_read"`
	ReadAt         *time.Time `gorm:"column:read_at" json:"read_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	switch {
	case strings.TrimSpace(m.Content) == "":
		return errors.New("content is required")
	case m.ConversationID == "" || m.SenderID == "":
		return errors.New("conversation and sender are required")
	case m.SenderRole != RoleInitiator && m.SenderRole != RoleExpert:
		return errors.New("invalid sender role")
	}
	return nil
}
