package models

import (
	"time"

	"gorm.io/datatypes"
)

type ExpertProfile struct {
	ID                 string                      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID             string                      `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	User               *User                       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Bio                string                      `gorm:"column:bio;type:text" json:"bio"`
	KnowledgeBaseLinks datatypes.JSONSlice[string] `gorm:"column:knowledge_base_links" json:"knowledge_base_links"`
	CreatedAt          time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (ExpertProfile) TableName() string { return "expert_profiles" }

// ExpertCandidate is the matcher's view of an expert.
type ExpertCandidate struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Bio           string `json:"bio"`
	KnowledgeBase string `json:"knowledge_base"`
}
