package models

import "time"

// User is anyone who can log in. Whether a user acts as initiator or expert is
// decided per conversation, not stored here.
type User struct {
	ID           string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"column:username;size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string     `gorm:"column:password_hash;type:text;not null" json:"-"`
	LastActiveAt *time.Time `gorm:"column:last_active_at" json:"last_active_at"`
	JWTRevokedAt *time.Time `gorm:"column:jwt_revoked_at" json:"-"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }
