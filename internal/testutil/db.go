// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/yoodesk/config"
	"github.com/yoockh/yoodesk/internal/models"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
// A single connection keeps the in-memory database alive and serializes
// writers the way the row lock does on Postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gcfg := config.GormConfig()
	gcfg.Logger = gormlogger.Discard

	db, err := gorm.Open(sqlite.Open(":memory:"), gcfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := pgrepo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with an expert profile.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.NewString(), Username: username, PasswordHash: "x"}
	if err := pgrepo.NewUserRepo(db).Create(context.Background(), u, uuid.NewString()); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func CreateConversation(t *testing.T, db *gorm.DB, initiatorID, title string) *models.Conversation {
	t.Helper()
	c := &models.Conversation{ID: uuid.NewString(), Title: title, InitiatorID: initiatorID}
	if err := pgrepo.NewConversationRepo(db).Create(context.Background(), c); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return c
}

// CreateMessage inserts a message with an explicit timestamp so ordering
// assertions do not depend on clock resolution.
func CreateMessage(t *testing.T, db *gorm.DB, conv *models.Conversation, senderID, content string, at time.Time) *models.Message {
	t.Helper()
	role := models.RoleExpert
	if senderID == conv.InitiatorID {
		role = models.RoleInitiator
	}
	m := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		SenderRole:     role,
		Content:        content,
		CreatedAt:      at,
	}
	if err := pgrepo.NewMessageRepo(db).Create(context.Background(), m); err != nil {
		t.Fatalf("create message: %v", err)
	}
	return m
}
