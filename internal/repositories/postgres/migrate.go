package postgres

import (
	"errors"

	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/utils"
	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ExpertProfile{},
		&models.Conversation{},
		&models.Message{},
		&models.ExpertAssignment{},
	)
}

// translate maps gorm errors onto the store sentinels. It relies on
// gorm.Config.TranslateError for duplicate keys.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return utils.ErrDuplicate
	}
	return err
}
