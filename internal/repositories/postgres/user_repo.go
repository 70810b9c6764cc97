package postgres

import (
	"context"
	"time"

	"github.com/yoockh/yoodesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	// Create inserts the user and its (empty) expert profile in one transaction.
	Create(ctx context.Context, u *models.User, profileID string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	RevokeTokens(ctx context.Context, id string, at time.Time) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *models.User, profileID string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		return ensureProfile(tx, u.ID, profileID)
	}))
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_active_at", at).Error
}

func (r *userRepo) RevokeTokens(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("jwt_revoked_at", at).Error
}

// ensureProfile is idempotent: a second call for the same user is a no-op.
func ensureProfile(tx *gorm.DB, userID, profileID string) error {
	p := &models.ExpertProfile{ID: profileID, UserID: userID}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(p).Error
}
