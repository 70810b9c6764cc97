package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/yoockh/yoodesk/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProfileRepository interface {
	Ensure(ctx context.Context, userID, profileID string) error
	GetByUserID(ctx context.Context, userID string) (*models.ExpertProfile, error)
	Update(ctx context.Context, userID, bio string, links []string) (*models.ExpertProfile, error)
	ListCandidates(ctx context.Context) ([]models.ExpertCandidate, error)
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Ensure(ctx context.Context, userID, profileID string) error {
	return ensureProfile(r.db.WithContext(ctx), userID, profileID)
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*models.ExpertProfile, error) {
	var p models.ExpertProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *profileRepo) Update(ctx context.Context, userID, bio string, links []string) (*models.ExpertProfile, error) {
	if links == nil {
		links = []string{}
	}
	res := r.db.WithContext(ctx).Model(&models.ExpertProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"bio":                  bio,
			"knowledge_base_links": datatypes.JSONSlice[string](links),
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, translate(gorm.ErrRecordNotFound)
	}
	return r.GetByUserID(ctx, userID)
}

type candidateRow struct {
	UserID             string
	Username           string
	Bio                string
	KnowledgeBaseLinks datatypes.JSONSlice[string]
}

func (r *profileRepo) ListCandidates(ctx context.Context) ([]models.ExpertCandidate, error) {
	var rows []candidateRow
	err := r.db.WithContext(ctx).
		Table("expert_profiles").
		Select("expert_profiles.user_id, users.username, expert_profiles.bio, expert_profiles.knowledge_base_links").
		Joins("JOIN users ON users.id = expert_profiles.user_id").
		Order("users.username ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.ExpertCandidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.ExpertCandidate{
			ID:            row.UserID,
			Username:      row.Username,
			Bio:           row.Bio,
			KnowledgeBase: strings.Join(row.KnowledgeBaseLinks, ", "),
		})
	}
	return out, nil
}
