package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/yoodesk/internal/providers/kb"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/utils"
)

const maxKnowledgeBaseLinks = 20

type ProfileView struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Bio                string    `json:"bio"`
	KnowledgeBaseLinks []string  `json:"knowledgeBaseLinks"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (*ProfileView, error)
	Update(ctx context.Context, userID, bio string, links []string) (*ProfileView, error)
}

type profileService struct {
	profiles  pgrepo.ProfileRepository
	directory ExpertDirectory
}

func NewProfileService(profiles pgrepo.ProfileRepository, directory ExpertDirectory) ProfileService {
	return &profileService{profiles: profiles, directory: directory}
}

func (s *profileService) Get(ctx context.Context, userID string) (*ProfileView, error) {
	const op = "ProfileService.Get"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	// users created before profiles existed get one on first read
	if err := s.profiles.Ensure(ctx, userID, uuid.NewString()); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to ensure profile", err)
	}
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "expert profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get profile", err)
	}
	return &ProfileView{
		ID:                 p.ID,
		UserID:             p.UserID,
		Bio:                p.Bio,
		KnowledgeBaseLinks: nonNil(p.KnowledgeBaseLinks),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}, nil
}

func (s *profileService) Update(ctx context.Context, userID, bio string, links []string) (*ProfileView, error) {
	const op = "ProfileService.Update"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	clean, err := cleanLinks(links)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, err.Error(), err)
	}

	p, err := s.profiles.Update(ctx, userID, strings.TrimSpace(bio), clean)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "expert profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update profile", err)
	}
	if s.directory != nil {
		s.directory.Invalidate(ctx)
	}
	return &ProfileView{
		ID:                 p.ID,
		UserID:             p.UserID,
		Bio:                p.Bio,
		KnowledgeBaseLinks: nonNil(p.KnowledgeBaseLinks),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}, nil
}

// cleanLinks drops blanks and rejects anything that is not an absolute
// http(s) URL on a public host, since the links are fetched server-side.
func cleanLinks(links []string) ([]string, error) {
	out := make([]string, 0, len(links))
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if err := kb.ValidateURL(l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if len(out) > maxKnowledgeBaseLinks {
		return nil, errors.New("too many knowledge base links")
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
