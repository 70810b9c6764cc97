package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/cache"
	"github.com/yoockh/yoodesk/internal/models"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
)

const candidatesCacheKey = "experts:candidates"

// ExpertDirectory lists the experts the matcher may pick from.
type ExpertDirectory interface {
	Candidates(ctx context.Context, excludeUserID string) ([]models.ExpertCandidate, error)
	Invalidate(ctx context.Context)
}

type expertDirectory struct {
	profiles pgrepo.ProfileRepository
	cache    cache.Cache
	ttl      time.Duration
	logger   *logrus.Logger
}

// NewExpertDirectory caches the full candidate list under one key. A nil
// cache reads the store every time.
func NewExpertDirectory(profiles pgrepo.ProfileRepository, c cache.Cache, ttl time.Duration, logger *logrus.Logger) ExpertDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &expertDirectory{profiles: profiles, cache: c, ttl: ttl, logger: logger}
}

func (d *expertDirectory) Candidates(ctx context.Context, excludeUserID string) ([]models.ExpertCandidate, error) {
	all, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ExpertCandidate, 0, len(all))
	for _, c := range all {
		if c.ID == excludeUserID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (d *expertDirectory) load(ctx context.Context) ([]models.ExpertCandidate, error) {
	if d.cache != nil {
		var cached []models.ExpertCandidate
		hit, err := d.cache.GetJSON(ctx, candidatesCacheKey, &cached)
		if err != nil {
			d.logger.WithError(err).Warn("candidate cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	rows, err := d.profiles.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		if err := d.cache.SetJSON(ctx, candidatesCacheKey, rows, d.ttl); err != nil {
			d.logger.WithError(err).Warn("candidate cache write failed")
		}
	}
	return rows, nil
}

func (d *expertDirectory) Invalidate(ctx context.Context) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Del(ctx, candidatesCacheKey); err != nil {
		d.logger.WithError(err).Warn("candidate cache invalidate failed")
	}
}
