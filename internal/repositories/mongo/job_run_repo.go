package mongo

import (
	"context"
	"time"

	"github.com/yoockh/yoodesk/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// JobRunRepository keeps a short history of background job outcomes so
// operators can see why a summary or auto-assignment did not happen.
type JobRunRepository interface {
	Insert(ctx context.Context, run *models.JobRun) error
}

type jobRunRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewJobRunRepo(db *mongo.Database, ttl time.Duration) JobRunRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &jobRunRepo{col: db.Collection("job_runs"), ttl: ttl}
}

func (r *jobRunRepo) Insert(ctx context.Context, run *models.JobRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.ExpiresAt.IsZero() {
		run.ExpiresAt = run.StartedAt.Add(r.ttl)
	}
	_, err := r.col.InsertOne(ctx, run)
	return err
}
