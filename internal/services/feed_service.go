package services

import (
	"context"
	"strings"
	"time"

	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/utils"
)

// DefaultFeedWindow is how far back a poll without a watermark looks.
const DefaultFeedWindow = time.Hour

// FeedService answers "what changed since t" polls.
type FeedService interface {
	ConversationsSince(ctx context.Context, viewerID string, since time.Time) ([]ConversationView, error)
	MessagesSince(ctx context.Context, viewerID string, since time.Time) ([]MessageView, error)
	ExpertQueueSince(ctx context.Context, viewerID string, since time.Time) (*ExpertQueue, error)
}

type feedService struct {
	convos   pgrepo.ConversationRepo
	messages pgrepo.MessageRepository
	views    ViewBuilder
}

func NewFeedService(convos pgrepo.ConversationRepo, messages pgrepo.MessageRepository, views ViewBuilder) FeedService {
	return &feedService{convos: convos, messages: messages, views: views}
}

// ParseSince reads a watermark. Empty means now minus DefaultFeedWindow.
func ParseSince(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Add(-DefaultFeedWindow), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, utils.E(utils.CodeInvalidArgument, "Feed.ParseSince", "since must be an RFC3339 timestamp", err)
	}
	return t.UTC(), nil
}

func (s *feedService) ConversationsSince(ctx context.Context, viewerID string, since time.Time) ([]ConversationView, error) {
	const op = "FeedService.ConversationsSince"

	rows, err := s.convos.ListForParticipantSince(ctx, viewerID, since)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}
	out, err := s.views.ProjectAll(ctx, rows, viewerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build conversation views", err)
	}
	return out, nil
}

func (s *feedService) MessagesSince(ctx context.Context, viewerID string, since time.Time) ([]MessageView, error) {
	const op = "FeedService.MessagesSince"

	rows, err := s.messages.ListVisibleSince(ctx, viewerID, since)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	return projectMessages(rows), nil
}

func (s *feedService) ExpertQueueSince(ctx context.Context, viewerID string, since time.Time) (*ExpertQueue, error) {
	const op = "FeedService.ExpertQueueSince"

	q, err := buildExpertQueue(ctx, s.convos, s.views, viewerID, &since)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load queue", err)
	}
	return q, nil
}
