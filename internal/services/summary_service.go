package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/cache"
	"github.com/yoockh/yoodesk/internal/metrics"
	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/providers/llm"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/utils"
)

const (
	// SummaryStalenessThreshold is how many new messages make a summary stale.
	SummaryStalenessThreshold = 5

	SummaryNoMessages = "No messages yet"
	SummaryGenerating = "Generating summary..."

	summaryWindow      = 20
	summaryMaxTokens   = 100
	summaryTemperature = 0.5
)

const summarySystemPrompt = `You are a summarization assistant. Create a brief, informative summary
of the conversation so far in 1-2 sentences. Focus on the main topic and any
key points or resolutions.`

type SummaryService interface {
	// Resolve returns the summary to show right now and schedules a refresh
	// when the cached one is missing or stale. It never waits for the model.
	Resolve(ctx context.Context, c *models.Conversation, messageCount int64) string
	// Regenerate is the background job body.
	Regenerate(ctx context.Context, conversationID string) error
}

type summaryService struct {
	convos   pgrepo.ConversationRepo
	messages pgrepo.MessageRepository
	llm      llm.Scorer
	locker   cache.Locker
	jobs     JobQueue
	timeout  time.Duration
	logger   *logrus.Logger
}

func NewSummaryService(
	convos pgrepo.ConversationRepo,
	messages pgrepo.MessageRepository,
	scorer llm.Scorer,
	locker cache.Locker,
	jobs JobQueue,
	timeout time.Duration,
	logger *logrus.Logger,
) SummaryService {
	return &summaryService{
		convos:   convos,
		messages: messages,
		llm:      scorer,
		locker:   locker,
		jobs:     jobs,
		timeout:  timeout,
		logger:   logger,
	}
}

// summaryNeedsRefresh applies the staleness policy. A missing counter counts
// every message as new.
func summaryNeedsRefresh(c *models.Conversation, messageCount int64) bool {
	if messageCount == 0 {
		return false
	}
	if c.Summary == nil || strings.TrimSpace(*c.Summary) == "" {
		return true
	}
	var seen int64
	if c.MessageCountAtSummary != nil {
		seen = *c.MessageCountAtSummary
	}
	return messageCount-seen >= SummaryStalenessThreshold
}

func (s *summaryService) Resolve(ctx context.Context, c *models.Conversation, messageCount int64) string {
	if messageCount == 0 {
		return SummaryNoMessages
	}

	if summaryNeedsRefresh(c, messageCount) {
		s.scheduleRegenerate(ctx, c.ID)
	}

	if c.Summary != nil && strings.TrimSpace(*c.Summary) != "" {
		return *c.Summary
	}
	return SummaryGenerating
}

// scheduleRegenerate enqueues at most one regeneration per conversation while
// the pending marker lives. The marker is left to expire, so a conversation
// whose refresh keeps failing is retried once per marker window.
func (s *summaryService) scheduleRegenerate(ctx context.Context, conversationID string) {
	job := models.Job{Kind: models.JobSummaryRegenerate, ConversationID: conversationID}
	if s.locker == nil {
		_ = enqueue(ctx, s.jobs, s.logger, job)
		return
	}

	release, ok, err := s.locker.TryLock(ctx, "summary:pending:"+conversationID, s.lockTTL())
	if err != nil {
		s.logger.WithError(err).WithField("conversation_id", conversationID).Warn("summary pending marker unavailable")
		return
	}
	if !ok {
		return
	}
	if err := enqueue(ctx, s.jobs, s.logger, job); err != nil {
		release()
	}
}

func (s *summaryService) Regenerate(ctx context.Context, conversationID string) error {
	const op = "SummaryService.Regenerate"

	log := s.logger.WithField("conversation_id", conversationID)

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, "summary:"+conversationID, s.lockTTL())
		if err != nil {
			return utils.E(utils.CodeUnavailable, op, "summary lock unavailable", err)
		}
		if !ok {
			log.Debug("summary regeneration already running")
			return nil
		}
		defer unlock()
	}

	count, err := s.messages.Count(ctx, conversationID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to count messages", err)
	}
	if count == 0 {
		log.Info("skipping summary: conversation has no messages")
		return nil
	}

	latest, err := s.messages.LatestN(ctx, conversationID, summaryWindow)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load messages", err)
	}

	cctx, cancel := llmContext(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.llm.Score(cctx, summarySystemPrompt, summaryUserPrompt(latest), summaryMaxTokens, summaryTemperature)
	metrics.ObserveLLM("summary", start, err)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "summary generation failed", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return utils.E(utils.CodeUnavailable, op, "summary generation returned empty text", llm.ErrEmptyResponse)
	}

	if err := s.convos.SetSummary(ctx, conversationID, reply, count); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			log.Info("conversation vanished before summary was stored")
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to store summary", err)
	}
	log.WithField("message_count", count).Info("summary regenerated")
	return nil
}

func (s *summaryService) lockTTL() time.Duration {
	if s.timeout <= 0 {
		return 40 * time.Second
	}
	return s.timeout + 10*time.Second
}

func summaryUserPrompt(messages []models.Message) string {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.SenderRole, m.Content)
	}
	b.WriteString("\nProvide a brief summary (1-2 sentences):")
	return b.String()
}
