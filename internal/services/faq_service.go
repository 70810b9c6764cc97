package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/metrics"
	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/providers/kb"
	"github.com/yoockh/yoodesk/internal/providers/llm"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/utils"
)

const (
	faqNoMatch     = "NO_FAQ_MATCH"
	faqMaxTokens   = 300
	faqTemperature = 0.5
)

const faqSystemPrompt = `You are a helpful assistant that answers questions based on an expert's FAQ.
If the question can be answered from the FAQ, provide a clear, concise answer.
If the question cannot be answered from the FAQ, respond with exactly: "NO_FAQ_MATCH"

Do not make up information. Only use what's in the FAQ.`

// FAQService answers an initiator's message on the assigned expert's behalf
// when their knowledge base covers it.
type FAQService interface {
	AutoRespond(ctx context.Context, messageID string) error
}

type faqService struct {
	convos   pgrepo.ConversationRepo
	messages pgrepo.MessageRepository
	profiles pgrepo.ProfileRepository
	fetcher  kb.Fetcher
	llm      llm.Scorer
	timeout  time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

func NewFAQService(
	convos pgrepo.ConversationRepo,
	messages pgrepo.MessageRepository,
	profiles pgrepo.ProfileRepository,
	fetcher kb.Fetcher,
	scorer llm.Scorer,
	timeout time.Duration,
	logger *logrus.Logger,
) FAQService {
	return &faqService{
		convos:   convos,
		messages: messages,
		profiles: profiles,
		fetcher:  fetcher,
		llm:      scorer,
		timeout:  timeout,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *faqService) AutoRespond(ctx context.Context, messageID string) error {
	const op = "FAQService.AutoRespond"

	log := s.logger.WithField("message_id", messageID)

	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to load message", err)
	}
	c, err := s.convos.GetByID(ctx, m.ConversationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if c.AssignedExpertID == nil || m.SenderRole != models.RoleInitiator {
		return nil
	}
	expertID := *c.AssignedExpertID

	profile, err := s.profiles.GetByUserID(ctx, expertID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to load expert profile", err)
	}
	if len(profile.KnowledgeBaseLinks) == 0 {
		return nil
	}

	faq := s.fetchAll(ctx, profile.KnowledgeBaseLinks, log)

	cctx, cancel := llmContext(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.llm.Score(cctx, faqSystemPrompt, faqUserPrompt(faq, m.Content), faqMaxTokens, faqTemperature)
	metrics.ObserveLLM("faq", start, err)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "faq answer failed", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" || strings.Contains(reply, faqNoMatch) {
		log.Debug("faq has no answer")
		return nil
	}

	now := s.now()
	answer := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: c.ID,
		SenderID:       expertID,
		SenderRole:     models.RoleExpert,
		Content:        reply,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, answer); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to store faq answer", err)
	}
	if err := s.convos.TouchLastMessage(ctx, c.ID, now); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update conversation", err)
	}
	log.WithField("answer_id", answer.ID).Info("answered from faq")
	return nil
}

// fetchAll turns every link into text; a failed fetch contributes nothing.
func (s *faqService) fetchAll(ctx context.Context, links []string, log *logrus.Entry) string {
	parts := make([]string, 0, len(links))
	for _, link := range links {
		body, err := s.fetcher.Fetch(ctx, link)
		if err != nil {
			log.WithError(err).WithField("url", link).Warn("knowledge base fetch failed")
			body = ""
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n\n")
}

func faqUserPrompt(faq, question string) string {
	return fmt.Sprintf("FAQ Content:\n%s\n\nUser Question:\n%s\n\nCan you answer this question from the FAQ?", faq, question)
}
