package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/metrics"
	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/providers/llm"
)

const (
	matcherMaxTokens   = 50
	matcherTemperature = 0.3
)

const matcherSystemPrompt = `You are an expert assignment system. Your job is to match a user's question
with the most appropriate expert based on their bio and knowledge base.

Return ONLY the expert ID that best matches the question.
Do not include any explanation, just the ID. You cannot assign a user as their own expert.`

// Matcher picks the best expert for a conversation topic.
type Matcher interface {
	SelectExpert(ctx context.Context, topic, initiatorID string, candidates []models.ExpertCandidate) (string, bool)
}

type llmMatcher struct {
	llm     llm.Scorer
	timeout time.Duration
	logger  *logrus.Logger
}

func NewMatcher(scorer llm.Scorer, timeout time.Duration, logger *logrus.Logger) Matcher {
	return &llmMatcher{llm: scorer, timeout: timeout, logger: logger}
}

// SelectExpert never fails loudly: a model error, a timeout or a reply that
// names no candidate all come back as ("", false).
func (m *llmMatcher) SelectExpert(ctx context.Context, topic, initiatorID string, candidates []models.ExpertCandidate) (string, bool) {
	pool := make([]models.ExpertCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != "" && c.ID != initiatorID {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return "", false
	}

	cctx, cancel := llmContext(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	reply, err := m.llm.Score(cctx, matcherSystemPrompt, matcherUserPrompt(topic, pool), matcherMaxTokens, matcherTemperature)
	metrics.ObserveLLM("match", start, err)
	if err != nil {
		m.logger.WithError(err).Warn("expert matcher call failed")
		return "", false
	}

	id, ok := pickCandidate(reply, pool)
	if !ok {
		m.logger.WithField("reply", truncate(reply, 120)).Warn("expert matcher reply named no candidate")
	}
	return id, ok
}

func matcherUserPrompt(topic string, candidates []models.ExpertCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question/Topic: %s\n\nAvailable Experts:\n", topic)
	for _, c := range candidates {
		fmt.Fprintf(&b, "ID: %s, Username: %s, Bio: %s, Knowledge: %s\n", c.ID, c.Username, c.Bio, c.KnowledgeBase)
	}
	b.WriteString("\nWhich expert ID is the best match?")
	return b.String()
}

// pickCandidate returns the first token of reply that is a candidate ID.
// Hyphens stay inside tokens so UUIDs survive the split.
func pickCandidate(reply string, candidates []models.ExpertCandidate) (string, bool) {
	tokens := strings.FieldsFunc(strings.TrimSpace(reply), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '-' && r != '_')
	})
	for _, tok := range tokens {
		for _, c := range candidates {
			if strings.EqualFold(tok, c.ID) {
				return c.ID, true
			}
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
