package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yoockh/yoodesk/internal/logger"
	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/providers/llm"
)

var matcherCandidates = []models.ExpertCandidate{
	{ID: "0b6f7d2e-1111-4c3a-9c55-000000000001", Username: "bob", Bio: "Networking", KnowledgeBase: "https://kb.example/net"},
	{ID: "0b6f7d2e-2222-4c3a-9c55-000000000002", Username: "dave", Bio: "Accounts and login"},
	{ID: "0b6f7d2e-3333-4c3a-9c55-000000000003", Username: "alice", Bio: "Initiator"},
}

func TestPickCandidate(t *testing.T) {
	bob := matcherCandidates[0].ID
	dave := matcherCandidates[1].ID

	cases := []struct {
		reply string
		want  string
		ok    bool
	}{
		{dave, dave, true},
		{"  " + dave + "\n", dave, true},
		{"ID: " + bob + ".", bob, true},
		{"The best match is (" + dave + ")", dave, true},
		{"0B6F7D2E-2222-4C3A-9C55-000000000002", dave, true},
		{"42", "", false},
		{"", "", false},
		{"0b6f7d2e-9999-4c3a-9c55-000000000009", "", false},
	}
	for _, tc := range cases {
		got, ok := pickCandidate(tc.reply, matcherCandidates)
		assert.Equal(t, tc.ok, ok, tc.reply)
		assert.Equal(t, tc.want, got, tc.reply)
	}
}

func TestSelectExpertExcludesInitiator(t *testing.T) {
	initiator := matcherCandidates[2].ID
	dave := matcherCandidates[1].ID

	var prompt string
	scorer := llm.Func(func(_ context.Context, _, user string, maxTokens int, temp float32) (string, error) {
		prompt = user
		assert.Equal(t, matcherMaxTokens, maxTokens)
		assert.InDelta(t, matcherTemperature, temp, 0.001)
		return dave, nil
	})
	m := NewMatcher(scorer, 0, logger.Discard())

	id, ok := m.SelectExpert(context.Background(), "I cannot log in", initiator, matcherCandidates)
	assert.True(t, ok)
	assert.Equal(t, dave, id)
	assert.Contains(t, prompt, "Question/Topic: I cannot log in")
	assert.Contains(t, prompt, "Username: dave, Bio: Accounts and login")
	assert.NotContains(t, prompt, initiator)
}

func TestSelectExpertRejectsInitiatorReply(t *testing.T) {
	initiator := matcherCandidates[2].ID
	scorer := llm.Func(func(context.Context, string, string, int, float32) (string, error) {
		return initiator, nil
	})
	_, ok := NewMatcher(scorer, 0, logger.Discard()).SelectExpert(context.Background(), "topic", initiator, matcherCandidates)
	assert.False(t, ok)
}

func TestSelectExpertFailuresAreNoMatch(t *testing.T) {
	failing := llm.Func(func(context.Context, string, string, int, float32) (string, error) {
		return "", errors.New("boom")
	})
	_, ok := NewMatcher(failing, 0, logger.Discard()).SelectExpert(context.Background(), "topic", "", matcherCandidates)
	assert.False(t, ok)

	_, ok = NewMatcher(llm.Noop{}, 0, logger.Discard()).SelectExpert(context.Background(), "topic", "", matcherCandidates)
	assert.False(t, ok)
}

func TestSelectExpertWithoutCandidatesSkipsModel(t *testing.T) {
	called := false
	scorer := llm.Func(func(context.Context, string, string, int, float32) (string, error) {
		called = true
		return "", nil
	})
	only := matcherCandidates[2:]
	_, ok := NewMatcher(scorer, 0, logger.Discard()).SelectExpert(context.Background(), "topic", only[0].ID, only)
	assert.False(t, ok)
	assert.False(t, called)
}
