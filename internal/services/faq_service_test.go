package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoodesk/internal/logger"
	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/providers/llm"
	"github.com/yoockh/yoodesk/internal/testutil"
)

type mapFetcher map[string]string

func (f mapFetcher) Fetch(_ context.Context, url string) (string, error) {
	body, ok := f[url]
	if !ok {
		return "", errors.New("404")
	}
	return body, nil
}

type faqFixture struct {
	e      *testEnv
	conv   *models.Conversation
	expert *models.User
	asker  *models.User
}

func newFAQFixture(t *testing.T, links []string) *faqFixture {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	conv := testutil.CreateConversation(t, e.db, a.ID, "Help with login")
	require.NoError(t, e.assignmentService(nil).Claim(ctx, conv.ID, b.ID))
	_, err := e.profiles.Update(ctx, b.ID, "Accounts", links)
	require.NoError(t, err)
	return &faqFixture{e: e, conv: conv, expert: b, asker: a}
}

func (f *faqFixture) service(scorer llm.Scorer, fetcher mapFetcher) FAQService {
	return NewFAQService(f.e.convos, f.e.messages, f.e.profiles, fetcher, scorer, 0, logger.Discard())
}

func TestAutoRespondPostsExpertAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFAQFixture(t, []string{"https://kb.example/login", "https://kb.example/missing"})
	q := testutil.CreateMessage(t, f.e.db, f.conv, f.asker.ID, "How do I reset my password?", time.Now().UTC())

	var prompt string
	scorer := llm.Func(func(_ context.Context, _, user string, maxTokens int, _ float32) (string, error) {
		prompt = user
		assert.Equal(t, faqMaxTokens, maxTokens)
		return "Use the 'Forgot password' link on the sign-in page.", nil
	})
	fetcher := mapFetcher{"https://kb.example/login": "Q: reset password? A: Forgot password link."}

	require.NoError(t, f.service(scorer, fetcher).AutoRespond(ctx, q.ID))
	assert.Contains(t, prompt, "Forgot password link.")
	assert.Contains(t, prompt, "How do I reset my password?")

	msgs, err := f.e.messages.ListByConversation(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, f.expert.ID, msgs[1].SenderID)
	assert.Equal(t, models.RoleExpert, msgs[1].SenderRole)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "Use the"))
}

func TestAutoRespondNoMatchPostsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFAQFixture(t, []string{"https://kb.example/login"})
	q := testutil.CreateMessage(t, f.e.db, f.conv, f.asker.ID, "What is the meaning of life?", time.Now().UTC())

	scorer := llm.Func(func(context.Context, string, string, int, float32) (string, error) {
		return `"NO_FAQ_MATCH"`, nil
	})
	require.NoError(t, f.service(scorer, mapFetcher{}).AutoRespond(ctx, q.ID))

	n, err := f.e.messages.Count(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAutoRespondSkipsWithoutLinksOrExpertMessages(t *testing.T) {
	ctx := context.Background()
	called := false
	scorer := llm.Func(func(context.Context, string, string, int, float32) (string, error) {
		called = true
		return "answer", nil
	})

	f := newFAQFixture(t, nil)
	q := testutil.CreateMessage(t, f.e.db, f.conv, f.asker.ID, "hello", time.Now().UTC())
	require.NoError(t, f.service(scorer, mapFetcher{}).AutoRespond(ctx, q.ID))

	g := newFAQFixture(t, []string{"https://kb.example/login"})
	own := testutil.CreateMessage(t, g.e.db, g.conv, g.expert.ID, "hello", time.Now().UTC())
	require.NoError(t, g.service(scorer, mapFetcher{}).AutoRespond(ctx, own.ID))

	assert.False(t, called)
}

func TestAutoRespondModelFailureIsContained(t *testing.T) {
	ctx := context.Background()
	f := newFAQFixture(t, []string{"https://kb.example/login"})
	q := testutil.CreateMessage(t, f.e.db, f.conv, f.asker.ID, "How do I reset my password?", time.Now().UTC())

	scorer := llm.Func(func(context.Context, string, string, int, float32) (string, error) {
		return "", errors.New("quota exceeded")
	})
	assert.Error(t, f.service(scorer, mapFetcher{}).AutoRespond(ctx, q.ID))

	n, err := f.e.messages.Count(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
