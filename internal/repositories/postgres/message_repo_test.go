package postgres_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/testutil"
	"github.com/yoockh/yoodesk/internal/utils"
)

func TestLatestNReturnsNewestOldestFirst(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := pgrepo.NewMessageRepo(db)

	alice := testutil.CreateUser(t, db, "alice")
	conv := testutil.CreateConversation(t, db, alice.ID, "Long thread")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		testutil.CreateMessage(t, db, conv, alice.ID, "msg "+strconv.Itoa(i), base.Add(time.Duration(i)*time.Second))
	}

	rows, err := repo.LatestN(ctx, conv.ID, 20)
	require.NoError(t, err)
	require.Len(t, rows, 20)
	assert.Equal(t, "msg 5", rows[0].Content)
	assert.Equal(t, "msg 24", rows[19].Content)

	n, err := repo.Count(ctx, conv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 25, n)

	first, err := repo.First(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "msg 0", first.Content)
}

func TestCountUnreadExcludesViewerAndReadMessages(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := pgrepo.NewMessageRepo(db)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	conv := testutil.CreateConversation(t, db, alice.ID, "Thread")

	now := time.Now().UTC()
	testutil.CreateMessage(t, db, conv, alice.ID, "from alice 1", now)
	testutil.CreateMessage(t, db, conv, alice.ID, "from alice 2", now.Add(time.Second))
	fromBob := testutil.CreateMessage(t, db, conv, bob.ID, "from bob", now.Add(2*time.Second))

	n, err := repo.CountUnread(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.CountUnread(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, repo.MarkRead(ctx, fromBob.ID, now))
	n, err = repo.CountUnread(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	got, err := repo.GetByID(ctx, fromBob.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.NotNil(t, got.ReadAt)

	assert.ErrorIs(t, repo.MarkRead(ctx, uuid.NewString(), now), utils.ErrNotFound)
}

func TestListVisibleSince(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := pgrepo.NewMessageRepo(db)

	alice := testutil.CreateUser(t, db, "alice")
	carol := testutil.CreateUser(t, db, "carol")
	mine := testutil.CreateConversation(t, db, alice.ID, "Mine")
	theirs := testutil.CreateConversation(t, db, carol.ID, "Theirs")

	watermark := time.Now().UTC().Add(-10 * time.Minute)
	testutil.CreateMessage(t, db, mine, alice.ID, "old", watermark.Add(-time.Minute))
	testutil.CreateMessage(t, db, mine, alice.ID, "new", watermark.Add(time.Minute))
	testutil.CreateMessage(t, db, theirs, carol.ID, "hidden", watermark.Add(time.Minute))

	rows, err := repo.ListVisibleSince(ctx, alice.ID, watermark)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].Content)
	require.NotNil(t, rows[0].Sender)
	assert.Equal(t, "alice", rows[0].Sender.Username)
}
