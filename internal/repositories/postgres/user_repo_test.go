package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoodesk/internal/models"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/testutil"
	"github.com/yoockh/yoodesk/internal/utils"
)

func TestCreateUserCreatesProfile(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")

	p, err := pgrepo.NewProfileRepo(db).GetByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.UserID)
	assert.Empty(t, p.KnowledgeBaseLinks)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	testutil.CreateUser(t, db, "alice")

	err := pgrepo.NewUserRepo(db).Create(ctx, &models.User{
		ID: uuid.NewString(), Username: "alice", PasswordHash: "x",
	}, uuid.NewString())
	assert.ErrorIs(t, err, utils.ErrDuplicate)
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	profiles := pgrepo.NewProfileRepo(db)
	alice := testutil.CreateUser(t, db, "alice")

	before, err := profiles.GetByUserID(ctx, alice.ID)
	require.NoError(t, err)

	require.NoError(t, profiles.Ensure(ctx, alice.ID, uuid.NewString()))

	after, err := profiles.GetByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
}

func TestUpdateProfileAndListCandidates(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	profiles := pgrepo.NewProfileRepo(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	p, err := profiles.Update(ctx, bob.ID, "Networking and VPNs", []string{"https://kb.example/vpn", "https://kb.example/wifi"})
	require.NoError(t, err)
	assert.Equal(t, "Networking and VPNs", p.Bio)
	assert.Equal(t, []string{"https://kb.example/vpn", "https://kb.example/wifi"}, []string(p.KnowledgeBaseLinks))

	_, err = profiles.Update(ctx, uuid.NewString(), "x", nil)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	cands, err := profiles.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, alice.ID, cands[0].ID)
	assert.Equal(t, "bob", cands[1].Username)
	assert.Equal(t, "https://kb.example/vpn, https://kb.example/wifi", cands[1].KnowledgeBase)
}

func TestRevokeTokensAndTouch(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	users := pgrepo.NewUserRepo(db)
	alice := testutil.CreateUser(t, db, "alice")

	now := time.Now().UTC()
	require.NoError(t, users.RevokeTokens(ctx, alice.ID, now))
	require.NoError(t, users.TouchLastActive(ctx, alice.ID, now))

	got, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got.JWTRevokedAt)
	require.NotNil(t, got.LastActiveAt)

	_, err = users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
