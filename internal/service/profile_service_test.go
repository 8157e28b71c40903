package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
	"github.com/quocanhngo/firechat/internal/repository/memrepo"
	"github.com/quocanhngo/firechat/pkg/identity"
)

func TestEnsureProfileCreatesOnFirstSignIn(t *testing.T) {
	store := memrepo.New()
	svc := NewProfileService(store.Users(), zerolog.Nop())
	ctx := context.Background()

	p, needsPassword, err := svc.EnsureProfile(ctx, &identity.Identity{
		UID:       "u1",
		Email:     "jane.doe@example.com",
		Providers: []string{"google.com"},
	})
	require.NoError(t, err)
	assert.True(t, needsPassword)
	assert.Equal(t, "jane.doe", p.DisplayName)
	assert.Equal(t, model.AvatarURL("jane.doe"), p.PhotoURL)
	assert.False(t, p.HasSetPassword)

	stored, err := store.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", stored.Email)

	// a second sign-in leaves the stored profile alone
	before := store.Writes()
	_, _, err = svc.EnsureProfile(ctx, &identity.Identity{UID: "u1", Email: "jane.doe@example.com", DisplayName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, before, store.Writes())
}

func TestEnsureProfileReconcilesPassword(t *testing.T) {
	store := memrepo.New()
	store.Users().Put(model.UserProfile{UID: "u1", DisplayName: "Jane"})
	svc := NewProfileService(store.Users(), zerolog.Nop())
	ctx := context.Background()

	p, needsPassword, err := svc.EnsureProfile(ctx, &identity.Identity{
		UID:       "u1",
		Providers: []string{"google.com", identity.PasswordProvider},
	})
	require.NoError(t, err)
	assert.False(t, needsPassword)
	assert.True(t, p.HasSetPassword)

	stored, err := store.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, stored.HasSetPassword)
}

func TestEnsureProfileLosesCreateRace(t *testing.T) {
	store := memrepo.New()
	store.Users().Put(model.UserProfile{UID: "u1", DisplayName: "Winner"})
	// the first lookup misses, the create then collides with the other session
	store.FailNext("users.Get", repository.ErrNotFound)
	svc := NewProfileService(store.Users(), zerolog.Nop())

	p, _, err := svc.EnsureProfile(context.Background(), &identity.Identity{UID: "u1", DisplayName: "Loser"})
	require.NoError(t, err)
	assert.Equal(t, "Winner", p.DisplayName)
}

func TestSetPresence(t *testing.T) {
	store := memrepo.New()
	store.Users().Put(model.UserProfile{UID: "u1"})
	svc := NewProfileService(store.Users(), zerolog.Nop())
	ctx := context.Background()

	svc.SetPresence(ctx, "u1", true)
	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOnline, p.Status)

	svc.SetPresence(ctx, "u1", false)
	p, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOffline, p.Status)
	assert.NotNil(t, p.LastSeen)

	_, err = svc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
