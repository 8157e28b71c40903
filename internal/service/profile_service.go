package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
	"github.com/quocanhngo/firechat/pkg/identity"
)

// ProfileService maps identities onto users/{uid} documents
type ProfileService struct {
	users repository.UserRepository
	log   zerolog.Logger
}

func NewProfileService(users repository.UserRepository, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		users: users,
		log:   logger.With().Str("component", "profiles").Logger(),
	}
}

// EnsureProfile creates the profile on first sign-in and reconciles
// hasSetPassword with the identity's linked providers. It returns the
// stored profile and whether the viewer should be asked to set a password.
func (s *ProfileService) EnsureProfile(ctx context.Context, id *identity.Identity) (*model.UserProfile, bool, error) {
	profile, err := s.users.Get(ctx, id.UID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		profile = newProfile(id)
		if err := s.users.Create(ctx, profile); err != nil {
			if !errors.Is(err, repository.ErrAlreadyExists) {
				return nil, false, fmt.Errorf("create profile: %w", err)
			}
			// another session won the race; use its document
			if profile, err = s.users.Get(ctx, id.UID); err != nil {
				return nil, false, err
			}
		} else {
			s.log.Info().Str("uid", id.UID).Msg("👤 Profile created")
		}
	case err != nil:
		return nil, false, fmt.Errorf("load profile: %w", err)
	}

	if !profile.HasSetPassword && id.HasPassword() {
		if err := s.users.SetHasPassword(ctx, id.UID, true); err != nil {
			s.log.Warn().Err(err).Str("uid", id.UID).Msg("hasSetPassword not reconciled")
		} else {
			profile.HasSetPassword = true
		}
	}
	return profile, !profile.HasSetPassword, nil
}

func newProfile(id *identity.Identity) *model.UserProfile {
	name := model.DefaultDisplayName(id.DisplayName, id.Email)
	photo := id.PhotoURL
	if photo == "" {
		photo = model.AvatarURL(name)
	}
	return &model.UserProfile{
		UID:            id.UID,
		Email:          id.Email,
		DisplayName:    name,
		PhotoURL:       photo,
		HasSetPassword: id.HasPassword(),
		BlockedUsers:   []string{},
	}
}

// MarkPasswordSet records that a password credential is now attached
func (s *ProfileService) MarkPasswordSet(ctx context.Context, uid string) error {
	return s.users.SetHasPassword(ctx, uid, true)
}

// SetPresence is called by the hub when a user's first connection opens
// or the last one closes
func (s *ProfileService) SetPresence(ctx context.Context, uid string, online bool) {
	status := model.PresenceOffline
	if online {
		status = model.PresenceOnline
	}
	if err := s.users.SetPresence(ctx, uid, status); err != nil {
		s.log.Warn().Err(err).Str("uid", uid).Str("status", string(status)).Msg("Presence not updated")
	}
}

// Get returns a profile by uid
func (s *ProfileService) Get(ctx context.Context, uid string) (*model.UserProfile, error) {
	p, err := s.users.Get(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return p, err
}
