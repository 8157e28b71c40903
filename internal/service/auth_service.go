package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/authflow"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/pkg/auth"
	"github.com/quocanhngo/firechat/pkg/identity"
)

const (
	minPasswordLength = 6
	// identity tokens from the provider expire after an hour
	idTokenTTL  = time.Hour
	resetNotice = "Password reset email sent. Check your inbox."
)

// BlacklistKey is where a revoked session token is remembered
func BlacklistKey(token string) string {
	return "blacklist:" + token
}

func idTokenKey(uid string) string {
	return "idtoken:" + uid
}

// Notifier pushes an event to every connection of a user
type Notifier interface {
	SendToUser(uid string, event *model.WSEvent)
}

// AuthService signs users in through the identity provider and issues
// the gateway's session tokens
type AuthService struct {
	provider   identity.Provider
	profiles   *ProfileService
	jwtManager *auth.JWTManager
	rdb        *redis.Client
	notifier   Notifier
	log        zerolog.Logger
}

func NewAuthService(
	provider identity.Provider,
	profiles *ProfileService,
	jwtManager *auth.JWTManager,
	rdb *redis.Client,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		provider:   provider,
		profiles:   profiles,
		jwtManager: jwtManager,
		rdb:        rdb,
		log:        logger.With().Str("component", "auth").Logger(),
	}
}

// SetNotifier wires the hub once it exists
func (s *AuthService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ==================== Email / Password ====================

// Submit handles the sign-in form in whichever mode it is in
func (s *AuthService) Submit(ctx context.Context, req model.AuthSubmitRequest) (*model.AuthSubmitResponse, error) {
	mode, err := authflow.Parse(req.Mode)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if mode.NeedsPassword() && req.Password == "" {
		return nil, identity.ErrInvalidCredentials
	}

	resp := &model.AuthSubmitResponse{NextModes: authflow.Strings(mode.Next())}
	switch mode {
	case authflow.Login:
		id, err := s.provider.SignIn(ctx, email, req.Password)
		if err != nil {
			return nil, err
		}
		if resp.Login, err = s.establish(ctx, id); err != nil {
			return nil, err
		}
	case authflow.Signup:
		id, err := s.provider.SignUp(ctx, email, req.Password)
		if err != nil {
			return nil, err
		}
		if resp.Login, err = s.establish(ctx, id); err != nil {
			return nil, err
		}
	case authflow.Forgot:
		if err := s.provider.SendPasswordReset(ctx, email); err != nil {
			return nil, err
		}
		resp.Notice = resetNotice
	}
	return resp, nil
}

// ==================== Google Sign-In ====================

// LoginWithGoogle exchanges the Google ID token from the frontend popup
func (s *AuthService) LoginWithGoogle(ctx context.Context, req model.GoogleLoginRequest) (*model.LoginResponse, error) {
	id, err := s.provider.SignInWithGoogle(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, id)
}

// LoginWithIDToken accepts a provider ID token obtained elsewhere
func (s *AuthService) LoginWithIDToken(ctx context.Context, idToken string) (*model.LoginResponse, error) {
	id, err := s.provider.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, id)
}

// establish makes sure the profile exists and issues a session token
func (s *AuthService) establish(ctx context.Context, id *identity.Identity) (*model.LoginResponse, error) {
	profile, needsPassword, err := s.profiles.EnsureProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateToken(profile.UID, profile.Email, profile.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if id.IDToken != "" {
		if err := s.rdb.Set(ctx, idTokenKey(profile.UID), id.IDToken, idTokenTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("uid", profile.UID).Msg("Identity token not cached")
		}
	}

	s.log.Info().Str("uid", profile.UID).Bool("needs_password", needsPassword).Msg("🔑 Signed in")
	return &model.LoginResponse{
		Token:         token,
		User:          *profile,
		NeedsPassword: needsPassword,
	}, nil
}

// ==================== Password ====================

// SetPassword attaches a password to the viewer's account. The provider
// needs a recent sign-in; otherwise ErrRequiresRecentLogin is returned.
func (s *AuthService) SetPassword(ctx context.Context, uid string, req model.SetPasswordRequest) error {
	if len(req.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	idToken, err := s.rdb.Get(ctx, idTokenKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return identity.ErrRequiresRecentLogin
	}
	if err != nil {
		return fmt.Errorf("load identity token: %w", err)
	}

	fresh, err := s.provider.UpdatePassword(ctx, idToken, req.Password)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, idTokenKey(uid), fresh, idTokenTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("uid", uid).Msg("Identity token not cached")
	}
	if err := s.profiles.MarkPasswordSet(ctx, uid); err != nil {
		return fmt.Errorf("mark password set: %w", err)
	}
	s.log.Info().Str("uid", uid).Msg("🔒 Password set")
	return nil
}

// ==================== Sessions ====================

// Authenticate validates a session token and checks it was not revoked
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	exists, err := s.rdb.Exists(ctx, BlacklistKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if exists > 0 {
		return nil, ErrTokenRevoked
	}
	return s.jwtManager.ValidateToken(token)
}

// Logout revokes the session token and signs out the user's open connections
func (s *AuthService) Logout(ctx context.Context, uid, token string) error {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return err
	}

	if ttl := claims.Remaining(); ttl > 0 {
		if err := s.rdb.Set(ctx, BlacklistKey(token), "revoked", ttl).Err(); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	if err := s.rdb.Del(ctx, idTokenKey(uid)).Err(); err != nil {
		s.log.Warn().Err(err).Str("uid", uid).Msg("Identity token not dropped")
	}

	if s.notifier != nil {
		s.notifier.SendToUser(uid, &model.WSEvent{Type: model.WSEventSignedOut, Payload: map[string]string{"uid": uid}})
	}
	s.log.Info().Str("uid", uid).Msg("👋 Signed out")
	return nil
}
