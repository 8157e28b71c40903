package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// Firebase implements Provider with the Admin SDK for token verification
// and Identity Toolkit for the end-user credential flows
type Firebase struct {
	auth       *auth.Client
	toolkit    *identitytoolkit.RelyingpartyService
	requestURI string
}

// NewFirebase builds the provider. apiKey is the web API key of the project;
// requestURI is the continue URI reported for Google sign-in.
func NewFirebase(ctx context.Context, app *firebase.App, apiKey, requestURI string) (*Firebase, error) {
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase auth: %w", err)
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to init identity toolkit: %w", err)
	}
	return &Firebase{
		auth:       authClient,
		toolkit:    svc.Relyingparty,
		requestURI: requestURI,
	}, nil
}

// SignIn verifies an email/password pair
func (f *Firebase) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := f.toolkit.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return f.withProviders(ctx, &Identity{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoUrl,
		IDToken:     resp.IdToken,
	})
}

// SignUp registers a password account, then signs it in
func (f *Firebase) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	_, err := f.toolkit.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return f.SignIn(ctx, email, password)
}

// SignInWithGoogle exchanges a Google ID token obtained by the frontend popup
func (f *Firebase) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error) {
	body := url.Values{}
	body.Set("id_token", googleIDToken)
	body.Set("providerId", "google.com")

	resp, err := f.toolkit.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        f.requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return f.withProviders(ctx, &Identity{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoUrl,
		IDToken:     resp.IdToken,
	})
}

// SendPasswordReset asks the provider to email a reset link
func (f *Firebase) SendPasswordReset(ctx context.Context, email string) error {
	_, err := f.toolkit.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}).Context(ctx).Do()
	return mapError(err)
}

// UpdatePassword sets the password on the account behind idToken
func (f *Firebase) UpdatePassword(ctx context.Context, idToken, password string) (string, error) {
	resp, err := f.toolkit.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           idToken,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return "", mapError(err)
	}
	if resp.IdToken != "" {
		return resp.IdToken, nil
	}
	return idToken, nil
}

// Verify checks an ID token and loads the account's providers
func (f *Firebase) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := f.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return f.withProviders(ctx, &Identity{UID: token.UID, IDToken: idToken})
}

// withProviders fills the linked providers and any missing profile fields
func (f *Firebase) withProviders(ctx context.Context, id *Identity) (*Identity, error) {
	user, err := f.auth.GetUser(ctx, id.UID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if user.UserInfo != nil {
		if id.Email == "" {
			id.Email = user.Email
		}
		if id.DisplayName == "" {
			id.DisplayName = user.DisplayName
		}
		if id.PhotoURL == "" {
			id.PhotoURL = user.PhotoURL
		}
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}
	id.Providers = id.Providers[:0]
	for _, p := range user.ProviderUserInfo {
		if p != nil {
			id.Providers = append(id.Providers, p.ProviderID)
		}
	}
	return id, nil
}

// mapError turns Identity Toolkit error codes into user-facing errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	code := gerr.Message
	if i := strings.IndexAny(code, " :"); i > 0 {
		code = code[:i]
	}
	switch code {
	case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL":
		return ErrInvalidCredentials
	case "EMAIL_EXISTS":
		return ErrEmailExists
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrTooManyAttempts
	case "USER_DISABLED":
		return ErrUserDisabled
	case "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return ErrRequiresRecentLogin
	case "INVALID_ID_TOKEN", "TOKEN_EXPIRED", "USER_NOT_FOUND":
		return ErrInvalidToken
	}
	return fmt.Errorf("identity provider: %w", err)
}
