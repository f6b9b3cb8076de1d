// Package credentials supplies refreshed-or-valid OAuth access
// credentials to the sync engine. A sync pass asks for a credential once,
// up front; gateway calls never trigger refreshes mid-pass.
package credentials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/oauth2"

	"github.com/dayflow-app/dayflow/app/models"
	"github.com/dayflow-app/dayflow/app/repository"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
)

// refreshSkew is how close to expiry a token is still treated as expired,
// so a credential stays valid for the whole pass it was issued for.
const refreshSkew = time.Minute

// TokenExpiredError is terminal for the affected calendar: the provider
// rejected the refresh and only the user re-authenticating can recover.
// It must never be retried automatically.
type TokenExpiredError struct {
	UserID   uint
	Provider string
	Err      error
}

func (e *TokenExpiredError) Error() string {
	return fmt.Sprintf("auth token for user %d on %s expired and cannot be refreshed: %v", e.UserID, e.Provider, e.Err)
}

func (e *TokenExpiredError) Unwrap() error {
	return e.Err
}

// Store refreshes stored OAuth tokens against their token endpoint and
// persists rotated material.
type Store struct {
	tokens repository.AuthTokenRepository
	now    func() time.Time
}

func NewStore(tokens repository.AuthTokenRepository) *Store {
	return &Store{tokens: tokens, now: time.Now}
}

// EnsureValid returns a usable credential for the token, refreshing
// through the stored token endpoint when the access token is expired or
// about to expire. Permanent refresh rejections surface as
// *TokenExpiredError.
func (s *Store) EnsureValid(ctx context.Context, token *models.AuthToken) (*provider.Credential, error) {
	if token.ValidUntil(s.now().Add(refreshSkew)) {
		return &provider.Credential{AccessToken: token.AccessToken, Expiry: *token.ExpiresAt}, nil
	}

	if token.RefreshToken == "" {
		return nil, &TokenExpiredError{
			UserID:   token.UserID,
			Provider: token.Provider,
			Err:      fmt.Errorf("no refresh token stored"),
		}
	}

	config := &oauth2.Config{
		ClientID:     token.ClientID,
		ClientSecret: token.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: token.TokenURI},
		Scopes:       splitScopes(token.Scopes),
	}
	source := config.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken})

	fresh, err := source.Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			return nil, &TokenExpiredError{UserID: token.UserID, Provider: token.Provider, Err: err}
		}
		return nil, fmt.Errorf("refresh access token for user %d: %w", token.UserID, err)
	}

	token.AccessToken = fresh.AccessToken
	expiry := fresh.Expiry
	token.ExpiresAt = &expiry
	// Persist rotated refresh tokens (RFC 6749 servers may issue one).
	if fresh.RefreshToken != "" && fresh.RefreshToken != token.RefreshToken {
		log.Infof("[Credentials] Rotating refresh token for user %d on %s", token.UserID, token.Provider)
		token.RefreshToken = fresh.RefreshToken
	}
	if err := s.tokens.Update(token); err != nil {
		return nil, fmt.Errorf("persist refreshed token for user %d: %w", token.UserID, err)
	}

	return &provider.Credential{AccessToken: token.AccessToken, Expiry: expiry}, nil
}

func splitScopes(scopes string) []string {
	if scopes == "" {
		return nil
	}
	parts := strings.Split(scopes, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// isPermanentRefreshError distinguishes "the user must re-authenticate"
// from transient endpoint trouble worth retrying on the next pass.
func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
