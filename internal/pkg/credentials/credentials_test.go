package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dayflow-app/dayflow/app/models"
)

type memTokenRepo struct {
	tokens  map[uint]models.AuthToken
	updates int
}

func (r *memTokenRepo) GetByID(id uint) (*models.AuthToken, error) {
	token, ok := r.tokens[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := token
	return &cp, nil
}

func (r *memTokenRepo) GetByUserAndProvider(userID uint, provider string) (*models.AuthToken, error) {
	for _, token := range r.tokens {
		if token.UserID == userID && token.Provider == provider {
			cp := token
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memTokenRepo) Update(token *models.AuthToken) error {
	r.updates++
	r.tokens[token.ID] = *token
	return nil
}

func TestEnsureValid_Passthrough(t *testing.T) {
	repo := &memTokenRepo{tokens: map[uint]models.AuthToken{}}
	store := NewStore(repo)
	store.now = func() time.Time { return time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC) }

	expiry := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	token := &models.AuthToken{ID: 1, UserID: 1, Provider: "google", AccessToken: "at-1", ExpiresAt: &expiry}

	cred, err := store.EnsureValid(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "at-1", cred.AccessToken)
	assert.True(t, cred.Expiry.Equal(expiry))
	assert.Equal(t, 0, repo.updates, "valid token is not rewritten")
}

func TestEnsureValid_ExpiredWithinSkew(t *testing.T) {
	repo := &memTokenRepo{tokens: map[uint]models.AuthToken{}}
	store := NewStore(repo)
	store.now = func() time.Time { return time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC) }

	// Expires 30 seconds from now, inside the refresh skew
	expiry := time.Date(2026, 2, 2, 9, 0, 30, 0, time.UTC)
	token := &models.AuthToken{ID: 1, UserID: 2, Provider: "google", AccessToken: "at-1", ExpiresAt: &expiry}

	_, err := store.EnsureValid(context.Background(), token)
	require.Error(t, err)

	// No refresh token stored, so the expiry is terminal
	var tokenErr *TokenExpiredError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, uint(2), tokenErr.UserID)
	assert.Equal(t, "google", tokenErr.Provider)
}

func TestEnsureValid_NoRefreshToken(t *testing.T) {
	repo := &memTokenRepo{tokens: map[uint]models.AuthToken{}}
	store := NewStore(repo)

	expired := time.Now().Add(-time.Hour)
	token := &models.AuthToken{ID: 1, UserID: 3, Provider: "google", AccessToken: "at-1", ExpiresAt: &expired}

	_, err := store.EnsureValid(context.Background(), token)
	require.Error(t, err)

	var tokenErr *TokenExpiredError
	assert.ErrorAs(t, err, &tokenErr)
}

func TestTokenExpiredError_Unwrap(t *testing.T) {
	inner := errors.New("invalid_grant")
	err := &TokenExpiredError{UserID: 1, Provider: "google", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "user 1")
	assert.Contains(t, err.Error(), "google")
}

func TestIsPermanentRefreshError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"Nil", nil, false},
		{"Invalid grant", errors.New(`oauth2: "invalid_grant" "Token has been expired or revoked."`), true},
		{"Invalid client", errors.New("invalid_client: client secret rotated"), true},
		{"Unauthorized client", errors.New("unauthorized_client"), true},
		{"Revoked", errors.New("token revoked by user"), true},
		{"Network trouble", errors.New("dial tcp: connection refused"), false},
		{"Server error", errors.New("oauth2: cannot fetch token: 503 Service Unavailable"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.permanent, isPermanentRefreshError(tt.err))
		})
	}
}

func TestSplitScopes(t *testing.T) {
	assert.Nil(t, splitScopes(""))
	assert.Equal(t, []string{"a", "b"}, splitScopes("a,b"))
	assert.Equal(t, []string{"a", "b"}, splitScopes(" a , b ,"))
}
