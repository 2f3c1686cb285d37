package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/miradorstack/opsboard/internal/auth"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/utils"
)

func newAuthService(t *testing.T, accessTTL time.Duration) *AuthService {
	t.Helper()
	svc, err := NewAuthService(AuthConfig{
		Storage:    storage.NewMemoryProvider(),
		AccessTTL:  accessTTL,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return svc
}

func signIn(t *testing.T, svc *AuthService, email, password string) auth.TokenResponse {
	t.Helper()
	ctx := context.Background()
	resp, err := svc.Login(ctx, auth.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	require.True(t, resp.MFARequired)
	tokens, err := svc.VerifyMFA(ctx, email, MFACode)
	require.NoError(t, err)
	return tokens
}

func TestAuthServiceRejectsBadCredentials(t *testing.T) {
	svc := newAuthService(t, 0)
	ctx := context.Background()

	_, err := svc.Login(ctx, auth.Credentials{Email: "admin@test.com", Password: "wrong"})
	require.ErrorIs(t, err, utils.ErrUnauthorized)
	assert.Equal(t, "Invalid credentials", utils.Message(err))

	_, err = svc.Login(ctx, auth.Credentials{Email: "nobody@test.com", Password: "admin123"})
	require.ErrorIs(t, err, utils.ErrUnauthorized)
}

func TestAuthServiceSecondFactor(t *testing.T) {
	svc := newAuthService(t, 0)
	ctx := context.Background()

	_, err := svc.VerifyMFA(ctx, "admin@test.com", MFACode)
	require.ErrorIs(t, err, utils.ErrUnauthorized)
	assert.Equal(t, "No login in progress", utils.Message(err))

	_, err = svc.Login(ctx, auth.Credentials{Email: "Admin@Test.com", Password: "admin123"})
	require.NoError(t, err)
	_, err = svc.VerifyMFA(ctx, "admin@test.com", "000000")
	assert.Equal(t, "Invalid MFA code", utils.Message(err))

	tokens, err := svc.VerifyMFA(ctx, "admin@test.com", MFACode)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int(DefaultAccessTTL/time.Second), tokens.ExpiresIn)
	assert.Equal(t, "user-1", tokens.User.ID)
	assert.True(t, tokens.User.HasRole(auth.RoleAdmin))

	_, err = svc.VerifyMFA(ctx, "admin@test.com", MFACode)
	require.ErrorIs(t, err, utils.ErrUnauthorized, "second factor is single use")

	user, err := svc.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin@test.com", user.Email)
}

func TestAuthServiceRefreshRotatesPair(t *testing.T) {
	svc := newAuthService(t, 0)
	ctx := context.Background()
	first := signIn(t, svc, "user@test.com", "user123")

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, "user-2", second.User.ID)

	_, err = svc.Authenticate(ctx, first.AccessToken)
	require.ErrorIs(t, err, utils.ErrUnauthorized)
	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, utils.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)
}

func TestAuthServiceLogoutRevokesPair(t *testing.T) {
	svc := newAuthService(t, 0)
	pair := signIn(t, svc, "admin@test.com", "admin123")
	ctx := WithToken(context.Background(), pair.AccessToken)

	require.NoError(t, svc.Logout(ctx))

	_, err := svc.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, utils.ErrUnauthorized)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, utils.ErrUnauthorized)

	require.NoError(t, svc.Logout(context.Background()))
}

func TestAuthServiceAccessTokenExpires(t *testing.T) {
	svc := newAuthService(t, 20*time.Millisecond)
	pair := signIn(t, svc, "admin@test.com", "admin123")
	ctx := context.Background()

	require.Eventually(t, func() bool {
		_, err := svc.Authenticate(ctx, pair.AccessToken)
		return err != nil
	}, time.Second, 10*time.Millisecond)

	renewed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, renewed.AccessToken)
	require.NoError(t, err)
}
