package services

import (
	"context"
	"strings"
	"testing"

	"github.com/equipdesk/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, &RegisterRequest{Email: "  A@X.com ", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "pw1", user.PasswordHash)

	_, err = f.auth.Register(ctx, &RegisterRequest{Email: "a@x.com", Password: "other"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = f.auth.Register(ctx, &RegisterRequest{Email: "A@X.COM", Password: "other"})
	assert.ErrorIs(t, err, ErrAlreadyExists, "email uniqueness is case-insensitive")
}

func TestAuthService_RegisterInvalidInput(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"empty email", RegisterRequest{Email: "", Password: "pw"}},
		{"blank email", RegisterRequest{Email: "   ", Password: "pw"}},
		{"empty password", RegisterRequest{Email: "a@x.com", Password: ""}},
		{"not an email", RegisterRequest{Email: "nobody", Password: "pw"}},
		{"password too long", RegisterRequest{Email: "a@x.com", Password: strings.Repeat("p", 73)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, &tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.createUser(t, "a@x.com", "pw1", models.RoleUser)

	_, wrongPassword := f.auth.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "wrong"}, ClientInfo{})
	_, unknownUser := f.auth.Login(ctx, &LoginRequest{Email: "b@x.com", Password: "pw1"}, ClientInfo{})

	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestAuthService_LoginRejectsPasswordSharingFirst72Bytes(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	stored := strings.Repeat("a", 72)
	f.createUser(t, "a@x.com", stored, models.RoleUser)

	_, err := f.auth.Login(ctx, &LoginRequest{Email: "a@x.com", Password: stored + "DIFFERENT-SUFFIX"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, &LoginRequest{Email: "a@x.com", Password: stored}, ClientInfo{})
	assert.NoError(t, err)
}

func TestAuthService_LoginRequiresFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Login(context.Background(), &LoginRequest{Email: "a@x.com"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthService_LoginLeavesSingleActiveSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleUser)

	var last *LoginResult
	for i := 0; i < 3; i++ {
		res, err := f.auth.Login(ctx, &LoginRequest{Email: "A@x.com", Password: "pw1"}, ClientInfo{IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, 1, f.activeCount(t, user.ID), "login %d", i+1)
		last = res
	}

	active, err := f.sessions.ListActiveSessions(ctx, user.ID)
	require.NoError(t, err)
	claims, err := f.issuer.ParseRefreshToken(last.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, active[0].ID)

	access, err := f.issuer.ParseAccessToken(last.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, access.UserID)
	assert.Equal(t, models.RoleUser, access.Role)
}

func TestAuthService_FullRotationScenario(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, &RegisterRequest{Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "wrong"}, ClientInfo{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := f.auth.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "pw1"}, ClientInfo{})
	require.NoError(t, err)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)

	refreshed, err := f.auth.Refresh(ctx, login.RefreshToken, ClientInfo{})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, 1, f.activeCount(t, user.ID))

	_, err = f.auth.Refresh(ctx, login.RefreshToken, ClientInfo{})
	require.ErrorIs(t, err, ErrReuseDetected)
	assert.Equal(t, 0, f.activeCount(t, user.ID))

	// The purge also killed the legitimately rotated token.
	_, err = f.auth.Refresh(ctx, refreshed.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, ErrReuseDetected)
}

func TestAuthService_RefreshRequiresToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Refresh(context.Background(), "", ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthService_LogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleUser)

	login, err := f.auth.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "pw1"}, ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, user.ID))
	assert.Equal(t, 0, f.activeCount(t, user.ID))
	require.NoError(t, f.auth.Logout(ctx, user.ID))

	// A token revoked by logout is a reuse signal afterwards.
	_, err = f.auth.Refresh(ctx, login.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, ErrReuseDetected)
}

func TestAuthService_Me(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "me@x.com", "pw1", models.RoleAdmin)

	_, err := f.auth.Login(ctx, &LoginRequest{Email: "me@x.com", Password: "pw1"}, ClientInfo{UserAgent: "browser"})
	require.NoError(t, err)

	me, err := f.auth.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "me@x.com", me.Email)
	assert.Equal(t, models.RoleAdmin, me.Role)
	assert.Equal(t, 1, me.ActiveSessions)
	require.Len(t, me.Sessions, 1)
	assert.Equal(t, "browser", me.Sessions[0].UserAgent)

	_, err = f.auth.Me(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_CreateAdminIfNotExists(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.CreateAdminIfNotExists(ctx, "Admin@Example.com", "secret"))
	require.NoError(t, f.auth.CreateAdminIfNotExists(ctx, "admin@example.com", "secret"))

	var admins []models.User
	require.NoError(t, f.db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@example.com", admins[0].Email)

	_, err := f.auth.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "secret"}, ClientInfo{})
	assert.NoError(t, err)
}

func TestAuthService_CreateAdminPromotesExistingAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	existing := f.createUser(t, "boss@example.com", "original", models.RoleUser)

	require.NoError(t, f.auth.CreateAdminIfNotExists(ctx, "boss@example.com", "ignored"))

	var reloaded models.User
	require.NoError(t, f.db.First(&reloaded, existing.ID).Error)
	assert.Equal(t, models.RoleAdmin, reloaded.Role)
	assert.Equal(t, existing.PasswordHash, reloaded.PasswordHash)
}
