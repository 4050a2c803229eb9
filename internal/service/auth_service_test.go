package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/pkg/config"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
)

func TestRegisterLoginRequiresApproval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	student, err := h.auth.RegisterStudent(ctx, models.RegisterRequest{Name: "Rina", Email: "rina@school.id", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, student.Role)
	assert.False(t, student.Approved)
	assert.NotEqual(t, "secret1", student.PasswordHash)

	_, err = h.auth.Login(ctx, models.LoginRequest{Email: "rina@school.id", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrNotApproved)

	_, err = h.userSvc.ApproveStudent(ctx, claimsFor(h.admin), student.ID)
	require.NoError(t, err)

	resp, err := h.auth.Login(ctx, models.LoginRequest{Email: "rina@school.id", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.User.Approved)

	claims, err := h.auth.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, student.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Contains(t, h.audit.actions(), models.AuditActionLogin)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.RegisterStudent(context.Background(), models.RegisterRequest{Name: "Other", Email: "siti@school.id", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateEmail)
}

func TestRegisterEmailIsCaseSensitive(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.RegisterStudent(context.Background(), models.RegisterRequest{Name: "Other", Email: "Siti@school.id", Password: "secret1"})
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.RegisterStudent(context.Background(), models.RegisterRequest{Name: "", Email: "bad", Password: "1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLoginFailuresAreNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.RegisterStudent(ctx, models.RegisterRequest{Name: "Rina", Email: "rina@school.id", Password: "secret1"})
	require.NoError(t, err)

	_, err = h.auth.Login(ctx, models.LoginRequest{Email: "nobody@school.id", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = h.auth.Login(ctx, models.LoginRequest{Email: "rina@school.id", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestLoginStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.users.failWith = errors.New("connection reset")

	_, err := h.auth.Login(context.Background(), models.LoginRequest{Email: "siti@school.id", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrStoreFailure)
}

func TestRegisterAdminBootstrap(t *testing.T) {
	users := newMemUsers()
	auth := NewAuthService(users, nil, nil, nil, AuthConfig{AccessTokenSecret: "s"})
	ctx := context.Background()

	first, err := auth.RegisterAdmin(ctx, nil, models.RegisterRequest{Name: "Root", Email: "root@school.id", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, first.Approved)

	_, err = auth.RegisterAdmin(ctx, nil, models.RegisterRequest{Name: "Second", Email: "second@school.id", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = auth.RegisterAdmin(ctx, &models.JWTClaims{UserID: "t", Role: models.RoleTeacher}, models.RegisterRequest{Name: "Second", Email: "second@school.id", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = auth.RegisterAdmin(ctx, claimsFor(first), models.RegisterRequest{Name: "Second", Email: "second@school.id", Password: "secret1"})
	assert.NoError(t, err)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	users := newMemUsers()
	auth := NewAuthService(users, nil, nil, nil, AuthConfig{AccessTokenSecret: "s"})
	cfg := config.BootstrapConfig{AdminEmail: "root@school.id", AdminPassword: "secret1"}

	require.NoError(t, auth.EnsureBootstrapAdmin(context.Background(), cfg))
	require.NoError(t, auth.EnsureBootstrapAdmin(context.Background(), cfg))

	n, err := users.CountByRole(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, auth.EnsureBootstrapAdmin(context.Background(), config.BootstrapConfig{}))
}

func TestRefreshRotatesToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.RegisterAdmin(ctx, claimsFor(h.admin), models.RegisterRequest{Name: "Ops", Email: "ops@school.id", Password: "secret1"})
	require.NoError(t, err)

	login, err := h.auth.Login(ctx, models.LoginRequest{Email: "ops@school.id", Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := h.auth.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = h.auth.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.RegisterAdmin(ctx, claimsFor(h.admin), models.RegisterRequest{Name: "Ops", Email: "ops@school.id", Password: "secret1"})
	require.NoError(t, err)
	login, err := h.auth.Login(ctx, models.LoginRequest{Email: "ops@school.id", Password: "secret1"})
	require.NoError(t, err)

	err = h.auth.Logout(ctx, claimsFor(h.student), login.RefreshToken)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	owner := &models.JWTClaims{UserID: login.User.ID, Role: models.RoleAdmin}
	require.NoError(t, h.auth.Logout(ctx, owner, login.RefreshToken))
	_, err = h.auth.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	info, err := h.auth.Me(context.Background(), claimsFor(h.teacher))
	require.NoError(t, err)
	assert.Equal(t, "Physics", *info.Subject)

	_, err = h.auth.Me(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
