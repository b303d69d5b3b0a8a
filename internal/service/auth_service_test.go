package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartcampus/campus-booking-api/internal/models"
	appErrors "github.com/smartcampus/campus-booking-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	lastLoginUpdated bool
	passwordUpdated  string
}

func (m *mockAuthRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(_ context.Context, _ string, passwordHash string, _ time.Time) error {
	m.passwordUpdated = passwordHash
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &mockAuthRepo{users: map[string]*models.User{
		"u1": {
			ID:           "u1",
			Username:     "jdoe",
			Email:        "jdoe@campus.edu",
			PasswordHash: string(hash),
			FullName:     "Jane Doe",
			Role:         models.RoleTeacher,
			Active:       true,
		},
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "campus-booking-api",
	})
	return svc, repo
}

func TestLoginSuccess(t *testing.T) {
	svc, repo := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Greater(t, resp.ExpiresIn, int64(0))
	assert.Equal(t, "u1", resp.User.ID)
	assert.True(t, repo.lastLoginUpdated)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.users["u1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestLoginMissingFields(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordSuccess(t *testing.T) {
	svc, repo := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "battery-staple",
	})
	require.NoError(t, err)
	require.NotEmpty(t, repo.passwordUpdated)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwordUpdated), []byte("battery-staple")))
}

func TestChangePasswordOldMismatch(t *testing.T) {
	svc, repo := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "not-the-password",
		NewPassword: "battery-staple",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.passwordUpdated)
}

func TestChangePasswordTooShort(t *testing.T) {
	svc, _ := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "short",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc, repo := newAuthFixture(t)

	token, _, err := svc.generateAccessToken(repo.users["u1"])
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "campus-booking-api", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc, repo := newAuthFixture(t)

	other := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "another-secret",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "campus-booking-api",
	})
	token, _, err := other.generateAccessToken(repo.users["u1"])
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
