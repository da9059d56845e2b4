package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/model"
)

type authFixture struct {
	users  *mockUserRepo
	admins *mockAdminRepo
	logs   *mockLoginLogRepo
	svc    *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{users: newMockUserRepo(), admins: newMockAdminRepo(), logs: &mockLoginLogRepo{}}
	f.svc = NewAuthService(f.users, f.admins, f.logs, "test-secret", time.Hour, discardLogger())
	return f
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	return parsed.Claims.(jwt.MapClaims)
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture()

	resp, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Name: " Ana Quispe ", Email: "Ana@Example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, "Ana Quispe", resp.User.Name)
	assert.True(t, resp.User.Active)

	claims := parseClaims(t, resp.Token)
	assert.Equal(t, model.AccountKindUser, claims["kind"])
	assert.Equal(t, resp.User.ID.String(), claims["sub"])
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture()
	f.users.add(&model.User{Email: "ana@example.com"})

	_, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ana", Email: "ANA@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, f.users.byID, 1)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture()
	f.users.add(&model.User{Email: "ana@example.com", Password: hash(t, "password123"), Active: true})
	meta := dto.LoginMeta{IP: "10.0.0.1", UserAgent: "test"}

	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: "password123"}, meta)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	require.Len(t, f.logs.entries, 1)
	assert.True(t, f.logs.entries[0].Success)
	assert.Equal(t, "10.0.0.1", f.logs.entries[0].IP)
}

func TestAuthService_Login_Failures(t *testing.T) {
	f := newAuthFixture()
	f.users.add(&model.User{Email: "ana@example.com", Password: hash(t, "password123"), Active: true})
	f.users.add(&model.User{Email: "off@example.com", Password: hash(t, "password123"), Active: false})

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: "wrong"}, dto.LoginMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "x"}, dto.LoginMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), dto.LoginRequest{Email: "off@example.com", Password: "password123"}, dto.LoginMeta{})
	assert.ErrorIs(t, err, ErrAccountDisabled)

	require.Len(t, f.logs.entries, 3)
	for _, e := range f.logs.entries {
		assert.False(t, e.Success)
	}
	assert.Nil(t, f.logs.entries[1].AccountID)
}

func TestAuthService_Login_LogFailureIsSwallowed(t *testing.T) {
	f := newAuthFixture()
	f.logs.err = errors.New("db down")
	f.users.add(&model.User{Email: "ana@example.com", Password: hash(t, "password123"), Active: true})

	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: "password123"}, dto.LoginMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthService_AdminLogin(t *testing.T) {
	f := newAuthFixture()
	f.admins.admins["root@panaderia.pe"] = &model.Admin{
		Email: "root@panaderia.pe", Password: hash(t, "secret123"), Role: model.AdminRoleSuperAdmin, Active: true,
	}

	resp, err := f.svc.AdminLogin(context.Background(), dto.LoginRequest{Email: "root@panaderia.pe", Password: "secret123"}, dto.LoginMeta{})
	require.NoError(t, err)

	claims := parseClaims(t, resp.Token)
	assert.Equal(t, model.AccountKindAdmin, claims["kind"])
	assert.Equal(t, model.AdminRoleSuperAdmin, claims["role"])
	assert.Equal(t, model.AccountKindAdmin, f.logs.entries[0].Kind)

	_, err = f.svc.AdminLogin(context.Background(), dto.LoginRequest{Email: "root@panaderia.pe", Password: "nope"}, dto.LoginMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_EnsureSeedAdmin(t *testing.T) {
	f := newAuthFixture()

	require.NoError(t, f.svc.EnsureSeedAdmin(context.Background(), "Admin", "Admin@Panaderia.pe", "admin12345"))
	require.NoError(t, f.svc.EnsureSeedAdmin(context.Background(), "Other", "other@panaderia.pe", "admin12345"))

	require.Len(t, f.admins.admins, 1)
	seeded := f.admins.admins["admin@panaderia.pe"]
	require.NotNil(t, seeded)
	assert.Equal(t, model.AdminRoleSuperAdmin, seeded.Role)
}

func TestAuthService_RegisterLosingUniqueRaceIsEmailTaken(t *testing.T) {
	f := newAuthFixture()
	f.users.writeErr = errUniqueRace

	_, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
