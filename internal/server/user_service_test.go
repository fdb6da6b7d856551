package server

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showyourapp/backend/internal/config"
	"github.com/showyourapp/backend/internal/types"
)

func newTestUserService(t *testing.T) (*UserService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	passwordConfig := &config.PasswordConfig{BcryptCost: 10}
	return NewUserService(store, passwordConfig), store
}

func TestUserService_Register(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.Register(context.Background(), &types.CreateUserRequest{
		Username: "maker",
		Email:    "maker@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "maker", user.Username)
	assert.Equal(t, "maker@example.com", user.Email)
	assert.False(t, user.IsAdmin, "public registration must not create admins")
	assert.Empty(t, user.PasswordHash, "password hash must not leave the service")
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	svc, store := newTestUserService(t)
	store.addUser("existing", "maker@example.com", "hash", false)

	_, err := svc.Register(context.Background(), &types.CreateUserRequest{
		Username: "maker",
		Email:    "maker@example.com",
		Password: "supersecret",
	})
	require.Error(t, err)
	assert.IsType(t, &ErrEmailAlreadyExists{}, err)
}

func TestUserService_Register_DuplicateUsername(t *testing.T) {
	svc, store := newTestUserService(t)
	store.addUser("maker", "other@example.com", "hash", false)

	_, err := svc.Register(context.Background(), &types.CreateUserRequest{
		Username: "maker",
		Email:    "maker@example.com",
		Password: "supersecret",
	})
	require.Error(t, err)
	assert.IsType(t, &ErrUsernameTaken{}, err)
}

func TestUserService_Login(t *testing.T) {
	svc, _ := newTestUserService(t)

	registered, err := svc.Register(context.Background(), &types.CreateUserRequest{
		Username: "maker",
		Email:    "maker@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	user, err := svc.Login(context.Background(), &types.LoginRequest{
		Email:    "maker@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.Register(context.Background(), &types.CreateUserRequest{
		Username: "maker",
		Email:    "maker@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), &types.LoginRequest{
		Email:    "maker@example.com",
		Password: "wrongpassword",
	})
	require.Error(t, err)
	assert.IsType(t, &ErrInvalidCredentials{}, err)
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.Login(context.Background(), &types.LoginRequest{
		Email:    "nobody@example.com",
		Password: "supersecret",
	})
	require.Error(t, err)
	// Same generic error as a wrong password, so callers cannot probe for
	// registered emails.
	assert.IsType(t, &ErrInvalidCredentials{}, err)
}

func TestUserService_UpdatePassword(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.Register(context.Background(), &types.CreateUserRequest{
		Username: "maker",
		Email:    "maker@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	err = svc.UpdatePassword(context.Background(), user.ID, "supersecret", "evenmoresecret")
	require.NoError(t, err)

	// Old password no longer works, new one does.
	_, err = svc.Login(context.Background(), &types.LoginRequest{Email: "maker@example.com", Password: "supersecret"})
	assert.Error(t, err)
	_, err = svc.Login(context.Background(), &types.LoginRequest{Email: "maker@example.com", Password: "evenmoresecret"})
	assert.NoError(t, err)
}

func TestUserService_UpdatePassword_Mismatch(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.Register(context.Background(), &types.CreateUserRequest{
		Username: "maker",
		Email:    "maker@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	err = svc.UpdatePassword(context.Background(), user.ID, "notmypassword", "evenmoresecret")
	require.Error(t, err)
	assert.IsType(t, &ErrPasswordMismatch{}, err)
}

func TestUserService_UpdatePassword_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService(t)

	err := svc.UpdatePassword(context.Background(), uuid.New(), "supersecret", "evenmoresecret")
	require.Error(t, err)
	assert.IsType(t, &ErrUserNotFound{}, err)
}
