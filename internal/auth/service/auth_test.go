package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mbelenkov/microshop/internal/auth/models"
	"github.com/mbelenkov/microshop/internal/auth/repo"
	"github.com/mbelenkov/microshop/pkg/tokens"
)

var testSecret = []byte("test-jwt-secret")

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newService(t *testing.T) *AuthService {
	return &AuthService{
		Repo:   &repo.GormRepo{DB: initTestDB(t)},
		Issuer: &tokens.Issuer{Secret: testSecret, TTL: time.Hour},
	}
}

func TestRegister(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "admin", "123")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, "123", user.PasswordHash)

	_, err = svc.Register(ctx, "admin", "123")
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterConcurrentSameUsername(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, "admin", "123")
		}(i)
	}
	wg.Wait()

	var ok, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrUsernameTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one registration wins")
	assert.Equal(t, n-1, taken)
}

func TestLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "admin", "123")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "admin", "123")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	claims, err := tokens.ClaimsFromToken(res.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "admin", "123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "invaliduser", "password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "admin", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDeleteTestUsers(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "test_user", "123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "admin", "123")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTestUsers(ctx))

	_, err = svc.Login(ctx, "test_user", "123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "admin", "123")
	require.NoError(t, err)
}
