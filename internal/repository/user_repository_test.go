package repository

import (
	"context"
	"testing"
	"time"

	"stride/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUser(t *testing.T, email string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Jane Runner",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func createTestUser(t *testing.T) *domain.User {
	t.Helper()
	user := newTestUser(t, uuid.NewString()+"@stride.test")
	require.NoError(t, NewUserRepository(testDB).Create(context.Background(), user))
	return user
}

// Feature: storefront, Property 15: Stored passwords are bcrypt hashes
func TestProperty_StoredPasswordsAreHashed(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("the stored hash verifies the password and differs from it", prop.ForAll(
		func(email string, password string, name string) bool {
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				t.Logf("FAIL: hash password: %v", err)
				return false
			}

			user := &domain.User{
				ID:           uuid.New(),
				Email:        email,
				PasswordHash: string(hashed),
				Name:         name,
				Role:         domain.RoleUser,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}
			if err := repo.Create(ctx, user); err != nil {
				t.Logf("FAIL: create user: %v", err)
				return false
			}

			stored, err := repo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("FAIL: find user: %v", err)
				return false
			}
			if stored.PasswordHash == password {
				t.Logf("FAIL: password stored as plaintext")
				return false
			}
			if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
				t.Logf("FAIL: stored value is not a bcrypt hash of the password: %v", err)
				return false
			}

			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)
			return true
		},
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15} [A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	user := createTestUser(t)

	duplicate := newTestUser(t, user.Email)
	err := repo.Create(ctx, duplicate)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestUserRepository_FindAndUpdate(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	user := createTestUser(t)

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)
	assert.Equal(t, "Jane Runner", found.Name)

	require.NoError(t, repo.UpdateName(ctx, user.ID, "Jane Sprinter"))
	found, err = repo.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, "Jane Sprinter", found.Name)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.FindByEmail(ctx, "nobody@stride.test")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdateName(ctx, uuid.New(), "x"), ErrUserNotFound)
}

func TestRefreshTokenRepository(t *testing.T) {
	repo := NewRefreshTokenRepository(testDB)
	ctx := context.Background()
	user := createTestUser(t)

	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, token))

	found, err := repo.FindByToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)

	require.NoError(t, repo.Revoke(ctx, token.Token))
	_, err = repo.FindByToken(ctx, token.Token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	assert.ErrorIs(t, repo.Revoke(ctx, "missing"), ErrRefreshTokenNotFound)
	_, err = repo.FindByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	second := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.RevokeAllForUser(ctx, user.ID))
	_, err = repo.FindByToken(ctx, second.Token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}
