package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher-market/internal/babsy"
	"voucher-market/internal/models"
)

type fakeVerifier struct {
	users    map[string]*babsy.User
	profiles map[string]*babsy.User
	err      error
}

func (f *fakeVerifier) VerifyToken(ctx context.Context, token string) (*babsy.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[token]
	if !ok {
		return nil, babsy.ErrInvalidToken
	}
	return u, nil
}

func (f *fakeVerifier) GetUser(ctx context.Context, userID string) (*babsy.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.profiles[userID]
	if !ok {
		return nil, babsy.ErrUserNotFound
	}
	return u, nil
}

func TestProcessBabsyLogin(t *testing.T) {
	db, repo := setupRepo(t)
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	verifier := &fakeVerifier{users: map[string]*babsy.User{
		"sitter": {ID: "b-1", Email: "lea@babsy.ch", Name: "Lea", Type: babsy.UserTypeSitter, Verified: true},
		"parent": {ID: "b-2", Email: "existing@company.ch", Name: "Max", Type: babsy.UserTypeParent},
	}}
	svc := NewAuthService(repo, verifier, nil)
	svc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	t.Run("creates a new user", func(t *testing.T) {
		user, err := svc.ProcessBabsyLogin(ctx, "sitter")
		require.NoError(t, err)
		assert.Equal(t, "lea@babsy.ch", user.Email)
		assert.Equal(t, models.AuthMethodBabsyApp, user.AuthMethod)
		assert.Equal(t, models.BabsyUserTypeSitter, *user.BabsyUserType)
		require.NotNil(t, user.EmailVerified)

		again, err := svc.ProcessBabsyLogin(ctx, "sitter")
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID)
	})

	t.Run("links an existing user by email", func(t *testing.T) {
		existing := createUser(t, db, "existing@company.ch", models.UserRoleUser)

		user, err := svc.ProcessBabsyLogin(ctx, "parent")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
		assert.Equal(t, "b-2", *user.BabsyUserID)
		assert.Equal(t, "Max", *user.Name)
		assert.Nil(t, user.EmailVerified, "remote did not verify the email")
	})

	t.Run("rejected token", func(t *testing.T) {
		_, err := svc.ProcessBabsyLogin(ctx, "forged")
		assert.ErrorIs(t, err, ErrIdentityRejected)
	})

	t.Run("api not configured", func(t *testing.T) {
		svc := NewAuthService(repo, &fakeVerifier{err: babsy.ErrNotConfigured}, nil)
		_, err := svc.ProcessBabsyLogin(ctx, "sitter")
		assert.ErrorIs(t, err, ErrIdentityRejected)
	})

	t.Run("api outage is not a rejection", func(t *testing.T) {
		svc := NewAuthService(repo, &fakeVerifier{err: errors.New("connection refused")}, nil)
		_, err := svc.ProcessBabsyLogin(ctx, "sitter")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrIdentityRejected)
	})
}

func TestRefreshBabsyProfile(t *testing.T) {
	db, repo := setupRepo(t)
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	linked := createUser(t, db, "lea@babsy.ch", models.UserRoleUser)
	babsyID := "b-1"
	oldName := "Lea"
	linked.BabsyUserID = &babsyID
	linked.Name = &oldName
	require.NoError(t, repo.SaveUser(ctx, linked))

	verifier := &fakeVerifier{profiles: map[string]*babsy.User{
		"b-1": {ID: "b-1", Email: "lea@babsy.ch", Name: "Lea Meier", Verified: true},
	}}
	svc := NewAuthService(repo, verifier, nil)
	svc.SetClock(func() time.Time { return now })

	t.Run("updates name and verification", func(t *testing.T) {
		user := svc.RefreshBabsyProfile(ctx, linked)
		assert.Equal(t, "Lea Meier", *user.Name)
		require.NotNil(t, user.EmailVerified)
		assert.True(t, now.Equal(*user.EmailVerified))

		stored, err := repo.GetUserByID(ctx, linked.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lea Meier", *stored.Name)
		assert.NotNil(t, stored.EmailVerified)
	})

	t.Run("otp users are left alone", func(t *testing.T) {
		plain := createUser(t, db, "anna@company.ch", models.UserRoleUser)
		user := svc.RefreshBabsyProfile(ctx, plain)
		assert.Nil(t, user.Name)
		assert.Nil(t, user.EmailVerified)
	})

	t.Run("api failure keeps the stored profile", func(t *testing.T) {
		svc := NewAuthService(repo, &fakeVerifier{err: errors.New("connection refused")}, nil)
		stored, err := repo.GetUserByID(ctx, linked.ID)
		require.NoError(t, err)

		user := svc.RefreshBabsyProfile(ctx, stored)
		assert.Equal(t, stored.ID, user.ID)
		assert.Equal(t, "Lea Meier", *user.Name)
	})
}
