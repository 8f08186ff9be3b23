// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/userhub/userhub/internal/auth"
	"github.com/userhub/userhub/internal/auth/mocks"
	"github.com/userhub/userhub/pkg/errutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type serviceFixture struct {
	service   *auth.Service
	directory *mocks.MockUserDirectory
	hasher    *mocks.MockPasswordHasher
	passwords *mocks.MockPasswordValidator
	queue     *mocks.MockNotificationQueue
	codec     *auth.TokenCodec
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	directory := mocks.NewMockUserDirectory(t)
	hasher := mocks.NewMockPasswordHasher(t)
	passwords := mocks.NewMockPasswordValidator(t)
	queue := mocks.NewMockNotificationQueue(t)
	codec := newTestCodec(t)

	service, err := auth.NewService(directory, codec, hasher, passwords, queue, nil)
	require.NoError(t, err)

	return &serviceFixture{
		service:   service,
		directory: directory,
		hasher:    hasher,
		passwords: passwords,
		queue:     queue,
		codec:     codec,
	}
}

func testUser(t *testing.T) *auth.User {
	t.Helper()
	user, err := auth.NewUser("alice@example.com", "stored-hash", auth.RoleUser)
	require.NoError(t, err)
	return user
}

// mintStoredPair attaches a session pair to the user the way login
// would, using the given codec for the access token so tests can store
// an already-expired one.
func mintStoredPair(t *testing.T, accessCodec, refreshCodec *auth.TokenCodec, user *auth.User) auth.SessionPair {
	t.Helper()

	pairID := ulid.Make()
	access, err := accessCodec.Encode(auth.PurposeAccess, pairID.String(), user.ID.String(), user.Role)
	require.NoError(t, err)
	refresh, err := refreshCodec.Encode(auth.PurposeRefresh, pairID.String(), user.ID.String(), user.Role)
	require.NoError(t, err)

	pair := auth.SessionPair{ID: pairID, Access: access, Refresh: refresh}
	user.TokenPairs = append(user.TokenPairs, pair)
	return pair
}

func TestNewService_NilDependencies(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	hasher := mocks.NewMockPasswordHasher(t)
	passwords := mocks.NewMockPasswordValidator(t)
	queue := mocks.NewMockNotificationQueue(t)
	codec := newTestCodec(t)

	tests := []struct {
		name string
		call func() (*auth.Service, error)
	}{
		{"nil directory", func() (*auth.Service, error) {
			return auth.NewService(nil, codec, hasher, passwords, queue, nil)
		}},
		{"nil codec", func() (*auth.Service, error) {
			return auth.NewService(directory, nil, hasher, passwords, queue, nil)
		}},
		{"nil hasher", func() (*auth.Service, error) {
			return auth.NewService(directory, codec, nil, passwords, queue, nil)
		}},
		{"nil validator", func() (*auth.Service, error) {
			return auth.NewService(directory, codec, hasher, nil, queue, nil)
		}},
		{"nil queue", func() (*auth.Service, error) {
			return auth.NewService(directory, codec, hasher, passwords, nil, nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := tt.call()
			require.Error(t, err)
			assert.Nil(t, service)
		})
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success mints and persists a pair", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)

		f.directory.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		f.hasher.On("Check", "password123", "stored-hash").Return(true, nil)
		f.hasher.On("NeedsUpgrade", "stored-hash").Return(false)

		var saved *auth.User
		f.directory.On("Save", ctx, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*auth.User) }).
			Return(nil)

		pair, err := f.service.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		require.NotNil(t, pair)

		accessClaims, err := f.codec.Decode(pair.Access)
		require.NoError(t, err)
		refreshClaims, err := f.codec.Decode(pair.Refresh)
		require.NoError(t, err)

		assert.Equal(t, auth.PurposeAccess, accessClaims.Purpose)
		assert.Equal(t, auth.PurposeRefresh, refreshClaims.Purpose)
		assert.Equal(t, pair.ID.String(), accessClaims.PairID)
		assert.Equal(t, accessClaims.PairID, refreshClaims.PairID)
		assert.Equal(t, user.ID.String(), accessClaims.UserID)
		assert.Equal(t, user.Role, accessClaims.Role)

		require.NotNil(t, saved)
		count := 0
		for _, p := range saved.TokenPairs {
			if p.ID == pair.ID {
				count++
			}
		}
		assert.Equal(t, 1, count, "pair id must appear exactly once in storage")
	})

	t.Run("unknown email fails with constant-time dummy check", func(t *testing.T) {
		f := newServiceFixture(t)

		f.directory.On("FindByEmail", ctx, "ghost@example.com").Return(nil, auth.ErrNotFound)
		// The dummy hash is still checked to keep timing consistent.
		f.hasher.On("Check", "password123", mock.AnythingOfType("string")).Return(false, nil)

		pair, err := f.service.Login(ctx, "ghost@example.com", "password123")
		assert.Nil(t, pair)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("wrong password fails", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)

		f.directory.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		f.hasher.On("Check", "nope", "stored-hash").Return(false, nil)

		pair, err := f.service.Login(ctx, "alice@example.com", "nope")
		assert.Nil(t, pair)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("directory failure is fatal, not unauthenticated", func(t *testing.T) {
		f := newServiceFixture(t)

		f.directory.On("FindByEmail", ctx, "alice@example.com").Return(nil, errors.New("connection refused"))

		pair, err := f.service.Login(ctx, "alice@example.com", "password123")
		assert.Nil(t, pair)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("second login appends a distinct pair", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		existing := mintStoredPair(t, f.codec, f.codec, user)

		f.directory.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		f.hasher.On("Check", "password123", "stored-hash").Return(true, nil)
		f.hasher.On("NeedsUpgrade", "stored-hash").Return(false)
		f.directory.On("Save", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

		pair, err := f.service.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		assert.NotEqual(t, existing.ID, pair.ID)
		assert.Len(t, user.TokenPairs, 2)
	})

	t.Run("legacy hash is upgraded on login", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		user.PasswordHash = "$2b$14$legacybcrypthash"

		f.directory.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		f.hasher.On("Check", "password123", "$2b$14$legacybcrypthash").Return(true, nil)
		f.hasher.On("NeedsUpgrade", "$2b$14$legacybcrypthash").Return(true)
		f.hasher.On("Hash", "password123").Return("upgraded-hash", nil)

		var saved *auth.User
		f.directory.On("Save", ctx, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*auth.User) }).
			Return(nil)

		_, err := f.service.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, "upgraded-hash", saved.PasswordHash)
	})

	t.Run("failed hash upgrade does not block login", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		user.PasswordHash = "$2b$14$legacybcrypthash"

		f.directory.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		f.hasher.On("Check", "password123", "$2b$14$legacybcrypthash").Return(true, nil)
		f.hasher.On("NeedsUpgrade", "$2b$14$legacybcrypthash").Return(true)
		f.hasher.On("Hash", "password123").Return("", errors.New("out of memory"))
		f.directory.On("Save", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

		pair, err := f.service.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.Equal(t, "$2b$14$legacybcrypthash", user.PasswordHash)
	})
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("still-valid access token is idempotent", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		pair := mintStoredPair(t, f.codec, f.codec, user)

		f.directory.On("FindByID", ctx, user.ID).Return(user, nil)

		got, err := f.service.Refresh(ctx, pair.Refresh)
		require.NoError(t, err)
		assert.Equal(t, pair.Access, got.Access, "access token must be byte-identical")
		assert.Equal(t, pair.Refresh, got.Refresh, "refresh token must be byte-identical")
		assert.Equal(t, pair.ID, got.ID)
		// No rotation, no save.
		f.directory.AssertNotCalled(t, "Save", ctx, mock.Anything)
	})

	t.Run("expired access token rotates access only", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)

		expiredAccess, err := auth.NewTokenCodec(testSecret, time.Nanosecond, 720*time.Hour)
		require.NoError(t, err)
		pair := mintStoredPair(t, expiredAccess, f.codec, user)
		time.Sleep(5 * time.Millisecond)

		f.directory.On("FindByID", ctx, user.ID).Return(user, nil)
		f.directory.On("Save", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

		got, err := f.service.Refresh(ctx, pair.Refresh)
		require.NoError(t, err)
		assert.Equal(t, pair.ID, got.ID, "pair id survives rotation")
		assert.Equal(t, pair.Refresh, got.Refresh, "refresh token is never rotated")
		assert.NotEqual(t, pair.Access, got.Access, "access token must be re-minted")

		// The old pair entry is gone; exactly one entry under this id.
		require.Len(t, user.TokenPairs, 1)
		assert.Equal(t, got.Access, user.TokenPairs[0].Access)
	})

	t.Run("invalid refresh token", func(t *testing.T) {
		f := newServiceFixture(t)

		got, err := f.service.Refresh(ctx, "not-a-token")
		assert.Nil(t, got)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("pair id absent from storage means logged out", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		pair := mintStoredPair(t, f.codec, f.codec, user)
		user.RemovePair(pair.ID.String())

		f.directory.On("FindByID", ctx, user.ID).Return(user, nil)

		got, err := f.service.Refresh(ctx, pair.Refresh)
		assert.Nil(t, got)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
		errutil.AssertErrorCode(t, err, "AUTH_SESSION_REVOKED")
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		pair := mintStoredPair(t, f.codec, f.codec, user)

		f.directory.On("FindByID", ctx, user.ID).Return(nil, auth.ErrNotFound)

		got, err := f.service.Refresh(ctx, pair.Refresh)
		assert.Nil(t, got)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("removes exactly the presented session", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		device1 := mintStoredPair(t, f.codec, f.codec, user)
		device2 := mintStoredPair(t, f.codec, f.codec, user)

		f.directory.On("FindByID", ctx, user.ID).Return(user, nil)
		f.directory.On("Save", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

		err := f.service.Logout(ctx, "token "+device1.Access)
		require.NoError(t, err)

		require.Len(t, user.TokenPairs, 1)
		assert.Equal(t, device2.ID, user.TokenPairs[0].ID)
	})

	t.Run("missing header", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.service.Logout(ctx, "")
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.service.Logout(ctx, "token garbage")
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid stored token resolves principal", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		pair := mintStoredPair(t, f.codec, f.codec, user)

		f.directory.On("FindByID", ctx, user.ID).Return(user, nil)

		principal, err := f.service.Authenticate(ctx, "token "+pair.Access, false)
		require.NoError(t, err)
		require.NotNil(t, principal)
		assert.Equal(t, user.ID, principal.ID)
	})

	t.Run("scheme keyword is case-insensitive", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		pair := mintStoredPair(t, f.codec, f.codec, user)

		f.directory.On("FindByID", ctx, user.ID).Return(user, nil)

		principal, err := f.service.Authenticate(ctx, "Token "+pair.Access, false)
		require.NoError(t, err)
		assert.NotNil(t, principal)
	})

	t.Run("wrong scheme or shape is no credential", func(t *testing.T) {
		f := newServiceFixture(t)

		for _, header := range []string{
			"Bearer abc",
			"token",
			"token a b",
			"",
		} {
			principal, err := f.service.Authenticate(ctx, header, false)
			assert.Nil(t, principal)
			require.ErrorIs(t, err, auth.ErrUnauthenticated, "header %q", header)
		}
	})

	t.Run("anonymous-allowed turns every failure into nil principal", func(t *testing.T) {
		f := newServiceFixture(t)

		for _, header := range []string{"", "Bearer abc", "token garbage"} {
			principal, err := f.service.Authenticate(ctx, header, true)
			require.NoError(t, err, "header %q", header)
			assert.Nil(t, principal)
		}
	})

	t.Run("valid signature but revoked session fails", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		pair := mintStoredPair(t, f.codec, f.codec, user)
		user.RemovePair(pair.ID.String())

		f.directory.On("FindByID", ctx, user.ID).Return(user, nil)

		principal, err := f.service.Authenticate(ctx, "token "+pair.Access, false)
		assert.Nil(t, principal)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
		errutil.AssertErrorCode(t, err, "AUTH_SESSION_REVOKED")
	})

	t.Run("refresh token is not an access credential", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		pair := mintStoredPair(t, f.codec, f.codec, user)

		f.directory.On("FindByID", ctx, user.ID).Return(user, nil)

		principal, err := f.service.Authenticate(ctx, "token "+pair.Refresh, false)
		assert.Nil(t, principal)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("unknown user fails", func(t *testing.T) {
		f := newServiceFixture(t)
		user := testUser(t)
		pair := mintStoredPair(t, f.codec, f.codec, user)

		f.directory.On("FindByID", ctx, user.ID).Return(nil, auth.ErrNotFound)

		principal, err := f.service.Authenticate(ctx, "token "+pair.Access, false)
		assert.Nil(t, principal)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestService_Authorize(t *testing.T) {
	f := newServiceFixture(t)
	admin := &auth.User{ID: ulid.Make(), Role: auth.RoleAdmin}
	member := &auth.User{ID: ulid.Make(), Role: auth.RoleUser}

	t.Run("any-authenticated permits any role", func(t *testing.T) {
		assert.NoError(t, f.service.Authorize(admin, auth.AnyAuthenticated()))
		assert.NoError(t, f.service.Authorize(member, auth.AnyAuthenticated()))
	})

	t.Run("roles-in restricts by role", func(t *testing.T) {
		policy := auth.RolesIn(auth.RoleAdmin)
		assert.NoError(t, f.service.Authorize(admin, policy))

		err := f.service.Authorize(member, policy)
		require.ErrorIs(t, err, auth.ErrUnauthorized)

		err = f.service.Authorize(nil, policy)
		require.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("anonymous-allowed permits nil principal", func(t *testing.T) {
		assert.NoError(t, f.service.Authorize(nil, auth.AnonymousAllowed()))
	})
}

func TestService_TwoDeviceScenario(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	user := testUser(t)

	f.directory.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
	f.hasher.On("Check", "password123", "stored-hash").Return(true, nil)
	f.hasher.On("NeedsUpgrade", "stored-hash").Return(false)
	f.directory.On("FindByID", ctx, user.ID).Return(user, nil)
	f.directory.On("Save", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

	device1, err := f.service.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	device2, err := f.service.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	assert.NotEqual(t, device1.ID, device2.ID)
	require.Len(t, user.TokenPairs, 2)

	require.NoError(t, f.service.Logout(ctx, "token "+device1.Access))

	require.Len(t, user.TokenPairs, 1)
	assert.Equal(t, device2.ID, user.TokenPairs[0].ID)

	// Device 2 keeps working, device 1 is revoked.
	principal, err := f.service.Authenticate(ctx, "token "+device2.Access, false)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.ID)

	_, err = f.service.Authenticate(ctx, "token "+device1.Access, false)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}
