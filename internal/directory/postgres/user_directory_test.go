// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userhub/userhub/internal/auth"
)

var userRowColumns = []string{
	"id", "email", "role", "password_hash", "token_pairs", "reset_request",
	"first_name", "last_name", "created_at", "last_visit_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
	return mock
}

func sampleUser(t *testing.T) *auth.User {
	t.Helper()
	user, err := auth.NewUser("alice@example.com", "stored-hash", auth.RoleUser)
	require.NoError(t, err)
	user.TokenPairs = []auth.SessionPair{
		{ID: ulid.Make(), Access: "access-1", Refresh: "refresh-1"},
	}
	return user
}

func userRow(t *testing.T, user *auth.User) *pgxmock.Rows {
	t.Helper()
	pairs, err := json.Marshal(user.TokenPairs)
	require.NoError(t, err)

	var resetRaw []byte
	if user.ResetRequest != nil {
		resetRaw, err = json.Marshal(user.ResetRequest)
		require.NoError(t, err)
	}

	return pgxmock.NewRows(userRowColumns).AddRow(
		user.ID.String(), user.Email, string(user.Role), user.PasswordHash,
		pairs, resetRaw,
		user.Profile.FirstName, user.Profile.LastName,
		user.CreatedAt, user.LastVisitAt,
	)
}

func TestUserDirectory_FindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		user := sampleUser(t)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
			WithArgs(user.ID.String()).
			WillReturnRows(userRow(t, user))

		got, err := NewUserDirectory(mock).FindByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Email, got.Email)
		require.Len(t, got.TokenPairs, 1)
		assert.Equal(t, "access-1", got.TokenPairs[0].Access)
		assert.Nil(t, got.ResetRequest)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		id := ulid.Make()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(userRowColumns))

		got, err := NewUserDirectory(mock).FindByID(context.Background(), id)
		assert.Nil(t, got)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserDirectory_FindByEmail(t *testing.T) {
	mock := newMockPool(t)
	user := sampleUser(t)

	// Lookup argument must be normalized before it hits the database.
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRow(t, user))

	got, err := NewUserDirectory(mock).FindByEmail(context.Background(), "  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestUserDirectory_FindByActiveResetCode(t *testing.T) {
	t.Run("found with reset request", func(t *testing.T) {
		mock := newMockPool(t)
		user := sampleUser(t)
		user.ResetRequest = &auth.ResetRequest{Code: "ABCDEF", CreatedAt: time.Now().UTC().Truncate(time.Second)}

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE reset_request->>'code' = \$1`).
			WithArgs("ABCDEF").
			WillReturnRows(userRow(t, user))

		got, err := NewUserDirectory(mock).FindByActiveResetCode(context.Background(), "ABCDEF")
		require.NoError(t, err)
		require.NotNil(t, got.ResetRequest)
		assert.Equal(t, "ABCDEF", got.ResetRequest.Code)
	})

	t.Run("unknown code", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE reset_request->>'code' = \$1`).
			WithArgs("NOSUCH").
			WillReturnRows(pgxmock.NewRows(userRowColumns))

		got, err := NewUserDirectory(mock).FindByActiveResetCode(context.Background(), "NOSUCH")
		assert.Nil(t, got)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserDirectory_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := newMockPool(t)
		user := sampleUser(t)

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, string(user.Role), user.PasswordHash,
				pgxmock.AnyArg(), nil,
				user.Profile.FirstName, user.Profile.LastName,
				user.CreatedAt, user.LastVisitAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewUserDirectory(mock).Create(context.Background(), user))
	})

	t.Run("duplicate email becomes a field error", func(t *testing.T) {
		mock := newMockPool(t)
		user := sampleUser(t)

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, string(user.Role), user.PasswordHash,
				pgxmock.AnyArg(), nil,
				user.Profile.FirstName, user.Profile.LastName,
				user.CreatedAt, user.LastVisitAt).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_idx"})

		err := NewUserDirectory(mock).Create(context.Background(), user)
		var invalid *auth.InvalidRequestError
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Fields, "email")
	})
}

func TestUserDirectory_Save(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := newMockPool(t)
		user := sampleUser(t)

		mock.ExpectExec(`UPDATE users`).
			WithArgs(user.ID.String(), user.Email, string(user.Role), user.PasswordHash,
				pgxmock.AnyArg(), nil,
				user.Profile.FirstName, user.Profile.LastName, user.LastVisitAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserDirectory(mock).Save(context.Background(), user))
	})

	t.Run("missing row", func(t *testing.T) {
		mock := newMockPool(t)
		user := sampleUser(t)

		mock.ExpectExec(`UPDATE users`).
			WithArgs(user.ID.String(), user.Email, string(user.Role), user.PasswordHash,
				pgxmock.AnyArg(), nil,
				user.Profile.FirstName, user.Profile.LastName, user.LastVisitAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserDirectory(mock).Save(context.Background(), user)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserDirectory_UpdateLastVisit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := newMockPool(t)
		id := ulid.Make()
		at := time.Now().UTC()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(id.String(), at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserDirectory(mock).UpdateLastVisit(context.Background(), id, at))
	})

	t.Run("unknown user", func(t *testing.T) {
		mock := newMockPool(t)
		id := ulid.Make()
		at := time.Now().UTC()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(id.String(), at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserDirectory(mock).UpdateLastVisit(context.Background(), id, at)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMockPool(t)
		id := ulid.Make()
		at := time.Now().UTC()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(id.String(), at).
			WillReturnError(errors.New("connection refused"))

		err := NewUserDirectory(mock).UpdateLastVisit(context.Background(), id, at)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}
