// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/userhub/userhub/internal/auth"
)

const userColumns = `id, email, role, password_hash, token_pairs, reset_request,
	first_name, last_name, created_at, last_visit_at`

// UserDirectory implements auth.UserDirectory using PostgreSQL. Session
// pairs and the reset request are stored as JSONB documents on the user
// row, so every Save persists the user's full session state atomically.
type UserDirectory struct {
	pool poolIface
}

// NewUserDirectory creates a new PostgreSQL user directory.
func NewUserDirectory(pool poolIface) *UserDirectory {
	return &UserDirectory{pool: pool}
}

// FindByID retrieves a user by id.
func (d *UserDirectory) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id.String())
	user, err := scanUser(row)
	if err != nil {
		return nil, oops.With("operation", "find user by id").With("user_id", id.String()).Wrap(err)
	}
	return user, nil
}

// FindByEmail retrieves a user by email. The argument is normalized
// before lookup, so the match is case- and whitespace-insensitive.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		auth.NormalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		return nil, oops.With("operation", "find user by email").Wrap(err)
	}
	return user, nil
}

// FindByActiveResetCode retrieves the user holding the given reset
// code. Expiry is checked by the caller, not here.
func (d *UserDirectory) FindByActiveResetCode(ctx context.Context, code string) (*auth.User, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_request->>'code' = $1`,
		code)
	user, err := scanUser(row)
	if err != nil {
		return nil, oops.With("operation", "find user by reset code").Wrap(err)
	}
	return user, nil
}

// Create inserts a new user. A duplicate email surfaces as a
// field-level validation error rather than a raw constraint violation.
func (d *UserDirectory) Create(ctx context.Context, user *auth.User) error {
	pairs, resetReq, err := marshalSessionState(user)
	if err != nil {
		return err
	}

	_, err = d.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID.String(), user.Email, string(user.Role), user.PasswordHash,
		pairs, resetReq,
		user.Profile.FirstName, user.Profile.LastName,
		user.CreatedAt, user.LastVisitAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return auth.NewInvalidRequestError("email", "Email is already registered", "error_email_taken")
		}
		return oops.With("operation", "create user").With("user_id", user.ID.String()).Wrap(err)
	}
	return nil
}

// Save persists the user's mutable state, including the full session
// pair list and reset request.
func (d *UserDirectory) Save(ctx context.Context, user *auth.User) error {
	pairs, resetReq, err := marshalSessionState(user)
	if err != nil {
		return err
	}

	tag, err := d.pool.Exec(ctx,
		`UPDATE users
		 SET email = $2, role = $3, password_hash = $4, token_pairs = $5,
		     reset_request = $6, first_name = $7, last_name = $8, last_visit_at = $9
		 WHERE id = $1`,
		user.ID.String(), user.Email, string(user.Role), user.PasswordHash,
		pairs, resetReq,
		user.Profile.FirstName, user.Profile.LastName, user.LastVisitAt)
	if err != nil {
		return oops.With("operation", "save user").With("user_id", user.ID.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("operation", "save user").With("user_id", user.ID.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateLastVisit stamps the user's last visit. Stamps arrive from
// background jobs and may be reordered, so an older timestamp never
// overwrites a newer one.
func (d *UserDirectory) UpdateLastVisit(ctx context.Context, id ulid.ULID, at time.Time) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE users
		 SET last_visit_at = GREATEST(COALESCE(last_visit_at, 'epoch'::timestamptz), $2)
		 WHERE id = $1`,
		id.String(), at)
	if err != nil {
		return oops.With("operation", "update last visit").With("user_id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("operation", "update last visit").With("user_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// marshalSessionState encodes the JSONB columns. A nil reset request is
// stored as SQL NULL so the partial index on the code stays small.
func marshalSessionState(user *auth.User) (pairs []byte, resetReq any, err error) {
	pairs, err = json.Marshal(user.TokenPairs)
	if err != nil {
		return nil, nil, oops.With("operation", "marshal token pairs").Wrap(err)
	}
	if user.ResetRequest != nil {
		encoded, err := json.Marshal(user.ResetRequest)
		if err != nil {
			return nil, nil, oops.With("operation", "marshal reset request").Wrap(err)
		}
		resetReq = encoded
	}
	return pairs, resetReq, nil
}

// scanUser reads one user row, mapping pgx.ErrNoRows to auth.ErrNotFound.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idRaw       string
		roleRaw     string
		pairsRaw    []byte
		resetRaw    []byte
		user        auth.User
		lastVisitAt *time.Time
	)
	err := row.Scan(
		&idRaw, &user.Email, &roleRaw, &user.PasswordHash,
		&pairsRaw, &resetRaw,
		&user.Profile.FirstName, &user.Profile.LastName,
		&user.CreatedAt, &lastVisitAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, oops.With("operation", "scan user row").Wrap(err)
	}

	user.ID, err = ulid.Parse(idRaw)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("raw_id", idRaw).Wrap(err)
	}
	user.Role = auth.Role(roleRaw)
	user.LastVisitAt = lastVisitAt

	if err := json.Unmarshal(pairsRaw, &user.TokenPairs); err != nil {
		return nil, oops.With("operation", "unmarshal token pairs").Wrap(err)
	}
	if resetRaw != nil {
		if err := json.Unmarshal(resetRaw, &user.ResetRequest); err != nil {
			return nil, oops.With("operation", "unmarshal reset request").Wrap(err)
		}
	}
	return &user, nil
}
