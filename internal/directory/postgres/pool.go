// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

// Package postgres implements auth.UserDirectory on PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface is the subset of pgxpool.Pool the directory uses. It
// matches pgxmock.PgxPoolIface so tests run without a database.
type poolIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
