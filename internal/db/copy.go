// Package db provides pgx helpers for landing harvested records in
// PostgreSQL in bulk: COPY for fresh runs and a temp-table upsert for
// re-harvests of a keyword that touch existing profiles.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom streams rows into a table over the PostgreSQL COPY protocol.
// It is the fast path for archiving a run whose profiles are all new;
// COPY cannot resolve conflicts, so duplicates fall back to BulkUpsert.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copySource := pgx.CopyFromRows(rows)
	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, copySource)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}
