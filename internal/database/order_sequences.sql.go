package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const nextOrderSequence = `-- name: NextOrderSequence :one
INSERT INTO order_sequences (day, last_value)
VALUES ($1, 1)
ON CONFLICT (day) DO UPDATE SET last_value = order_sequences.last_value + 1
RETURNING last_value
`

// NextOrderSequence atomically bumps and returns the counter for day. The row
// stays locked until the enclosing transaction ends, so concurrent callers
// on the same day are serialized and never observe the same value.
func (q *Queries) NextOrderSequence(ctx context.Context, day pgtype.Date) (int32, error) {
	var lastValue int32
	err := q.db.QueryRow(ctx, nextOrderSequence, day).Scan(&lastValue)
	return lastValue, err
}
