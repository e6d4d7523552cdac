package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// OrderNumberer issues ORD-YYYYMMDD-NNNN identifiers from a per-day counter.
// The counter increments inside the caller's transaction, so a rolled back
// order releases nothing and concurrent callers never share a value.
type OrderNumberer struct {
	loc *time.Location
	now func() time.Time
}

func NewOrderNumberer(loc *time.Location, now func() time.Time) *OrderNumberer {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &OrderNumberer{loc: loc, now: now}
}

// Next returns the next number for the current business day.
func (n *OrderNumberer) Next(ctx context.Context, store Store) (string, error) {
	today := n.now().In(n.loc)
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	seq, err := store.NextOrderSequence(ctx, pgtype.Date{Time: day, Valid: true})
	if err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return FormatOrderNumber(today, seq), nil
}

// FormatOrderNumber renders a sequence value. Values past 9999 keep growing in
// width rather than wrapping.
func FormatOrderNumber(day time.Time, seq int32) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq)
}
