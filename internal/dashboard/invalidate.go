package dashboard

import (
	"context"
	"errors"
)

// Invalidator receives the "dashboard view for this user is stale" event
// emitted after every successful write.
type Invalidator interface {
	MarkStale(ctx context.Context, userID string) error
}

// Invalidators fans one event out to every member and joins their errors.
type Invalidators []Invalidator

func (all Invalidators) MarkStale(ctx context.Context, userID string) error {
	var errs []error
	for _, inv := range all {
		if inv == nil {
			continue
		}
		if err := inv.MarkStale(ctx, userID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context, userID string) error

func (f InvalidatorFunc) MarkStale(ctx context.Context, userID string) error {
	return f(ctx, userID)
}
