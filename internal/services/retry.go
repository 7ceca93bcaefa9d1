package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/floater/internal/shared"
)

// WithRefreshRetry runs fn and, if it fails with a 401, refreshes once and runs it again.
//
// A failed refresh is reported wrapped in [shared.ErrNotAuthenticated] alongside the refresh error,
// unless ctx ended first.
func WithRefreshRetry[T any](ctx context.Context, r Refresher, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if r == nil || !unauthorized(err) {
		return v, err
	}

	if rerr := r.Refresh(ctx); rerr != nil {
		var zero T
		if ctx.Err() != nil {
			return zero, rerr
		}
		return zero, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, rerr)
	}
	return fn(ctx)
}

// CallWithRefreshRetry is [WithRefreshRetry] for operations without a result.
func CallWithRefreshRetry(ctx context.Context, r Refresher, fn func(context.Context) error) error {
	_, err := WithRefreshRetry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func unauthorized(err error) bool {
	code, ok := shared.StatusCode(err)
	return ok && code == http.StatusUnauthorized
}
