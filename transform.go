package bqtools

import (
	"context"
	"errors"

	"golang.org/x/xerrors"
)

// ErrMalformedRow indicates a row whose shape does not match what a
// transform or a destination schema expects.
var ErrMalformedRow = errors.New("malformed row")

// Transform reshapes one source record into the layout of the destination
// schema. Returning a nil record without error skips the row.
type Transform func(ctx context.Context, row []string) ([]string, error)

// RequireFields fails with ErrMalformedRow unless row has at least n fields.
func RequireFields(row []string, n int) error {
	if len(row) < n {
		return xerrors.Errorf("got %d fields, need at least %d: %w", len(row), n, ErrMalformedRow)
	}
	return nil
}

// Chain applies transforms in order. A skipped row stops the chain.
func Chain(ts ...Transform) Transform {
	return func(ctx context.Context, row []string) ([]string, error) {
		var err error
		for _, t := range ts {
			if t == nil {
				continue
			}
			row, err = t(ctx, row)
			if err != nil || row == nil {
				return nil, err
			}
		}
		return row, nil
	}
}
