package bqtools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireFields(t *testing.T) {
	t.Parallel()

	assert.NoError(t, RequireFields([]string{"a", "b"}, 2))
	assert.ErrorIs(t, RequireFields([]string{"a"}, 2), ErrMalformedRow)
}

func TestChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	skipEmpty := func(_ context.Context, r []string) ([]string, error) {
		if r[0] == "" {
			return nil, nil
		}
		return r, nil
	}
	failing := func(context.Context, []string) ([]string, error) {
		return nil, errors.New("boom")
	}

	row, err := Chain(upper, nil, skipEmpty)(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "B"}, row)

	row, err = Chain(skipEmpty, failing)(ctx, []string{"", "b"})
	assert.NoError(t, err, "a skipped row stops the chain")
	assert.Nil(t, row)

	_, err = Chain(upper, failing)(ctx, []string{"a", "b"})
	assert.Error(t, err)
}
