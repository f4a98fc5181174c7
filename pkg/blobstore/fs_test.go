package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStorePutOpenStat(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	body := "the quick brown fox"
	require.NoError(t, store.Put(ctx, "/dir/file.txt", uint64(len(body)), strings.NewReader(body)))

	t.Run("OpenReturnsExactBytes", func(t *testing.T) {
		size, r, err := store.Open(ctx, "/dir/file.txt")
		require.NoError(t, err)
		defer r.Close()
		assert.EqualValues(t, len(body), size)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, body, string(got))
	})

	t.Run("StatReportsSizeWithoutOpening", func(t *testing.T) {
		size, err := store.Stat(ctx, "/dir/file.txt")
		require.NoError(t, err)
		assert.EqualValues(t, len(body), size)
	})

	t.Run("MissingPathIsErrNotFound", func(t *testing.T) {
		_, _, err := store.Open(ctx, "/nope.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("RejectsPathEscape", func(t *testing.T) {
		err := store.Put(ctx, "/../escape.txt", 0, strings.NewReader(""))
		assert.Error(t, err)
	})
}
