package segipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAcquireReleaseInvariant(t *testing.T) {
	t.Run("EachSegmentOwnedByAtMostOneAcquirer", func(t *testing.T) {
		dir := t.TempDir()
		pool, err := NewPool(dir, 3, 4096)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pool.Close() })

		seen := make(map[uint32]bool)
		for i := 0; i < 3; i++ {
			seg, err := pool.Acquire()
			require.NoError(t, err)
			assert.False(t, seen[seg.ID], "segment %d acquired twice before release", seg.ID)
			seen[seg.ID] = true
		}
		assert.Len(t, seen, 3)
	})

	t.Run("AcquireBlocksUntilRelease", func(t *testing.T) {
		dir := t.TempDir()
		pool, err := NewPool(dir, 1, 4096)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pool.Close() })

		seg, err := pool.Acquire()
		require.NoError(t, err)

		acquired := make(chan *Segment, 1)
		go func() {
			s, err := pool.Acquire()
			require.NoError(t, err)
			acquired <- s
		}()

		select {
		case <-acquired:
			t.Fatal("Acquire returned before the only segment was released")
		default:
		}

		pool.Release(seg.ID)
		second := <-acquired
		assert.Equal(t, seg.ID, second.ID)
	})

	t.Run("WriteVisibleAcrossMappings", func(t *testing.T) {
		dir := t.TempDir()
		pool, err := NewPool(dir, 1, 64)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pool.Close() })

		seg, err := pool.Acquire()
		require.NoError(t, err)
		copy(seg.Bytes(), []byte("hello segment"))

		attacher := NewAttacher(dir, 64)
		t.Cleanup(func() { _ = attacher.Close() })
		other, err := attacher.Attach(seg.ID)
		require.NoError(t, err)

		assert.Equal(t, "hello segment", string(other.Bytes()[:len("hello segment")]))
	})
}

func TestPoolStatus(t *testing.T) {
	dir := t.TempDir()
	pool, err := NewPool(dir, 2, 128)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	status := pool.Status()
	assert.Len(t, status, 2)
	for _, free := range status {
		assert.True(t, free)
	}

	seg, err := pool.Acquire()
	require.NoError(t, err)
	status = pool.Status()
	assert.False(t, status[seg.ID])
}

func TestAttacherReusesMapping(t *testing.T) {
	dir := t.TempDir()
	pool, err := NewPool(dir, 1, 32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	seg, err := pool.Acquire()
	require.NoError(t, err)

	attacher := NewAttacher(dir, 32)
	t.Cleanup(func() { _ = attacher.Close() })

	first, err := attacher.Attach(seg.ID)
	require.NoError(t, err)
	second, err := attacher.Attach(seg.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
