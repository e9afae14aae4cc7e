package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndLatest(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)
	defer log.Close()

	id1, err := log.Append("plan", []byte(`{"current_phase":1}`))
	require.NoError(t, err)
	id2, err := log.Append("design", []byte(`{"current_phase":2}`))
	require.NoError(t, err)

	snaps, err := log.Latest(10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	// Newest first.
	assert.Equal(t, id2, snaps[0].ID)
	assert.Equal(t, "design", snaps[0].Command)
	assert.Equal(t, id1, snaps[1].ID)
	assert.JSONEq(t, `{"current_phase":2}`, string(snaps[0].State))
}

func TestLatestLimits(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)
	defer log.Close()

	for i := 0; i < 5; i++ {
		_, err := log.Append("code", []byte(`{}`))
		require.NoError(t, err)
	}

	snaps, err := log.Latest(3)
	require.NoError(t, err)
	assert.Len(t, snaps, 3)

	n, err := log.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestGet(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)
	defer log.Close()

	id, err := log.Append("init", []byte(`{"current_phase":0}`))
	require.NoError(t, err)

	snap, err := log.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "init", snap.Command)
	assert.False(t, snap.TakenAt.IsZero())

	_, err = log.Get("missing-id")
	assert.Error(t, err)
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()

	log, err := Open(dir)
	require.NoError(t, err)
	_, err = log.Append("plan", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, log.Close())

	log2, err := Open(dir)
	require.NoError(t, err)
	defer log2.Close()

	n, err := log2.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
