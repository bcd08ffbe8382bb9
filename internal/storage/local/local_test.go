package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/storage"
)

func snapshot(t *testing.T, rev string, size float64) *metric.Snapshot {
	t.Helper()
	s, err := metric.NewSnapshot(rev, time.Now(), []metric.Metric{{Name: "size", Value: size, Unit: metric.UnitBytes}})
	require.NoError(t, err)
	return s
}

func TestStore_RoundTripAndOverwrite(t *testing.T) {
	st, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = st.Fetch(ctx, "ns/branch/main")
	require.ErrorIs(t, err, storage.ErrSnapshotNotFound)

	require.NoError(t, st.Store(ctx, "ns/branch/main", snapshot(t, "r1", 10)))
	require.NoError(t, st.Store(ctx, "ns/branch/main", snapshot(t, "r2", 20)))

	got, err := st.Fetch(ctx, "ns/branch/main")
	require.NoError(t, err)
	assert.Equal(t, "r2", got.Revision)
	assert.Equal(t, 20.0, got.Metrics["size"].Value)
}

func TestStore_EscapesBranchNames(t *testing.T) {
	root := t.TempDir()
	st, err := New(root, nil)
	require.NoError(t, err)

	require.NoError(t, st.Store(context.Background(), "ns/branch/feature/x y", snapshot(t, "r", 1)))
	_, err = os.Stat(filepath.Join(root, "ns", "branch", "feature", "x%20y.json"))
	require.NoError(t, err)

	// временные файлы не остаются
	entries, err := os.ReadDir(filepath.Join(root, "ns", "branch", "feature"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_RejectsTraversal(t *testing.T) {
	st, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	for _, key := range []string{"ns/../x", "ns//x", "./x"} {
		_, err := st.Fetch(context.Background(), key)
		assert.Error(t, err, key)
		assert.NotErrorIs(t, err, storage.ErrSnapshotNotFound, key)
	}
}

func TestOpen_RelativeToWorkDir(t *testing.T) {
	work := t.TempDir()
	p, err := Descriptor.Open(context.Background(), storage.Options{"path": "snaps"}, storage.Deps{WorkDir: work})
	require.NoError(t, err)
	require.NoError(t, p.Store(context.Background(), "a/b", snapshot(t, "r", 1)))

	_, err = os.Stat(filepath.Join(work, "snaps", "a", "b.json"))
	assert.NoError(t, err)
}
