package vbsp

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// savedMapPath writes testMap to a fresh directory and returns its path.
func savedMapPath(t *testing.T) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "de_test.bsp")
	f := testMap(t)
	require.NoError(t, f.SaveFile(context.Background(), p, SaveFileOptions{}))
	require.NoError(t, f.Close())

	return p
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()

	items, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name())
	}

	return names
}

func TestSaveFileInPlaceKeepsLazyLumpsReadable(t *testing.T) {
	t.Parallel()

	p := savedMapPath(t)

	f, err := Open(context.Background(), p, LoadOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	vertexes, ok := f.Lump(LumpVertexes).(*RawLump)
	require.True(t, ok)
	require.True(t, vertexes.Source().Valid())

	f.Entities().Entities[0].Set("skyname", "sky_night01")
	require.NoError(t, f.SaveFile(context.Background(), p, SaveFileOptions{Backup: BackupTimestamp}))

	assert.Equal(t, p, f.Path())

	data, err := vertexes.Data()
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("vertex--"), 64), data)

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(p), "de_test_backup*.bsp"))
	require.NoError(t, err)
	require.Len(t, backups, 1)

	old, err := Open(context.Background(), backups[0], LoadOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = old.Close() })
	sky, _ := old.Entities().Entities[0].Get("skyname")
	assert.Equal(t, "sky_day01_01", sky)

	g, err := Open(context.Background(), p, LoadOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	sky, _ = g.Entities().Entities[0].Get("skyname")
	assert.Equal(t, "sky_night01", sky)
}

func TestSaveFileRotatesBackups(t *testing.T) {
	t.Parallel()

	p := savedMapPath(t)

	f, err := Open(context.Background(), p, LoadOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	opts := SaveFileOptions{Backup: BackupRotate, BackupKeep: 2}
	for range 3 {
		require.NoError(t, f.SaveFile(context.Background(), p, opts))
	}

	assert.ElementsMatch(t,
		[]string{"de_test.bsp", "de_test.bsp.bak", "de_test.bsp.bak.1"},
		dirNames(t, filepath.Dir(p)),
	)
}

func TestSaveFileToAnotherPath(t *testing.T) {
	t.Parallel()

	p := savedMapPath(t)
	original, err := os.ReadFile(p)
	require.NoError(t, err)

	f, err := Open(context.Background(), p, LoadOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	_, err = f.Pakfile().Add("maps/de_test.nav", []byte("nav"))
	require.NoError(t, err)

	other := filepath.Join(t.TempDir(), "de_test_v2.bsp")
	require.NoError(t, f.SaveFile(context.Background(), other, SaveFileOptions{Backup: BackupTimestamp}))
	assert.Equal(t, other, f.Path())

	current, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, original, current)
	assert.Equal(t, []string{"de_test_v2.bsp"}, dirNames(t, filepath.Dir(other)))

	data, err := f.Lump(LumpPhysLevel).(*RawLump).Data()
	require.NoError(t, err)
	assert.Equal(t, "physics", string(data))
}

func TestSaveFileCancelledLeavesNoTrace(t *testing.T) {
	t.Parallel()

	p := savedMapPath(t)
	original, err := os.ReadFile(p)
	require.NoError(t, err)

	f, err := Open(context.Background(), p, LoadOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = f.SaveFile(ctx, p, SaveFileOptions{Backup: BackupTimestamp})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"de_test.bsp"}, dirNames(t, filepath.Dir(p)))
	current, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, original, current)

	data, err := f.Lump(LumpVertexes).(*RawLump).Data()
	require.NoError(t, err)
	assert.Len(t, data, 512)
}

func TestSaveFileClosed(t *testing.T) {
	t.Parallel()

	f := testMap(t)
	require.NoError(t, f.Close())

	err := f.SaveFile(context.Background(), filepath.Join(t.TempDir(), "x.bsp"), SaveFileOptions{})
	require.ErrorIs(t, err, ErrClosed)
	require.Error(t, f.SaveFile(context.Background(), " ", SaveFileOptions{}))
}

func TestBackupPath(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1760000000123)

	testCases := []struct {
		name string
		path string
		mode BackupMode
		want string
	}{
		{name: "none", path: "maps/a.bsp", mode: BackupNone, want: ""},
		{name: "rotate", path: "maps/a.bsp", mode: BackupRotate, want: "maps/a.bsp.bak"},
		{name: "timestamp", path: "maps/a.bsp", mode: BackupTimestamp, want: "maps/a_backup1760000000123.bsp"},
		{name: "timestamp no ext", path: "maps/a", mode: BackupTimestamp, want: "maps/a_backup1760000000123.bsp"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := backupPath(tc.path, tc.mode, now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := backupPath("a.bsp", BackupMode("weekly"), now)
	require.ErrorIs(t, err, ErrBackup)
}
