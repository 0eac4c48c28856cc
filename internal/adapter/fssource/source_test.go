package fssource

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Kerala_groundWater_2024", "S001.csv"), "Date,level\n")
	writeFile(t, filepath.Join(root, "Kerala_groundWater_2024", "S002.CSV"), "Date,level\n")
	writeFile(t, filepath.Join(root, "Kerala_groundWater_2024", "notes.txt"), "ignore me")
	writeFile(t, filepath.Join(root, "Assam_groundWater_2024", "W001.csv"), "Date,level\n")
	writeFile(t, filepath.Join(root, "unrelated_dir", "x.csv"), "Date,level\n")
	writeFile(t, filepath.Join(root, "stray.csv"), "not a dir\n")

	src := New(root, "groundWater", testLogger())
	ctx := context.Background()

	regions, err := src.Regions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Assam", "Kerala"}, regions)

	files, err := src.Files(ctx, "Kerala")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "S001.csv", files[0].Name)
	assert.Equal(t, "S002.CSV", files[1].Name)
	assert.Equal(t, "Kerala", files[0].Region)
	assert.Equal(t, []byte("Date,level\n"), files[0].Content)
	assert.False(t, files[0].ReportedAt.IsZero())

	_, err = src.Files(ctx, "Punjab")
	require.Error(t, err)
}

func TestSource_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Kerala_groundWater", "S001.csv"), "Date,level\n")

	src := New(root, "groundWater", testLogger())
	_, err := src.Regions(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Files(ctx, "Kerala")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegionName(t *testing.T) {
	assert.Equal(t, "Kerala", regionName("Kerala_groundWater_2024"))
	assert.Equal(t, "Assam", regionName("Assam_groundWater"))
	assert.Equal(t, "plain", regionName("plain"))
}
