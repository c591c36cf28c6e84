package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoFileWithoutErrors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	h := NewErrorFileHandler(dir, slog.LevelDebug)
	log := slog.New(h)

	log.Info("scanning", "path", "/photos")
	log.Warn("skipped page", "kind", "DecodeError")
	require.NoError(t, h.Close())

	assert.Empty(t, h.Path())
	assert.NoDirExists(t, dir)
}

func TestFirstErrorCreatesFileWithHistory(t *testing.T) {
	dir := t.TempDir()
	h := NewErrorFileHandler(dir, slog.LevelInfo)
	h.w.now = func() time.Time { return time.Date(2024, 1, 31, 15, 45, 2, 0, time.UTC) }
	log := slog.New(h).With("run", 7)

	log.Debug("hidden")
	log.Info("scanning", "path", "/photos")
	log.Error("group export failed", "kind", "AssembleError")
	log.Info("after")
	require.NoError(t, h.Close())

	want := filepath.Join(dir, "binder_20240131_154502.log")
	assert.Equal(t, want, h.Path())

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	text := string(data)
	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, "msg=scanning")
	assert.Contains(t, text, "path=/photos")
	assert.Contains(t, text, "run=7")
	assert.Contains(t, text, "kind=AssembleError")
	assert.Contains(t, text, "msg=after")
	assert.Less(t, bytes.Index(data, []byte("scanning")), bytes.Index(data, []byte("group export failed")))
}

func TestFanoutRespectsLevels(t *testing.T) {
	var verbose, quiet bytes.Buffer
	log := slog.New(Fanout{
		slog.NewTextHandler(&verbose, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}).WithGroup("export")

	log.Info("wrote pdf", "pages", 3)
	log.Warn("could not delete source", "path", "/a.png")

	assert.Contains(t, verbose.String(), "export.pages=3")
	assert.Contains(t, verbose.String(), "export.path=/a.png")
	assert.NotContains(t, quiet.String(), "wrote pdf")
	assert.Contains(t, quiet.String(), "could not delete source")
}

func TestNewSendsWarningsToConsole(t *testing.T) {
	var console bytes.Buffer
	log, file := New(t.TempDir(), &console, false)

	log.Info("quiet")
	log.Warn("loud")
	assert.NotContains(t, console.String(), "quiet")
	assert.Contains(t, console.String(), "loud")
	assert.Empty(t, file.Path())
	require.NoError(t, file.Close())
}
