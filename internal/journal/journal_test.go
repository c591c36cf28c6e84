package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binder/internal/errkind"
	"binder/internal/export"
)

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "state", FileName))
	require.NoError(t, err)
	defer store.Close()

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := export.Report{
		Root:     "/photos",
		State:    export.StateDone,
		Started:  started,
		Finished: started.Add(2 * time.Second),
		Groups: []export.GroupReport{
			{Label: "invoices", Folder: "/photos", Status: export.StatusSuccess, OutputPath: "/photos/invoices.pdf", Pages: 2, Total: 2, Deleted: 2},
			{Label: "misc", Folder: "/photos", Status: export.StatusPartial, OutputPath: "/photos/misc.pdf", Pages: 4, Total: 5,
				Issues: []export.Issue{{Path: "/photos/3.png", Kind: errkind.Decode, Message: "unexpected EOF"}}},
		},
	}
	second := export.Report{
		Root:     "/scans",
		State:    export.StateDone,
		Partial:  true,
		Started:  started.Add(time.Hour),
		Finished: started.Add(time.Hour + time.Second),
		Groups:   []export.GroupReport{{Label: "scans", Folder: "/scans", Status: export.StatusSkipped, Total: 3}},
		Warnings: []export.Issue{{Path: "/scans/link.png", Kind: errkind.Scan}},
	}

	id1, err := store.Record(ctx, first)
	require.NoError(t, err)
	id2, err := store.Record(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, id2, runs[0].ID)
	assert.True(t, runs[0].Partial)
	assert.Equal(t, 1, runs[0].Warnings)
	assert.Equal(t, 1, runs[0].Count(export.StatusSkipped))

	got := runs[1]
	assert.Equal(t, "/photos", got.Root)
	assert.Equal(t, export.StateDone, got.State)
	assert.True(t, got.Started.Equal(started))
	assert.Equal(t, first.Groups, got.Groups)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, id2, limited[0].ID)
}

func TestReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), FileName)

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Record(ctx, export.Report{Root: "/a", State: export.StateDone, Started: time.Now(), Finished: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].Groups)
}
