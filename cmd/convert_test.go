package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"binder/internal/export"
)

func TestProgressSinkStopsBlockingAfterViewExits(t *testing.T) {
	updates := make(chan export.Progress, 1)
	uiDone := make(chan struct{})
	sink := progressSink(updates, uiDone)

	sink(export.Progress{PagesDone: 1})
	assert.Equal(t, 1, (<-updates).PagesDone)

	close(uiDone)
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			sink(export.Progress{PagesDone: i})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("progress callback blocked after the view exited")
	}
}

func TestWriteReportFormats(t *testing.T) {
	dir := t.TempDir()
	report := export.Report{
		Root:   "/photos",
		State:  export.StateDone,
		Groups: []export.GroupReport{{Label: "invoices", Status: export.StatusSuccess, Pages: 2, Total: 2}},
	}

	jsonPath := filepath.Join(dir, "run.json")
	require.NoError(t, writeReport(jsonPath, report))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"label": "invoices"`)

	yamlPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, writeReport(yamlPath, report))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var decoded export.Report
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "invoices", decoded.Groups[0].Label)
	assert.Equal(t, export.StatusSuccess, decoded.Groups[0].Status)
}
