package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/pod-archive/app/archive"
)

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := Open(filepath.Join(t.TempDir(), "state", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })
	return catalog
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	db, err := NewConnection(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	version, _, err = RunMigrations(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestCatalogRecordsRun(t *testing.T) {
	catalog := openCatalog(t)
	started := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	require.NoError(t, catalog.StartRun("run-1", started))
	require.NoError(t, catalog.RecordFeed("run-1", archive.FeedResult{
		Name:   "My Show",
		Folder: "My_Show",
		Status: archive.FeedDone,
		Episodes: []archive.EpisodeResult{
			{Key: "2024-03-05-ep-1-hello", Filename: "2024-03-05-ep-1-hello.mp3", Filesize: 42, Status: archive.StatusArchived},
			{Key: "2024-03-04-ep-0", Status: archive.StatusSkipped},
			{Key: "undated-broken", Status: archive.StatusFailed, Reason: "HTTP error: 404"},
		},
	}))
	require.NoError(t, catalog.RecordFeed("run-1", archive.FeedResult{
		Name: "Down", Folder: "Down", Status: archive.FeedFailed, Reason: "timeout",
	}))
	require.NoError(t, catalog.FinishRun("run-1", started.Add(time.Minute)))

	run, err := catalog.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.True(t, started.Equal(run.StartedAt))
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, time.Minute, run.FinishedAt.Sub(run.StartedAt))
	assert.Equal(t, 2, run.Feeds)
	assert.Equal(t, 1, run.Archived)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 1, run.Failed)

	feeds, err := catalog.GetFeedOutcomes("run-1")
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, "failed", feeds[1].Status)
	assert.Equal(t, "timeout", feeds[1].Reason)

	episodes, err := catalog.GetEpisodeOutcomes("run-1")
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, "My_Show", episodes[0].Folder)
	assert.Equal(t, int64(42), episodes[0].Filesize)
	assert.Equal(t, "HTTP error: 404", episodes[2].Reason)
}

func TestCatalogListRunsNewestFirst(t *testing.T) {
	catalog := openCatalog(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, catalog.StartRun("old", base))
	require.NoError(t, catalog.StartRun("new", base.Add(500*time.Millisecond)))
	require.NoError(t, catalog.StartRun("newest", base.Add(time.Second)))

	runs, err := catalog.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newest", runs[0].ID)
	assert.Equal(t, "new", runs[1].ID)
	assert.Nil(t, runs[0].FinishedAt)
}

func TestCatalogUnknownRun(t *testing.T) {
	catalog := openCatalog(t)

	run, err := catalog.GetRun("missing")
	require.NoError(t, err)
	assert.Nil(t, run)

	assert.Error(t, catalog.FinishRun("missing", time.Now()))
}

func TestNewConnectionInvalidPath(t *testing.T) {
	dir := t.TempDir()
	// a directory cannot be opened as a database file
	_, err := Open(dir)
	assert.Error(t, err)
}
