package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/pod-archive/app/archive"
	"github.com/lysyi3m/pod-archive/app/database"
	"github.com/lysyi3m/pod-archive/app/tokens"
)

// MockRunRepository serves a fixed set of runs
type MockRunRepository struct {
	runs     []database.Run
	feeds    []database.FeedOutcome
	episodes []database.EpisodeOutcome
	err      error
}

func (m *MockRunRepository) StartRun(runID string, startedAt time.Time) error { return nil }

func (m *MockRunRepository) RecordFeed(runID string, result archive.FeedResult) error { return nil }

func (m *MockRunRepository) FinishRun(runID string, finishedAt time.Time) error { return nil }

func (m *MockRunRepository) ListRuns(limit int) ([]database.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *MockRunRepository) GetRun(runID string) (*database.Run, error) {
	for _, r := range m.runs {
		if r.ID == runID {
			return &r, nil
		}
	}
	return nil, m.err
}

func (m *MockRunRepository) GetFeedOutcomes(runID string) ([]database.FeedOutcome, error) {
	return m.feeds, nil
}

func (m *MockRunRepository) GetEpisodeOutcomes(runID string) ([]database.EpisodeOutcome, error) {
	return m.episodes, nil
}

func setupArchive(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "My_Show")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archive.xml"), []byte("<rss/>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ep.mp3"), []byte("audio"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ep2.mp3.part"), []byte("half"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("nope"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hidden"), 0755))
	return root
}

func newTestServer(t *testing.T, runs database.RunRepository, apiKey string) http.Handler {
	t.Helper()
	tokenMap := tokens.NewMap([]tokens.Entry{{Token: "tok123", Folder: "My_Show"}})
	return NewServer(NewHandler(setupArchive(t), tokenMap, runs, "test"), apiKey)
}

func get(t *testing.T, h http.Handler, path string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServePublicFile(t *testing.T) {
	srv := newTestServer(t, nil, "")

	w := get(t, srv, "/pods/My_Show/ep.mp3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio", w.Body.String())

	w = get(t, srv, "/pods/My_Show/archive.xml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<rss/>", w.Body.String())
}

func TestServeSecureFile(t *testing.T) {
	srv := newTestServer(t, nil, "")

	w := get(t, srv, "/secure/tok123/ep.mp3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio", w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/secure/wrong/ep.mp3").Code)
}

func TestServeRejectsEscapesAndHiddenFiles(t *testing.T) {
	srv := newTestServer(t, nil, "")

	for _, path := range []string{
		"/pods/My_Show/../secret.txt",
		"/pods/My_Show/%2e%2e/secret.txt",
		"/pods/../secret.txt",
		"/pods/.hidden/x",
		"/pods/My_Show/ep2.mp3.part",
		"/pods/My_Show/",
		"/pods/My_Show/missing.mp3",
		"/pods/Other/ep.mp3",
	} {
		w := get(t, srv, path)
		assert.NotEqual(t, http.StatusOK, w.Code, path)
		assert.NotContains(t, w.Body.String(), "nope", path)
	}
}

func TestHealth(t *testing.T) {
	w := get(t, newTestServer(t, nil, ""), "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["folders"])
	assert.Equal(t, float64(1), body["tokens"])
	assert.Equal(t, "test", body["version"])
}

func TestAPIRequiresKey(t *testing.T) {
	srv := newTestServer(t, &MockRunRepository{}, "secret")

	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/api/runs").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/api/runs", "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/runs", "Authorization", "Bearer secret").Code)
}

func TestAPIDisabledWithoutCatalog(t *testing.T) {
	srv := newTestServer(t, nil, "secret")
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/runs", "X-API-Key", "secret").Code)
}

func TestAPIListRuns(t *testing.T) {
	finished := time.Date(2024, 3, 5, 10, 5, 0, 0, time.UTC)
	repo := &MockRunRepository{runs: []database.Run{
		{ID: "b", StartedAt: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), FinishedAt: &finished, Feeds: 2, Archived: 3},
		{ID: "a", StartedAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)},
	}}
	srv := newTestServer(t, repo, "secret")

	w := get(t, srv, "/api/runs?limit=1", "X-API-Key", "secret")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs  []runResponse `json:"runs"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "b", body.Runs[0].ID)
	require.NotNil(t, body.Runs[0].FinishedAt)
	assert.Equal(t, "2024-03-05T10:05:00Z", *body.Runs[0].FinishedAt)
	assert.Equal(t, 3, body.Runs[0].Archived)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/runs?limit=zero", "X-API-Key", "secret").Code)
}

func TestAPIGetRunDetails(t *testing.T) {
	repo := &MockRunRepository{
		runs:     []database.Run{{ID: "run-1", StartedAt: time.Now()}},
		feeds:    []database.FeedOutcome{{FeedName: "My Show", Folder: "My_Show", Status: "done"}},
		episodes: []database.EpisodeOutcome{{Folder: "My_Show", Key: "2024-03-05-ep", Status: "archived"}},
	}
	srv := newTestServer(t, repo, "secret")

	w := get(t, srv, "/api/runs/run-1", "X-API-Key", "secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"key":"2024-03-05-ep"`)
	assert.Contains(t, w.Body.String(), `"folder":"My_Show"`)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/runs/missing", "X-API-Key", "secret").Code)
}
