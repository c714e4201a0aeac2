package api

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/pod-archive/app/database"
	"github.com/lysyi3m/pod-archive/app/tokens"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
)

// NewHandler serves files from archiveDir. tokenMap and runs may be nil.
func NewHandler(archiveDir string, tokenMap *tokens.Map, runs database.RunRepository, version string) *Handler {
	return &Handler{
		archiveDir: archiveDir,
		tokenMap:   tokenMap,
		runs:       runs,
		version:    version,
	}
}

func (h *Handler) GetPublicFile(c *gin.Context) {
	h.serveFile(c, c.Param("folder"), c.Param("file"))
}

func (h *Handler) GetSecureFile(c *gin.Context) {
	token := c.Param("token")

	folder, ok := h.tokenMap.FolderFor(token)
	if !ok {
		slog.Debug("Unknown token", "path", c.Request.URL.Path)
		c.Status(http.StatusNotFound)
		return
	}

	h.serveFile(c, folder, c.Param("file"))
}

// serveFile answers 404 for anything outside the podcast folder and for
// hidden or partial files inside it.
func (h *Handler) serveFile(c *gin.Context, folder, file string) {
	if !validSegment(folder) {
		c.Status(http.StatusNotFound)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+file), "/")
	if name == "" || strings.HasSuffix(name, ".part") {
		c.Status(http.StatusNotFound)
		return
	}
	for _, segment := range strings.Split(name, "/") {
		if !validSegment(segment) {
			c.Status(http.StatusNotFound)
			return
		}
	}

	fullPath := filepath.Join(h.archiveDir, folder, filepath.FromSlash(name))
	info, err := os.Stat(fullPath)
	if err != nil || !info.Mode().IsRegular() {
		c.Status(http.StatusNotFound)
		return
	}

	c.File(fullPath)
}

func validSegment(s string) bool {
	return s != "" && !strings.HasPrefix(s, ".") && !strings.ContainsAny(s, `/\`)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"tokens":    h.tokenMap.Len(),
	}

	if entries, err := os.ReadDir(h.archiveDir); err == nil {
		folders := 0
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				folders++
			}
		}
		health["folders"] = folders
	} else {
		slog.Error("Archive directory unreadable", "path", h.archiveDir, "error", err)
		health["folders"] = 0
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.runs.ListRuns(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		response = append(response, toRunResponse(run))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  response,
		"total": len(response),
	})
}

func (h *Handler) APIGetRunDetails(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runs.GetRun(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	feeds, err := h.runs.GetFeedOutcomes(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed_outcomes", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	episodes, err := h.runs.GetEpisodeOutcomes(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_episode_outcomes", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	feedList := make([]gin.H, 0, len(feeds))
	for _, f := range feeds {
		feedList = append(feedList, gin.H{
			"name":   f.FeedName,
			"folder": f.Folder,
			"status": f.Status,
			"reason": f.Reason,
		})
	}

	episodeList := make([]gin.H, 0, len(episodes))
	for _, e := range episodes {
		episodeList = append(episodeList, gin.H{
			"folder":   e.Folder,
			"key":      e.Key,
			"title":    e.Title,
			"filename": e.Filename,
			"filesize": e.Filesize,
			"status":   e.Status,
			"reason":   e.Reason,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"run":      toRunResponse(*run),
		"feeds":    feedList,
		"episodes": episodeList,
	})
}

func toRunResponse(run database.Run) runResponse {
	r := runResponse{
		ID:        run.ID,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Feeds:     run.Feeds,
		Archived:  run.Archived,
		Skipped:   run.Skipped,
		Failed:    run.Failed,
	}
	if run.FinishedAt != nil {
		finished := run.FinishedAt.Format(time.RFC3339)
		r.FinishedAt = &finished
	}
	return r
}
