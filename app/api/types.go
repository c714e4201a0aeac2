package api

import (
	"github.com/lysyi3m/pod-archive/app/database"
	"github.com/lysyi3m/pod-archive/app/tokens"
)

type Handler struct {
	archiveDir string
	tokenMap   *tokens.Map
	runs       database.RunRepository
	version    string
}

type runResponse struct {
	ID         string  `json:"id"`
	StartedAt  string  `json:"started_at"`
	FinishedAt *string `json:"finished_at"`
	Feeds      int     `json:"feeds"`
	Archived   int     `json:"archived"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
}
