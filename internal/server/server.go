// Package server exposes the read-only status API used in daemon mode:
// health, run history, and a log tail. All state changes happen through the
// scheduled backup runs, never through HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/routerops/fleetbackup/internal/database"
	"github.com/routerops/fleetbackup/internal/logging"
)

// New builds the HTTP handler for the status API.
func New() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", healthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/runs", listRuns)
		r.Get("/runs/{id}", getRun)
		r.Get("/runs/{id}/files", getRunFiles)
		r.Get("/runs/{id}/rotations", getRunRotations)
		r.Get("/log", getLogTail)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disconnected"
	if database.DB != nil {
		sqlDB, err := database.DB.DB()
		if err == nil {
			if err := sqlDB.Ping(); err == nil {
				dbStatus = "connected"
			}
		}
	}

	status := "healthy"
	if dbStatus != "connected" {
		status = "unhealthy"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"database": dbStatus,
	})
}

func listRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := database.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func getRun(w http.ResponseWriter, r *http.Request) {
	run, err := database.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func getRunFiles(w http.ResponseWriter, r *http.Request) {
	files, err := database.GetRunFiles(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load run files")
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func getRunRotations(w http.ResponseWriter, r *http.Request) {
	events, err := database.GetRunRotations(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load rotations")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func getLogTail(w http.ResponseWriter, r *http.Request) {
	lines, _ := strconv.Atoi(r.URL.Query().Get("lines"))
	if lines <= 0 || lines > 10000 {
		lines = 200
	}
	tail, err := logging.ReadTail(lines)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"log": tail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
