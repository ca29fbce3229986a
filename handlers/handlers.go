package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"checkpoint-builder/checkpoint"
	"checkpoint-builder/logger"
	"checkpoint-builder/models"
	"checkpoint-builder/repository"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler contains the HTTP handlers for the header ingest and checkpoint query API
type Handler struct {
	Repo    repository.HeaderRepositoryInterface
	Manager *checkpoint.Manager
}

// NewHandler creates and returns a new Handler instance. manager may be nil
// when no checkpoints file has been loaded.
func NewHandler(repo repository.HeaderRepositoryInterface, manager *checkpoint.Manager) *Handler {
	return &Handler{Repo: repo, Manager: manager}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// PutHeader handles POST requests carrying a newly accepted best-chain header
func (h *Handler) PutHeader(w http.ResponseWriter, r *http.Request) {
	var header models.Header
	if err := json.NewDecoder(r.Body).Decode(&header); err != nil {
		logger.Logger.Error("Failed to decode header", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.Repo.PutHeader(&header); err != nil {
		logger.Logger.Error("Failed to store header", zap.Uint32("height", header.Height), zap.Error(err))
		if errors.Is(err, repository.ErrHeightExists) || errors.Is(err, repository.ErrHeightGap) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Logger.Debug("Stored header", zap.Uint32("height", header.Height), zap.String("hash", header.Hash.Hex()))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Header stored successfully",
		"header":  header,
	})
}

// GetTip handles GET requests for the highest stored header
func (h *Handler) GetTip(w http.ResponseWriter, r *http.Request) {
	tip, err := h.Repo.Tip()
	if errors.Is(err, repository.ErrEmptyStore) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Logger.Error("Failed to read tip", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tip)
}

// GetCheckpoints summarises the loaded checkpoints file
func (h *Handler) GetCheckpoints(w http.ResponseWriter, r *http.Request) {
	if h.Manager == nil {
		writeError(w, http.StatusServiceUnavailable, "no checkpoints loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":      h.Manager.NumCheckpoints(),
		"digest":     h.Manager.Digest(),
		"signatures": h.Manager.SignatureCount(),
	})
}

// GetCheckpoint handles GET requests for the checkpoint at a given height
func (h *Handler) GetCheckpoint(w http.ResponseWriter, r *http.Request) {
	if h.Manager == nil {
		writeError(w, http.StatusServiceUnavailable, "no checkpoints loaded")
		return
	}
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid height")
		return
	}
	cp, ok := h.Manager.Get(uint32(height))
	if !ok {
		writeError(w, http.StatusNotFound, "no checkpoint at height")
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// GetCheckpointBefore handles GET requests for the last checkpoint at or before a unix timestamp
func (h *Handler) GetCheckpointBefore(w http.ResponseWriter, r *http.Request) {
	if h.Manager == nil {
		writeError(w, http.StatusServiceUnavailable, "no checkpoints loaded")
		return
	}
	ts, err := strconv.ParseInt(mux.Vars(r)["timestamp"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timestamp")
		return
	}
	cp, err := h.Manager.CheckpointBefore(ts)
	if errors.Is(err, checkpoint.ErrNoCheckpointBefore) {
		// callers fall back to genesis
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cp)
}
