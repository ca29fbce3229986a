package routers

import (
	"checkpoint-builder/handlers"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the HTTP routes for the checkpoint daemon
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Stores a header the sync service accepted onto the best chain
	r.HandleFunc("/headers", h.PutHeader).Methods("POST")

	// Highest stored header
	r.HandleFunc("/headers/tip", h.GetTip).Methods("GET")

	// Count, digest and signature count of the loaded checkpoints file
	r.HandleFunc("/checkpoints", h.GetCheckpoints).Methods("GET")

	// Used by initial chain validation to find where to start
	r.HandleFunc("/checkpoints/before/{timestamp:[0-9]+}", h.GetCheckpointBefore).Methods("GET")

	r.HandleFunc("/checkpoints/{height:[0-9]+}", h.GetCheckpoint).Methods("GET")
}
