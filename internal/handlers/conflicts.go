package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/voltera-ev/evscgo/internal/models"
)

// listConflicts returns conflicts, open ones first
func (r *Router) listConflicts(w http.ResponseWriter, req *http.Request) {
	var conflicts []models.PartConflict
	q := r.db.Order("created_at DESC")
	if status := req.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	} else if req.URL.Query().Get("open") == "true" {
		q = q.Where("status IN ?", models.OpenConflictStatuses)
	}
	if err := q.Find(&conflicts).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch conflicts")
		return
	}
	respondJSON(w, http.StatusOK, conflicts)
}

// getConflict returns one conflict with its demand snapshot
func (r *Router) getConflict(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var conflict models.PartConflict
	if err := r.db.First(&conflict, "id = ?", vars["id"]).Error; err != nil {
		respondError(w, http.StatusNotFound, "Conflict not found")
		return
	}
	respondJSON(w, http.StatusOK, conflict)
}

// detectPartConflicts runs detection for one part on demand
func (r *Router) detectPartConflicts(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	conflict, err := r.engine.DetectPartConflicts(req.Context(), vars["id"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Conflict detection failed")
		return
	}
	if conflict == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"conflict": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"conflict": conflict})
}

// detectAllConflicts runs the sequential full-inventory scan
func (r *Router) detectAllConflicts(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	conflicts, err := r.engine.DetectAllConflicts(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Conflict scan failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conflicts": conflicts,
		"scannedIn": time.Since(started).String(),
	})
}

// autoResolveConflicts re-evaluates open conflicts for a part
func (r *Router) autoResolveConflicts(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	conflicts, err := r.engine.AutoResolveConflicts(req.Context(), vars["id"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Auto-resolution failed")
		return
	}
	respondJSON(w, http.StatusOK, conflicts)
}

// listPartRequests returns standalone part requests
func (r *Router) listPartRequests(w http.ResponseWriter, req *http.Request) {
	var requests []models.PartRequest
	q := r.db.Preload("Part").Order("requested_at")
	if status := req.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&requests).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch part requests")
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

type createPartRequestBody struct {
	PartID        string `json:"partId"`
	AppointmentID string `json:"appointmentId"`
	Quantity      int    `json:"quantity"`
	Reason        string `json:"reason"`
}

// createPartRequest raises a standalone part demand
func (r *Router) createPartRequest(w http.ResponseWriter, req *http.Request) {
	var body createPartRequestBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if body.PartID == "" || body.AppointmentID == "" || body.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "partId, appointmentId and a positive quantity are required")
		return
	}

	pr := models.PartRequest{
		PartID:        body.PartID,
		AppointmentID: body.AppointmentID,
		Quantity:      body.Quantity,
		Reason:        body.Reason,
		Status:        models.RequestPending,
		RequestedAt:   time.Now().UTC(),
	}
	if err := r.db.Create(&pr).Error; err != nil {
		respondError(w, http.StatusBadRequest, "Failed to create part request")
		return
	}
	respondJSON(w, http.StatusCreated, pr)
}
