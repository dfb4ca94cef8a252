package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/voltera-ev/evscgo/internal/models"
	"github.com/voltera-ev/evscgo/internal/services/reception"
)

// listReceptions returns receptions, optionally filtered by status
func (r *Router) listReceptions(w http.ResponseWriter, req *http.Request) {
	var receptions []models.ServiceReception
	q := r.db.Preload("Parts").Order("created_at DESC")
	if status := req.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&receptions).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch receptions")
		return
	}
	respondJSON(w, http.StatusOK, receptions)
}

// getReception returns one reception with its part demands
func (r *Router) getReception(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var rec models.ServiceReception
	if err := r.db.Preload("Parts.Part").Preload("Appointment").
		First(&rec, "id = ?", vars["id"]).Error; err != nil {
		respondError(w, http.StatusNotFound, "Reception not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

type checkInRequest struct {
	AppointmentID string  `json:"appointmentId"`
	TechnicianID  *string `json:"technicianId,omitempty"`
	Notes         string  `json:"notes"`
}

// checkInReception opens a reception for an appointment
func (r *Router) checkInReception(w http.ResponseWriter, req *http.Request) {
	var body checkInRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rec, err := r.receptions.CheckIn(req.Context(), body.AppointmentID, body.TechnicianID, body.Notes)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

type addPartRequest struct {
	PartID   string `json:"partId"`
	Quantity int    `json:"quantity"`
}

// addReceptionPart records a technician part demand
func (r *Router) addReceptionPart(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var body addPartRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rp, err := r.receptions.AddPart(req.Context(), vars["id"], body.PartID, body.Quantity)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, rp)
}

// approveReceptionPart approves one demand and runs conflict detection
func (r *Router) approveReceptionPart(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	rp, conflict, err := r.receptions.ApprovePart(req.Context(), vars["id"])
	if err != nil {
		if errors.Is(err, reception.ErrAlreadyReviewed) {
			respondError(w, http.StatusConflict, "Part demand already reviewed")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"receptionPart": rp,
		"conflict":      conflict,
	})
}

// rejectReceptionPart rejects one demand
func (r *Router) rejectReceptionPart(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	rp, err := r.receptions.RejectPart(req.Context(), vars["id"])
	if err != nil {
		if errors.Is(err, reception.ErrAlreadyReviewed) {
			respondError(w, http.StatusConflict, "Part demand already reviewed")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rp)
}

// completeReception closes a reception once all demands are reviewed
func (r *Router) completeReception(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	rec, err := r.receptions.Complete(req.Context(), vars["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}
