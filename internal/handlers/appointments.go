package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/voltera-ev/evscgo/internal/models"
	"github.com/voltera-ev/evscgo/internal/services/scheduling"
)

// listAppointments returns appointments, optionally filtered by day
func (r *Router) listAppointments(w http.ResponseWriter, req *http.Request) {
	var appointments []models.Appointment
	q := r.db.Preload("Customer").Preload("Vehicle").Order("scheduled_date, scheduled_time")
	if day := req.URL.Query().Get("date"); day != "" {
		parsed, err := time.Parse("2006-01-02", day)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		q = q.Where("scheduled_date >= ? AND scheduled_date < ?", parsed, parsed.Add(24*time.Hour))
	}
	if err := q.Find(&appointments).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch appointments")
		return
	}
	respondJSON(w, http.StatusOK, appointments)
}

// getAppointment returns one appointment
func (r *Router) getAppointment(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var appt models.Appointment
	if err := r.db.Preload("Customer").Preload("Vehicle").
		First(&appt, "id = ?", vars["id"]).Error; err != nil {
		respondError(w, http.StatusNotFound, "Appointment not found")
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

// createAppointment schedules a service visit
func (r *Router) createAppointment(w http.ResponseWriter, req *http.Request) {
	var appt models.Appointment
	if err := json.NewDecoder(req.Body).Decode(&appt); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if appt.CustomerID == "" || appt.VehicleID == "" || appt.ScheduledDate.IsZero() {
		respondError(w, http.StatusBadRequest, "customerId, vehicleId and scheduledDate are required")
		return
	}
	if appt.Priority == "" {
		appt.Priority = models.PriorityNormal
	}
	if err := r.db.Create(&appt).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create appointment")
		return
	}
	respondJSON(w, http.StatusCreated, appt)
}

// listSlots returns bookable slots for a day
func (r *Router) listSlots(w http.ResponseWriter, req *http.Request) {
	day := req.URL.Query().Get("date")
	parsed, err := time.Parse("2006-01-02", day)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := r.scheduling.ListSlots(req.Context(), parsed)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch slots")
		return
	}
	respondJSON(w, http.StatusOK, slots)
}

type createSlotRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Capacity  int    `json:"capacity"`
}

// createSlot opens a bookable capacity window
func (r *Router) createSlot(w http.ResponseWriter, req *http.Request) {
	var body createSlotRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	parsed, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slot, err := r.scheduling.CreateSlot(req.Context(), parsed, body.StartTime, body.EndTime, body.Capacity)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, slot)
}

type bookSlotRequest struct {
	AppointmentID string `json:"appointmentId"`
}

// bookSlot takes one place in a slot for an appointment
func (r *Router) bookSlot(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var body bookSlotRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if err := r.scheduling.Book(req.Context(), vars["id"], body.AppointmentID); err != nil {
		if errors.Is(err, scheduling.ErrSlotFull) {
			respondError(w, http.StatusConflict, "Slot is fully booked")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to book slot")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "booked"})
}

// releaseSlot frees one place in a slot
func (r *Router) releaseSlot(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var body bookSlotRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if err := r.scheduling.Release(req.Context(), vars["id"], body.AppointmentID); err != nil {
		if errors.Is(err, scheduling.ErrSlotEmpty) {
			respondError(w, http.StatusConflict, "Slot has no bookings")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to release slot")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "released"})
}
