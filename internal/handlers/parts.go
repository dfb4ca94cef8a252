package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/voltera-ev/evscgo/internal/models"
)

// listParts returns all parts
func (r *Router) listParts(w http.ResponseWriter, req *http.Request) {
	var parts []models.Part
	q := r.db.Order("part_number")
	if category := req.URL.Query().Get("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&parts).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch parts")
		return
	}
	respondJSON(w, http.StatusOK, parts)
}

// getPart returns a single part with its derived available stock
func (r *Router) getPart(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var part models.Part
	if err := r.db.First(&part, "id = ?", vars["id"]).Error; err != nil {
		respondError(w, http.StatusNotFound, "Part not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"part":           part,
		"availableStock": part.AvailableStock(),
	})
}

// createPart creates a new part
func (r *Router) createPart(w http.ResponseWriter, req *http.Request) {
	var part models.Part
	if err := json.NewDecoder(req.Body).Decode(&part); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if part.PartNumber == "" || part.Name == "" {
		respondError(w, http.StatusBadRequest, "partNumber and name are required")
		return
	}
	if err := r.db.Create(&part).Error; err != nil {
		respondError(w, http.StatusConflict, "Part number already exists")
		return
	}
	respondJSON(w, http.StatusCreated, part)
}

// partLabel renders a QR label PNG for shelf labelling
func (r *Router) partLabel(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var part models.Part
	if err := r.db.First(&part, "id = ?", vars["id"]).Error; err != nil {
		respondError(w, http.StatusNotFound, "Part not found")
		return
	}

	png, err := qrcode.Encode(fmt.Sprintf("EVSC/PART/%s", part.PartNumber), qrcode.Medium, 256)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate label")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

type stockChangeRequest struct {
	Quantity int `json:"quantity"`
}

// restockPart increases stock and reports any auto-resolved conflicts
func (r *Router) restockPart(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var body stockChangeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	part, resolved, err := r.inventory.Restock(req.Context(), vars["id"], body.Quantity)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"part":              part,
		"resolvedConflicts": resolved,
	})
}

// consumePart records parts fitted to a vehicle
func (r *Router) consumePart(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var body stockChangeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	part, err := r.inventory.Consume(req.Context(), vars["id"], body.Quantity)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, part)
}

// lowStockReport lists parts below their minimum stock level
func (r *Router) lowStockReport(w http.ResponseWriter, req *http.Request) {
	entries, err := r.inventory.LowStockReport(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
