package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/voltera-ev/evscgo/internal/models"
	"github.com/voltera-ev/evscgo/internal/services/invoicing"
)

// listInvoices returns all invoices
func (r *Router) listInvoices(w http.ResponseWriter, req *http.Request) {
	var invoices []models.Invoice
	if err := r.db.Order("created_at DESC").Find(&invoices).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch invoices")
		return
	}
	respondJSON(w, http.StatusOK, invoices)
}

// getInvoice returns one invoice with lines
func (r *Router) getInvoice(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var inv models.Invoice
	if err := r.db.Preload("Lines").First(&inv, "id = ?", vars["id"]).Error; err != nil {
		respondError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

type createInvoiceRequest struct {
	ReceptionID string          `json:"receptionId"`
	LaborHours  decimal.Decimal `json:"laborHours"`
	HourlyRate  decimal.Decimal `json:"hourlyRate"`
}

// createInvoice builds a draft invoice from a completed reception
func (r *Router) createInvoice(w http.ResponseWriter, req *http.Request) {
	var body createInvoiceRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	inv, err := r.invoicing.CreateFromReception(req.Context(), body.ReceptionID, body.LaborHours, body.HourlyRate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

// issueInvoice moves a draft invoice to issued
func (r *Router) issueInvoice(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	inv, err := r.invoicing.Issue(req.Context(), vars["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// invoicePDF streams the rendered invoice PDF
func (r *Router) invoicePDF(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var inv models.Invoice
	if err := r.db.Preload("Lines").First(&inv, "id = ?", vars["id"]).Error; err != nil {
		respondError(w, http.StatusNotFound, "Invoice not found")
		return
	}

	var customer models.Customer
	if err := r.db.First(&customer, "id = ?", inv.CustomerID).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Customer lookup failed")
		return
	}

	pdf, err := invoicing.GeneratePDF(&inv, &customer)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", inv.InvoiceNumber))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
