package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/voltera-ev/evscgo/internal/config"
	"github.com/voltera-ev/evscgo/internal/conflict"
	"github.com/voltera-ev/evscgo/internal/database"
	"github.com/voltera-ev/evscgo/internal/middleware"
	"github.com/voltera-ev/evscgo/internal/notify"
	"github.com/voltera-ev/evscgo/internal/services/inventory"
	"github.com/voltera-ev/evscgo/internal/services/invoicing"
	"github.com/voltera-ev/evscgo/internal/services/reception"
	"github.com/voltera-ev/evscgo/internal/services/scheduling"
)

// Router wraps the mux router with the database and domain services
type Router struct {
	*mux.Router
	db  *database.DB
	cfg *config.Config

	engine     *conflict.Engine
	receptions *reception.Service
	inventory  *inventory.Service
	scheduling *scheduling.Service
	invoicing  *invoicing.Service
	hub        *notify.Hub
}

// Deps bundles everything the router needs
type Deps struct {
	DB         *database.DB
	Config     *config.Config
	Engine     *conflict.Engine
	Receptions *reception.Service
	Inventory  *inventory.Service
	Scheduling *scheduling.Service
	Invoicing  *invoicing.Service
	Hub        *notify.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(deps Deps) *Router {
	r := &Router{
		Router:     mux.NewRouter(),
		db:         deps.DB,
		cfg:        deps.Config,
		engine:     deps.Engine,
		receptions: deps.Receptions,
		inventory:  deps.Inventory,
		scheduling: deps.Scheduling,
		invoicing:  deps.Invoicing,
		hub:        deps.Hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(deps.Config.JWTSecret))

	// Parts. Stock mutations are staff/admin only; technicians read and
	// raise demand through receptions instead.
	api.HandleFunc("/parts", r.listParts).Methods("GET")
	api.HandleFunc("/parts", middleware.RequireRole(r.createPart, "staff", "admin")).Methods("POST")
	api.HandleFunc("/parts/low-stock", r.lowStockReport).Methods("GET")
	api.HandleFunc("/parts/{id}", r.getPart).Methods("GET")
	api.HandleFunc("/parts/{id}/label", r.partLabel).Methods("GET")
	api.HandleFunc("/parts/{id}/restock", middleware.RequireRole(r.restockPart, "staff", "admin")).Methods("POST")
	api.HandleFunc("/parts/{id}/consume", middleware.RequireRole(r.consumePart, "staff", "admin")).Methods("POST")

	// Appointments and slots
	api.HandleFunc("/appointments", r.listAppointments).Methods("GET")
	api.HandleFunc("/appointments", r.createAppointment).Methods("POST")
	api.HandleFunc("/appointments/{id}", r.getAppointment).Methods("GET")
	api.HandleFunc("/slots", r.listSlots).Methods("GET")
	api.HandleFunc("/slots", r.createSlot).Methods("POST")
	api.HandleFunc("/slots/{id}/book", r.bookSlot).Methods("POST")
	api.HandleFunc("/slots/{id}/release", r.releaseSlot).Methods("POST")

	// Receptions
	api.HandleFunc("/receptions", r.listReceptions).Methods("GET")
	api.HandleFunc("/receptions", r.checkInReception).Methods("POST")
	api.HandleFunc("/receptions/{id}", r.getReception).Methods("GET")
	api.HandleFunc("/receptions/{id}/parts", r.addReceptionPart).Methods("POST")
	api.HandleFunc("/receptions/{id}/complete", r.completeReception).Methods("POST")
	api.HandleFunc("/reception-parts/{id}/approve", r.approveReceptionPart).Methods("POST")
	api.HandleFunc("/reception-parts/{id}/reject", r.rejectReceptionPart).Methods("POST")

	// Standalone part requests
	api.HandleFunc("/part-requests", r.listPartRequests).Methods("GET")
	api.HandleFunc("/part-requests", r.createPartRequest).Methods("POST")

	// Conflicts
	api.HandleFunc("/conflicts", r.listConflicts).Methods("GET")
	api.HandleFunc("/conflicts/detect-all", r.detectAllConflicts).Methods("POST")
	api.HandleFunc("/conflicts/{id}", r.getConflict).Methods("GET")
	api.HandleFunc("/parts/{id}/detect-conflicts", r.detectPartConflicts).Methods("POST")
	api.HandleFunc("/parts/{id}/auto-resolve", r.autoResolveConflicts).Methods("POST")

	// Invoices
	api.HandleFunc("/invoices", r.listInvoices).Methods("GET")
	api.HandleFunc("/invoices", r.createInvoice).Methods("POST")
	api.HandleFunc("/invoices/{id}", r.getInvoice).Methods("GET")
	api.HandleFunc("/invoices/{id}/issue", r.issueInvoice).Methods("POST")
	api.HandleFunc("/invoices/{id}/pdf", r.invoicePDF).Methods("GET")

	// Dashboard event stream (token passed as query param by browsers)
	r.HandleFunc("/ws/events", deps.Hub.ServeWS)

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"subscribers": r.hub.ClientCount(),
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
