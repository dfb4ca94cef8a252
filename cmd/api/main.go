package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voltera-ev/evscgo/internal/config"
	"github.com/voltera-ev/evscgo/internal/conflict"
	"github.com/voltera-ev/evscgo/internal/database"
	"github.com/voltera-ev/evscgo/internal/handlers"
	"github.com/voltera-ev/evscgo/internal/models"
	"github.com/voltera-ev/evscgo/internal/notify"
	inventoryService "github.com/voltera-ev/evscgo/internal/services/inventory"
	invoicingService "github.com/voltera-ev/evscgo/internal/services/invoicing"
	receptionService "github.com/voltera-ev/evscgo/internal/services/reception"
	schedulingService "github.com/voltera-ev/evscgo/internal/services/scheduling"
	"github.com/voltera-ev/evscgo/internal/utils"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (detects embedded vs external automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-migrate schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Customer{},
		&models.Vehicle{},
		&models.Part{},
		&models.Appointment{},
		&models.ServiceSlot{},
		&models.ServiceReception{},
		&models.ReceptionPart{},
		&models.PartRequest{},
		&models.PartConflict{},
		&models.ConflictCounter{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.InvoiceCounter{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("✅ Schema synchronized successfully")

	// 4. Seed the initial admin account on a fresh database
	if err := seedAdmin(db); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	// 5. Notification hub for staff dashboards
	hub := notify.NewHub()

	// 6. Conflict engine (partial unique index backs its upsert)
	engine := conflict.NewEngine(db, cfg.Conflict, hub)
	if err := engine.EnsureIndexes(); err != nil {
		log.Fatalf("Failed to create conflict indexes: %v", err)
	}

	// 7. Domain services
	receptions := receptionService.NewService(db, engine)
	inventory := inventoryService.NewService(db, engine)
	scheduling := schedulingService.NewService(db)
	invoicing := invoicingService.NewService(db)

	// 8. HTTP router
	router := handlers.NewRouter(handlers.Deps{
		DB:         db,
		Config:     cfg,
		Engine:     engine,
		Receptions: receptions,
		Inventory:  inventory,
		Scheduling: scheduling,
		Invoicing:  invoicing,
		Hub:        hub,
	})

	// 9. Background full-inventory conflict scan
	scanCtx, stopScan := context.WithCancel(context.Background())
	if cfg.Conflict.ScanInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Conflict.ScanInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					conflicts, err := engine.DetectAllConflicts(scanCtx)
					if err != nil {
						log.Printf("⚠️ Conflict scan failed: %v", err)
						continue
					}
					if len(conflicts) > 0 {
						log.Printf("🔍 Conflict scan found %d open conflict(s)", len(conflicts))
					}
				case <-scanCtx.Done():
					return
				}
			}
		}()
		log.Printf("✅ Conflict scanner started (every %v)", cfg.Conflict.ScanInterval)
	}

	// 10. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	stopScan()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

// seedAdmin creates the bootstrap admin user when no accounts exist yet.
// Password comes from ADMIN_PASSWORD; the generated default must be changed
// in any real deployment.
func seedAdmin(db *database.DB) error {
	var count int64
	if err := db.Model(&models.UserAuth{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "changeme-admin"
		log.Println("⚠️ ADMIN_PASSWORD not set, seeding admin with the default password")
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.UserAuth{
		Username: "admin",
		Email:    "admin@localhost",
		Password: hashed,
		Name:     "Administrator",
		Role:     "admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Println("✅ Seeded initial admin account")
	return nil
}
