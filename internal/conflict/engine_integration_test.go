package conflict

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/voltera-ev/evscgo/internal/config"
	"github.com/voltera-ev/evscgo/internal/database"
	"github.com/voltera-ev/evscgo/internal/models"
)

// eventRecorder captures notifications for assertions
type eventRecorder struct {
	events []string
}

func (r *eventRecorder) NotifyConflict(event string, _ *models.PartConflict) {
	r.events = append(r.events, event)
}

// Integration tests run against an embedded PostgreSQL instance and are
// opt-in: EVSC_DB_TESTS=1 go test -p 1 ./...
func newTestEngine(t *testing.T, notifier Notifier) (*Engine, *database.DB) {
	t.Helper()
	if os.Getenv("EVSC_DB_TESTS") == "" {
		t.Skip("set EVSC_DB_TESTS=1 to run database-backed tests")
	}

	db, err := database.Connect(config.DatabaseConfig{
		Host:     "localhost",
		Username: "postgres",
		Database: "evservice_test",
	})
	if err != nil {
		t.Fatalf("failed to start test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.AutoMigrate(
		&models.Customer{}, &models.Vehicle{}, &models.Part{},
		&models.Appointment{}, &models.ServiceReception{}, &models.ReceptionPart{},
		&models.PartRequest{}, &models.PartConflict{}, &models.ConflictCounter{},
	)
	if err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	// The embedded data directory survives between runs
	for _, table := range []string{
		"part_conflicts", "conflict_counters", "part_requests",
		"reception_parts", "service_receptions", "appointments",
		"parts", "vehicles", "customers",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("failed to clear %s: %v", table, err)
		}
	}

	engine := NewEngine(db, config.ConflictConfig{MaxRetries: 3}, notifier)
	if err := engine.EnsureIndexes(); err != nil {
		t.Fatalf("index creation failed: %v", err)
	}
	return engine, db
}

func seedShortage(t *testing.T, db *database.DB) (partID string) {
	t.Helper()

	customer := models.Customer{Name: "Casey Park"}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatal(err)
	}
	vehicle := models.Vehicle{CustomerID: customer.ID, VIN: "5YJ3E1EA7KF000001"}
	if err := db.Create(&vehicle).Error; err != nil {
		t.Fatal(err)
	}

	part := models.Part{PartNumber: "BAT-4680", Name: "Battery Module", CurrentStock: 10, ReservedStock: 2}
	if err := db.Create(&part).Error; err != nil {
		t.Fatal(err)
	}

	apptR1 := models.Appointment{
		CustomerID: customer.ID, VehicleID: vehicle.ID,
		ScheduledDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Priority:      models.PriorityNormal,
	}
	apptR2 := models.Appointment{
		CustomerID: customer.ID, VehicleID: vehicle.ID,
		ScheduledDate: time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
		Priority:      models.PriorityUrgent,
	}
	if err := db.Create(&apptR1).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&apptR2).Error; err != nil {
		t.Fatal(err)
	}

	rec := models.ServiceReception{AppointmentID: apptR1.ID}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatal(err)
	}
	r1 := models.ReceptionPart{
		ReceptionID: rec.ID, PartID: part.ID, Quantity: 5,
		RequestedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&r1).Error; err != nil {
		t.Fatal(err)
	}

	r2 := models.PartRequest{
		PartID: part.ID, AppointmentID: apptR2.ID, Quantity: 4,
		Status:      models.RequestPending,
		RequestedAt: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&r2).Error; err != nil {
		t.Fatal(err)
	}

	return part.ID
}

func TestDetectPartConflicts_CreatesAndUpdatesOneConflict(t *testing.T) {
	rec := &eventRecorder{}
	engine, db := newTestEngine(t, rec)
	partID := seedShortage(t, db)
	ctx := context.Background()

	first, err := engine.DetectPartConflicts(ctx, partID)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected a conflict (demand 9 > available 8)")
	}
	if first.TotalRequested != 9 || first.AvailableStock != 8 || first.Shortfall != 1 {
		t.Errorf("numbers wrong: total=%d available=%d shortfall=%d",
			first.TotalRequested, first.AvailableStock, first.Shortfall)
	}

	requests := []models.Demand(first.ConflictingRequests)
	if len(requests) != 2 {
		t.Fatalf("expected 2 conflicting requests, got %d", len(requests))
	}
	// Earlier-dated urgent standalone request first, fulfillable; the
	// later reception demand no longer fits
	if requests[0].RequestType != models.DemandFromPartRequest || !requests[0].CanBeFulfilled {
		t.Errorf("first request wrong: %+v", requests[0])
	}
	if requests[1].RequestType != models.DemandFromReception || requests[1].CanBeFulfilled {
		t.Errorf("second request wrong: %+v", requests[1])
	}

	// Idempotence: a second run with unchanged demand updates in place
	second, err := engine.DetectPartConflicts(ctx, partID)
	if err != nil {
		t.Fatalf("second detection failed: %v", err)
	}
	if second.ConflictNumber != first.ConflictNumber {
		t.Errorf("conflict number changed: %s -> %s", first.ConflictNumber, second.ConflictNumber)
	}

	var open int64
	db.Model(&models.PartConflict{}).
		Where("part_id = ? AND status IN ?", partID, models.OpenConflictStatuses).
		Count(&open)
	if open != 1 {
		t.Errorf("open conflicts = %d, want 1", open)
	}

	// First run announces a new shortage, the second a refresh
	want := []string{EventConflictDetected, EventConflictUpdated}
	if len(rec.events) != 2 || rec.events[0] != want[0] || rec.events[1] != want[1] {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestDetectPartConflicts_NoShortageCreatesNothing(t *testing.T) {
	engine, db := newTestEngine(t, nil)
	partID := seedShortage(t, db)
	ctx := context.Background()

	// Demand totals 9; raise stock so it fits comfortably
	if err := db.Model(&models.Part{}).Where("id = ?", partID).
		Update("current_stock", 20).Error; err != nil {
		t.Fatal(err)
	}

	conflict, err := engine.DetectPartConflicts(ctx, partID)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if conflict != nil {
		t.Errorf("demand fits stock, expected no conflict, got %+v", conflict)
	}

	var count int64
	db.Model(&models.PartConflict{}).Count(&count)
	if count != 0 {
		t.Errorf("part_conflicts rows = %d, want 0", count)
	}
}

func TestDetectPartConflicts_LeavesStaleConflictInPlace(t *testing.T) {
	engine, db := newTestEngine(t, nil)
	partID := seedShortage(t, db)
	ctx := context.Background()

	first, err := engine.DetectPartConflicts(ctx, partID)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected a conflict")
	}

	// Shrink the reception demand from 5 to 3: total 7 now fits the 8
	// available. Re-detection must return nil and leave the open conflict
	// untouched; clearing it is the auto-resolver's job.
	if err := db.Model(&models.ReceptionPart{}).
		Where("part_id = ?", partID).
		Update("quantity", 3).Error; err != nil {
		t.Fatal(err)
	}

	second, err := engine.DetectPartConflicts(ctx, partID)
	if err != nil {
		t.Fatalf("re-detection failed: %v", err)
	}
	if second != nil {
		t.Errorf("expected nil once demand fits stock, got %+v", second)
	}

	var row models.PartConflict
	if err := db.First(&row, "part_id = ?", partID).Error; err != nil {
		t.Fatalf("open conflict disappeared: %v", err)
	}
	if row.ConflictNumber != first.ConflictNumber {
		t.Errorf("conflict number changed: %s -> %s", first.ConflictNumber, row.ConflictNumber)
	}
	if row.Status != models.ConflictPending {
		t.Errorf("status = %s, want pending", row.Status)
	}
	if row.TotalRequested != first.TotalRequested || row.Shortfall != first.Shortfall {
		t.Errorf("stale conflict was refreshed: total=%d shortfall=%d", row.TotalRequested, row.Shortfall)
	}
}

func TestDetectPartConflicts_MissingPartReturnsNil(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	conflict, err := engine.DetectPartConflicts(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("missing part must not error: %v", err)
	}
	if conflict != nil {
		t.Error("missing part must yield no conflict")
	}
}

func TestAutoResolveConflicts_AfterRestock(t *testing.T) {
	engine, db := newTestEngine(t, nil)
	partID := seedShortage(t, db)
	ctx := context.Background()

	if _, err := engine.DetectPartConflicts(ctx, partID); err != nil {
		t.Fatalf("detection failed: %v", err)
	}

	// Restock to available = 9: both demands (4 + 5) now fit exactly
	if err := db.Model(&models.Part{}).Where("id = ?", partID).
		Update("current_stock", 11).Error; err != nil {
		t.Fatal(err)
	}

	resolved, err := engine.AutoResolveConflicts(ctx, partID)
	if err != nil {
		t.Fatalf("auto-resolution failed: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 touched conflict, got %d", len(resolved))
	}
	if resolved[0].Status != models.ConflictAutoResolved {
		t.Errorf("status = %s, want auto_resolved", resolved[0].Status)
	}
	if resolved[0].ResolvedAt == nil {
		t.Error("ResolvedAt not set")
	}

	var rp models.ReceptionPart
	if err := db.Where("part_id = ?", partID).First(&rp).Error; err != nil {
		t.Fatal(err)
	}
	if !rp.IsApproved || !rp.AutoApproved {
		t.Errorf("reception demand not auto-approved: %+v", rp)
	}

	var pr models.PartRequest
	if err := db.Where("part_id = ?", partID).First(&pr).Error; err != nil {
		t.Fatal(err)
	}
	if pr.Status != models.RequestApproved || !pr.AutoApproved {
		t.Errorf("part request not auto-approved: %+v", pr)
	}
}

func TestAutoResolveConflicts_PartialApproval(t *testing.T) {
	engine, db := newTestEngine(t, nil)
	partID := seedShortage(t, db)
	ctx := context.Background()

	if _, err := engine.DetectPartConflicts(ctx, partID); err != nil {
		t.Fatalf("detection failed: %v", err)
	}

	// No restock: available stays at 8. The urgent 4-unit request fits,
	// the 5-unit reception demand does not (8 - 4 = 4 < 5), so the
	// conflict ends up partially resolved.
	resolved, err := engine.AutoResolveConflicts(ctx, partID)
	if err != nil {
		t.Fatalf("auto-resolution failed: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 touched conflict, got %d", len(resolved))
	}
	if resolved[0].Status != models.ConflictPartiallyResolved {
		t.Errorf("status = %s, want partially_resolved", resolved[0].Status)
	}

	var pr models.PartRequest
	if err := db.Where("part_id = ?", partID).First(&pr).Error; err != nil {
		t.Fatal(err)
	}
	if pr.Status != models.RequestApproved {
		t.Errorf("urgent request should have been approved, got %s", pr.Status)
	}

	var rp models.ReceptionPart
	if err := db.Where("part_id = ?", partID).First(&rp).Error; err != nil {
		t.Fatal(err)
	}
	if rp.IsApproved {
		t.Error("5-unit reception demand must stay unapproved with 4 units left")
	}
}

func TestAutoResolveConflicts_NoProgressNotBroadcast(t *testing.T) {
	rec := &eventRecorder{}
	engine, db := newTestEngine(t, rec)
	partID := seedShortage(t, db)
	ctx := context.Background()

	if _, err := engine.DetectPartConflicts(ctx, partID); err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	rec.events = nil

	// Drop stock so neither demand fits (available 5-2=3, smallest is 4):
	// the conflict is re-evaluated but nothing changes
	if err := db.Model(&models.Part{}).Where("id = ?", partID).
		Update("current_stock", 5).Error; err != nil {
		t.Fatal(err)
	}

	touched, err := engine.AutoResolveConflicts(ctx, partID)
	if err != nil {
		t.Fatalf("auto-resolution failed: %v", err)
	}
	if len(touched) != 1 {
		t.Fatalf("expected 1 touched conflict, got %d", len(touched))
	}
	if touched[0].Status != models.ConflictPending {
		t.Errorf("status = %s, want pending", touched[0].Status)
	}
	if len(rec.events) != 0 {
		t.Errorf("unchanged conflict must not be broadcast, got %v", rec.events)
	}
}
