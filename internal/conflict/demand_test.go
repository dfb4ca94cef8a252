package conflict

import (
	"testing"
	"time"

	"github.com/voltera-ev/evscgo/internal/models"
)

func TestNormalizeReceptionDemand(t *testing.T) {
	tech := "tech-1"
	requestedAt := time.Date(2026, 1, 3, 11, 30, 0, 0, time.UTC)
	appt := models.Appointment{
		ID:            "appt-1",
		CustomerID:    "cust-1",
		TechnicianID:  &tech,
		Priority:      models.PriorityHigh,
		ScheduledDate: day("2026-01-10"),
		ScheduledTime: "09:00",
	}
	rp := models.ReceptionPart{
		ID:                "rp-1",
		Quantity:          3,
		RequestedAt:       requestedAt,
		StaffReviewStatus: "pending",
	}

	d := normalizeReceptionDemand(rp, appt)

	if d.RequestType != models.DemandFromReception {
		t.Errorf("RequestType = %s", d.RequestType)
	}
	if d.RequestID != "rp-1" || d.AppointmentID != "appt-1" || d.CustomerID != "cust-1" {
		t.Errorf("identity fields wrong: %+v", d)
	}
	if d.TechnicianID != "tech-1" {
		t.Errorf("TechnicianID = %q", d.TechnicianID)
	}
	if d.RequestedQuantity != 3 || d.Priority != models.PriorityHigh {
		t.Errorf("quantity/priority wrong: %+v", d)
	}
	if !d.ScheduledDate.Equal(appt.ScheduledDate) || d.ScheduledTime != "09:00" {
		t.Errorf("schedule fields wrong: %+v", d)
	}
	if !d.RequestedAt.Equal(requestedAt) {
		t.Errorf("RequestedAt = %v", d.RequestedAt)
	}
	if d.CanBeFulfilled {
		t.Error("CanBeFulfilled must start false; the allocation pass sets it")
	}
}

func TestNormalizePartRequestDemand(t *testing.T) {
	requestedAt := time.Date(2026, 1, 4, 8, 0, 0, 0, time.UTC)
	appt := models.Appointment{
		ID:            "appt-2",
		CustomerID:    "cust-2",
		Priority:      models.PriorityUrgent,
		ScheduledDate: day("2026-01-09"),
	}
	pr := models.PartRequest{
		ID:                "req-1",
		Quantity:          2,
		RequestedAt:       requestedAt,
		StaffReviewStatus: "pending",
	}

	d := normalizePartRequestDemand(pr, appt)

	if d.RequestType != models.DemandFromPartRequest {
		t.Errorf("RequestType = %s", d.RequestType)
	}
	if d.RequestID != "req-1" || d.RequestedQuantity != 2 {
		t.Errorf("fields wrong: %+v", d)
	}
	if d.TechnicianID != "" {
		t.Errorf("TechnicianID should be empty without an assigned technician, got %q", d.TechnicianID)
	}
	if d.Priority != models.PriorityUrgent {
		t.Errorf("Priority = %s", d.Priority)
	}
	if d.CanBeFulfilled {
		t.Error("CanBeFulfilled must start false")
	}
}

// Both variants of the same logical demand must normalize to comparable
// records so the prioritization policy can order them together.
func TestNormalization_VariantsAreComparable(t *testing.T) {
	appt := models.Appointment{
		ID:            "appt-3",
		Priority:      models.PriorityNormal,
		ScheduledDate: day("2026-01-15"),
		ScheduledTime: "10:30",
	}
	at := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	fromReception := normalizeReceptionDemand(models.ReceptionPart{ID: "a", Quantity: 1, RequestedAt: at}, appt)
	fromRequest := normalizePartRequestDemand(models.PartRequest{ID: "b", Quantity: 1, RequestedAt: at.Add(time.Second)}, appt)

	sorted := PrioritizeRequests([]models.Demand{fromRequest, fromReception})
	if sorted[0].RequestID != "a" {
		t.Errorf("expected earlier-requested reception demand first, got %v", ids(sorted))
	}
}
