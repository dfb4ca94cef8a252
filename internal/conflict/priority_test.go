package conflict

import (
	"testing"
	"time"

	"github.com/voltera-ev/evscgo/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMinutesOfDay(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"09:30", 570, true},
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"9", 0, false},
		{"", 0, false},
		{"ab:cd", 0, false},
	}
	for _, c := range cases {
		got, ok := minutesOfDay(c.in)
		if ok != c.wantOK || got != c.want {
			t.Errorf("minutesOfDay(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestPrioritizeRequests_Ordering(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	demands := []models.Demand{
		{RequestID: "late-date", ScheduledDate: day("2026-01-12"), Priority: models.PriorityUrgent, RequestedAt: base},
		{RequestID: "early-date", ScheduledDate: day("2026-01-10"), Priority: models.PriorityLow, RequestedAt: base},
		{RequestID: "same-day-later", ScheduledDate: day("2026-01-10"), ScheduledTime: "14:00", Priority: models.PriorityLow, RequestedAt: base},
		{RequestID: "same-day-earlier", ScheduledDate: day("2026-01-10"), ScheduledTime: "08:15", Priority: models.PriorityLow, RequestedAt: base},
	}

	sorted := PrioritizeRequests(demands)

	// Earlier date always beats higher business priority
	if sorted[len(sorted)-1].RequestID != "late-date" {
		t.Errorf("expected late-date last, got %s", sorted[len(sorted)-1].RequestID)
	}
	// Within the same day, earlier time wins
	idxEarlier, idxLater := indexOf(t, sorted, "same-day-earlier"), indexOf(t, sorted, "same-day-later")
	if idxEarlier > idxLater {
		t.Errorf("expected 08:15 before 14:00, got order %v", ids(sorted))
	}
}

func TestPrioritizeRequests_PriorityThenArrival(t *testing.T) {
	d := day("2026-02-01")
	t1 := time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	demands := []models.Demand{
		{RequestID: "normal-first", ScheduledDate: d, Priority: models.PriorityNormal, RequestedAt: t1},
		{RequestID: "urgent", ScheduledDate: d, Priority: models.PriorityUrgent, RequestedAt: t2},
		{RequestID: "unset-priority", ScheduledDate: d, RequestedAt: t1.Add(-time.Hour)},
	}

	sorted := PrioritizeRequests(demands)
	if sorted[0].RequestID != "urgent" {
		t.Errorf("expected urgent first, got %v", ids(sorted))
	}
	// Unset priority defaults to normal; earlier arrival wins the tie
	if sorted[1].RequestID != "unset-priority" || sorted[2].RequestID != "normal-first" {
		t.Errorf("expected FIFO among normals, got %v", ids(sorted))
	}
}

func TestPrioritizeRequests_StableOnFullTie(t *testing.T) {
	d := day("2026-03-01")
	at := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

	demands := []models.Demand{
		{RequestID: "a", ScheduledDate: d, ScheduledTime: "10:00", Priority: models.PriorityHigh, RequestedAt: at},
		{RequestID: "b", ScheduledDate: d, ScheduledTime: "10:00", Priority: models.PriorityHigh, RequestedAt: at},
		{RequestID: "c", ScheduledDate: d, ScheduledTime: "10:00", Priority: models.PriorityHigh, RequestedAt: at},
	}

	for run := 0; run < 5; run++ {
		sorted := PrioritizeRequests(demands)
		if sorted[0].RequestID != "a" || sorted[1].RequestID != "b" || sorted[2].RequestID != "c" {
			t.Fatalf("run %d: full tie must preserve input order, got %v", run, ids(sorted))
		}
	}
}

func TestPrioritizeRequests_DoesNotMutateInput(t *testing.T) {
	demands := []models.Demand{
		{RequestID: "x", ScheduledDate: day("2026-01-02")},
		{RequestID: "y", ScheduledDate: day("2026-01-01")},
	}
	_ = PrioritizeRequests(demands)
	if demands[0].RequestID != "x" {
		t.Error("input slice was reordered")
	}
}

func TestAllocate_GreedyDepletion(t *testing.T) {
	d := day("2026-01-10")
	demands := []models.Demand{
		{RequestID: "first", RequestedQuantity: 4, ScheduledDate: d},
		{RequestID: "second", RequestedQuantity: 5, ScheduledDate: d},
		{RequestID: "third", RequestedQuantity: 3, ScheduledDate: d},
	}

	annotated := allocate(demands, 8)

	// first fits (8-4=4), second does not (needs 5), third fits in the 4 left
	wantFulfilled := map[string]bool{"first": true, "second": false, "third": true}
	for _, a := range annotated {
		if a.CanBeFulfilled != wantFulfilled[a.RequestID] {
			t.Errorf("%s: CanBeFulfilled = %v, want %v", a.RequestID, a.CanBeFulfilled, wantFulfilled[a.RequestID])
		}
		wantPrio := models.AllocationLow
		if wantFulfilled[a.RequestID] {
			wantPrio = models.AllocationHigh
		}
		if a.AllocationPriority != wantPrio {
			t.Errorf("%s: AllocationPriority = %s, want %s", a.RequestID, a.AllocationPriority, wantPrio)
		}
	}
}

func TestAllocate_MonotonicBoundaryWhenDepleted(t *testing.T) {
	d := day("2026-01-10")
	demands := []models.Demand{
		{RequestID: "a", RequestedQuantity: 5, ScheduledDate: d},
		{RequestID: "b", RequestedQuantity: 1, ScheduledDate: d},
		{RequestID: "c", RequestedQuantity: 1, ScheduledDate: d},
	}

	// Stock depletes on "a" and "b"; everything after the last success
	// that no longer fits stays infeasible
	annotated := allocate(demands, 5)
	if !annotated[0].CanBeFulfilled || annotated[1].CanBeFulfilled || annotated[2].CanBeFulfilled {
		t.Errorf("unexpected feasibility: %+v", annotated)
	}
}

func TestAllocate_ZeroStock(t *testing.T) {
	annotated := allocate([]models.Demand{
		{RequestID: "a", RequestedQuantity: 1},
	}, 0)
	if annotated[0].CanBeFulfilled {
		t.Error("nothing is feasible with zero stock")
	}
}

// The concrete shortage scenario: available=8, R2 (earlier date, urgent)
// beats R1 despite arriving later; R1 no longer fits afterwards.
func TestPrioritizeAndAllocate_ShortageScenario(t *testing.T) {
	t1 := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	demands := []models.Demand{
		{RequestID: "R1", RequestedQuantity: 5, ScheduledDate: day("2026-01-10"), Priority: models.PriorityNormal, RequestedAt: t1},
		{RequestID: "R2", RequestedQuantity: 4, ScheduledDate: day("2026-01-09"), Priority: models.PriorityUrgent, RequestedAt: t1.Add(time.Minute)},
	}

	total := 0
	for _, d := range demands {
		total += d.RequestedQuantity
	}
	if total != 9 {
		t.Fatalf("totalRequested = %d, want 9", total)
	}
	if shortfall := total - 8; shortfall != 1 {
		t.Fatalf("shortfall = %d, want 1", shortfall)
	}

	annotated := allocate(PrioritizeRequests(demands), 8)

	if annotated[0].RequestID != "R2" || annotated[1].RequestID != "R1" {
		t.Fatalf("expected [R2 R1], got %v", ids(annotated))
	}
	if !annotated[0].CanBeFulfilled {
		t.Error("R2 should be fulfillable (8-4=4 remain)")
	}
	if annotated[1].CanBeFulfilled {
		t.Error("R1 should not be fulfillable (needs 5, only 4 remain)")
	}
}

func indexOf(t *testing.T, demands []models.Demand, id string) int {
	t.Helper()
	for i, d := range demands {
		if d.RequestID == id {
			return i
		}
	}
	t.Fatalf("demand %s not found", id)
	return -1
}

func ids(demands []models.Demand) []string {
	out := make([]string, len(demands))
	for i, d := range demands {
		out[i] = d.RequestID
	}
	return out
}
