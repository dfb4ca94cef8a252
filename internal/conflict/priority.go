package conflict

import (
	"sort"
	"strconv"
	"strings"

	"github.com/voltera-ev/evscgo/internal/models"
)

var priorityRank = map[models.AppointmentPriority]int{
	models.PriorityUrgent: 4,
	models.PriorityHigh:   3,
	models.PriorityNormal: 2,
	models.PriorityLow:    1,
}

func rankOf(p models.AppointmentPriority) int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return priorityRank[models.PriorityNormal]
}

// minutesOfDay parses "HH:MM" into minutes since midnight.
// Returns false for anything it cannot parse.
func minutesOfDay(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// demandLess is the total-order comparator over demands:
// schedule date, schedule time, business priority, arrival order.
func demandLess(a, b models.Demand) bool {
	if !a.ScheduledDate.Equal(b.ScheduledDate) {
		return a.ScheduledDate.Before(b.ScheduledDate)
	}

	ta, okA := minutesOfDay(a.ScheduledTime)
	tb, okB := minutesOfDay(b.ScheduledTime)
	if okA && okB && ta != tb {
		return ta < tb
	}

	ra, rb := rankOf(a.Priority), rankOf(b.Priority)
	if ra != rb {
		return ra > rb
	}

	if !a.RequestedAt.Equal(b.RequestedAt) {
		return a.RequestedAt.Before(b.RequestedAt)
	}

	// True tie: stable sort preserves input order (FIFO by construction)
	return false
}

// PrioritizeRequests returns the demands in deterministic priority order.
// Pure and stable: equal demands keep their input order, so repeated runs
// over identical input yield identical output.
func PrioritizeRequests(demands []models.Demand) []models.Demand {
	sorted := make([]models.Demand, len(demands))
	copy(sorted, demands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return demandLess(sorted[i], sorted[j])
	})
	return sorted
}

// allocate runs the greedy prefix allocation over an already-sorted demand
// list. Feasible demands deplete remaining stock; infeasible demands do
// not hold stock back. Depletion is monotonic: stock only shrinks, so the
// feasibility boundary never moves right again. The list must not be
// reordered afterwards.
func allocate(sorted []models.Demand, availableStock int) []models.Demand {
	annotated := make([]models.Demand, len(sorted))
	copy(annotated, sorted)

	remaining := availableStock
	for i := range annotated {
		if remaining >= annotated[i].RequestedQuantity {
			annotated[i].CanBeFulfilled = true
			annotated[i].AllocationPriority = models.AllocationHigh
			remaining -= annotated[i].RequestedQuantity
		} else {
			annotated[i].CanBeFulfilled = false
			annotated[i].AllocationPriority = models.AllocationLow
		}
	}
	return annotated
}
