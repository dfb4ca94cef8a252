package conflict

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/voltera-ev/evscgo/internal/models"
)

func datatypesJSON(requests []models.Demand) datatypes.JSONSlice[models.Demand] {
	return datatypes.JSONSlice[models.Demand](requests)
}

// demandState is the live status of one snapshot demand, read back from
// its source collection during auto-resolution.
type demandState struct {
	exists       bool
	pending      bool
	autoApproved bool
	terminal     bool
}

func (e *Engine) lookupDemandState(tx *gorm.DB, d models.Demand) (demandState, error) {
	switch d.RequestType {
	case models.DemandFromReception:
		var rp models.ReceptionPart
		if err := tx.First(&rp, "id = ?", d.RequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return demandState{}, nil
			}
			return demandState{}, err
		}
		return demandState{
			exists:       true,
			pending:      !rp.IsApproved && !rp.Rejected,
			autoApproved: rp.AutoApproved,
			terminal:     rp.IsApproved || rp.Rejected,
		}, nil
	case models.DemandFromPartRequest:
		var pr models.PartRequest
		if err := tx.First(&pr, "id = ?", d.RequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return demandState{}, nil
			}
			return demandState{}, err
		}
		return demandState{
			exists:       true,
			pending:      pr.Status == models.RequestPending,
			autoApproved: pr.AutoApproved,
			terminal:     pr.Status == models.RequestApproved || pr.Status == models.RequestRejected,
		}, nil
	}
	return demandState{}, nil
}

// approveDemand marks the underlying source record approved with the
// auto-approved flag set. Part stock is untouched: applying the implied
// reservation is the restock caller's responsibility.
func (e *Engine) approveDemand(tx *gorm.DB, d models.Demand, now time.Time) error {
	switch d.RequestType {
	case models.DemandFromReception:
		return tx.Model(&models.ReceptionPart{}).
			Where("id = ?", d.RequestID).
			Updates(map[string]interface{}{
				"is_approved":   true,
				"auto_approved": true,
				"approved_at":   now,
			}).Error
	case models.DemandFromPartRequest:
		return tx.Model(&models.PartRequest{}).
			Where("id = ?", d.RequestID).
			Updates(map[string]interface{}{
				"status":        models.RequestApproved,
				"auto_approved": true,
				"approved_at":   now,
			}).Error
	}
	return nil
}

// AutoResolveConflicts re-evaluates every open conflict for a part after a
// stock change. Demands that now fit available stock are approved in
// priority order; a conflict whose demands have all reached a terminal
// state transitions to auto_resolved, one with mixed progress to
// partially_resolved. Returns every open conflict it touched, changed or
// not.
func (e *Engine) AutoResolveConflicts(ctx context.Context, partID string) ([]*models.PartConflict, error) {
	type resolution struct {
		touched []*models.PartConflict
		saved   []*models.PartConflict
	}
	outcome, err := RetryOnWriteConflict(ctx, e.maxRetries, func() (resolution, error) {
		var out resolution
		txErr := e.db.SerializableTx(ctx, func(tx *gorm.DB) error {
			out = resolution{}

			var part models.Part
			if err := tx.First(&part, "id = ?", partID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}

			var conflicts []models.PartConflict
			if err := tx.
				Where("part_id = ? AND status IN ?", partID, models.OpenConflictStatuses).
				Order("created_at").
				Find(&conflicts).Error; err != nil {
				return err
			}

			remainingStock := part.AvailableStock()
			now := time.Now().UTC()

			for i := range conflicts {
				conflict := &conflicts[i]

				snapshot := []models.Demand(conflict.ConflictingRequests)

				// Split the snapshot into still-open candidates and the rest
				states := make(map[string]demandState, len(snapshot))
				candidates := make([]models.Demand, 0, len(snapshot))
				for _, d := range snapshot {
					state, err := e.lookupDemandState(tx, d)
					if err != nil {
						return err
					}
					states[d.RequestID] = state
					if state.exists && state.pending && !state.autoApproved {
						candidates = append(candidates, d)
					}
				}

				progress := false
				approved := make(map[string]bool)
				for _, d := range PrioritizeRequests(candidates) {
					if remainingStock < d.RequestedQuantity {
						continue
					}
					if err := e.approveDemand(tx, d, now); err != nil {
						return err
					}
					remainingStock -= d.RequestedQuantity
					approved[d.RequestID] = true
					progress = true
				}

				// All demands terminal (or gone) -> conflict is done
				allTerminal := true
				for _, d := range snapshot {
					state := states[d.RequestID]
					if !state.exists || approved[d.RequestID] {
						continue
					}
					if !state.terminal {
						allTerminal = false
						break
					}
				}

				if !progress && !allTerminal {
					out.touched = append(out.touched, conflict)
					continue
				}

				// Refresh snapshot annotations for the approved demands
				for j := range snapshot {
					if approved[snapshot[j].RequestID] {
						snapshot[j].CanBeFulfilled = true
						snapshot[j].AllocationPriority = models.AllocationHigh
					}
				}
				conflict.ConflictingRequests = datatypesJSON(snapshot)

				if allTerminal {
					conflict.Status = models.ConflictAutoResolved
					conflict.ResolvedAt = &now
				} else {
					conflict.Status = models.ConflictPartiallyResolved
				}
				if err := tx.Save(conflict).Error; err != nil {
					return err
				}
				out.touched = append(out.touched, conflict)
				out.saved = append(out.saved, conflict)
			}
			return nil
		})
		if txErr != nil {
			return resolution{}, txErr
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	// Only conflicts that actually changed are announced; re-evaluating an
	// unchanged conflict is not news to a dashboard
	if e.notifier != nil {
		for _, c := range outcome.saved {
			if c.Status == models.ConflictAutoResolved {
				e.notifier.NotifyConflict(EventConflictResolved, c)
			} else {
				e.notifier.NotifyConflict(EventConflictUpdated, c)
			}
		}
	}
	return outcome.touched, nil
}
