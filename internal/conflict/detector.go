package conflict

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voltera-ev/evscgo/internal/config"
	"github.com/voltera-ev/evscgo/internal/database"
	"github.com/voltera-ev/evscgo/internal/models"
)

// Notifier receives conflict lifecycle events. Implemented by the
// websocket hub; nil-safe in the engine.
type Notifier interface {
	NotifyConflict(event string, conflict *models.PartConflict)
}

// Conflict lifecycle event names published to the Notifier
const (
	EventConflictDetected = "conflict.detected"
	EventConflictResolved = "conflict.resolved"
	EventConflictUpdated  = "conflict.updated"
)

// Engine detects part allocation conflicts and resolves them after
// restocks. All writes go through serializable transactions; collisions
// between concurrent invocations surface as transient write conflicts and
// are absorbed by RetryOnWriteConflict.
type Engine struct {
	db         *database.DB
	maxRetries int
	notifier   Notifier
}

// NewEngine creates a conflict engine
func NewEngine(db *database.DB, cfg config.ConflictConfig, notifier Notifier) *Engine {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Engine{
		db:         db,
		maxRetries: maxRetries,
		notifier:   notifier,
	}
}

// EnsureIndexes creates the partial unique index backing the
// at-most-one-open-conflict-per-part invariant. AutoMigrate cannot express
// partial indexes, so this runs right after it.
func (e *Engine) EnsureIndexes() error {
	return e.db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_part_conflicts_one_open
		 ON part_conflicts (part_id)
		 WHERE status IN ('pending', 'partially_resolved')`,
	).Error
}

// DetectPartConflicts checks whether open demand for a part exceeds its
// available stock and, if so, upserts the single open conflict record for
// it. Returns nil without error when the part is missing or there is no
// shortage. A previously open conflict is left in place when demand later
// fits stock; clearing it is the auto-resolver's job.
func (e *Engine) DetectPartConflicts(ctx context.Context, partID string) (*models.PartConflict, error) {
	type detection struct {
		conflict *models.PartConflict
		created  bool
	}
	result, err := RetryOnWriteConflict(ctx, e.maxRetries, func() (detection, error) {
		var detected detection
		txErr := e.db.SerializableTx(ctx, func(tx *gorm.DB) error {
			detected = detection{}
			var part models.Part
			if err := tx.First(&part, "id = ?", partID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// Caller may be racing a part deletion
					return nil
				}
				return err
			}

			availableStock := part.AvailableStock()

			demands, err := CollectDemand(tx, partID)
			if err != nil {
				return err
			}
			if len(demands) == 0 {
				return nil
			}

			totalRequested := 0
			for _, d := range demands {
				totalRequested += d.RequestedQuantity
			}
			if totalRequested <= availableStock {
				return nil
			}

			annotated := allocate(PrioritizeRequests(demands), availableStock)

			conflict, created, err := e.upsertOpenConflict(tx, &part, availableStock, totalRequested, annotated)
			if err != nil {
				return err
			}
			detected = detection{conflict: conflict, created: created}
			return nil
		})
		if txErr != nil {
			return detection{}, txErr
		}
		return detected, nil
	})
	if err != nil {
		return nil, err
	}

	if result.conflict != nil && e.notifier != nil {
		// A refreshed conflict is an update, not a new shortage
		if result.created {
			e.notifier.NotifyConflict(EventConflictDetected, result.conflict)
		} else {
			e.notifier.NotifyConflict(EventConflictUpdated, result.conflict)
		}
	}
	return result.conflict, nil
}

// upsertOpenConflict refreshes the existing open conflict for the part or
// inserts a fresh pending one. The UPDATE is a single conditional write;
// the INSERT carries an ON CONFLICT clause against the partial unique
// index so a racing insert degrades into an update instead of a duplicate.
// Updating first keeps conflict numbers gapless: a number is only
// allocated once no open conflict exists.
func (e *Engine) upsertOpenConflict(tx *gorm.DB, part *models.Part, availableStock, totalRequested int, requests []models.Demand) (*models.PartConflict, bool, error) {
	shortfall := totalRequested - availableStock
	now := time.Now().UTC()

	res := tx.Model(&models.PartConflict{}).
		Where("part_id = ? AND status IN ?", part.ID, models.OpenConflictStatuses).
		Updates(map[string]interface{}{
			"available_stock":      availableStock,
			"total_requested":      totalRequested,
			"shortfall":            shortfall,
			"conflicting_requests": datatypesJSON(requests),
			"updated_at":           now,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 0

	if created {
		number, err := e.nextConflictNumber(tx)
		if err != nil {
			return nil, false, err
		}
		conflict := models.PartConflict{
			ConflictNumber:      number,
			PartID:              part.ID,
			PartName:            part.Name,
			PartNumber:          part.PartNumber,
			AvailableStock:      availableStock,
			TotalRequested:      totalRequested,
			Shortfall:           shortfall,
			ConflictingRequests: requests,
			Status:              models.ConflictPending,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "part_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "status IN ('pending', 'partially_resolved')"},
			}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"available_stock":      availableStock,
				"total_requested":      totalRequested,
				"shortfall":            shortfall,
				"conflicting_requests": datatypesJSON(requests),
				"updated_at":           now,
			}),
		}).Create(&conflict).Error; err != nil {
			return nil, false, err
		}
	}

	var current models.PartConflict
	if err := tx.Where("part_id = ? AND status IN ?", part.ID, models.OpenConflictStatuses).
		First(&current).Error; err != nil {
		return nil, false, err
	}
	return &current, created, nil
}

// nextConflictNumber allocates the next sequential conflict number from
// the counter row, locked for the duration of the transaction.
func (e *Engine) nextConflictNumber(tx *gorm.DB) (string, error) {
	var counter models.ConflictCounter
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(models.ConflictCounter{ID: 1}).
		Attrs(models.ConflictCounter{NextValue: 1}).
		FirstOrCreate(&counter).Error; err != nil {
		return "", err
	}
	seq := counter.NextValue
	if err := tx.Model(&models.ConflictCounter{}).
		Where("id = ?", 1).
		Update("next_value", seq+1).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("PC-%05d", seq), nil
}

// CreateConflictRecord allocates a conflict number and persists the given
// conflict. tx may be nil; pass one to compose with an enclosing
// transaction.
func (e *Engine) CreateConflictRecord(ctx context.Context, conflict *models.PartConflict, tx *gorm.DB) (*models.PartConflict, error) {
	if tx == nil {
		tx = e.db.WithContext(ctx)
	}
	if conflict.ConflictNumber == "" {
		number, err := e.nextConflictNumber(tx)
		if err != nil {
			return nil, err
		}
		conflict.ConflictNumber = number
	}
	if conflict.Status == "" {
		conflict.Status = models.ConflictPending
	}
	if err := tx.Create(conflict).Error; err != nil {
		return nil, err
	}
	return conflict, nil
}

// DetectAllConflicts runs detection for every part with positive stock.
// Deliberately sequential: running detections concurrently multiplies
// serialization failures on the same conflict and demand tables, and the
// retry traffic costs more than the latency saved. Per-part failures are
// logged and skipped so one bad part cannot abort the scan.
func (e *Engine) DetectAllConflicts(ctx context.Context) ([]*models.PartConflict, error) {
	var partIDs []string
	if err := e.db.WithContext(ctx).Model(&models.Part{}).
		Where("current_stock > 0").
		Order("part_number").
		Pluck("id", &partIDs).Error; err != nil {
		return nil, err
	}

	conflicts := make([]*models.PartConflict, 0)
	for _, partID := range partIDs {
		conflict, err := e.DetectPartConflicts(ctx, partID)
		if err != nil {
			log.Printf("⚠️ Conflict scan: part %s failed: %v", partID, err)
			continue
		}
		if conflict != nil {
			conflicts = append(conflicts, conflict)
		}
	}
	return conflicts, nil
}
