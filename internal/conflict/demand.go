package conflict

import (
	"gorm.io/gorm"

	"github.com/voltera-ev/evscgo/internal/models"
)

// Demand is collected from two structurally different sources: reception
// parts embedded in a service reception, and standalone part requests.
// Each variant has its own normalization function producing the canonical
// models.Demand, so a schema change in either source fails loudly here
// instead of silently downstream.

// normalizeReceptionDemand converts an unapproved reception part into a
// canonical demand using its resolved appointment for ordering fields.
func normalizeReceptionDemand(rp models.ReceptionPart, appt models.Appointment) models.Demand {
	d := models.Demand{
		RequestID:         rp.ID,
		RequestType:       models.DemandFromReception,
		AppointmentID:     appt.ID,
		RequestedQuantity: rp.Quantity,
		Priority:          appt.Priority,
		ScheduledDate:     appt.ScheduledDate,
		ScheduledTime:     appt.ScheduledTime,
		RequestedAt:       rp.RequestedAt,
		CustomerID:        appt.CustomerID,
		StaffReviewStatus: rp.StaffReviewStatus,
		CanBeFulfilled:    false,
	}
	if appt.TechnicianID != nil {
		d.TechnicianID = *appt.TechnicianID
	}
	return d
}

// normalizePartRequestDemand converts a pending standalone part request
// into a canonical demand.
func normalizePartRequestDemand(pr models.PartRequest, appt models.Appointment) models.Demand {
	d := models.Demand{
		RequestID:         pr.ID,
		RequestType:       models.DemandFromPartRequest,
		AppointmentID:     appt.ID,
		RequestedQuantity: pr.Quantity,
		Priority:          appt.Priority,
		ScheduledDate:     appt.ScheduledDate,
		ScheduledTime:     appt.ScheduledTime,
		RequestedAt:       pr.RequestedAt,
		CustomerID:        appt.CustomerID,
		StaffReviewStatus: pr.StaffReviewStatus,
		CanBeFulfilled:    false,
	}
	if appt.TechnicianID != nil {
		d.TechnicianID = *appt.TechnicianID
	}
	return d
}

// CollectDemand gathers all currently-open demand for one part from both
// source collections and normalizes it. Runs on the caller's transaction.
// Rows whose appointment cannot be resolved are skipped, not errors: the
// caller may be racing an appointment deletion.
func CollectDemand(tx *gorm.DB, partID string) ([]models.Demand, error) {
	var receptionParts []models.ReceptionPart
	if err := tx.
		Joins("JOIN service_receptions ON service_receptions.id = reception_parts.reception_id").
		Where("reception_parts.part_id = ? AND reception_parts.is_approved = ? AND reception_parts.rejected = ?", partID, false, false).
		Where("service_receptions.deleted_at IS NULL").
		Preload("Reception").
		Find(&receptionParts).Error; err != nil {
		return nil, err
	}

	var partRequests []models.PartRequest
	if err := tx.
		Where("part_id = ? AND status = ?", partID, models.RequestPending).
		Find(&partRequests).Error; err != nil {
		return nil, err
	}

	// Resolve all referenced appointments in one query
	apptIDs := make([]string, 0, len(receptionParts)+len(partRequests))
	for _, rp := range receptionParts {
		if rp.Reception != nil {
			apptIDs = append(apptIDs, rp.Reception.AppointmentID)
		}
	}
	for _, pr := range partRequests {
		apptIDs = append(apptIDs, pr.AppointmentID)
	}
	if len(apptIDs) == 0 {
		return nil, nil
	}

	var appointments []models.Appointment
	if err := tx.Where("id IN ?", apptIDs).Find(&appointments).Error; err != nil {
		return nil, err
	}
	apptByID := make(map[string]models.Appointment, len(appointments))
	for _, a := range appointments {
		apptByID[a.ID] = a
	}

	demands := make([]models.Demand, 0, len(receptionParts)+len(partRequests))
	for _, rp := range receptionParts {
		if rp.Reception == nil {
			continue
		}
		appt, ok := apptByID[rp.Reception.AppointmentID]
		if !ok {
			continue
		}
		demands = append(demands, normalizeReceptionDemand(rp, appt))
	}
	for _, pr := range partRequests {
		appt, ok := apptByID[pr.AppointmentID]
		if !ok {
			continue
		}
		demands = append(demands, normalizePartRequestDemand(pr, appt))
	}
	return demands, nil
}
