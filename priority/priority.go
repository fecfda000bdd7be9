// Package priority derives the urgency score and tag set of a report at
// creation time. Both derivations are pure functions of the report fields.
package priority

import "coastal-alert-service/models"

// Compute returns the priority score in [1, 10] for the given severity and
// emergency flags. Critical severity or an immediate risk flag dominates
// everything else.
func Compute(severity string, details models.EmergencyDetails) int {
	switch {
	case severity == "critical" || details.ImmediateRisk:
		return 10
	case severity == "high" || details.EvacuationNeeded:
		return 8
	case severity == "medium":
		return 5
	default:
		return 3
	}
}

// DeriveTags returns the auto-derived tag set for a report. Reports that
// already carry manual tags are returned unchanged.
func DeriveTags(r *models.Report) []string {
	if len(r.Tags) > 0 {
		return r.Tags
	}

	tags := []string{r.ReportType, r.Severity}
	if r.EmergencyDetails.ImmediateRisk {
		tags = append(tags, "immediate_risk")
	}
	if r.EmergencyDetails.EvacuationNeeded {
		tags = append(tags, "evacuation")
	}
	if r.EmergencyDetails.InfrastructureDamage {
		tags = append(tags, "infrastructure")
	}
	if r.Notifications.UrgentAlert {
		tags = append(tags, "urgent")
	}
	return tags
}

// Stamp applies Compute and DeriveTags to a freshly created report.
func Stamp(r *models.Report) {
	r.Priority = Compute(r.Severity, r.EmergencyDetails)
	r.Tags = DeriveTags(r)
}
