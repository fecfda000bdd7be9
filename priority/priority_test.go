package priority

import (
	"testing"

	"coastal-alert-service/models"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	testCases := []struct {
		name     string
		severity string
		details  models.EmergencyDetails
		want     int
	}{
		{
			name:     "critical severity dominates",
			severity: "critical",
			want:     10,
		},
		{
			name:     "immediate risk dominates regardless of severity",
			severity: "low",
			details:  models.EmergencyDetails{ImmediateRisk: true},
			want:     10,
		},
		{
			name:     "critical with all flags still 10",
			severity: "critical",
			details:  models.EmergencyDetails{ImmediateRisk: true, EvacuationNeeded: true, InfrastructureDamage: true},
			want:     10,
		},
		{
			name:     "high severity",
			severity: "high",
			want:     8,
		},
		{
			name:     "evacuation needed raises medium to 8",
			severity: "medium",
			details:  models.EmergencyDetails{EvacuationNeeded: true},
			want:     8,
		},
		{
			name:     "medium without flags",
			severity: "medium",
			want:     5,
		},
		{
			name:     "low without flags",
			severity: "low",
			want:     3,
		},
		{
			name:     "infrastructure damage alone does not raise priority",
			severity: "low",
			details:  models.EmergencyDetails{InfrastructureDamage: true},
			want:     3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compute(tc.severity, tc.details))
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	details := models.EmergencyDetails{EvacuationNeeded: true}
	first := Compute("high", details)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compute("high", details))
	}
}

func TestDeriveTags(t *testing.T) {
	r := &models.Report{
		ReportType: "coastal",
		Severity:   "critical",
		EmergencyDetails: models.EmergencyDetails{
			ImmediateRisk:        true,
			EvacuationNeeded:     true,
			InfrastructureDamage: true,
		},
		Notifications: models.Notifications{UrgentAlert: true},
	}

	tags := DeriveTags(r)
	assert.Equal(t, []string{"coastal", "critical", "immediate_risk", "evacuation", "infrastructure", "urgent"}, tags)
}

func TestDeriveTagsMinimal(t *testing.T) {
	r := &models.Report{ReportType: "weather", Severity: "low"}
	assert.Equal(t, []string{"weather", "low"}, DeriveTags(r))
}

func TestDeriveTagsKeepsManualTags(t *testing.T) {
	r := &models.Report{
		ReportType: "marine",
		Severity:   "high",
		Tags:       []string{"hand_tagged"},
	}
	assert.Equal(t, []string{"hand_tagged"}, DeriveTags(r))
}

func TestStamp(t *testing.T) {
	r := &models.Report{
		ReportType:       "weather",
		Severity:         "medium",
		EmergencyDetails: models.EmergencyDetails{},
	}
	Stamp(r)
	assert.Equal(t, 5, r.Priority)
	assert.Contains(t, r.Tags, "weather")
	assert.Contains(t, r.Tags, "medium")
}
