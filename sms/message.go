package sms

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"coastal-alert-service/models"
)

// MaxMessageLength is the single-segment SMS limit. Lengths are counted in
// runes, tracking the provider's per-character accounting rather than the
// UTF-8 byte size.
const MaxMessageLength = 160

// ComposeAlert builds the outbound emergency text for a report. A non-empty
// custom message is used verbatim. Generated messages that overflow the SMS
// budget are replaced by a shorter canonical form.
func ComposeAlert(r *models.Report, custom string) string {
	if custom != "" {
		return custom
	}

	prefix := severityPrefix(r.Severity)
	location := strings.TrimSpace(strings.Split(r.Location, ",")[0])

	msg := fmt.Sprintf("%s%s reported near %s.", prefix, r.Title, location)

	switch {
	case r.ReportType == "weather" && r.Severity == "critical":
		msg += " Seek immediate shelter. Avoid outdoor activities."
	case r.ReportType == "coastal" && r.EmergencyDetails.EvacuationNeeded:
		msg += " Consider evacuation from low-lying areas."
	case r.ReportType == "infrastructure":
		msg += " Avoid the affected area. Use alternate routes."
	case r.ReportType == "marine":
		msg += " Stay away from water. Boaters return to shore immediately."
	}

	msg += fmt.Sprintf(" Report ID: %s. Stay safe and follow local authorities.", r.ReportID)

	if utf8.RuneCountInString(msg) > MaxMessageLength {
		// Keep the essential part only. Very long titles can still push this
		// over the budget; the transport then splits the message into
		// segments, matching the behavior the field teams already rely on.
		msg = fmt.Sprintf("%s%s near %s. Report: %s. Stay safe.", prefix, r.Title, location, r.ReportID)
	}

	return msg
}

// IsUrgent reports whether the alert should be flagged urgent at the
// transport level.
func IsUrgent(r *models.Report) bool {
	return r.Severity == "critical" || r.EmergencyDetails.ImmediateRisk
}

func severityPrefix(severity string) string {
	switch severity {
	case "critical":
		return "🚨 EMERGENCY: "
	case "high":
		return "⚠️ URGENT ALERT: "
	default:
		return "📢 COMMUNITY ALERT: "
	}
}
