// Package notify sends authority email notifications for high-severity
// reports.
package notify

import (
	"fmt"
	"strings"

	"coastal-alert-service/models"

	"github.com/apex/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// AuthorityNotifier emails the configured authority inbox when a report
// warrants attention. Failures are logged and absorbed; a broken mail
// provider never blocks report intake.
type AuthorityNotifier struct {
	apiKey    string
	fromEmail string
	toEmail   string
}

// NewAuthorityNotifier returns a notifier, or nil when no authority inbox is
// configured.
func NewAuthorityNotifier(apiKey, fromEmail, toEmail string) *AuthorityNotifier {
	if apiKey == "" || toEmail == "" {
		log.Warn("Authority email notification disabled (missing SendGrid key or inbox)")
		return nil
	}
	return &AuthorityNotifier{apiKey: apiKey, fromEmail: fromEmail, toEmail: toEmail}
}

// NotifyReport sends the notification for reports at high or critical
// severity. Lower severities are skipped.
func (n *AuthorityNotifier) NotifyReport(r *models.Report) {
	if n == nil {
		return
	}
	if r.Severity != "high" && r.Severity != "critical" {
		return
	}

	from := mail.NewEmail("Coastal Alert Service", n.fromEmail)
	to := mail.NewEmail("Authority Desk", n.toEmail)
	subject := fmt.Sprintf("[%s] %s report: %s", strings.ToUpper(r.Severity), r.ReportType, r.Title)

	plain := fmt.Sprintf(
		"Report %s\nType: %s\nSeverity: %s\nLocation: %s (%.5f, %.5f)\nPriority: %d\nTags: %s\n\n%s\n",
		r.ReportID, r.ReportType, r.Severity, r.Location,
		r.Coordinates.Lat, r.Coordinates.Lng, r.Priority,
		strings.Join(r.Tags, ", "), r.Description)

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = subject

	p := mail.NewPersonalization()
	p.AddTos(to)
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", plain))

	client := sendgrid.NewSendClient(n.apiKey)
	response, err := client.Send(message)
	if err != nil {
		log.Errorf("Error sending authority notification for report %s: %v", r.ReportID, err)
		return
	}
	log.Infof("Authority notified for report %s (status %d)", r.ReportID, response.StatusCode)
}
