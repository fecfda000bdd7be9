package models

import (
	"fmt"
	"time"
)

// Report type, severity and status enumerations. These mirror the values
// accepted by the mobile client.
var (
	ReportTypes = []string{"weather", "coastal", "infrastructure", "marine", "environmental"}
	Severities  = []string{"low", "medium", "high", "critical"}
	Statuses    = []string{"active", "investigating", "resolved", "false_alarm"}
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the coordinate ranges.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %g out of range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %g out of range [-180, 180]", c.Lng)
	}
	return nil
}

// ContactInfo identifies the person who submitted a report.
type ContactInfo struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// EmergencyDetails carries the emergency flags that drive priority and
// message composition.
type EmergencyDetails struct {
	ImmediateRisk        bool   `json:"immediateRisk"`
	EvacuationNeeded     bool   `json:"evacuationNeeded"`
	InfrastructureDamage bool   `json:"infrastructureDamage"`
	AffectedArea         string `json:"affectedArea,omitempty"`
	EstimatedPeople      string `json:"estimatedPeople,omitempty"`
}

// Notifications is the per-report alerting configuration.
type Notifications struct {
	SMSRadius   int  `json:"smsRadius"`
	UrgentAlert bool `json:"urgentAlert"`
}

// RecipientLog is one entry of the append-only dispatch log.
type RecipientLog struct {
	Phone  string    `json:"phone"`
	Status string    `json:"status"` // sent, delivered, failed
	SentAt time.Time `json:"sentAt"`
}

// SMSAlerts is the dispatch bookkeeping block of a report. The counters are
// monotonically non-decreasing and sent == successful + failed after every
// dispatch settles.
type SMSAlerts struct {
	Sent       int            `json:"sent"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	LastSentAt *time.Time     `json:"lastSentAt,omitempty"`
	Recipients []RecipientLog `json:"recipients"`
}

// Response is one operator response logged against a report.
type Response struct {
	ResponderID   string    `json:"responderId"`
	ResponderType string    `json:"responderType"` // authority, emergency_service, community_member, system
	Message       string    `json:"message"`
	Action        string    `json:"action"` // investigating, dispatched, resolved, false_alarm, info_request
	Timestamp     time.Time `json:"timestamp"`
}

// Verification records operator verification of a report.
type Verification struct {
	Verified   bool       `json:"verified"`
	VerifiedBy string     `json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// MediaFile describes one uploaded attachment.
type MediaFile struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimetype"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Report is one community-submitted hazard report.
type Report struct {
	Seq              int64            `json:"-"`
	ReportID         string           `json:"reportId"`
	ReportType       string           `json:"reportType"`
	Severity         string           `json:"severity"`
	Status           string           `json:"status"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Location         string           `json:"location"`
	Coordinates      Coordinates      `json:"coordinates"`
	ContactInfo      ContactInfo      `json:"contactInfo"`
	EmergencyDetails EmergencyDetails `json:"emergencyDetails"`
	Notifications    Notifications    `json:"notifications"`
	Media            []MediaFile      `json:"media,omitempty"`
	Priority         int              `json:"priority"`
	Tags             []string         `json:"tags"`
	SMSAlerts        SMSAlerts        `json:"smsAlerts"`
	Verification     Verification     `json:"verification"`
	Responses        []Response       `json:"responses"`
	ResolvedAt       *time.Time       `json:"resolvedAt,omitempty"`
	ResolvedBy       string           `json:"resolvedBy,omitempty"`
	ResolutionNotes  string           `json:"resolutionNotes,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// HasTag reports whether the report carries the given tag.
func (r *Report) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ValidEnum reports whether v is one of the allowed values.
func ValidEnum(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// ReportQuery is the filter set for report listing.
type ReportQuery struct {
	Type      string
	Severity  string
	Status    string
	TimeRange string // 1h, 24h, 7d, 30d
	Lat       *float64
	Lng       *float64
	RadiusKm  *float64
	Search    string
	Limit     int
	Offset    int
}

// Statistics is the aggregate counters block returned by the statistics
// endpoint.
type Statistics struct {
	TotalReports          int `json:"totalReports"`
	ActiveReports         int `json:"activeReports"`
	ResolvedReports       int `json:"resolvedReports"`
	CriticalReports       int `json:"criticalReports"`
	TotalSMSSent          int `json:"totalSMSSent"`
	RecentReports24h      int `json:"recentReports24h"`
	CriticalActiveReports int `json:"criticalActiveReports"`
}
