package models

// CreateReportRequest is the body of POST /reports. On multipart submissions
// the same payload arrives as a JSON string in the reportData form field.
type CreateReportRequest struct {
	ReportType       string           `json:"reportType"`
	Severity         string           `json:"severity"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Location         string           `json:"location"`
	Coordinates      Coordinates      `json:"coordinates"`
	ContactInfo      ContactInfo      `json:"contactInfo"`
	EmergencyDetails EmergencyDetails `json:"emergencyDetails"`
	Notifications    *Notifications   `json:"notifications,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
}

// SendSMSRequest is the body of POST /reports/:id/sms.
type SendSMSRequest struct {
	Radius        *int   `json:"radius,omitempty"`
	UrgentAlert   bool   `json:"urgentAlert"`
	CustomMessage string `json:"customMessage,omitempty"`
}

// UpdateStatusRequest is the body of PUT /reports/:id/status.
type UpdateStatusRequest struct {
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
	ResponderID string `json:"responderId,omitempty"`
}

// AddResponseRequest is the body of POST /reports/:id/response.
type AddResponseRequest struct {
	ResponderID   string `json:"responderId"`
	ResponderType string `json:"responderType"`
	Message       string `json:"message"`
	Action        string `json:"action"`
}

// VerifyRequest is the body of POST /reports/:id/verify.
type VerifyRequest struct {
	VerifierID string `json:"verifierId"`
	Notes      string `json:"notes,omitempty"`
}

// Pagination is the paging envelope of the report listing.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}
