package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"coastal-alert-service/database"
	"coastal-alert-service/models"
	"coastal-alert-service/notify"
	"coastal-alert-service/sms"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const maxMediaFiles = 10

var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ReportsHandler serves the community report endpoints.
type ReportsHandler struct {
	reports    *database.ReportsService
	source     sms.RecipientSource
	dispatcher *sms.Dispatcher
	notifier   *notify.AuthorityNotifier
	smsStatus  sms.ServiceStatus
	uploadDir  string
}

func NewReportsHandler(reports *database.ReportsService, source sms.RecipientSource,
	dispatcher *sms.Dispatcher, notifier *notify.AuthorityNotifier,
	smsStatus sms.ServiceStatus, uploadDir string) *ReportsHandler {
	return &ReportsHandler{
		reports:    reports,
		source:     source,
		dispatcher: dispatcher,
		notifier:   notifier,
		smsStatus:  smsStatus,
		uploadDir:  uploadDir,
	}
}

// HealthCheck returns a simple health status
func (h *ReportsHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "coastal-alert-service",
	})
}

// CreateReport handles POST /reports. Multipart submissions carry the report
// JSON in the reportData field plus up to ten media files. A successful
// create runs the full alert pipeline; dispatch failures are reflected in the
// counters, never in the response status.
func (h *ReportsHandler) CreateReport(c *gin.Context) {
	var (
		req   models.CreateReportRequest
		media []models.MediaFile
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		// The report payload arrives as a JSON string in the reportData field.
		raw := c.PostForm("reportData")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "missing reportData field"})
			return
		}
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid reportData JSON"})
			return
		}

		saved, err := h.saveMedia(c)
		if err != nil {
			log.Errorf("Failed to store media upload: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		media = saved
	} else {
		if err := c.BindJSON(&req); err != nil {
			log.Errorf("Failed to get the argument in /reports call: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid JSON body"})
			return
		}
	}

	if err := validateCreate(&req); err != nil {
		h.cleanupMedia(media)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	report := &models.Report{
		ReportType:       req.ReportType,
		Severity:         req.Severity,
		Title:            req.Title,
		Description:      req.Description,
		Location:         req.Location,
		Coordinates:      req.Coordinates,
		ContactInfo:      req.ContactInfo,
		EmergencyDetails: req.EmergencyDetails,
		Media:            media,
		Tags:             req.Tags,
	}
	if req.Notifications != nil {
		report.Notifications = *req.Notifications
	}

	if err := h.reports.CreateReport(c.Request.Context(), report); err != nil {
		log.Errorf("Error creating community report: %v", err)
		h.cleanupMedia(media)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create community report"})
		return
	}

	go h.notifier.NotifyReport(report)

	smsResults := h.dispatchAlerts(c, report, "", false)
	if err := h.reports.RecordDispatch(c.Request.Context(), report.ReportID, smsResults); err != nil {
		log.Errorf("Error recording dispatch for report %s: %v", report.ReportID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to record SMS dispatch"})
		return
	}

	fresh, err := h.reports.GetReportByID(c.Request.Context(), report.ReportID)
	if err != nil {
		fresh = report
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Community report submitted successfully",
		"report":     fresh,
		"smsResults": smsResults,
	})
}

// GetReports handles GET /reports with filtering and pagination.
func (h *ReportsHandler) GetReports(c *gin.Context) {
	q := &models.ReportQuery{
		Type:      c.Query("type"),
		Severity:  c.Query("severity"),
		Status:    c.Query("status"),
		TimeRange: c.Query("timeRange"),
		Search:    c.Query("search"),
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
	}

	if latStr, ok := c.GetQuery("lat"); ok {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid lat"})
			return
		}
		lngStr := c.Query("lng")
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid lng"})
			return
		}
		radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "10"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid radius"})
			return
		}
		q.Lat, q.Lng, q.RadiusKm = &lat, &lng, &radius
	}

	reports, total, err := h.reports.GetReports(c.Request.Context(), q)
	if err != nil {
		log.Errorf("Error fetching community reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch community reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reports": reports,
		"pagination": models.Pagination{
			Total:   total,
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: total > q.Offset+q.Limit,
		},
	})
}

// GetReport handles GET /reports/:id.
func (h *ReportsHandler) GetReport(c *gin.Context) {
	report, err := h.reports.GetReportByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.reportError(c, err, "Failed to fetch community report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// UpdateStatus handles PUT /reports/:id/status, the administrative status
// override.
func (h *ReportsHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid JSON body"})
		return
	}
	if !models.ValidEnum(req.Status, models.Statuses) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("invalid status %q", req.Status)})
		return
	}

	if err := h.reports.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Notes, req.ResponderID); err != nil {
		h.reportError(c, err, "Failed to update report status")
		return
	}

	report, err := h.reports.GetReportByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.reportError(c, err, "Failed to fetch community report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Report status updated successfully", "report": report})
}

// AddResponse handles POST /reports/:id/response.
func (h *ReportsHandler) AddResponse(c *gin.Context) {
	var req models.AddResponseRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid JSON body"})
		return
	}
	if req.ResponderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "missing responderId"})
		return
	}

	resp := &models.Response{
		ResponderID:   req.ResponderID,
		ResponderType: req.ResponderType,
		Message:       req.Message,
		Action:        req.Action,
	}
	if err := h.reports.AddResponse(c.Request.Context(), c.Param("id"), resp); err != nil {
		h.reportError(c, err, "Failed to add response")
		return
	}

	report, err := h.reports.GetReportByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.reportError(c, err, "Failed to fetch community report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Response added successfully", "report": report})
}

// VerifyReport handles POST /reports/:id/verify.
func (h *ReportsHandler) VerifyReport(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid JSON body"})
		return
	}
	if req.VerifierID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "missing verifierId"})
		return
	}

	if err := h.reports.Verify(c.Request.Context(), c.Param("id"), req.VerifierID, req.Notes); err != nil {
		h.reportError(c, err, "Failed to verify report")
		return
	}

	report, err := h.reports.GetReportByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.reportError(c, err, "Failed to fetch community report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Report verified successfully", "report": report})
}

// SendSMS handles POST /reports/:id/sms, re-running the alert pipeline
// against an existing report. Counters accumulate additively across calls.
func (h *ReportsHandler) SendSMS(c *gin.Context) {
	var req models.SendSMSRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid JSON body"})
		return
	}

	report, err := h.reports.GetReportByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.reportError(c, err, "Failed to fetch community report")
		return
	}

	if req.Radius != nil {
		report.Notifications.SMSRadius = *req.Radius
	}

	smsResults := h.dispatchAlerts(c, report, req.CustomMessage, req.UrgentAlert)
	if err := h.reports.RecordDispatch(c.Request.Context(), report.ReportID, smsResults); err != nil {
		h.reportError(c, err, "Failed to record SMS dispatch")
		return
	}

	fresh, err := h.reports.GetReportByID(c.Request.Context(), report.ReportID)
	if err != nil {
		fresh = report
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "SMS alerts sent successfully",
		"smsResults": smsResults,
		"report":     fresh,
	})
}

// GetNearby handles GET /reports/nearby/:lat/:lng.
func (h *ReportsHandler) GetNearby(c *gin.Context) {
	lat, lng, ok := h.parseLatLng(c)
	if !ok {
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "10"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid radius"})
		return
	}

	reports, err := h.reports.FindNearby(c.Request.Context(), lat, lng, radius, intQuery(c, "limit", 20))
	if err != nil {
		log.Errorf("Error fetching nearby reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch nearby reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reports": reports, "count": len(reports)})
}

// GetStatistics handles GET /reports/statistics.
func (h *ReportsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.reports.GetStatistics(c.Request.Context())
	if err != nil {
		log.Errorf("Error fetching statistics: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statistics": stats})
}

// SMSStatus handles GET /sms/status.
func (h *ReportsHandler) SMSStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "sms": h.smsStatus})
}

// dispatchAlerts runs locate, compose and dispatch for one report. The
// locator fails open to an empty set, which short-circuits into a zero-total
// result.
func (h *ReportsHandler) dispatchAlerts(c *gin.Context, report *models.Report, custom string, urgentOverride bool) *sms.BulkResult {
	ctx := c.Request.Context()
	radius := sms.ClampRadius(float64(report.Notifications.SMSRadius))

	recipients := h.source.FindRecipients(ctx, report.Coordinates.Lat, report.Coordinates.Lng, radius)
	if len(recipients) == 0 {
		return &sms.BulkResult{Message: "No recipients found in the specified radius"}
	}

	message := sms.ComposeAlert(report, custom)
	urgent := sms.IsUrgent(report) || urgentOverride || report.Notifications.UrgentAlert

	results := h.dispatcher.SendBulk(ctx, recipients, message, urgent)
	log.Infof("Emergency SMS alert sent for report %s: %d recipients, %d ok, %d failed, urgent=%v",
		report.ReportID, results.Total, results.Successful, results.Failed, urgent)
	return results
}

func (h *ReportsHandler) parseLatLng(c *gin.Context) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(c.Param("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid lat"})
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(c.Param("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid lng"})
		return 0, 0, false
	}
	if err := (models.Coordinates{Lat: lat, Lng: lng}).Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return 0, 0, false
	}
	return lat, lng, true
}

func (h *ReportsHandler) reportError(c *gin.Context, err error, message string) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Community report not found"})
		return
	}
	log.Errorf("%s: %v", message, err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": message})
}

// saveMedia stores uploaded files under the upload dir and returns their
// descriptors.
func (h *ReportsHandler) saveMedia(c *gin.Context) ([]models.MediaFile, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}
	files := form.File["media"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > maxMediaFiles {
		return nil, fmt.Errorf("too many media files: %d (max %d)", len(files), maxMediaFiles)
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, err
	}

	var saved []models.MediaFile
	for _, fh := range files {
		if !allowedMediaType(fh) {
			h.cleanupMedia(saved)
			return nil, fmt.Errorf("unsupported media type: %s", fh.Filename)
		}
		name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(fh.Filename))
		dst := filepath.Join(h.uploadDir, name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			h.cleanupMedia(saved)
			return nil, err
		}
		saved = append(saved, models.MediaFile{
			Filename:     name,
			OriginalName: fh.Filename,
			MimeType:     fh.Header.Get("Content-Type"),
			Size:         fh.Size,
			Path:         dst,
			UploadedAt:   time.Now().UTC(),
		})
	}
	return saved, nil
}

// cleanupMedia removes stored files after a failed create.
func (h *ReportsHandler) cleanupMedia(media []models.MediaFile) {
	for _, m := range media {
		if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
			log.Warnf("Error deleting file %s: %v", m.Path, err)
		}
	}
}

func allowedMediaType(fh *multipart.FileHeader) bool {
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".jpeg", ".jpg", ".png", ".gif", ".mp4", ".mov", ".avi", ".webm":
		return true
	}
	return false
}

func validateCreate(req *models.CreateReportRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("missing title")
	}
	if len(req.Title) > 200 {
		return errors.New("title exceeds 200 characters")
	}
	if strings.TrimSpace(req.Description) == "" {
		return errors.New("missing description")
	}
	if len(req.Description) > 2000 {
		return errors.New("description exceeds 2000 characters")
	}
	if strings.TrimSpace(req.Location) == "" {
		return errors.New("missing location")
	}
	if !models.ValidEnum(req.ReportType, models.ReportTypes) {
		return fmt.Errorf("invalid reportType %q", req.ReportType)
	}
	if req.Severity == "" {
		req.Severity = "medium"
	}
	if !models.ValidEnum(req.Severity, models.Severities) {
		return fmt.Errorf("invalid severity %q", req.Severity)
	}
	if err := req.Coordinates.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(req.ContactInfo.Name) == "" {
		return errors.New("missing contact name")
	}
	phone := strings.ReplaceAll(req.ContactInfo.Phone, " ", "")
	if !phoneRegex.MatchString(phone) {
		return errors.New("invalid phone number format")
	}
	if req.Notifications != nil {
		if req.Notifications.SMSRadius < 0 || req.Notifications.SMSRadius > sms.MaxRadiusKm {
			return fmt.Errorf("smsRadius %d out of range [1, %d]", req.Notifications.SMSRadius, sms.MaxRadiusKm)
		}
	}
	return nil
}

func intQuery(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
