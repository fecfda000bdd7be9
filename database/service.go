package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"coastal-alert-service/models"
	"coastal-alert-service/priority"
	"coastal-alert-service/sms"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a report id resolves to nothing.
var ErrNotFound = errors.New("report not found")

var timeRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// ReportsService owns all report persistence and the report lifecycle rules.
type ReportsService struct {
	db *sql.DB
}

func NewReportsService(db *sql.DB) *ReportsService {
	return &ReportsService{db: db}
}

const reportColumns = `seq, report_id, report_type, severity, status, title, description, location,
	latitude, longitude, contact_name, contact_phone, contact_email, contact_organization,
	immediate_risk, evacuation_needed, infrastructure_damage, affected_area, estimated_people,
	sms_radius, urgent_alert, priority, tags, media,
	sms_sent, sms_successful, sms_failed, sms_last_sent_at,
	verified, verified_by, verified_at, verification_notes,
	resolved_at, resolved_by, resolution_notes, created_at, updated_at`

// CreateReport stamps identity, priority and tags on a new report and
// persists it. The report id is generated when absent.
func (s *ReportsService) CreateReport(ctx context.Context, r *models.Report) error {
	if r.ReportID == "" {
		r.ReportID = generateReportID()
	}
	if r.Status == "" {
		r.Status = "active"
	}
	if r.Notifications.SMSRadius == 0 {
		r.Notifications.SMSRadius = 5
	}
	priority.Stamp(r)

	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return err
	}
	media, err := json.Marshal(r.Media)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO reports
		(report_id, report_type, severity, status, title, description, location,
		 latitude, longitude, geom,
		 contact_name, contact_phone, contact_email, contact_organization,
		 immediate_risk, evacuation_needed, infrastructure_damage, affected_area, estimated_people,
		 sms_radius, urgent_alert, priority, tags, media)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ST_GeomFromText(?, 4326), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ReportID, r.ReportType, r.Severity, r.Status, r.Title, r.Description, r.Location,
		r.Coordinates.Lat, r.Coordinates.Lng,
		fmt.Sprintf("POINT(%g %g)", r.Coordinates.Lat, r.Coordinates.Lng),
		r.ContactInfo.Name, r.ContactInfo.Phone, r.ContactInfo.Email, r.ContactInfo.Organization,
		r.EmergencyDetails.ImmediateRisk, r.EmergencyDetails.EvacuationNeeded,
		r.EmergencyDetails.InfrastructureDamage, r.EmergencyDetails.AffectedArea, r.EmergencyDetails.EstimatedPeople,
		r.Notifications.SMSRadius, r.Notifications.UrgentAlert, r.Priority, string(tags), string(media))
	if err != nil {
		log.Errorf("Failed to insert report %s: %v", r.ReportID, err)
		return err
	}

	seq, err := result.LastInsertId()
	if err == nil {
		r.Seq = seq
	}
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	log.Infof("Created report %s (seq %d, priority %d)", r.ReportID, r.Seq, r.Priority)
	return nil
}

// GetReports returns the filtered, paginated listing plus the unpaginated
// match count. Results are ordered priority desc, then newest first.
func (s *ReportsService) GetReports(ctx context.Context, q *models.ReportQuery) ([]models.Report, int, error) {
	where := []string{}
	params := []any{}

	if q.Type != "" && q.Type != "all" {
		where = append(where, "report_type = ?")
		params = append(params, q.Type)
	}
	if q.Severity != "" && q.Severity != "all" {
		where = append(where, "severity = ?")
		params = append(params, q.Severity)
	}
	if q.Status != "" && q.Status != "all" {
		where = append(where, "status = ?")
		params = append(params, q.Status)
	}
	if d, ok := timeRanges[q.TimeRange]; ok {
		where = append(where, "created_at >= ?")
		params = append(params, time.Now().Add(-d))
	}
	if q.Lat != nil && q.Lng != nil && q.RadiusKm != nil {
		where = append(where, "ST_Distance_Sphere(geom, ST_GeomFromText(?, 4326)) <= ?")
		params = append(params, fmt.Sprintf("POINT(%g %g)", *q.Lat, *q.Lng), *q.RadiusKm*1000)
	}
	if q.Search != "" {
		where = append(where, "MATCH(title, description, location) AGAINST (?)")
		params = append(params, q.Search)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports"+whereClause, params...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	listSQL := fmt.Sprintf("SELECT %s FROM reports%s ORDER BY priority DESC, created_at DESC LIMIT ? OFFSET ?",
		reportColumns, whereClause)
	rows, err := s.db.QueryContext(ctx, listSQL, append(params, limit, q.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, *r)
	}

	return reports, total, nil
}

// GetReportByID loads one report with its recipient and response logs.
func (s *ReportsService) GetReportByID(ctx context.Context, reportID string) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM reports WHERE report_id = ?", reportColumns), reportID)

	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.SMSAlerts.Recipients, err = s.loadRecipients(ctx, reportID); err != nil {
		return nil, err
	}
	if r.Responses, err = s.loadResponses(ctx, reportID); err != nil {
		return nil, err
	}
	return r, nil
}

// FindNearby returns reports within radiusKm of the point, closest first.
func (s *ReportsService) FindNearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	pt := fmt.Sprintf("POINT(%g %g)", lat, lng)
	nearbySQL := fmt.Sprintf(`SELECT %s FROM reports
		WHERE ST_Distance_Sphere(geom, ST_GeomFromText(?, 4326)) <= ?
		ORDER BY ST_Distance_Sphere(geom, ST_GeomFromText(?, 4326)) ASC
		LIMIT ?`, reportColumns)

	rows, err := s.db.QueryContext(ctx, nearbySQL, pt, radiusKm*1000, pt, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}

// RecordDispatch folds one dispatch result into the report: additive counter
// increments, one recipient log row per send, and the lastSentAt stamp. The
// increments run inside the database so concurrent dispatches cannot lose
// updates.
func (s *ReportsService) RecordDispatch(ctx context.Context, reportID string, result *sms.BulkResult) error {
	if result == nil || result.Total == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Errorf("Error creating transaction: %v", err)
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE reports
		SET sms_sent = sms_sent + ?,
		    sms_successful = sms_successful + ?,
		    sms_failed = sms_failed + ?,
		    sms_last_sent_at = ?
		WHERE report_id = ?`,
		result.Total, result.Successful, result.Failed, time.Now().UTC(), reportID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}

	for _, d := range result.Details {
		status := "failed"
		if d.Success {
			status = "sent"
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO report_recipients (report_id, phone, status, sent_at) VALUES (?, ?, ?, ?)",
			reportID, d.To, status, d.SentAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Infof("Recorded dispatch for report %s: %d sent, %d ok, %d failed",
		reportID, result.Total, result.Successful, result.Failed)
	return nil
}

// AddResponse appends an operator response and applies the action-driven
// status rule: resolved and investigating force the matching status, any
// other action leaves the status alone.
func (s *ReportsService) AddResponse(ctx context.Context, reportID string, resp *models.Response) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO report_responses (report_id, responder_id, responder_type, message, action, ts) VALUES (?, ?, ?, ?, ?, ?)",
		reportID, resp.ResponderID, resp.ResponderType, resp.Message, resp.Action, time.Now().UTC())
	logResult("insertResponse", res, err)
	if err != nil {
		return err
	}

	switch resp.Action {
	case "resolved":
		_, err = tx.ExecContext(ctx,
			"UPDATE reports SET status = 'resolved', resolved_at = ?, resolved_by = ? WHERE report_id = ?",
			time.Now().UTC(), resp.ResponderID, reportID)
	case "investigating":
		_, err = tx.ExecContext(ctx,
			"UPDATE reports SET status = 'investigating' WHERE report_id = ?", reportID)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Verify marks a report verified. Calling it again overwrites the verifier,
// timestamp and notes.
func (s *ReportsService) Verify(ctx context.Context, reportID, verifierID, notes string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reports
		SET verified = true, verified_by = ?, verified_at = ?, verification_notes = ?
		WHERE report_id = ?`,
		verifierID, time.Now().UTC(), notes, reportID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus is the direct operator override of a report's status,
// bypassing the response log. A resolved target also stamps the resolution
// fields.
func (s *ReportsService) UpdateStatus(ctx context.Context, reportID, status, notes, responderID string) error {
	var (
		res sql.Result
		err error
	)
	if status == "resolved" {
		res, err = s.db.ExecContext(ctx, `UPDATE reports
			SET status = ?, resolved_at = ?, resolved_by = ?, resolution_notes = ?
			WHERE report_id = ?`,
			status, time.Now().UTC(), responderID, notes, reportID)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE reports SET status = ? WHERE report_id = ?", status, reportID)
	}
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetStatistics aggregates the counters for the statistics endpoint.
func (s *ReportsService) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{}

	// SUM returns NULL on an empty table, so every aggregate is coalesced.
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'resolved' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN severity = 'critical' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(sms_sent), 0),
		COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'active' AND severity = 'critical' THEN 1 ELSE 0 END), 0)
		FROM reports`, time.Now().Add(-24*time.Hour)).Scan(
		&stats.TotalReports, &stats.ActiveReports, &stats.ResolvedReports,
		&stats.CriticalReports, &stats.TotalSMSSent,
		&stats.RecentReports24h, &stats.CriticalActiveReports)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *ReportsService) loadRecipients(ctx context.Context, reportID string) ([]models.RecipientLog, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT phone, status, sent_at FROM report_recipients WHERE report_id = ? ORDER BY id ASC", reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []models.RecipientLog{}
	for rows.Next() {
		var rec models.RecipientLog
		if err := rows.Scan(&rec.Phone, &rec.Status, &rec.SentAt); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, nil
}

func (s *ReportsService) loadResponses(ctx context.Context, reportID string) ([]models.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT responder_id, responder_type, message, action, ts FROM report_responses WHERE report_id = ? ORDER BY id ASC", reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []models.Response{}
	for rows.Next() {
		var resp models.Response
		if err := rows.Scan(&resp.ResponderID, &resp.ResponderType, &resp.Message, &resp.Action, &resp.Timestamp); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*models.Report, error) {
	var (
		r            models.Report
		email        sql.NullString
		organization sql.NullString
		affectedArea sql.NullString
		estPeople    sql.NullString
		tagsJSON     sql.NullString
		mediaJSON    sql.NullString
		lastSentAt   sql.NullTime
		verifiedBy   sql.NullString
		verifiedAt   sql.NullTime
		verifNotes   sql.NullString
		resolvedAt   sql.NullTime
		resolvedBy   sql.NullString
		resNotes     sql.NullString
	)

	err := row.Scan(&r.Seq, &r.ReportID, &r.ReportType, &r.Severity, &r.Status,
		&r.Title, &r.Description, &r.Location,
		&r.Coordinates.Lat, &r.Coordinates.Lng,
		&r.ContactInfo.Name, &r.ContactInfo.Phone, &email, &organization,
		&r.EmergencyDetails.ImmediateRisk, &r.EmergencyDetails.EvacuationNeeded,
		&r.EmergencyDetails.InfrastructureDamage, &affectedArea, &estPeople,
		&r.Notifications.SMSRadius, &r.Notifications.UrgentAlert, &r.Priority, &tagsJSON, &mediaJSON,
		&r.SMSAlerts.Sent, &r.SMSAlerts.Successful, &r.SMSAlerts.Failed, &lastSentAt,
		&r.Verification.Verified, &verifiedBy, &verifiedAt, &verifNotes,
		&resolvedAt, &resolvedBy, &resNotes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.ContactInfo.Email = email.String
	r.ContactInfo.Organization = organization.String
	r.EmergencyDetails.AffectedArea = affectedArea.String
	r.EmergencyDetails.EstimatedPeople = estPeople.String
	r.Verification.VerifiedBy = verifiedBy.String
	r.Verification.Notes = verifNotes.String
	r.ResolvedBy = resolvedBy.String
	r.ResolutionNotes = resNotes.String

	if lastSentAt.Valid {
		r.SMSAlerts.LastSentAt = &lastSentAt.Time
	}
	if verifiedAt.Valid {
		r.Verification.VerifiedAt = &verifiedAt.Time
	}
	if resolvedAt.Valid {
		r.ResolvedAt = &resolvedAt.Time
	}

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &r.Tags); err != nil {
			return nil, err
		}
	}
	if mediaJSON.Valid && mediaJSON.String != "" && mediaJSON.String != "null" {
		if err := json.Unmarshal([]byte(mediaJSON.String), &r.Media); err != nil {
			return nil, err
		}
	}

	r.SMSAlerts.Recipients = []models.RecipientLog{}
	r.Responses = []models.Response{}
	return &r, nil
}

func generateReportID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("CR_%d_%s", time.Now().UnixMilli(), suffix)
}

func logResult(operation string, result sql.Result, err error) {
	if err != nil {
		log.Errorf("Error in %s: %v", operation, err)
		return
	}
	rowsAffected, _ := result.RowsAffected()
	log.Infof("%s: %d rows affected", operation, rowsAffected)
}
