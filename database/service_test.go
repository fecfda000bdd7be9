package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"coastal-alert-service/models"
	"coastal-alert-service/sms"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
	svc  *ReportsService
)

func setUp() {
	db, mock, _ = sqlmock.New()
	svc = NewReportsService(db)
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func reportRow(reportID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"seq", "report_id", "report_type", "severity", "status", "title", "description", "location",
		"latitude", "longitude", "contact_name", "contact_phone", "contact_email", "contact_organization",
		"immediate_risk", "evacuation_needed", "infrastructure_damage", "affected_area", "estimated_people",
		"sms_radius", "urgent_alert", "priority", "tags", "media",
		"sms_sent", "sms_successful", "sms_failed", "sms_last_sent_at",
		"verified", "verified_by", "verified_at", "verification_notes",
		"resolved_at", "resolved_by", "resolution_notes", "created_at", "updated_at",
	}).AddRow(
		1, reportID, "coastal", "critical", "active", "High waves", "Waves over the sea wall", "Marine Drive, Mumbai",
		19.076, 72.877, "A Resident", "+919876543210", nil, nil,
		true, false, false, nil, nil,
		5, false, 10, `["coastal","critical","immediate_risk"]`, nil,
		0, 0, 0, nil,
		false, nil, nil, nil,
		nil, nil, nil, now, now,
	)
}

func TestCreateReportStampsIdentityAndPriority(t *testing.T) {
	it(func() {
		mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(7, 1))

		r := &models.Report{
			ReportType:  "coastal",
			Severity:    "critical",
			Title:       "High waves",
			Description: "Waves over the sea wall",
			Location:    "Marine Drive, Mumbai",
			Coordinates: models.Coordinates{Lat: 19.076, Lng: 72.877},
			ContactInfo: models.ContactInfo{Name: "A Resident", Phone: "+919876543210"},
			EmergencyDetails: models.EmergencyDetails{
				ImmediateRisk: true,
			},
		}
		err := svc.CreateReport(context.Background(), r)
		require.NoError(t, err)

		assert.Regexp(t, `^CR_\d+_[0-9a-f]{9}$`, r.ReportID)
		assert.Equal(t, int64(7), r.Seq)
		assert.Equal(t, "active", r.Status)
		assert.Equal(t, 10, r.Priority)
		assert.Equal(t, 5, r.Notifications.SMSRadius)
		assert.Contains(t, r.Tags, "coastal")
		assert.Contains(t, r.Tags, "critical")
		assert.Contains(t, r.Tags, "immediate_risk")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateReportKeepsManualTags(t *testing.T) {
	it(func() {
		mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(1, 1))

		r := &models.Report{
			ReportType:  "marine",
			Severity:    "low",
			Title:       "Debris",
			Description: "Floating debris",
			Location:    "Harbor",
			Coordinates: models.Coordinates{Lat: 10, Lng: 20},
			ContactInfo: models.ContactInfo{Name: "B", Phone: "+911111111111"},
			Tags:        []string{"hand_tagged"},
		}
		require.NoError(t, svc.CreateReport(context.Background(), r))
		assert.Equal(t, []string{"hand_tagged"}, r.Tags)
	})
}

func TestRecordDispatchAdditiveCounters(t *testing.T) {
	it(func() {
		sentAt := time.Now()
		result := &sms.BulkResult{
			Total:      3,
			Successful: 2,
			Failed:     1,
			Details: []sms.SendResult{
				{Success: true, To: "+919000000001", SentAt: sentAt},
				{Success: true, To: "+919000000002", SentAt: sentAt},
				{Success: false, To: "+919000000003", SentAt: sentAt},
			},
		}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE reports").
			WithArgs(3, 2, 1, sqlmock.AnyArg(), "CR_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO report_recipients").
			WithArgs("CR_1", "+919000000001", "sent", sentAt).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO report_recipients").
			WithArgs("CR_1", "+919000000002", "sent", sentAt).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec("INSERT INTO report_recipients").
			WithArgs("CR_1", "+919000000003", "failed", sentAt).
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectCommit()

		err := svc.RecordDispatch(context.Background(), "CR_1", result)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordDispatchZeroTotalIsNoOp(t *testing.T) {
	it(func() {
		err := svc.RecordDispatch(context.Background(), "CR_1", &sms.BulkResult{Message: "No recipients found in the specified radius"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordDispatchUnknownReport(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE reports").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		result := &sms.BulkResult{Total: 1, Successful: 1, Details: []sms.SendResult{{Success: true, To: "+911"}}}
		err := svc.RecordDispatch(context.Background(), "missing", result)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAddResponseResolvedForcesStatus(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO report_responses").
			WithArgs("CR_1", "resp-1", "authority", "handled", "resolved", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE reports SET status = 'resolved'").
			WithArgs(sqlmock.AnyArg(), "resp-1", "CR_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		resp := &models.Response{
			ResponderID:   "resp-1",
			ResponderType: "authority",
			Message:       "handled",
			Action:        "resolved",
		}
		err := svc.AddResponse(context.Background(), "CR_1", resp)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAddResponseInvestigatingForcesStatus(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO report_responses").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE reports SET status = 'investigating'").
			WithArgs("CR_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		resp := &models.Response{ResponderID: "resp-2", ResponderType: "authority", Action: "investigating"}
		require.NoError(t, svc.AddResponse(context.Background(), "CR_1", resp))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAddResponseOtherActionLeavesStatus(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO report_responses").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		resp := &models.Response{ResponderID: "resp-3", ResponderType: "community_member", Action: "info_request"}
		require.NoError(t, svc.AddResponse(context.Background(), "CR_1", resp))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVerifyUnknownReport(t *testing.T) {
	it(func() {
		mock.ExpectExec("UPDATE reports").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := svc.Verify(context.Background(), "missing", "v-1", "looks real")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateStatusResolvedStampsResolution(t *testing.T) {
	it(func() {
		mock.ExpectExec("UPDATE reports").
			WithArgs("resolved", sqlmock.AnyArg(), "op-1", "cleared", "CR_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.UpdateStatus(context.Background(), "CR_1", "resolved", "cleared", "op-1")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateStatusPlain(t *testing.T) {
	it(func() {
		mock.ExpectExec("UPDATE reports").
			WithArgs("investigating", "CR_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.UpdateStatus(context.Background(), "CR_1", "investigating", "", ""))
	})
}

func TestGetReportByIDNotFound(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT (.+) FROM reports WHERE report_id").
			WillReturnError(sql.ErrNoRows)

		_, err := svc.GetReportByID(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetReportByIDLoadsLogs(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT (.+) FROM reports WHERE report_id").
			WillReturnRows(reportRow("CR_1"))
		mock.ExpectQuery("SELECT phone, status, sent_at FROM report_recipients").
			WillReturnRows(sqlmock.NewRows([]string{"phone", "status", "sent_at"}).
				AddRow("+919000000001", "sent", time.Now()))
		mock.ExpectQuery("SELECT responder_id, responder_type, message, action, ts FROM report_responses").
			WillReturnRows(sqlmock.NewRows([]string{"responder_id", "responder_type", "message", "action", "ts"}).
				AddRow("resp-1", "authority", "on it", "investigating", time.Now()))

		r, err := svc.GetReportByID(context.Background(), "CR_1")
		require.NoError(t, err)

		assert.Equal(t, "CR_1", r.ReportID)
		assert.Equal(t, []string{"coastal", "critical", "immediate_risk"}, r.Tags)
		assert.Len(t, r.SMSAlerts.Recipients, 1)
		assert.Len(t, r.Responses, 1)
		assert.Equal(t, "investigating", r.Responses[0].Action)
	})
}

func TestGetReportsBuildsFilters(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reports WHERE report_type = \\? AND severity = \\? AND status = \\?").
			WithArgs("coastal", "critical", "active").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("ORDER BY priority DESC, created_at DESC LIMIT \\? OFFSET \\?").
			WithArgs("coastal", "critical", "active", 10, 0).
			WillReturnRows(reportRow("CR_1"))

		q := &models.ReportQuery{Type: "coastal", Severity: "critical", Status: "active", Limit: 10}
		reports, total, err := svc.GetReports(context.Background(), q)
		require.NoError(t, err)

		assert.Equal(t, 1, total)
		require.Len(t, reports, 1)
		assert.Equal(t, "CR_1", reports[0].ReportID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetReportsAllFilterIgnored(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reports$").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("ORDER BY priority DESC, created_at DESC LIMIT \\? OFFSET \\?").
			WithArgs(50, 0).
			WillReturnRows(sqlmock.NewRows([]string{"seq"}))

		q := &models.ReportQuery{Type: "all", Severity: "all", Status: "all", Limit: 50}
		_, total, err := svc.GetReports(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})
}

func TestFindNearbyOrdersByDistance(t *testing.T) {
	it(func() {
		mock.ExpectQuery("ST_Distance_Sphere").
			WithArgs("POINT(19.076 72.877)", 5000.0, "POINT(19.076 72.877)", 20).
			WillReturnRows(reportRow("CR_1"))

		reports, err := svc.FindNearby(context.Background(), 19.076, 72.877, 5, 0)
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "CR_1", reports[0].ReportID)
	})
}

func TestGetStatisticsEmptyTable(t *testing.T) {
	it(func() {
		// Every SUM must be coalesced so a fresh install scans zeros, not NULLs.
		mock.ExpectQuery("COALESCE\\(SUM\\(CASE WHEN status = 'active' THEN 1 ELSE 0 END\\), 0\\),.*" +
			"COALESCE\\(SUM\\(CASE WHEN status = 'active' AND severity = 'critical' THEN 1 ELSE 0 END\\), 0\\)").
			WillReturnRows(sqlmock.NewRows([]string{
				"total", "active", "resolved", "critical", "sms", "recent", "critical_active",
			}).AddRow(0, 0, 0, 0, 0, 0, 0))

		stats, err := svc.GetStatistics(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 0, stats.TotalReports)
		assert.Equal(t, 0, stats.ActiveReports)
		assert.Equal(t, 0, stats.TotalSMSSent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetStatistics(t *testing.T) {
	it(func() {
		mock.ExpectQuery("FROM reports").
			WillReturnRows(sqlmock.NewRows([]string{
				"total", "active", "resolved", "critical", "sms", "recent", "critical_active",
			}).AddRow(10, 4, 5, 2, 120, 3, 1))

		stats, err := svc.GetStatistics(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 10, stats.TotalReports)
		assert.Equal(t, 4, stats.ActiveReports)
		assert.Equal(t, 120, stats.TotalSMSSent)
	})
}
