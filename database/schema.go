package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the necessary database tables if they don't exist
func InitSchema(db *sql.DB) error {
	log.Info("Initializing coastal-alert-service database schema...")

	reportsTableSQL := `
	CREATE TABLE IF NOT EXISTS reports(
		seq INT NOT NULL AUTO_INCREMENT,
		report_id VARCHAR(64) NOT NULL,
		report_type ENUM('weather', 'coastal', 'infrastructure', 'marine', 'environmental') NOT NULL,
		severity ENUM('low', 'medium', 'high', 'critical') NOT NULL DEFAULT 'medium',
		status ENUM('active', 'investigating', 'resolved', 'false_alarm') NOT NULL DEFAULT 'active',
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		location VARCHAR(255) NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		geom POINT NOT NULL SRID 4326,
		contact_name VARCHAR(100) NOT NULL,
		contact_phone VARCHAR(20) NOT NULL,
		contact_email VARCHAR(255),
		contact_organization VARCHAR(100),
		immediate_risk BOOL NOT NULL DEFAULT false,
		evacuation_needed BOOL NOT NULL DEFAULT false,
		infrastructure_damage BOOL NOT NULL DEFAULT false,
		affected_area VARCHAR(255),
		estimated_people VARCHAR(64),
		sms_radius INT NOT NULL DEFAULT 5,
		urgent_alert BOOL NOT NULL DEFAULT false,
		priority INT NOT NULL DEFAULT 5,
		tags JSON,
		media JSON,
		sms_sent INT NOT NULL DEFAULT 0,
		sms_successful INT NOT NULL DEFAULT 0,
		sms_failed INT NOT NULL DEFAULT 0,
		sms_last_sent_at TIMESTAMP NULL,
		verified BOOL NOT NULL DEFAULT false,
		verified_by VARCHAR(64),
		verified_at TIMESTAMP NULL,
		verification_notes TEXT,
		resolved_at TIMESTAMP NULL,
		resolved_by VARCHAR(64),
		resolution_notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (seq),
		UNIQUE INDEX report_id_index (report_id),
		INDEX type_severity_index (report_type, severity),
		INDEX status_created_index (status, created_at DESC),
		INDEX priority_created_index (priority DESC, created_at DESC),
		SPATIAL INDEX(geom),
		FULLTEXT INDEX search_index (title, description, location)
	)`

	if _, err := db.Exec(reportsTableSQL); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}
	log.Info("Reports table created/verified")

	recipientsTableSQL := `
	CREATE TABLE IF NOT EXISTS report_recipients(
		id INT NOT NULL AUTO_INCREMENT,
		report_id VARCHAR(64) NOT NULL,
		phone VARCHAR(20) NOT NULL,
		status ENUM('sent', 'delivered', 'failed') NOT NULL,
		sent_at TIMESTAMP NOT NULL,
		PRIMARY KEY (id),
		INDEX report_id_index (report_id)
	)`

	if _, err := db.Exec(recipientsTableSQL); err != nil {
		return fmt.Errorf("failed to create report_recipients table: %w", err)
	}
	log.Info("Report_recipients table created/verified")

	responsesTableSQL := `
	CREATE TABLE IF NOT EXISTS report_responses(
		id INT NOT NULL AUTO_INCREMENT,
		report_id VARCHAR(64) NOT NULL,
		responder_id VARCHAR(64) NOT NULL,
		responder_type ENUM('authority', 'emergency_service', 'community_member', 'system') NOT NULL,
		message TEXT,
		action ENUM('investigating', 'dispatched', 'resolved', 'false_alarm', 'info_request') NOT NULL,
		ts TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX report_id_index (report_id)
	)`

	if _, err := db.Exec(responsesTableSQL); err != nil {
		return fmt.Errorf("failed to create report_responses table: %w", err)
	}
	log.Info("Report_responses table created/verified")

	subscribersTableSQL := `
	CREATE TABLE IF NOT EXISTS subscribers(
		id INT NOT NULL AUTO_INCREMENT,
		phone VARCHAR(20) NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		geom POINT NOT NULL SRID 4326,
		opted_in BOOL NOT NULL DEFAULT true,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE INDEX phone_index (phone),
		SPATIAL INDEX(geom)
	)`

	if _, err := db.Exec(subscribersTableSQL); err != nil {
		return fmt.Errorf("failed to create subscribers table: %w", err)
	}
	log.Info("Subscribers table created/verified")

	log.Info("Coastal-alert-service database schema initialization completed")
	return nil
}
