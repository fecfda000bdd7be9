package sms

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"

	"github.com/apex/log"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const (
	// MaxRecipients caps one dispatch wave regardless of radius.
	MaxRecipients = 500

	// MinRadiusKm and MaxRadiusKm bound the alert radius of a report.
	MinRadiusKm = 1
	MaxRadiusKm = 50

	earthRadiusMeters = 6371010.0
)

// RecipientSource resolves a geographic radius to the phone numbers of
// opted-in subscribers. Implementations fail open: on internal errors they
// return an empty list, never an error the pipeline would have to handle.
type RecipientSource interface {
	FindRecipients(ctx context.Context, lat, lng, radiusKm float64) []string
}

// ClampRadius bounds a requested radius to the supported range.
func ClampRadius(radiusKm float64) float64 {
	if radiusKm < MinRadiusKm {
		return MinRadiusKm
	}
	if radiusKm > MaxRadiusKm {
		return MaxRadiusKm
	}
	return radiusKm
}

// SimulatedSource estimates a recipient count from population density and
// produces synthetic numbers. Placeholder until a subscriber database is
// populated; per-call randomness means two identical calls may differ.
type SimulatedSource struct {
	// PopulationDensity is people per km².
	PopulationDensity float64
}

// NewSimulatedSource returns a source with the default density estimate.
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{PopulationDensity: 50}
}

func (s *SimulatedSource) FindRecipients(ctx context.Context, lat, lng, radiusKm float64) []string {
	estimatedPeople := math.Round(radiusKm * radiusKm * math.Pi * s.PopulationDensity)
	appUsers := math.Round(estimatedPeople * 0.1) // 10% have the app
	optedIn := math.Round(appUsers * 0.8)         // 80% opted in to SMS
	count := int(math.Min(optedIn, MaxRecipients))

	recipients := make([]string, 0, count)
	for i := 0; i < count; i++ {
		recipients = append(recipients, fmt.Sprintf("+91%d", 1000000000+rand.Int63n(9000000000)))
	}

	log.Infof("Simulated locator resolved %d recipients within %.0f km of (%.4f, %.4f)",
		len(recipients), radiusKm, lat, lng)
	return recipients
}

// SubscriberSource resolves recipients from the subscribers table. An S2
// bounding rectangle prunes the scan before the exact spherical distance
// filter runs in SQL.
type SubscriberSource struct {
	db *sql.DB
}

// NewSubscriberSource creates a database-backed source.
func NewSubscriberSource(db *sql.DB) *SubscriberSource {
	return &SubscriberSource{db: db}
}

func (s *SubscriberSource) FindRecipients(ctx context.Context, lat, lng, radiusKm float64) []string {
	center := s2.LatLngFromDegrees(lat, lng)
	angle := s1.Angle(radiusKm * 1000 / earthRadiusMeters)
	bound := s2.CapFromCenterAngle(s2.PointFromLatLng(center), angle).RectBound()

	rows, err := s.db.QueryContext(ctx, `
		SELECT phone FROM subscribers
		WHERE opted_in = true
		AND latitude BETWEEN ? AND ?
		AND longitude BETWEEN ? AND ?
		AND ST_Distance_Sphere(geom, ST_GeomFromText(?, 4326)) <= ?
		LIMIT ?`,
		bound.Lo().Lat.Degrees(), bound.Hi().Lat.Degrees(),
		bound.Lo().Lng.Degrees(), bound.Hi().Lng.Degrees(),
		fmt.Sprintf("POINT(%g %g)", lat, lng),
		radiusKm*1000,
		MaxRecipients)
	if err != nil {
		log.Errorf("Subscriber lookup failed for (%.4f, %.4f) r=%.0fkm: %v", lat, lng, radiusKm, err)
		return nil
	}
	defer rows.Close()

	var recipients []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			log.Errorf("Subscriber row scan failed: %v", err)
			return nil
		}
		recipients = append(recipients, phone)
	}

	log.Infof("Subscriber locator resolved %d recipients within %.0f km of (%.4f, %.4f)",
		len(recipients), radiusKm, lat, lng)
	return recipients
}
