package domain

import (
	"fmt"
	"time"
)

const (
	DefaultEndpoint    = "/checkout"
	DefaultRollbackURL = "https://orkes.io/demo-rollback"
)

// Snapshot is the read-only view pushed to dashboards. It is never stored.
type Snapshot struct {
	Endpoint       string  `json:"endpoint"`
	ARRRisk        float64 `json:"arr_risk"`
	ErrorCount     int     `json:"error_count"`
	ConversionRate float64 `json:"conversion_rate"`
	RollbackURL    string  `json:"rollback_url"`
	Status         Status  `json:"status"`
	Summary        string  `json:"summary"`
	Timestamp      string  `json:"timestamp"`
}

// SnapshotSettings carries the deployment-specific parts of a snapshot.
type SnapshotSettings struct {
	Endpoint    string
	RollbackURL string
}

// Impact is one row of the static impact table.
type Impact struct {
	ErrorCount     int
	ConversionRate float64
	ARRRisk        float64
	Summary        string
}

var impactTable = map[Status]Impact{
	StatusHealthy: {
		ErrorCount:     0,
		ConversionRate: 0.85,
		ARRRisk:        0,
		Summary:        "All systems operational. Conversion rate at 85%.",
	},
	StatusWarning: {
		ErrorCount:     15,
		ConversionRate: 0.72,
		ARRRisk:        2100,
		Summary:        "Increased error rate detected. Conversion dropped to 72%. $2,100 at risk.",
	},
	StatusCritical: {
		ErrorCount:     47,
		ConversionRate: 0.31,
		ARRRisk:        8400,
		Summary:        "Critical error spike! Conversion rate plummeted to 31%. $8,400 at immediate risk.",
	},
}

// ImpactFor returns the table row for status, or ErrInvalidStatus when status is not
// one of the canonical values.
func ImpactFor(status Status) (Impact, error) {
	impact, ok := impactTable[status]
	if !ok {
		return Impact{}, fmt.Errorf("%w: %q has no impact entry", ErrInvalidStatus, status)
	}
	return impact, nil
}

// DeriveSnapshot computes the snapshot for status at now. An unknown status is an
// error, never a default.
func DeriveSnapshot(status Status, now time.Time, settings SnapshotSettings) (Snapshot, error) {
	impact, err := ImpactFor(status)
	if err != nil {
		return Snapshot{}, err
	}

	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	rollbackURL := settings.RollbackURL
	if rollbackURL == "" {
		rollbackURL = DefaultRollbackURL
	}

	return Snapshot{
		Endpoint:       endpoint,
		ARRRisk:        impact.ARRRisk,
		ErrorCount:     impact.ErrorCount,
		ConversionRate: impact.ConversionRate,
		RollbackURL:    rollbackURL,
		Status:         status,
		Summary:        impact.Summary,
		Timestamp:      FormatTimestamp(now),
	}, nil
}

// FormatTimestamp renders t as an ISO-8601 timestamp in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
