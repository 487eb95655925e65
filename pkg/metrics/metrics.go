// Package metrics exposes Prometheus collectors for backend selection and
// data migration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	adapterBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertdb_adapter_builds_total",
			Help: "Adapter constructions per database type and outcome",
		},
		[]string{"type", "status"},
	)

	activeDatabase = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "concertdb_active_database",
			Help: "1 for the database type currently serving requests, 0 otherwise",
		},
		[]string{"type"},
	)

	migrationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertdb_migration_runs_total",
			Help: "Completed migration runs by result",
		},
		[]string{"result"},
	)

	migrationStageRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertdb_migration_stage_records_total",
			Help: "Records copied to the document store per migration stage",
		},
		[]string{"stage"},
	)

	migrationStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concertdb_migration_stage_duration_seconds",
			Help:    "Duration of each migration stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"stage"},
	)
)

// TrackAdapterBuild counts an adapter construction attempt.
func TrackAdapterBuild(dbType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	adapterBuilds.WithLabelValues(dbType, status).Inc()
}

// SetActiveDatabase marks dbType as the serving backend among all.
func SetActiveDatabase(dbType string, all ...string) {
	for _, t := range all {
		activeDatabase.WithLabelValues(t).Set(0)
	}
	activeDatabase.WithLabelValues(dbType).Set(1)
}

// TrackMigrationRun counts a finished migration run.
func TrackMigrationRun(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	migrationRuns.WithLabelValues(result).Inc()
}

// TrackMigrationStage records the outcome of one migration stage.
func TrackMigrationStage(stage string, records int, duration time.Duration) {
	migrationStageRecords.WithLabelValues(stage).Add(float64(records))
	migrationStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}
