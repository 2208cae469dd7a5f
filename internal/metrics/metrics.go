// Package metrics provides Prometheus metrics for the encounter manifest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's collectors.
type Metrics struct {
	ManifestsTotal       *prometheus.CounterVec
	BuildDuration        prometheus.Histogram
	DiagnosticsTotal     *prometheus.CounterVec
	SkippedCandidates    *prometheus.CounterVec
	EncountersPersisted  *prometheus.CounterVec
	MissingGeometryPages prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ManifestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "encounter_manifests_total",
				Help: "Manifest builds by outcome",
			},
			[]string{"outcome"},
		),
		BuildDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "encounter_manifest_build_duration_seconds",
				Help:    "Duration of manifest builds in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		DiagnosticsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "encounter_diagnostics_total",
				Help: "Non-fatal repairs and dropped data by kind",
			},
			[]string{"kind"},
		),
		SkippedCandidates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "encounter_candidates_skipped_total",
				Help: "Candidates dropped under the skip_invalid policy",
			},
			[]string{"stage"},
		),
		EncountersPersisted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "encounters_persisted_total",
				Help: "Encounter upserts by result",
			},
			[]string{"result"},
		),
		MissingGeometryPages: f.NewCounter(
			prometheus.CounterOpts{
				Name: "encounter_missing_geometry_pages_total",
				Help: "Pages inside encounter ranges with no OCR geometry",
			},
		),
	}
}
