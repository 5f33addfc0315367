// Package diagnostic implements C17: the orchestrator that runs every
// analyzer over one parsed query plan, reconciles/suppresses their
// findings, and assembles the final Report.
package diagnostic

import (
	"github.com/mpaulson/sqlsentinel/internal/antipattern"
	"github.com/mpaulson/sqlsentinel/internal/confidence"
	"github.com/mpaulson/sqlsentinel/internal/drift"
	"github.com/mpaulson/sqlsentinel/internal/indexsynth"
	"github.com/mpaulson/sqlsentinel/internal/memory"
	"github.com/mpaulson/sqlsentinel/internal/regression"
	"github.com/mpaulson/sqlsentinel/internal/scoring"
	"github.com/mpaulson/sqlsentinel/internal/workload"
)

// Config aggregates every component's configuration surface plus the
// orchestrator's own cancellation/budget knobs (spec §6, SPEC_FULL.md §4).
type Config struct {
	ScoringWeights    scoring.Weights
	ConfidenceWeights confidence.Weights

	ScalabilityTargetRows int64

	Memory      memory.Config
	Drift       drift.Config
	AntiPattern antipattern.Config
	IndexSynth  indexsynth.Config
	Workload    workload.Config
	Regression  regression.Config

	// AnalysisBudgetMs bounds total wall-clock for one Run call; 0 disables
	// the budget check (spec §5 default is 2000ms).
	AnalysisBudgetMs int64

	BaselineMaxSnapshotsPerHash int
}

// DefaultConfig returns the spec's default configuration surface.
func DefaultConfig() Config {
	return Config{
		ScoringWeights:              scoring.DefaultWeights(),
		ConfidenceWeights:           confidence.DefaultWeights(),
		ScalabilityTargetRows:       1_000_000,
		Memory:                      memory.DefaultConfig(),
		Drift:                       drift.DefaultConfig(),
		AntiPattern:                 antipattern.DefaultConfig(),
		IndexSynth:                  indexsynth.DefaultConfig(),
		Workload:                    workload.DefaultConfig(),
		Regression:                  regression.DefaultConfig(),
		AnalysisBudgetMs:            2000,
		BaselineMaxSnapshotsPerHash: 200,
	}
}
