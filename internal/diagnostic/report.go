package diagnostic

import (
	"github.com/mpaulson/sqlsentinel/internal/antipattern"
	"github.com/mpaulson/sqlsentinel/internal/concurrency"
	"github.com/mpaulson/sqlsentinel/internal/confidence"
	"github.com/mpaulson/sqlsentinel/internal/consistency"
	"github.com/mpaulson/sqlsentinel/internal/drift"
	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/indexsynth"
	"github.com/mpaulson/sqlsentinel/internal/joinfanout"
	"github.com/mpaulson/sqlsentinel/internal/memory"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/regression"
	"github.com/mpaulson/sqlsentinel/internal/scalability"
	"github.com/mpaulson/sqlsentinel/internal/scoring"
	"github.com/mpaulson/sqlsentinel/internal/sqllite"
	"github.com/mpaulson/sqlsentinel/internal/stability"
	"github.com/mpaulson/sqlsentinel/internal/workload"
)

// Report is the full assembled result of one Run call (spec §4.16 step 10).
type Report struct {
	Metrics *metrics.Metrics
	SQLInfo *sqllite.Info

	Scoring     scoring.Result
	Scalability scalability.Result
	Memory      memory.Result
	Concurrency concurrency.Result
	Drift       drift.Result
	Stability   stability.Result
	AntiPattern antipattern.Result
	IndexSynth  indexsynth.Result
	JoinFanout  joinfanout.Result
	Confidence  confidence.Result
	Regression  regression.Result
	Workload    workload.Result
	Consistency consistency.Result

	Findings          []finding.Finding
	TopRecommendation string

	Passed        bool
	PartialResult bool
}
