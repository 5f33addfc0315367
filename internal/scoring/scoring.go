// Package scoring implements C4: the five-weighted-subscore composite
// score, size-aware execution-time blend, context overrides, dataset
// dampening, and confidence gate.
package scoring

import (
	"fmt"
	"math"

	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// Weights are the five sub-score weights; they must sum to 1.0 (spec §6
// configuration surface). Zero-value Weights is invalid — use
// DefaultWeights() or construct and Validate().
type Weights struct {
	ExecutionTime   float64
	ScanEfficiency  float64
	IndexQuality    float64
	JoinEfficiency  float64
	Scalability     float64
}

// DefaultWeights returns the spec §4.3 default weighting.
func DefaultWeights() Weights {
	return Weights{
		ExecutionTime:  0.35,
		ScanEfficiency: 0.20,
		IndexQuality:   0.15,
		JoinEfficiency: 0.10,
		Scalability:    0.20,
	}
}

// Validate reports ConfigurationInvalid-style errors (spec §7): weights
// must sum to 1.0 within 1e-9, per the universal invariant in spec §8.
func (w Weights) Validate() error {
	sum := w.ExecutionTime + w.ScanEfficiency + w.IndexQuality + w.JoinEfficiency + w.Scalability
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring: weights must sum to 1.0, got %.9f", sum)
	}
	return nil
}

// Result is the full scoring output for one analysis.
type Result struct {
	Composite float64
	Grade     string

	ExecutionTimeScore float64
	ScanEfficiencyScore float64
	IndexQualityScore   float64
	JoinEfficiencyScore float64
	ScalabilityScore    float64

	ContextOverride bool
	DatasetDampened bool
}

// Score computes the C4 composite score and grade for one Metrics record.
func Score(m *metrics.Metrics, w Weights) Result {
	execScore := executionTimeScore(m)
	scanScore := scanEfficiencyScore(m)
	indexScore := indexQualityScore(m)
	joinScore := joinEfficiencyScore(m)
	scaleScore := scalabilityScore(m)

	composite := w.ExecutionTime*execScore +
		w.ScanEfficiency*scanScore +
		w.IndexQuality*indexScore +
		w.JoinEfficiency*joinScore +
		w.Scalability*scaleScore

	res := Result{
		ExecutionTimeScore:  execScore,
		ScanEfficiencyScore: scanScore,
		IndexQualityScore:   indexScore,
		JoinEfficiencyScore: joinScore,
		ScalabilityScore:    scaleScore,
	}

	composite, res.ContextOverride = applyContextOverride(m, composite)
	composite, res.DatasetDampened = applyDatasetDampening(m, composite)

	res.Composite = composite
	res.Grade = grade(composite)
	return res
}

func scanEfficiencyScore(m *metrics.Metrics) float64 {
	if m.RowsExamined == 0 {
		return 100
	}
	selectivity := float64(m.RowsReturned) / float64(m.RowsExamined)
	score := math.Round(100 * selectivity)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func indexQualityScore(m *metrics.Metrics) float64 {
	switch m.PrimaryAccessType {
	case metrics.AccessConstRow, metrics.AccessSingleRowLookup, metrics.AccessZeroRowConst:
		return 100
	}
	score := 100.0
	if m.HasTableScan && !m.IsIntentionalScan {
		score -= 70
	}
	if !m.HasCoveringIndex {
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	return score
}

func joinEfficiencyScore(m *metrics.Metrics) float64 {
	depth := m.NestedLoopDepth
	var score float64
	switch {
	case depth <= 2:
		score = 100
	case depth == 3:
		score = 80
	case depth == 4:
		score = 60
	default:
		score = 40
	}
	if m.FanoutFactor > 10000 && depth > 0 {
		score -= 30
	}
	if m.HasWeedout {
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	return score
}

func scalabilityScore(m *metrics.Metrics) float64 {
	var score float64
	switch m.Complexity {
	case metrics.ComplexityConstant:
		score = 100
	case metrics.ComplexityLogarithmic:
		score = 90
	case metrics.ComplexityLogRange:
		score = 80
	case metrics.ComplexityLinear:
		score = 50
	case metrics.ComplexityLinearithmic:
		score = 30
	case metrics.ComplexityQuadratic:
		score = 10
	}
	if m.HasEarlyTermination {
		score += 20
	}
	if score > 100 {
		score = 100
	}
	return score
}

// expectedMicrosPerRow maps primary access type to the expected cost used
// by the per-row execution-time tier, per spec §4.3.
func expectedMicrosPerRow(a metrics.AccessType) float64 {
	switch a {
	case metrics.AccessTableScan, metrics.AccessIndexScan:
		return 0.3
	case metrics.AccessIndexRangeScan:
		return 0.2
	case metrics.AccessIndexLookup, metrics.AccessCoveringIndexLookup:
		return 0.1
	case metrics.AccessSingleRowLookup:
		return 0.05
	case metrics.AccessConstRow, metrics.AccessZeroRowConst:
		return 0.01
	default:
		return 0.3
	}
}

func absoluteTimeScore(t float64) float64 {
	switch {
	case t <= 1:
		return 100
	case t <= 10:
		return 95
	case t <= 100:
		return 90 - (t-10)*20/90
	case t <= 1000:
		return 70 - (t-100)*20/900
	case t <= 5000:
		return 50 - (t-1000)*20/4000
	case t <= 10000:
		return 30 - (t-5000)*20/5000
	case t <= 30000:
		return 10
	default:
		return 0
	}
}

func perRowTimeScore(m *metrics.Metrics) float64 {
	expected := expectedMicrosPerRow(m.PrimaryAccessType)
	actual := 1000 * m.ExecutionTimeMs / math.Max(float64(m.RowsExamined), 1)
	ratio := actual / expected
	switch {
	case ratio <= 1:
		return 100
	case ratio <= 2:
		return 95
	case ratio <= 5:
		return 70
	case ratio <= 10:
		return 50
	case ratio <= 50:
		return 30
	default:
		return 10
	}
}

// executionTimeScore implements the size-aware blend from spec §4.3. The
// rows_examined==1000 boundary is deliberately placed in the pure-absolute
// tier (spec §9 open question a).
func executionTimeScore(m *metrics.Metrics) float64 {
	rows := m.RowsExamined
	t := m.ExecutionTimeMs
	switch {
	case rows < 1000:
		return math.Round(absoluteTimeScore(t))
	case rows > 10000:
		return math.Round(perRowTimeScore(m))
	default:
		w := float64(rows-1000) / 9000
		abs := absoluteTimeScore(t)
		perRow := perRowTimeScore(m)
		return math.Round(w*perRow + (1-w)*abs)
	}
}

func applyContextOverride(m *metrics.Metrics, composite float64) (float64, bool) {
	if composite >= 95 {
		return composite, false
	}
	optimalAccessFast := isOptimalAccess(m.PrimaryAccessType) && m.ExecutionTimeMs < 10
	intentionalGood := m.IsIntentionalScan && (m.HasCoveringIndex || m.Complexity == metrics.ComplexityConstant)
	if optimalAccessFast || intentionalGood {
		composite = math.Max(composite, 95)
		if composite > 95 {
			composite = 95
		}
		return composite, true
	}
	return composite, false
}

func isOptimalAccess(a metrics.AccessType) bool {
	switch a {
	case metrics.AccessConstRow, metrics.AccessSingleRowLookup, metrics.AccessZeroRowConst:
		return true
	default:
		return false
	}
}

// applyDatasetDampening implements spec §4.3's dampening rule. Base-10
// logarithm is required (spec §9 open question b): natural log diverges.
func applyDatasetDampening(m *metrics.Metrics, composite float64) (float64, bool) {
	if !m.IsIntentionalScan || m.RowsExamined <= 10000 {
		return composite, false
	}
	maxAllowed := 98 - math.Log10(float64(m.RowsExamined)/10000)*2
	if composite > maxAllowed {
		return maxAllowed, true
	}
	return composite, true
}

func grade(composite float64) string {
	switch {
	case composite >= 98:
		return "A+"
	case composite >= 90:
		return "A"
	case composite >= 80:
		return "B"
	case composite >= 70:
		return "C"
	case composite >= 50:
		return "D"
	default:
		return "F"
	}
}

// ApplyConfidenceGate implements the post-hoc cap from spec §4.3: low
// confidence or any Critical finding caps both composite and grade.
func ApplyConfidenceGate(composite float64, grd string, confidence float64, hasCritical bool) (float64, string) {
	if confidence < 0.5 {
		if composite > 50 {
			composite = 50
		}
		grd = capGrade(grd, "C")
		return composite, grd
	}
	if confidence < 0.7 || hasCritical {
		if composite > 75 {
			composite = 75
		}
		grd = capGrade(grd, "B")
		return composite, grd
	}
	return composite, grd
}

var gradeRank = map[string]int{"F": 0, "D": 1, "C": 2, "B": 3, "A": 4, "A+": 5}

func capGrade(current, cap string) string {
	if gradeRank[current] > gradeRank[cap] {
		return cap
	}
	return current
}
