// Package evaluation decides whether a freshly trained model replaces the
// published one.
package evaluation

import "github.com/okian/lapprice/internal/domain/model"

// Evaluate compares candidate R2 with the incumbent's. The candidate must
// beat a published model strictly; without one the baseline is 0 and any
// non-negative score is accepted.
func Evaluate(candidate float64, incumbent *float64) model.EvaluationResult {
	if incumbent == nil {
		return model.EvaluationResult{
			CandidateR2: candidate,
			Accepted:    candidate >= 0,
			Delta:       candidate,
		}
	}
	v := *incumbent
	return model.EvaluationResult{
		CandidateR2: candidate,
		IncumbentR2: &v,
		Accepted:    candidate > v,
		Delta:       candidate - v,
	}
}

// MeetsThreshold reports whether score reaches the configured floor.
func MeetsThreshold(score, expected float64) bool {
	return score >= expected
}
