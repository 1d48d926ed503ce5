package analysis

import "cv-optimizer/internal/sessions"

// ScoreCeiling is the score of a gap-free resume.
const ScoreCeiling = 95

// Score is ScoreCeiling minus the summed importance weight of gaps, floored
// at zero. Adding a gap or raising its importance never raises the score.
func Score(gaps []sessions.Gap) int {
	total := 0
	for _, g := range gaps {
		total += g.Importance.Weight()
	}
	if total >= ScoreCeiling {
		return 0
	}
	return ScoreCeiling - total
}
