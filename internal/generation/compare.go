package generation

import (
	"strings"

	"cv-optimizer/internal/analysis"
	"cv-optimizer/internal/sessions"
)

// Compare scores the optimized resume against the original analysis. A gap
// counts as addressed only when the question covering it carries a
// non-empty answer; skipped and unanswered gaps remain.
func Compare(ga sessions.GapAnalysis, questions []sessions.Question, reportedScore int, improvements []string) sessions.Comparison {
	answered := make(map[string]bool)
	for _, q := range questions {
		if q.Status != sessions.QuestionAnswered || strings.TrimSpace(q.AnswerText) == "" {
			continue
		}
		for _, id := range q.CoveredGapIDs {
			answered[id] = true
		}
	}

	out := sessions.Comparison{
		OriginalScore: ga.MatchScore,
		ReportedScore: reportedScore,
		GapsAddressed: []string{},
		GapsRemaining: []string{},
		Improvements:  CleanList(improvements),
	}
	var remaining []sessions.Gap
	for _, g := range ga.All() {
		if answered[g.ID] {
			out.GapsAddressed = append(out.GapsAddressed, g.ID)
			continue
		}
		out.GapsRemaining = append(out.GapsRemaining, g.ID)
		remaining = append(remaining, g)
	}
	out.OptimizedScore = analysis.Score(remaining)
	return out
}
