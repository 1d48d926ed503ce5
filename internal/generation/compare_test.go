package generation

import (
	"math/rand"
	"reflect"
	"testing"

	"cv-optimizer/internal/analysis"
	"cv-optimizer/internal/sessions"
)

func TestCompareCountsOnlyNonEmptyAnswers(t *testing.T) {
	ga := sessions.GapAnalysis{
		SkillsGaps:     []sessions.Gap{{ID: "skill_1", Importance: sessions.ImportanceHigh, Order: 0}},
		ExperienceGaps: []sessions.Gap{{ID: "exp_1", Importance: sessions.ImportanceMedium, Order: 1}},
		MetricsGaps:    []sessions.Gap{{ID: "metric_1", Importance: sessions.ImportanceLow, Order: 2}},
		MatchScore:     76,
	}
	qs := []sessions.Question{
		{ID: "q_skill_1", CoveredGapIDs: []string{"skill_1"}, Status: sessions.QuestionAnswered, AnswerText: "Yes, daily"},
		{ID: "q_exp_1", CoveredGapIDs: []string{"exp_1"}, Status: sessions.QuestionSkipped},
		{ID: "q_metric_1", CoveredGapIDs: []string{"metric_1"}, Status: sessions.QuestionAnswered, AnswerText: "   "},
	}

	got := Compare(ga, qs, 88, []string{"Added metrics", "added metrics", "n/a"})
	if !reflect.DeepEqual(got.GapsAddressed, []string{"skill_1"}) {
		t.Fatalf("unexpected addressed %q", got.GapsAddressed)
	}
	if !reflect.DeepEqual(got.GapsRemaining, []string{"exp_1", "metric_1"}) {
		t.Fatalf("unexpected remaining %q", got.GapsRemaining)
	}
	if got.OriginalScore != 76 || got.OptimizedScore != 86 || got.ReportedScore != 88 {
		t.Fatalf("unexpected scores %+v", got)
	}
	if !reflect.DeepEqual(got.Improvements, []string{"Added metrics"}) {
		t.Fatalf("unexpected improvements %q", got.Improvements)
	}
}

func TestCompareOptimizedNeverBelowOriginal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	levels := []sessions.Importance{sessions.ImportanceHigh, sessions.ImportanceMedium, sessions.ImportanceLow}
	cats := []sessions.Category{sessions.CategorySkills, sessions.CategoryExperience, sessions.CategoryKeywords, sessions.CategoryMetrics}

	for iter := 0; iter < 200; iter++ {
		var gaps []sessions.Gap
		n := rng.Intn(12)
		for i := 0; i < n; i++ {
			gaps = append(gaps, sessions.Gap{
				ID:          string(cats[rng.Intn(len(cats))]) + "_" + string(rune('a'+i)),
				Category:    cats[rng.Intn(len(cats))],
				Description: "gap",
				Importance:  levels[rng.Intn(len(levels))],
				Order:       i,
			})
		}
		ga := analysis.NewGapAnalysis(gaps, 40)
		qs := analysis.Cover(gaps)
		for i := range qs {
			if rng.Intn(2) == 0 {
				qs[i].Status = sessions.QuestionAnswered
				qs[i].AnswerText = "answer"
			} else {
				qs[i].Status = sessions.QuestionSkipped
			}
		}
		got := Compare(*ga, qs, 0, nil)
		if got.OptimizedScore < got.OriginalScore {
			t.Fatalf("iteration %d: optimized %d below original %d", iter, got.OptimizedScore, got.OriginalScore)
		}
		if len(got.GapsAddressed)+len(got.GapsRemaining) != n {
			t.Fatalf("iteration %d: gaps not partitioned", iter)
		}
	}
}
