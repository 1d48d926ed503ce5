package analysis

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/sessions"
)

func mustCanonical(t *testing.T, raw []reasoning.RawGap) []sessions.Gap {
	t.Helper()
	gaps, err := Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	return gaps
}

func assertFullCoverage(t *testing.T, gaps []sessions.Gap, qs []sessions.Question) {
	t.Helper()
	if len(qs) > len(gaps) {
		t.Fatalf("%d questions for %d gaps", len(qs), len(gaps))
	}
	seen := map[string]int{}
	ids := map[string]bool{}
	for _, q := range qs {
		if ids[q.ID] {
			t.Fatalf("duplicate question id %s", q.ID)
		}
		ids[q.ID] = true
		if len(q.CoveredGapIDs) == 0 {
			t.Fatalf("question %s covers nothing", q.ID)
		}
		if q.Status != sessions.QuestionPending || strings.TrimSpace(q.Prompt) == "" {
			t.Fatalf("question %s not initialised: %+v", q.ID, q)
		}
		for _, id := range q.CoveredGapIDs {
			seen[id]++
		}
	}
	for _, g := range gaps {
		if seen[g.ID] != 1 {
			t.Fatalf("gap %s covered %d times", g.ID, seen[g.ID])
		}
	}
	if len(seen) != len(gaps) {
		t.Fatalf("questions cover unknown gaps: %v", seen)
	}
}

func TestCoverFullCoverageProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cats := []string{"skills", "experience", "keywords", "metrics"}
	imps := []string{"high", "medium", "low"}
	words := []string{"Python", "Docker", "AWS", "leadership", "stakeholder management", "Terraform", "GraphQL", "SOC 2", "revenue growth", "team size", "Rust", "Figma"}

	for iter := 0; iter < 300; iter++ {
		var raw []reasoning.RawGap
		for n := rng.Intn(20); n > 0; n-- {
			raw = append(raw, reasoning.RawGap{
				Category:    cats[rng.Intn(len(cats))],
				Description: fmt.Sprintf("%s %d", words[rng.Intn(len(words))], rng.Intn(6)),
				Importance:  imps[rng.Intn(len(imps))],
			})
		}
		gaps := mustCanonical(t, raw)
		qs := Cover(gaps)
		assertFullCoverage(t, gaps, qs)

		weights := map[string]int{}
		for _, g := range gaps {
			weights[g.ID] = g.Importance.Weight()
		}
		prev := -1
		for _, q := range qs {
			w := 0
			for _, id := range q.CoveredGapIDs {
				w += weights[id]
			}
			if prev >= 0 && w > prev {
				t.Fatalf("iteration %d: questions not ordered by weight", iter)
			}
			prev = w
		}
	}
}

func TestCoverScenarioSixGaps(t *testing.T) {
	gaps := mustCanonical(t, []reasoning.RawGap{
		{Category: "skills", Description: "Kubernetes", Importance: "high"},
		{Category: "experience", Description: "Owning an on-call rotation", Importance: "high"},
		{Category: "skills", Description: "Docker", Importance: "high"},
		{Category: "metrics", Description: "No latency improvements quantified", Importance: "medium"},
		{Category: "keywords", Description: "SRE", Importance: "medium"},
		{Category: "keywords", Description: "observability", Importance: "low"},
	})
	qs := Cover(gaps)
	assertFullCoverage(t, gaps, qs)
	if len(qs) >= 6 {
		t.Fatalf("expected bundling to save at least one question, got %d", len(qs))
	}
	if qs[0].ID != "q_skill_1" || len(qs[0].CoveredGapIDs) != 2 {
		t.Fatalf("expected the tech bundle first, got %+v", qs[0])
	}
	if !strings.Contains(qs[0].Prompt, "Kubernetes and Docker") {
		t.Fatalf("unexpected bundle prompt %q", qs[0].Prompt)
	}
}

func TestCoverBundlesMetrics(t *testing.T) {
	gaps := mustCanonical(t, []reasoning.RawGap{
		{Category: "metrics", Description: "No team size", Importance: "low"},
		{Category: "metrics", Description: "No cost savings", Importance: "medium"},
	})
	qs := Cover(gaps)
	if len(qs) != 1 {
		t.Fatalf("expected one metrics question, got %d", len(qs))
	}
	q := qs[0]
	if q.Prompt != MetricsPrompt || q.GapType != sessions.CategoryMetrics {
		t.Fatalf("unexpected metrics question %+v", q)
	}
	if q.ID != "q_metric_2" {
		t.Fatalf("primary gap should be the heaviest, got %s", q.ID)
	}
}

func TestCoverPrefersHighImportance(t *testing.T) {
	gaps := mustCanonical(t, []reasoning.RawGap{
		{Category: "skills", Description: "Python", Importance: "low"},
		{Category: "skills", Description: "SQL", Importance: "low"},
		{Category: "skills", Description: "React", Importance: "low"},
		{Category: "experience", Description: "Budget ownership", Importance: "high", Question: "Have you owned a budget?"},
	})
	qs := Cover(gaps)
	assertFullCoverage(t, gaps, qs)
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].ID != "q_exp_1" || qs[0].Prompt != "Have you owned a budget?" {
		t.Fatalf("expected the high gap first with its proposed question, got %+v", qs[0])
	}
}

func TestCoverSoftBundleAndTemplates(t *testing.T) {
	gaps := mustCanonical(t, []reasoning.RawGap{
		{Category: "skills", Description: "Leadership", Importance: "medium"},
		{Category: "skills", Description: "Stakeholder communication", Importance: "medium"},
		{Category: "keywords", Description: "Figma", Importance: "low"},
	})
	qs := Cover(gaps)
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].Prompt != "Describe a situation where you demonstrated Leadership and Stakeholder communication." {
		t.Fatalf("unexpected soft prompt %q", qs[0].Prompt)
	}
	if !strings.HasPrefix(qs[1].Prompt, "Have you worked with Figma?") {
		t.Fatalf("unexpected keyword template %q", qs[1].Prompt)
	}
}

func TestCoverNoGaps(t *testing.T) {
	qs := Cover(nil)
	if qs == nil || len(qs) != 0 {
		t.Fatalf("expected empty question list, got %v", qs)
	}
}
