// Package analysis turns raw reasoning output into a canonical gap set, a
// match score, and a minimal ordered list of interview questions.
package analysis

import (
	"fmt"
	"strings"
	"unicode"

	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/sessions"
)

var idPrefix = map[sessions.Category]string{
	sessions.CategorySkills:     "skill",
	sessions.CategoryExperience: "exp",
	sessions.CategoryKeywords:   "keyword",
	sessions.CategoryMetrics:    "metric",
}

// Canonicalize validates, dedupes, and numbers raw gaps. Duplicates share a
// category and normalized description; the first one wins and keeps the
// highest importance seen. Ids are assigned per category in discovery order.
func Canonicalize(raw []reasoning.RawGap) ([]sessions.Gap, error) {
	type key struct {
		cat  sessions.Category
		desc string
	}
	index := map[key]int{}
	var out []sessions.Gap

	for i, rg := range raw {
		cat := sessions.Category(strings.ToLower(strings.TrimSpace(rg.Category)))
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: gap %d has unknown category %q", reasoning.ErrMalformed, i, rg.Category)
		}
		imp := sessions.Importance(strings.ToLower(strings.TrimSpace(rg.Importance)))
		if !imp.Valid() {
			return nil, fmt.Errorf("%w: gap %d has unknown importance %q", reasoning.ErrMalformed, i, rg.Importance)
		}
		desc := collapseSpace(rg.Description)
		norm := NormalizeDescription(desc)
		if norm == "" {
			return nil, fmt.Errorf("%w: gap %d has empty description", reasoning.ErrMalformed, i)
		}

		k := key{cat, norm}
		if at, ok := index[k]; ok {
			if imp.Weight() > out[at].Importance.Weight() {
				out[at].Importance = imp
			}
			if out[at].Question == "" {
				out[at].Question = strings.TrimSpace(rg.Question)
			}
			continue
		}
		index[k] = len(out)
		out = append(out, sessions.Gap{
			Category:    cat,
			Description: desc,
			Importance:  imp,
			Question:    strings.TrimSpace(rg.Question),
			Order:       len(out),
		})
	}

	counters := map[sessions.Category]int{}
	for i := range out {
		counters[out[i].Category]++
		out[i].ID = fmt.Sprintf("%s_%d", idPrefix[out[i].Category], counters[out[i].Category])
	}
	return out, nil
}

// NormalizeDescription lower-cases, collapses whitespace, and strips trailing
// punctuation.
func NormalizeDescription(s string) string {
	s = strings.ToLower(collapseSpace(s))
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NewGapAnalysis groups gaps by category, keeping discovery order within each.
func NewGapAnalysis(gaps []sessions.Gap, reported int) *sessions.GapAnalysis {
	ga := &sessions.GapAnalysis{
		SkillsGaps:     []sessions.Gap{},
		ExperienceGaps: []sessions.Gap{},
		KeywordsGaps:   []sessions.Gap{},
		MetricsGaps:    []sessions.Gap{},
		MatchScore:     Score(gaps),
		ReportedScore:  reported,
	}
	for _, g := range gaps {
		switch g.Category {
		case sessions.CategorySkills:
			ga.SkillsGaps = append(ga.SkillsGaps, g)
		case sessions.CategoryExperience:
			ga.ExperienceGaps = append(ga.ExperienceGaps, g)
		case sessions.CategoryKeywords:
			ga.KeywordsGaps = append(ga.KeywordsGaps, g)
		case sessions.CategoryMetrics:
			ga.MetricsGaps = append(ga.MetricsGaps, g)
		}
	}
	return ga
}
