package analysis

import (
	"fmt"
	"sort"
	"strings"

	"cv-optimizer/internal/sessions"
)

var techKeywords = []string{
	"python", "java", "aws", "docker", "kubernetes", "react", "node",
	"sql", "api", "cloud", "devops", "ci/cd", "testing", "database",
	"frontend", "backend", "fullstack", "microservices", "agile",
}

var softKeywords = []string{
	"leadership", "team", "communication", "management", "collaboration",
	"stakeholder", "mentor", "cross-functional",
}

// MetricsPrompt asks for quantified impact across every metrics gap at once.
const MetricsPrompt = "Can you share specific metrics or numbers from your work? For example: team sizes you've led, percentage improvements, cost savings, or user growth you've achieved."

type bundleKind int

const (
	bundleTech bundleKind = iota
	bundleSoft
	bundleMetrics
	bundleKeywords
	bundleSingle
)

var bundleLimit = map[bundleKind]int{
	bundleTech:     3,
	bundleSoft:     2,
	bundleMetrics:  3,
	bundleKeywords: 3,
	bundleSingle:   1,
}

type candidate struct {
	kind bundleKind
	gaps []sessions.Gap
}

// Cover compresses gaps into an ordered question list. Every gap is covered
// by exactly one question and there are never more questions than gaps.
func Cover(gaps []sessions.Gap) []sessions.Question {
	if len(gaps) == 0 {
		return []sessions.Question{}
	}
	ordered := append([]sessions.Gap(nil), gaps...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	cands := candidates(ordered)
	uncovered := make(map[string]bool, len(ordered))
	for _, g := range ordered {
		uncovered[g.ID] = true
	}

	var picked []candidate
	for len(uncovered) > 0 {
		bestIdx := -1
		var best []sessions.Gap
		var bestScore [3]int
		for i, c := range cands {
			open := openGaps(c.gaps, uncovered)
			if len(open) == 0 {
				continue
			}
			score := importanceTuple(open)
			if bestIdx < 0 || better(score, open[0].Order, bestScore, best[0].Order) {
				bestIdx, best, bestScore = i, open, score
			}
		}
		for _, g := range best {
			delete(uncovered, g.ID)
		}
		picked = append(picked, candidate{kind: cands[bestIdx].kind, gaps: best})
	}

	questions := make([]sessions.Question, 0, len(picked))
	for _, c := range picked {
		questions = append(questions, toQuestion(c))
	}
	sortQuestions(questions, ordered)
	return questions
}

// candidates lists bundles first, then one singleton per gap, so bundles win
// ties against their own members.
func candidates(gaps []sessions.Gap) []candidate {
	var tech, soft, metrics, keywords []sessions.Gap
	for _, g := range gaps {
		desc := strings.ToLower(g.Description)
		switch {
		case g.Category == sessions.CategoryMetrics:
			metrics = append(metrics, g)
		case g.Category == sessions.CategoryExperience:
		case containsAny(desc, techKeywords):
			tech = append(tech, g)
		case containsAny(desc, softKeywords):
			soft = append(soft, g)
		case g.Category == sessions.CategoryKeywords:
			keywords = append(keywords, g)
		}
	}

	var out []candidate
	out = append(out, chunk(bundleTech, tech)...)
	out = append(out, chunk(bundleSoft, soft)...)
	out = append(out, chunk(bundleMetrics, metrics)...)
	out = append(out, chunk(bundleKeywords, keywords)...)
	for _, g := range gaps {
		out = append(out, candidate{kind: bundleSingle, gaps: []sessions.Gap{g}})
	}
	return out
}

func chunk(kind bundleKind, gaps []sessions.Gap) []candidate {
	limit := bundleLimit[kind]
	var out []candidate
	for start := 0; start < len(gaps); start += limit {
		end := start + limit
		if end > len(gaps) {
			end = len(gaps)
		}
		if end-start < 2 {
			continue
		}
		out = append(out, candidate{kind: kind, gaps: gaps[start:end]})
	}
	return out
}

func openGaps(gaps []sessions.Gap, uncovered map[string]bool) []sessions.Gap {
	var open []sessions.Gap
	for _, g := range gaps {
		if uncovered[g.ID] {
			open = append(open, g)
		}
	}
	return open
}

// importanceTuple counts (high, medium, low) gaps.
func importanceTuple(gaps []sessions.Gap) [3]int {
	var t [3]int
	for _, g := range gaps {
		switch g.Importance {
		case sessions.ImportanceHigh:
			t[0]++
		case sessions.ImportanceMedium:
			t[1]++
		default:
			t[2]++
		}
	}
	return t
}

// better compares lexicographically, then by earliest discovery. Equal
// candidates keep the earlier one.
func better(a [3]int, aOrder int, b [3]int, bOrder int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return aOrder < bOrder
}

func toQuestion(c candidate) sessions.Question {
	primary := c.gaps[0]
	for _, g := range c.gaps[1:] {
		if g.Importance.Weight() > primary.Importance.Weight() {
			primary = g
		}
	}
	ids := make([]string, len(c.gaps))
	for i, g := range c.gaps {
		ids[i] = g.ID
	}
	return sessions.Question{
		ID:            "q_" + primary.ID,
		Prompt:        renderPrompt(c),
		GapType:       primary.Category,
		CoveredGapIDs: ids,
		Status:        sessions.QuestionPending,
	}
}

func renderPrompt(c candidate) string {
	if len(c.gaps) == 1 {
		return singlePrompt(c.gaps[0])
	}
	names := make([]string, len(c.gaps))
	for i, g := range c.gaps {
		names[i] = g.Description
	}
	switch c.kind {
	case bundleTech:
		return fmt.Sprintf("Tell me about your experience with %s. Which have you used most recently and in what context?", joinList(names, "and"))
	case bundleSoft:
		return fmt.Sprintf("Describe a situation where you demonstrated %s.", joinList(names, "and"))
	case bundleMetrics:
		return MetricsPrompt
	default:
		return fmt.Sprintf("Have you worked with %s? Describe where and how you used them.", joinList(names, "or"))
	}
}

func singlePrompt(g sessions.Gap) string {
	if g.Question != "" {
		return g.Question
	}
	switch g.Category {
	case sessions.CategorySkills:
		return fmt.Sprintf("Do you have experience with %s? Describe a project where you applied it.", g.Description)
	case sessions.CategoryExperience:
		return fmt.Sprintf("The role asks for %s. Tell me about a time you did something similar.", g.Description)
	case sessions.CategoryKeywords:
		return fmt.Sprintf("Have you worked with %s? Describe where and how you used it.", g.Description)
	default:
		return MetricsPrompt
	}
}

func joinList(items []string, conj string) string {
	if len(items) == 1 {
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " " + conj + " " + items[len(items)-1]
}

func sortQuestions(qs []sessions.Question, gaps []sessions.Gap) {
	byID := make(map[string]sessions.Gap, len(gaps))
	for _, g := range gaps {
		byID[g.ID] = g
	}
	weight := func(q sessions.Question) int {
		w := 0
		for _, id := range q.CoveredGapIDs {
			w += byID[id].Importance.Weight()
		}
		return w
	}
	sort.SliceStable(qs, func(i, j int) bool {
		wi, wj := weight(qs[i]), weight(qs[j])
		if wi != wj {
			return wi > wj
		}
		pi := byID[strings.TrimPrefix(qs[i].ID, "q_")]
		pj := byID[strings.TrimPrefix(qs[j].ID, "q_")]
		if pi.Category.Rank() != pj.Category.Rank() {
			return pi.Category.Rank() < pj.Category.Rank()
		}
		return pi.Order < pj.Order
	})
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
