package interview

import (
	"errors"
	"testing"

	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
)

func pending(ids ...string) []sessions.Question {
	qs := make([]sessions.Question, len(ids))
	for i, id := range ids {
		qs[i] = sessions.Question{ID: id, Prompt: "p", CoveredGapIDs: []string{id}, Status: sessions.QuestionPending}
	}
	return qs
}

func TestSubmitAdvancesProgress(t *testing.T) {
	qs := pending("q_skill_1", "q_exp_1", "q_metric_1")

	p, err := Submit(qs, "q_skill_1", "  Five years of Go  ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p != (Progress{Answered: 1, NextIndex: 1, Total: 3}) {
		t.Fatalf("unexpected progress %+v", p)
	}
	if qs[0].Status != sessions.QuestionAnswered || qs[0].AnswerText != "Five years of Go" {
		t.Fatalf("unexpected question %+v", qs[0])
	}

	// Out of order: the cursor still points at the first pending question.
	p, err = Skip(qs, "q_metric_1")
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if p.NextIndex != 1 || p.Answered != 2 || p.Complete {
		t.Fatalf("unexpected progress %+v", p)
	}

	p, err = Submit(qs, "q_exp_1", "Ran the on-call rotation")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !p.Complete || p.NextIndex != InterviewComplete || !Complete(qs) {
		t.Fatalf("expected complete interview, got %+v", p)
	}
}

func TestTerminalQuestionsAreNeverOverwritten(t *testing.T) {
	ops := []struct {
		name string
		run  func([]sessions.Question) error
	}{
		{"submit", func(qs []sessions.Question) error { _, err := Submit(qs, "q1", "second"); return err }},
		{"skip", func(qs []sessions.Question) error { _, err := Skip(qs, "q1"); return err }},
	}
	firsts := []struct {
		name string
		run  func([]sessions.Question) error
	}{
		{"answered", func(qs []sessions.Question) error { _, err := Submit(qs, "q1", "first"); return err }},
		{"skipped", func(qs []sessions.Question) error { _, err := Skip(qs, "q1"); return err }},
	}

	for _, first := range firsts {
		for _, op := range ops {
			t.Run(first.name+"/"+op.name, func(t *testing.T) {
				qs := pending("q1", "q2")
				if err := first.run(qs); err != nil {
					t.Fatalf("first transition: %v", err)
				}
				before := qs[0]
				err := op.run(qs)
				if !errors.Is(err, apperr.ErrInvalidState) {
					t.Fatalf("expected invalid state, got %v", err)
				}
				if qs[0].Status != before.Status || qs[0].AnswerText != before.AnswerText {
					t.Fatalf("terminal question changed: %+v -> %+v", before, qs[0])
				}
			})
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	qs := pending("q1")
	if _, err := Submit(qs, "q1", "   "); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if qs[0].Status != sessions.QuestionPending {
		t.Fatalf("blank submit must not change the question")
	}
	if _, err := Submit(qs, "q9", "text"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgressOfEmpty(t *testing.T) {
	p := ProgressOf(nil)
	if !p.Complete || p.NextIndex != InterviewComplete || p.Total != 0 {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestSkipPending(t *testing.T) {
	qs := pending("q1", "q2", "q3")
	_, _ = Submit(qs, "q2", "done")
	if n := SkipPending(qs); n != 2 {
		t.Fatalf("expected 2 skipped, got %d", n)
	}
	if qs[1].Status != sessions.QuestionAnswered || qs[1].AnswerText != "done" {
		t.Fatalf("answered question must be kept, got %+v", qs[1])
	}
	if !Complete(qs) {
		t.Fatalf("expected complete after SkipPending")
	}
}
