// Package interview drives the question-by-question interview of a session.
package interview

import (
	"strings"

	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
)

// InterviewComplete is the NextIndex reported once no question is pending.
const InterviewComplete = -1

// Progress summarises an interview after a transition.
type Progress struct {
	Answered  int  `json:"answered"`
	NextIndex int  `json:"next_index"`
	Total     int  `json:"total"`
	Complete  bool `json:"complete"`
}

// ProgressOf reports how far qs has advanced.
func ProgressOf(qs []sessions.Question) Progress {
	p := Progress{NextIndex: InterviewComplete, Total: len(qs)}
	for i, q := range qs {
		if q.Terminal() {
			p.Answered++
			continue
		}
		if p.NextIndex == InterviewComplete {
			p.NextIndex = i
		}
	}
	p.Complete = p.NextIndex == InterviewComplete
	return p
}

// Complete reports whether no question is pending.
func Complete(qs []sessions.Question) bool {
	return ProgressOf(qs).Complete
}

// Submit records a non-empty answer for question id.
func Submit(qs []sessions.Question, id, text string) (Progress, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Progress{}, apperr.Validation("answer_text must not be empty; skip the question instead")
	}
	return settle(qs, id, sessions.QuestionAnswered, text)
}

// Skip records an explicit skip, stored as an empty answer.
func Skip(qs []sessions.Question, id string) (Progress, error) {
	return settle(qs, id, sessions.QuestionSkipped, "")
}

// SkipPending turns every pending question into a skip and returns how many changed.
func SkipPending(qs []sessions.Question) int {
	n := 0
	for i := range qs {
		if qs[i].Status == sessions.QuestionPending || qs[i].Status == "" {
			qs[i].Status = sessions.QuestionSkipped
			qs[i].AnswerText = ""
			n++
		}
	}
	return n
}

func settle(qs []sessions.Question, id string, status sessions.QuestionStatus, text string) (Progress, error) {
	i := indexOf(qs, id)
	if i < 0 {
		return Progress{}, apperr.NotFound("question not found")
	}
	if qs[i].Terminal() {
		return Progress{}, apperr.InvalidState("This question has already been answered or skipped")
	}
	qs[i].Status = status
	qs[i].AnswerText = text
	return ProgressOf(qs), nil
}

func indexOf(qs []sessions.Question, id string) int {
	id = strings.TrimSpace(id)
	for i, q := range qs {
		if q.ID == id {
			return i
		}
	}
	return -1
}
