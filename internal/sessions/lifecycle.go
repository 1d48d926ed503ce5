package sessions

import (
	"fmt"

	"cv-optimizer/internal/shared/apperr"
)

var transitions = map[Status][]Status{
	StatusEmpty:           {StatusCVUploaded},
	StatusCVUploaded:      {StatusCVUploaded, StatusAnalyzed},
	StatusAnalyzed:        {StatusAnalyzed, StatusInterviewActive, StatusGenerated},
	StatusInterviewActive: {StatusAnalyzed, StatusInterviewActive, StatusGenerated},
	StatusGenerated:       {StatusAnalyzed, StatusGenerated},
}

// CanTransition reports whether a session may move from one status to
// another. Every live status may move to deleted; deleted is terminal.
func CanTransition(from, to Status) bool {
	if from == StatusDeleted {
		return false
	}
	if to == StatusDeleted {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves s to the target status or returns an invalid-state error.
func (s *Session) Transition(to Status) error {
	if !CanTransition(s.Status, to) {
		return apperr.InvalidState(transitionMessage(s.Status, to))
	}
	s.Status = to
	return nil
}

func transitionMessage(from, to Status) string {
	switch to {
	case StatusCVUploaded:
		return "a resume can only be uploaded before analysis"
	case StatusAnalyzed:
		return "upload a resume before running analysis"
	case StatusInterviewActive:
		return "run analysis before answering questions"
	case StatusGenerated:
		return "run analysis before generating a resume"
	}
	return fmt.Sprintf("cannot move session from %s to %s", from, to)
}
