package sessions

import (
	"errors"
	"testing"

	"cv-optimizer/internal/shared/apperr"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusEmpty, StatusCVUploaded, true},
		{StatusEmpty, StatusAnalyzed, false},
		{StatusCVUploaded, StatusCVUploaded, true},
		{StatusCVUploaded, StatusAnalyzed, true},
		{StatusCVUploaded, StatusInterviewActive, false},
		{StatusAnalyzed, StatusInterviewActive, true},
		{StatusAnalyzed, StatusCVUploaded, false},
		{StatusInterviewActive, StatusAnalyzed, true},
		{StatusInterviewActive, StatusGenerated, true},
		{StatusGenerated, StatusAnalyzed, true},
		{StatusGenerated, StatusGenerated, true},
		{StatusGenerated, StatusInterviewActive, false},
		{StatusGenerated, StatusDeleted, true},
		{StatusEmpty, StatusDeleted, true},
		{StatusDeleted, StatusEmpty, false},
		{StatusDeleted, StatusDeleted, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionRejectsWithInvalidState(t *testing.T) {
	s := Session{Status: StatusEmpty}
	err := s.Transition(StatusAnalyzed)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if s.Status != StatusEmpty {
		t.Fatalf("status changed on rejected transition: %s", s.Status)
	}
	if err := s.Transition(StatusCVUploaded); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if s.Status != StatusCVUploaded {
		t.Fatalf("expected cv_uploaded, got %s", s.Status)
	}
}
