package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	got, err := SanitizeFileName(" my/cv\\v2.pdf ")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "my_cv_v2.pdf" {
		t.Fatalf("unexpected name %q", got)
	}
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
}

func TestSanitizeError(t *testing.T) {
	if SanitizeError(nil) != "" {
		t.Fatalf("expected empty string for nil error")
	}
	got := SanitizeError(errors.New("line one\nline two\r"))
	if got != "line one line two" {
		t.Fatalf("unexpected sanitized error %q", got)
	}
	long := SanitizeError(errors.New(strings.Repeat("x", 900)))
	if len(long) != 500 {
		t.Fatalf("expected 500 chars, got %d", len(long))
	}
}
