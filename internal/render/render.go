// Package render turns a resume into downloadable PDF and DOCX documents.
package render

import (
	"errors"
	"fmt"
	"strings"

	"cv-optimizer/internal/sessions"
)

// ErrEmptyResume is returned when a resume has nothing to render.
var ErrEmptyResume = errors.New("resume has no content to render")

// Format is an output document kind.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Formats lists every supported output in download order.
var Formats = []Format{FormatPDF, FormatDOCX}

// ParseFormat accepts "pdf" or "docx" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatDOCX:
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatDOCX {
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/pdf"
}

// FileName is the stored and downloaded artifact name.
func (f Format) FileName() string {
	return "optimized_cv." + string(f)
}

// Render produces the document bytes of r in format f.
func Render(f Format, r sessions.Resume) ([]byte, error) {
	blocks := layout(r)
	if len(blocks) == 0 {
		return nil, ErrEmptyResume
	}
	switch f {
	case FormatPDF:
		return renderPDF(blocks)
	case FormatDOCX:
		return renderDOCX(blocks)
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}

type block struct {
	kind blockKind
	text string
}

// layout flattens a resume into styled blocks. Structured sections win; raw
// text is used only when nothing was parsed.
func layout(r sessions.Resume) []block {
	var out []block
	add := func(k blockKind, text string) {
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, block{kind: k, text: text})
		}
	}

	add(kindName, r.Contact.Name)
	add(kindContact, joinNonEmpty(" | ", r.Contact.Email, r.Contact.Phone, r.Contact.Location, r.Contact.LinkedIn))
	header := len(out)

	if strings.TrimSpace(r.Summary) != "" {
		add(kindHeading, "Summary")
		add(kindBody, r.Summary)
	}
	if len(r.Experience) > 0 {
		add(kindHeading, "Experience")
		for _, job := range r.Experience {
			add(kindRole, joinNonEmpty(", ", job.Title, job.Company))
			add(kindMeta, joinNonEmpty(" - ", job.StartDate, job.EndDate))
			for _, item := range job.Responsibilities {
				add(kindBullet, item)
			}
			for _, item := range job.Achievements {
				add(kindBullet, item)
			}
		}
	}
	if len(r.Education) > 0 {
		add(kindHeading, "Education")
		for _, ed := range r.Education {
			add(kindRole, joinNonEmpty(", ", ed.Degree, ed.Field))
			add(kindMeta, joinNonEmpty(" - ", ed.Institution, ed.GraduationDate))
		}
	}
	section := func(title string, items []string, sep string) {
		if text := joinNonEmpty(sep, items...); text != "" {
			add(kindHeading, title)
			add(kindBody, text)
		}
	}
	section("Skills", r.Skills, ", ")
	section("Certifications", r.Certifications, "; ")
	section("Languages", r.Languages, ", ")

	if len(out) == header {
		for _, line := range strings.Split(r.RawText, "\n") {
			add(kindBody, line)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
