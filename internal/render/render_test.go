package render

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"cv-optimizer/internal/extract"
	"cv-optimizer/internal/sessions"
)

func sampleResume() sessions.Resume {
	return sessions.Resume{
		Contact: sessions.Contact{
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
			Phone:    "+44 20 7946 0000",
			Location: "London",
		},
		Summary: "Analytical engineer with a taste for engines & algorithms.",
		Experience: []sessions.Job{
			{
				Company:          "Analytical Engines Ltd",
				Title:            "Lead Programmer",
				StartDate:        "1842",
				EndDate:          "1843",
				Responsibilities: []string{"Wrote the first published algorithm (Note G)."},
				Achievements:     []string{"Cut computation steps by 40%."},
			},
		},
		Education: []sessions.Education{{Institution: "Home tutoring", Degree: "Mathematics"}},
		Skills:    []string{"Go", "Kubernetes", "PostgreSQL"},
	}
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func assertContains(t *testing.T, text, want string) {
	t.Helper()
	if !strings.Contains(compact(text), compact(want)) {
		t.Fatalf("expected %q in rendered text:\n%s", want, text)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"pdf": FormatPDF, "DOCX": FormatDOCX, " docx ": FormatDOCX} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("txt"); err == nil {
		t.Fatalf("expected txt to be rejected")
	}
	if FormatDOCX.FileName() != "optimized_cv.docx" {
		t.Fatalf("unexpected file name %q", FormatDOCX.FileName())
	}
}

func TestRenderDOCXReadsBack(t *testing.T) {
	data, err := Render(FormatDOCX, sampleResume())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	text, err := extract.Text(context.Background(), data, FormatDOCX.ContentType(), "cv.docx")
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	assertContains(t, text, "Ada Lovelace")
	assertContains(t, text, "engines & algorithms")
	assertContains(t, text, "Lead Programmer, Analytical Engines Ltd")
	assertContains(t, text, "Cut computation steps by 40%.")
	assertContains(t, text, "Go, Kubernetes, PostgreSQL")
}

func TestRenderDOCXAppliesStyles(t *testing.T) {
	data, err := Render(FormatDOCX, sampleResume())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	documentXML := readPart(t, data, "word/document.xml")
	if !strings.Contains(documentXML, `<w:color w:val="`+NameColor+`"/>`) {
		t.Fatalf("expected name color in document.xml")
	}
	if !strings.Contains(documentXML, `<w:pStyle w:val="ListBullet"/>`) {
		t.Fatalf("expected bullet paragraphs")
	}
	if err := validateDocumentXML(documentXML); err != nil {
		t.Fatalf("document.xml invalid: %v", err)
	}
}

func TestRenderPDFReadsBack(t *testing.T) {
	data, err := Render(FormatPDF, sampleResume())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.4")) {
		t.Fatalf("missing PDF header")
	}

	text, err := extract.Text(context.Background(), data, FormatPDF.ContentType(), "cv.pdf")
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	assertContains(t, text, "Ada Lovelace")
	assertContains(t, text, "Analytical Engines Ltd")
	assertContains(t, text, "(Note G)")
}

func TestRenderPDFPaginatesLongResumes(t *testing.T) {
	r := sampleResume()
	for i := 0; i < 120; i++ {
		r.Experience[0].Achievements = append(r.Experience[0].Achievements, "Delivered a measurable improvement to a production system.")
	}
	data, err := Render(FormatPDF, r)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if n := bytes.Count(data, []byte("/Type /Page ")); n < 2 {
		t.Fatalf("expected several pages, got %d", n)
	}
	if _, err := extract.Text(context.Background(), data, "application/pdf", "cv.pdf"); err != nil {
		t.Fatalf("read back failed: %v", err)
	}
}

func TestRenderFallsBackToRawText(t *testing.T) {
	blocks := layout(sessions.Resume{RawText: "Jane Doe\n\nBackend engineer"})
	if len(blocks) != 2 || blocks[1].text != "Backend engineer" {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestRenderEmptyResume(t *testing.T) {
	if _, err := Render(FormatPDF, sessions.Resume{}); !errors.Is(err, ErrEmptyResume) {
		t.Fatalf("expected ErrEmptyResume, got %v", err)
	}
}

func TestWrap(t *testing.T) {
	lines := wrap("alpha beta gamma delta", 11)
	if len(lines) != 2 || lines[0] != "alpha beta" || lines[1] != "gamma delta" {
		t.Fatalf("unexpected wrap %q", lines)
	}
	long := wrap(strings.Repeat("x", 25), 10)
	if len(long) != 3 {
		t.Fatalf("expected hard split of long word, got %q", long)
	}
}

func TestEscapePDF(t *testing.T) {
	if got := escapePDF(`a(b)c\d`); got != `a\(b\)c\\d` {
		t.Fatalf("unexpected escape %q", got)
	}
	if got := escapePDF("naïve 日本"); got != "na\xefve ??" {
		t.Fatalf("unexpected escape %q", got)
	}
}

func readPart(t *testing.T, docxBytes []byte, name string) string {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(content)
	}
	t.Fatalf("%s not found", name)
	return ""
}
