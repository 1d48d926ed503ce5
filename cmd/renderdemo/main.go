package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cv-optimizer/internal/extract"
	"cv-optimizer/internal/render"
	"cv-optimizer/internal/sessions"
)

func main() {
	outDir := flag.String("out", "./out", "output directory for the rendered files")
	inPath := flag.String("in", "", "resume JSON to render (default: built-in sample)")
	flag.Parse()

	resume, err := loadResume(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load resume: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", *outDir, err)
		os.Exit(1)
	}

	for _, format := range render.Formats {
		data, err := render.Render(format, resume)
		if err != nil {
			fmt.Fprintf(os.Stderr, "render %s failed: %v\n", format, err)
			os.Exit(1)
		}
		path := filepath.Join(*outDir, "sample_resume."+string(format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
			os.Exit(1)
		}
		if err := validateRendered(data, format, resume); err != nil {
			fmt.Fprintf(os.Stderr, "render validation failed for %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("OK: wrote %s (%d bytes)\n", path, len(data))
	}

	modelPath := filepath.Join(*outDir, "sample_resume.json")
	payload, err := json.MarshalIndent(resume, "", "  ")
	if err == nil {
		err = os.WriteFile(modelPath, payload, 0o644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write model failed: %v\n", err)
		os.Exit(1)
	}
}

func loadResume(path string) (sessions.Resume, error) {
	if strings.TrimSpace(path) == "" {
		return sampleResume(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sessions.Resume{}, err
	}
	var r sessions.Resume
	if err := json.Unmarshal(data, &r); err != nil {
		return sessions.Resume{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return r, nil
}

// validateRendered reads the document back and checks the name and first
// bullet survived the round trip.
func validateRendered(data []byte, format render.Format, resume sessions.Resume) error {
	mime := extract.MimePDF
	if format == render.FormatDOCX {
		mime = extract.MimeDOCX
	}
	text, err := extract.Text(context.Background(), data, mime, format.FileName())
	if err != nil {
		return err
	}
	want := []string{resume.Contact.Name}
	if len(resume.Experience) > 0 && len(resume.Experience[0].Achievements) > 0 {
		want = append(want, resume.Experience[0].Achievements[0])
	}
	flat := strings.Join(strings.Fields(text), " ")
	for _, w := range want {
		w = strings.Join(strings.Fields(w), " ")
		if w != "" && !strings.Contains(flat, w) {
			return fmt.Errorf("%q missing from extracted text", w)
		}
	}
	return nil
}

func sampleResume() sessions.Resume {
	return sessions.Resume{
		Contact: sessions.Contact{
			Name:     "Jordan Lee",
			Email:    "jordan.lee@example.com",
			Phone:    "+1-555-0102",
			Location: "Austin, TX",
			LinkedIn: "https://www.linkedin.com/in/jordanlee",
		},
		Summary: "Backend engineer with 8+ years of experience building resilient APIs and data services.",
		Experience: []sessions.Job{
			{
				Company:   "Acme Logistics",
				Title:     "Senior Backend Engineer",
				StartDate: "2021-04",
				EndDate:   "Present",
				Achievements: []string{
					"Designed a routing service that reduced shipment latency by 18%.",
					"Implemented distributed tracing to cut incident triage time by 35%.",
				},
			},
			{
				Company:          "Blue Harbor Systems",
				Title:            "Backend Engineer",
				StartDate:        "2018-01",
				EndDate:          "2021-03",
				Responsibilities: []string{"Built event-driven ingestion pipelines for compliance data feeds."},
			},
		},
		Education: []sessions.Education{
			{Institution: "University of Texas", Degree: "BSc", Field: "Computer Science", GraduationDate: "2016"},
		},
		Skills:         []string{"Go", "PostgreSQL", "Redis", "AWS", "Kubernetes", "Terraform"},
		Certifications: []string{"AWS Solutions Architect Associate"},
		Languages:      []string{"English", "Spanish"},
	}
}
