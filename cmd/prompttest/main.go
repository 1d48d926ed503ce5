package main

// Run one reasoning operation against the configured provider and print the
// validated result:
//   go run ./cmd/prompttest -resume cv.pdf -jd job.txt -op analyze
//   go run ./cmd/prompttest -resume cv.pdf -op parse

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cv-optimizer/internal/analysis"
	"cv-optimizer/internal/bootstrap"
	"cv-optimizer/internal/extract"
	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/shared/config"
)

func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to resume file (pdf or docx)")
	jdPath := flag.String("jd", "", "Path to job description file (analyze only)")
	op := flag.String("op", reasoning.OpAnalyze, "Operation: analyze or parse")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	provider := flag.String("provider", cfg.ReasoningProvider, "Reasoning provider: openai or gemini")
	model := flag.String("model", cfg.ReasoningModel, "Model name")
	timeout := flag.Duration("timeout", 60*time.Second, "Call timeout")
	flag.Parse()

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}
	cfg.ReasoningProvider = *provider
	cfg.ReasoningModel = *model
	// Surface every provider error instead of tripping the breaker.
	cfg.BreakerEnabled = false

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, err := bootstrap.NewReasoning(ctx, cfg)
	if err != nil {
		exitErr(fmt.Sprintf("reasoning: %v", err))
	}

	mimeType, err := mimeFromExt(*resumePath)
	if err != nil {
		exitErr(err.Error())
	}
	resumeBytes, err := os.ReadFile(*resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("read resume: %v", err))
	}
	resumeText, err := extract.Text(ctx, resumeBytes, mimeType, filepath.Base(*resumePath))
	if err != nil {
		exitErr(fmt.Sprintf("extract resume text: %v", err))
	}

	var result any
	switch strings.TrimSpace(*op) {
	case reasoning.OpAnalyze:
		if strings.TrimSpace(*jdPath) == "" {
			exitErr("-jd is required for analyze")
		}
		jd, err := os.ReadFile(*jdPath)
		if err != nil {
			exitErr(fmt.Sprintf("read job description: %v", err))
		}
		if err := analysis.ValidateJobDescription(string(jd)); err != nil {
			exitErr(err.Error())
		}
		out, err := svc.Analyze(ctx, reasoning.AnalyzeInput{ResumeText: resumeText, JobDescription: string(jd)})
		if err != nil {
			exitErr(fmt.Sprintf("analyze: %v", err))
		}
		gaps, err := analysis.Canonicalize(out.Gaps)
		if err != nil {
			exitErr(fmt.Sprintf("canonicalize: %v", err))
		}
		result = map[string]any{
			"raw":          out,
			"gap_analysis": analysis.NewGapAnalysis(gaps, out.MatchScore),
			"questions":    analysis.Cover(gaps),
		}
	case reasoning.OpParse:
		resume, err := svc.Parse(ctx, resumeText)
		if err != nil {
			exitErr(fmt.Sprintf("parse: %v", err))
		}
		result = resume
	default:
		exitErr(fmt.Sprintf("unsupported operation: %s", *op))
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func mimeFromExt(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extract.MimePDF, nil
	case ".docx":
		return extract.MimeDOCX, nil
	default:
		return "", fmt.Errorf("unsupported resume file type: %s", filepath.Ext(path))
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
