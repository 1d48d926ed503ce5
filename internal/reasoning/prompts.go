package reasoning

import (
	_ "embed"
	"encoding/json"
	"strings"
)

var (
	//go:embed prompts/analyze.txt
	analyzeSystemPrompt string
	//go:embed prompts/synthesize.txt
	synthesizeSystemPrompt string
	//go:embed prompts/parse.txt
	parseSystemPrompt string
)

func buildAnalyzePrompt(in AnalyzeInput) string {
	var b strings.Builder
	b.WriteString("RESUME:\n")
	b.WriteString(strings.TrimSpace(in.ResumeText))
	b.WriteString("\n\nJOB DESCRIPTION:\n")
	b.WriteString(strings.TrimSpace(in.JobDescription))
	return b.String()
}

func buildSynthesizePrompt(in SynthesizeInput) (string, error) {
	payload, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func buildParsePrompt(resumeText string) string {
	return "RESUME:\n" + strings.TrimSpace(resumeText)
}
