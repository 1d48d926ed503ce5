// Package reasoningtest provides a deterministic in-memory reasoning service.
package reasoningtest

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/sessions"
)

// Fake implements reasoning.Service. Zero value is usable: Analyze returns
// Gaps, Synthesize marks every answered gap addressed.
type Fake struct {
	Gaps       []reasoning.RawGap
	MatchScore int

	// Score is reported by Synthesize. Zero means MatchScore+20 capped at 100.
	Score int

	ParsedResume   *sessions.Resume
	TranscribeText string

	// Err fails every operation when set.
	Err error
	// Delay is honoured by every operation and aborts on ctx cancellation.
	Delay time.Duration
	// Gate, when set, blocks Synthesize until it is closed or ctx ends.
	// Started receives once per Synthesize call before blocking.
	Gate    chan struct{}
	Started chan struct{}

	// Tamper rewrites the synthesized resume, to model a careless service.
	Tamper func(*sessions.Resume)

	mu    sync.Mutex
	calls map[string]int
	last  reasoning.SynthesizeInput
}

func (f *Fake) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// LastSynthesize returns the most recent Synthesize input.
func (f *Fake) LastSynthesize() reasoning.SynthesizeInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *Fake) wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fake) Analyze(ctx context.Context, in reasoning.AnalyzeInput) (reasoning.AnalyzeOutput, error) {
	f.record(reasoning.OpAnalyze)
	if err := f.wait(ctx); err != nil {
		return reasoning.AnalyzeOutput{}, err
	}
	if f.Err != nil {
		return reasoning.AnalyzeOutput{}, f.Err
	}
	gaps := make([]reasoning.RawGap, len(f.Gaps))
	copy(gaps, f.Gaps)
	return reasoning.AnalyzeOutput{Gaps: gaps, MatchScore: f.MatchScore}, nil
}

func (f *Fake) Synthesize(ctx context.Context, in reasoning.SynthesizeInput) (reasoning.SynthesizeOutput, error) {
	f.record(reasoning.OpSynthesize)
	f.mu.Lock()
	f.last = in
	f.mu.Unlock()

	if f.Started != nil {
		select {
		case f.Started <- struct{}{}:
		default:
		}
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return reasoning.SynthesizeOutput{}, ctx.Err()
		}
	}
	if err := f.wait(ctx); err != nil {
		return reasoning.SynthesizeOutput{}, err
	}
	if f.Err != nil {
		return reasoning.SynthesizeOutput{}, f.Err
	}

	answered := map[string]bool{}
	for _, a := range in.Answers {
		if strings.TrimSpace(a.Text) == "" {
			continue
		}
		for _, id := range a.CoveredGapIDs {
			answered[id] = true
		}
	}
	out := reasoning.SynthesizeOutput{
		GapsAddressed: []string{},
		GapsRemaining: []string{},
		Improvements:  []string{"Tightened summary for the target role"},
	}
	for _, g := range in.Gaps {
		if answered[g.ID] {
			out.GapsAddressed = append(out.GapsAddressed, g.ID)
		} else {
			out.GapsRemaining = append(out.GapsRemaining, g.ID)
		}
	}

	var resume sessions.Resume
	if in.Resume != nil {
		resume = *in.Resume.Clone()
	}
	resume.Summary = strings.TrimSpace("Results-driven professional. " + resume.Summary)
	for _, a := range in.Answers {
		if text := strings.TrimSpace(a.Text); text != "" && len(resume.Experience) > 0 {
			resume.Experience[0].Achievements = append(resume.Experience[0].Achievements, text)
		}
	}
	if f.Tamper != nil {
		f.Tamper(&resume)
	}
	out.Resume = &resume
	out.ResumeText = in.ResumeText

	out.Score = f.Score
	if out.Score == 0 {
		out.Score = f.MatchScore + 20
		if out.Score > 100 {
			out.Score = 100
		}
	}
	return out, nil
}

func (f *Fake) Parse(ctx context.Context, text string) (sessions.Resume, error) {
	f.record(reasoning.OpParse)
	if err := f.wait(ctx); err != nil {
		return sessions.Resume{}, err
	}
	if f.Err != nil {
		return sessions.Resume{}, f.Err
	}
	if f.ParsedResume != nil {
		r := *f.ParsedResume.Clone()
		r.RawText = text
		return r, nil
	}
	return sessions.Resume{RawText: text}, nil
}

func (f *Fake) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	f.record(reasoning.OpTranscribe)
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return "", err
	}
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.TranscribeText, nil
}

var _ reasoning.Service = (*Fake)(nil)
