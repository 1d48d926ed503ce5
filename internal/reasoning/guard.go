package reasoning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/metrics"
	"cv-optimizer/internal/shared/telemetry"
	"cv-optimizer/internal/shared/util"
)

const (
	OpAnalyze    = "analyze"
	OpSynthesize = "synthesize"
	OpParse      = "parse"
	OpTranscribe = "transcribe"
)

const retryBaseDelay = 300 * time.Millisecond

// BreakerSettings configures the per-operation circuit breakers.
type BreakerSettings struct {
	Enabled      bool
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// Guarded wraps a Service with a circuit breaker per operation, a single
// retry on transient failures, tracing and call metrics.
type Guarded struct {
	next     Service
	provider string
	breakers map[string]*gobreaker.CircuitBreaker[any]
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewGuarded wraps next. provider only labels logs and spans.
func NewGuarded(next Service, provider string, cfg BreakerSettings) *Guarded {
	g := &Guarded{
		next:     next,
		provider: provider,
		breakers: map[string]*gobreaker.CircuitBreaker[any]{},
		sleep:    sleepCtx,
	}
	if !cfg.Enabled {
		return g
	}
	for _, op := range []string{OpAnalyze, OpSynthesize, OpParse, OpTranscribe} {
		g.breakers[op] = newBreaker(op, cfg)
	}
	return g
}

func newBreaker(op string, cfg BreakerSettings) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "reasoning-" + op,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			telemetry.Warn("reasoning.breaker_state", map[string]any{
				"name": name,
				"op":   op,
				"from": from.String(),
				"to":   to.String(),
			})
		},
		// A caller giving up says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

func (g *Guarded) Analyze(ctx context.Context, in AnalyzeInput) (AnalyzeOutput, error) {
	return guard(ctx, g, OpAnalyze, func(ctx context.Context) (AnalyzeOutput, error) {
		return g.next.Analyze(ctx, in)
	})
}

func (g *Guarded) Synthesize(ctx context.Context, in SynthesizeInput) (SynthesizeOutput, error) {
	return guard(ctx, g, OpSynthesize, func(ctx context.Context) (SynthesizeOutput, error) {
		return g.next.Synthesize(ctx, in)
	})
}

func (g *Guarded) Parse(ctx context.Context, resumeText string) (sessions.Resume, error) {
	return guard(ctx, g, OpParse, func(ctx context.Context) (sessions.Resume, error) {
		return g.next.Parse(ctx, resumeText)
	})
}

// Transcribe is not retried: the audio reader is consumed by the first attempt.
func (g *Guarded) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	return guardOnce(ctx, g, OpTranscribe, func(ctx context.Context) (string, error) {
		return g.next.Transcribe(ctx, audio, filename)
	})
}

func guard[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	return run(ctx, g, op, true, fn)
}

func guardOnce[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	return run(ctx, g, op, false, fn)
}

func run[T any](ctx context.Context, g *Guarded, op string, retry bool, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := otel.Tracer("cv-optimizer/reasoning").Start(ctx, "reasoning."+op,
		trace.WithAttributes(
			attribute.String("reasoning.provider", g.provider),
			attribute.String("reasoning.op", op),
		))
	defer span.End()

	start := time.Now()
	out, err := execute(ctx, g, op, fn)
	attempts := 1
	if err != nil && retry && shouldRetry(err) {
		telemetry.Warn("reasoning.retry", map[string]any{
			"op":      op,
			"attempt": 1,
			"error":   util.SanitizeError(err),
		})
		if sleepErr := g.sleep(ctx, retryBaseDelay); sleepErr != nil {
			err = sleepErr
		} else {
			attempts++
			out, err = execute(ctx, g, op, fn)
		}
	}

	dur := time.Since(start)
	outcome := outcomeOf(err)
	metrics.ObserveReasoningCall(op, outcome, dur)
	fields := map[string]any{
		"provider":    g.provider,
		"op":          op,
		"outcome":     outcome,
		"attempts":    attempts,
		"duration_ms": dur.Milliseconds(),
	}
	span.SetAttributes(attribute.Int("reasoning.attempts", attempts))
	if err != nil {
		fields["error"] = util.SanitizeError(err)
		telemetry.Warn("reasoning.call", fields)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		var zero T
		return zero, err
	}
	telemetry.Info("reasoning.call", fields)
	return out, nil
}

func execute[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cb := g.breakers[op]
	if cb == nil {
		return fn(ctx)
	}
	res, err := cb.Execute(func() (any, error) {
		v, err := fn(ctx)
		return v, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return zero, err
	}
	return res.(T), nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnavailable):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}

// shouldRetry reports whether err looks like a transient provider failure.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformed) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") ||
		strings.Contains(msg, "status 429") || strings.Contains(msg, "rate limit") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof") {
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Service = (*Guarded)(nil)
