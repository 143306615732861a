package interview

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/avatar-interview-backend/internal/data/sessions"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview/steps"
	"github.com/yungbote/avatar-interview-backend/internal/observability"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type Timeouts struct {
	Transcribe time.Duration
	Generate   time.Duration
	Synthesize time.Duration
	Composite  time.Duration
	Fetch      time.Duration
	// Archive bounds the detached report build after an interview completes.
	Archive time.Duration
}

type UsecasesDeps struct {
	Log *logger.Logger

	Store sessions.Store
	AI    steps.TextGenerator
	STT   Transcriber
	TTS   Synthesizer
	Video Compositor
	// Resumes estimates missing experience totals. Nil disables it.
	Resumes steps.JSONGenerator

	Templates TemplateFetcher
	// Archive and Notify are optional.
	Archive ReportArchive
	Notify  Notifier

	Voices    Voices
	Providers Providers
	Timeouts  Timeouts
	Metrics   *observability.Metrics
}

type Usecases struct {
	deps UsecasesDeps
	bg   *sync.WaitGroup
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	deps.Log = deps.Log.With("service", "InterviewEngine")
	return Usecases{deps: deps, bg: &sync.WaitGroup{}}
}

// Wait blocks until background archiving started by completed turns is done.
func (u Usecases) Wait() { u.bg.Wait() }

// upstream runs one external call with its own deadline, span and metrics.
func (u Usecases) upstream(ctx context.Context, dependency, provider string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "interview."+dependency,
		attribute.String("dependency", dependency),
		attribute.String("provider", provider),
	)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	u.deps.Metrics.ObserveUpstream(dependency, provider, time.Since(start), err)
	observability.EndSpan(span, err)
	return err
}

// generator wraps the LLM so every generation gets the generate timeout and metrics.
type generator struct {
	u Usecases
}

func (g generator) GenerateText(ctx context.Context, system, user string) (string, error) {
	var out string
	err := g.u.upstream(ctx, "generate", g.u.deps.Providers.LLM, g.u.deps.Timeouts.Generate, func(ctx context.Context) error {
		var err error
		out, err = g.u.deps.AI.GenerateText(ctx, system, user)
		return err
	})
	return out, err
}

func (g generator) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	var out map[string]any
	err := g.u.upstream(ctx, "generate", g.u.deps.Providers.LLM, g.u.deps.Timeouts.Generate, func(ctx context.Context) error {
		var err error
		out, err = g.u.deps.Resumes.GenerateJSON(ctx, system, user, schemaName, schema)
		return err
	})
	return out, err
}

func (u Usecases) resumeGen() steps.JSONGenerator {
	if u.deps.Resumes == nil {
		return nil
	}
	return generator{u: u}
}

func (u Usecases) genDeps(log *logger.Logger) steps.Deps {
	return steps.Deps{Log: log, AI: generator{u: u}}
}
