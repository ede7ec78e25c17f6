package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxbase-eu/libbuild/internal/dts"
	"github.com/fluxbase-eu/libbuild/internal/observability"
)

// Pass names used in logs, metrics and spans
const (
	PassPrimary         = "primary"
	PassSecondary       = "secondary"
	PassAuxiliaryBefore = "auxiliary-before"
	PassAuxiliaryAfter  = "auxiliary-after"
	PassDeclarations    = "declarations"
)

// DeclarationGenerator emits declaration files after the primary pass
type DeclarationGenerator interface {
	Generate(ctx context.Context, job dts.Job) error
}

// Recorder receives build measurements
type Recorder interface {
	RecordPass(pass string, duration time.Duration, err error)
	RecordOutput(pass, format string, bytes int)
}

type nopRecorder struct{}

func (nopRecorder) RecordPass(string, time.Duration, error) {}
func (nopRecorder) RecordOutput(string, string, int)         {}

// Orchestrator runs the passes of a plan in order
type Orchestrator struct {
	dispatcher   *Dispatcher
	builder      Builder
	declarations DeclarationGenerator
	recorder     Recorder
	tracer       trace.Tracer
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithDeclarations replaces the declaration generator
func WithDeclarations(g DeclarationGenerator) Option {
	return func(o *Orchestrator) {
		o.declarations = g
	}
}

// WithRecorder records pass metrics
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithTracer sets the tracer used for pass spans
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// New creates an orchestrator
func New(dispatcher *Dispatcher, builder Builder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dispatcher:   dispatcher,
		builder:      builder,
		declarations: dts.NewGenerator(),
		recorder:     nopRecorder{},
		tracer:       otel.Tracer("libbuild"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Report is the outcome of Run. Primary and the "before" auxiliary results
// are final; Tasks may still be running.
type Report struct {
	Plan      *Plan
	Auxiliary []*Result
	Primary   *Result
	Tasks     []*Task
}

// Wait waits for every task and joins their errors
func (r *Report) Wait(ctx context.Context) error {
	var errs []error
	for _, t := range r.Tasks {
		if err := t.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Results lists every finished result, primary first
func (r *Report) Results() []*Result {
	var out []*Result
	if r.Primary != nil {
		out = append(out, r.Primary)
	}
	out = append(out, r.Auxiliary...)
	for _, t := range r.Tasks {
		out = append(out, t.Results()...)
	}
	return out
}

// Run resolves req and builds it. Cleanup, the "before" auxiliary batch, the
// primary pass and declaration generation are awaited and their failures
// returned. The secondary pass and the "after" auxiliary batch are started
// as tasks on the returned report.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Report, error) {
	plan, err := o.dispatcher.Resolve(req)
	if err != nil {
		return nil, err
	}
	report := &Report{Plan: plan}
	building := req.Command == CommandBuild
	primary := plan.Primary

	logger := log.With().Str("mode", plan.Mode).Str("command", plan.Command).Logger()

	if building {
		if len(plan.Clean) > 0 {
			if err := Clean(primary.Root, plan.Clean); err != nil {
				return nil, fmt.Errorf("cleanup failed: %w", err)
			}
			logger.Debug().Strs("paths", plan.Clean).Msg("Removed stale paths")
		}

		// Before the "before" batch, which may write into the same directory
		if primary.ShouldEmptyOutDir() {
			if err := emptyDir(primary.Root, primary.OutDir); err != nil {
				return nil, err
			}
		}
	}

	if plan.Auxiliary.Before() {
		results, err := o.runAuxiliary(ctx, PassAuxiliaryBefore, plan.Auxiliary)
		if err != nil {
			return nil, err
		}
		report.Auxiliary = results
	}

	report.Primary, err = o.build(ctx, PassPrimary, primary)
	if err != nil {
		return nil, fmt.Errorf("primary build failed: %w", err)
	}

	if building && primary.Declarations.Enabled {
		if err := o.generateDeclarations(ctx, primary); err != nil {
			return nil, err
		}
	}

	if plan.Secondary != nil {
		secondary := *plan.Secondary
		report.Tasks = append(report.Tasks, Start(ctx, PassSecondary, func(ctx context.Context) ([]*Result, error) {
			res, err := o.build(ctx, PassSecondary, secondary)
			if err != nil {
				return nil, err
			}
			return []*Result{res}, nil
		}))
	}

	if plan.Auxiliary != nil && !plan.Auxiliary.Before() {
		aux := plan.Auxiliary
		report.Tasks = append(report.Tasks, Start(ctx, PassAuxiliaryAfter, func(ctx context.Context) ([]*Result, error) {
			return o.runAuxiliary(ctx, PassAuxiliaryAfter, aux)
		}))
	}

	return report, nil
}

// Build runs a single configuration outside of a plan, as watch mode does
func (o *Orchestrator) Build(ctx context.Context, cfg BuildConfig) (*Result, error) {
	return o.build(ctx, PassPrimary, cfg)
}

func (o *Orchestrator) build(ctx context.Context, pass string, cfg BuildConfig) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := observability.StartPassSpan(ctx, o.tracer, pass, cfg.Entry, FormatNames(cfg.Formats))
	start := time.Now()
	res, err := o.builder.Build(ctx, cfg)
	duration := time.Since(start)
	observability.EndSpan(span, duration, err)
	o.recorder.RecordPass(pass, duration, err)
	if err != nil {
		return nil, err
	}

	for _, out := range res.Outputs {
		o.recorder.RecordOutput(pass, string(out.Format), out.Bytes)
		log.Debug().
			Str("pass", pass).
			Str("format", string(out.Format)).
			Str("out", out.Path).
			Int("bytes", out.Bytes).
			Msg("Output written")
	}
	log.Info().
		Str("pass", pass).
		Str("entry", cfg.Entry).
		Strs("formats", FormatNames(cfg.Formats)).
		Dur("duration", duration).
		Msg("Build pass complete")

	return res, nil
}

func (o *Orchestrator) runAuxiliary(ctx context.Context, pass string, plan *AuxiliaryPlan) ([]*Result, error) {
	start := time.Now()
	results, err := RunAuxiliary(ctx, BuilderFunc(func(ctx context.Context, cfg BuildConfig) (*Result, error) {
		return o.build(ctx, pass, cfg)
	}), plan)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("pass", pass).
		Int("entries", len(plan.Builds)).
		Dur("duration", time.Since(start)).
		Msg("Auxiliary entries built")
	return results, nil
}

func (o *Orchestrator) generateDeclarations(ctx context.Context, cfg BuildConfig) error {
	ctx, span := o.tracer.Start(ctx, "build."+PassDeclarations,
		trace.WithAttributes(attribute.Bool("dts.rollup", cfg.Declarations.Rollup)))
	start := time.Now()
	err := o.declarations.Generate(ctx, dts.Job{
		Root:    cfg.Root,
		Entry:   cfg.Entry,
		OutDir:  cfg.OutDir,
		Types:   cfg.Types,
		Options: cfg.Declarations,
	})
	duration := time.Since(start)
	observability.EndSpan(span, duration, err)
	o.recorder.RecordPass(PassDeclarations, duration, err)
	return err
}
