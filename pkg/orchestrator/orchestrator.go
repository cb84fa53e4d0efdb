// Package orchestrator coordinates scan jobs end to end: it creates a
// job, drives its pipeline (discover, detect, prioritize, interpret) on
// an independent goroutine, tracks lifecycle state in the job store, and
// honors cooperative cancellation at stage checkpoints.
//
// The orchestrator never throws across the async boundary: Submit's URL
// validation is the only synchronous check, and every pipeline failure is
// recorded on the job itself for pollers to discover.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snlscan/snlscan/pkg/finding"
	"github.com/snlscan/snlscan/pkg/job"
	"github.com/snlscan/snlscan/pkg/metrics"
	"github.com/snlscan/snlscan/pkg/priority"
	"github.com/snlscan/snlscan/pkg/store"
)

// Sentinel errors surfaced synchronously to API callers.
var (
	// ErrInvalidTarget rejects a target that is not an absolute
	// http(s) URL with a host.
	ErrInvalidTarget = errors.New("orchestrator: invalid target")

	// ErrNotFound means the job id is unknown.
	ErrNotFound = errors.New("orchestrator: scan not found")

	// ErrAlreadyTerminal rejects cancelling a finished job.
	ErrAlreadyTerminal = errors.New("orchestrator: scan already finished")
)

// Discoverer enumerates the attack surface of a target.
// An empty endpoint list is a valid, non-error outcome.
type Discoverer interface {
	Discover(ctx context.Context, target string, mode job.Mode) ([]string, error)
}

// Detector inspects endpoints and reports raw findings.
type Detector interface {
	Detect(ctx context.Context, endpoints []string, mode job.Mode) (*finding.Detection, error)
}

// Interpreter produces a plain-language explanation for one finding.
type Interpreter interface {
	Interpret(ctx context.Context, f finding.RawFinding) (finding.Interpretation, error)
}

// JobStore is the persistence contract the orchestrator depends on.
// *store.Store satisfies it; tests may inject doubles.
type JobStore interface {
	Put(j *job.Job) error
	Replace(j *job.Job) error
	Get(id string) (*job.Job, error)
	List() ([]*job.Job, error)
	Delete(id string) error
}

// Placeholder degrades a finding whose interpretation failed.
type Placeholder func(f finding.RawFinding) finding.Interpretation

// Orchestrator owns job lifecycle and pipeline scheduling.
type Orchestrator struct {
	store       JobStore
	discoverer  Discoverer
	detector    Detector
	interpreter Interpreter
	placeholder Placeholder
	cap         int
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// Options configures dependencies beyond the required adapters.
type Options struct {
	// Cap bounds the number of findings interpreted per scan.
	// Zero means priority.DefaultCap.
	Cap int

	// Placeholder substitutes for failed interpretations.
	// Required: interpretation failures must not fail a job.
	Placeholder Placeholder

	// Logger for pipeline progress. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics collectors. Nil disables instrumentation.
	Metrics *metrics.Metrics
}

// New wires an orchestrator from its collaborators.
func New(s JobStore, d Discoverer, det Detector, in Interpreter, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capN := opts.Cap
	if capN <= 0 {
		capN = priority.DefaultCap
	}
	if opts.Placeholder == nil {
		opts.Placeholder = defaultPlaceholder
	}
	return &Orchestrator{
		store:       s,
		discoverer:  d,
		detector:    det,
		interpreter: in,
		placeholder: opts.Placeholder,
		cap:         capN,
		logger:      logger,
		metrics:     opts.Metrics,
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Submit validates the target, creates a pending job, launches its
// pipeline, and returns the job id immediately. Validation is the only
// synchronous check; everything downstream is reported via the job.
func (o *Orchestrator) Submit(target string, mode job.Mode) (string, error) {
	if err := validateTarget(target); err != nil {
		return "", err
	}
	if mode == "" {
		mode = job.ModeQuick
	}
	if !mode.IsValid() {
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidTarget, mode)
	}

	j := &job.Job{
		ID:          uuid.NewString(),
		Target:      target,
		Mode:        mode,
		Status:      job.StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
	if err := o.store.Put(j); err != nil {
		return "", fmt.Errorf("orchestrator: store job: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[j.ID] = cancel
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.JobSubmitted()
	}
	o.logger.Info("scan queued", "scan_id", j.ID, "target", target, "mode", string(mode))

	o.wg.Add(1)
	go o.run(ctx, j)

	return j.ID, nil
}

// GetStatus returns a consistent snapshot of the job.
func (o *Orchestrator) GetStatus(id string) (*job.Job, error) {
	j, err := o.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return j, nil
}

// List returns snapshots of all jobs, newest first.
func (o *Orchestrator) List() ([]*job.Job, error) {
	return o.store.List()
}

// Cancel raises the cooperative cancellation flag for a job. The
// pipeline observes it at its next checkpoint; a stage already in flight
// runs to completion or its own timeout first.
func (o *Orchestrator) Cancel(id string) error {
	j, err := o.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, id, j.Status)
	}

	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	o.logger.Info("scan cancellation requested", "scan_id", id)
	return nil
}

// Delete removes the job record unconditionally. A running job's task is
// not stopped; its eventual result is orphaned.
func (o *Orchestrator) Delete(id string) error {
	if err := o.store.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	o.logger.Info("scan deleted", "scan_id", id)
	return nil
}

// Shutdown waits for in-flight pipelines to finish or ctx to expire.
// It does not cancel them; callers wanting a fast exit cancel first.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release drops the job's cancel handle once its pipeline exits.
func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
		delete(o.cancels, id)
	}
	o.mu.Unlock()
}

// defaultPlaceholder is the minimal degrade path when no richer one is
// injected (interpret.Placeholder in the wired server).
func defaultPlaceholder(f finding.RawFinding) finding.Interpretation {
	name := f.Title
	if name == "" {
		name = f.Name
	}
	return finding.Interpretation{
		WhatIsWrong:  "Automated finding: " + name,
		WhyItMatters: "Security risk detected.",
		HowToFix:     "Refer to official documentation for " + f.Name + ".",
	}
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidTarget)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}
	return nil
}
