package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/snlscan/snlscan/pkg/finding"
	"github.com/snlscan/snlscan/pkg/job"
	"github.com/snlscan/snlscan/pkg/metrics"
	"github.com/snlscan/snlscan/pkg/priority"
	"github.com/snlscan/snlscan/pkg/store"
)

// run drives one job through the pipeline. It is the job's single
// writer: it mutates its private copy and replaces the stored record
// wholesale at each transition, so pollers only ever see complete
// snapshots.
func (o *Orchestrator) run(ctx context.Context, j *job.Job) {
	defer o.wg.Done()
	defer o.release(j.ID)

	start := time.Now()
	started := start.UTC()
	j.Status = job.StatusRunning
	j.StartedAt = &started
	o.save(j)

	log := o.logger.With("scan_id", j.ID, "target", j.Target)
	log.Info("scan started", "mode", string(j.Mode))

	// Checkpoint before the first stage: a cancel raised between Submit
	// and here must win without any tool being launched.
	if ctx.Err() != nil {
		o.finishCancelled(j, log)
		return
	}

	stageStart := time.Now()
	endpoints, err := o.discoverer.Discover(ctx, j.Target, j.Mode)
	o.observe(metrics.StageDiscover, stageStart)
	if err != nil {
		if ctx.Err() != nil {
			o.finishCancelled(j, log)
			return
		}
		o.finishFailed(j, "discovery failed: "+err.Error(), log)
		return
	}
	log.Info("discovery finished", "endpoints", len(endpoints))

	if ctx.Err() != nil {
		o.finishCancelled(j, log)
		return
	}

	det := &finding.Detection{}
	if len(endpoints) > 0 {
		stageStart = time.Now()
		det, err = o.detector.Detect(ctx, endpoints, j.Mode)
		o.observe(metrics.StageDetect, stageStart)
		if err != nil {
			if ctx.Err() != nil {
				o.finishCancelled(j, log)
				return
			}
			o.finishFailed(j, "detection failed: "+err.Error(), log)
			return
		}
		log.Info("detection finished", "raw_findings", len(det.Findings))
	}

	if ctx.Err() != nil {
		o.finishCancelled(j, log)
		return
	}

	top := priority.Prioritize(det.Findings, o.cap)

	findings := make([]finding.Finding, 0, len(top))
	for _, rf := range top {
		// Checkpoint before each interpretation call: the most
		// expensive stage should stop paying as soon as a cancel lands.
		if ctx.Err() != nil {
			o.finishCancelled(j, log)
			return
		}

		stageStart = time.Now()
		interp, err := o.interpreter.Interpret(ctx, rf)
		o.observe(metrics.StageInterpret, stageStart)
		if err != nil {
			if ctx.Err() != nil {
				o.finishCancelled(j, log)
				return
			}
			// Degraded, not fatal: explanation is an enhancement.
			log.Warn("interpretation degraded", "finding", rf.Name, "error", err)
			if o.metrics != nil {
				o.metrics.InterpretationDegraded()
			}
			interp = o.placeholder(rf)
		}
		findings = append(findings, finding.Finding{RawFinding: rf, Interpretation: interp})
	}

	result := &finding.ScanResult{
		Summary: finding.Summary{
			Target:          j.Target,
			TotalEndpoints:  len(endpoints),
			RawFindings:     len(det.Findings),
			TopIssues:       len(findings),
			ParamsFound:     countParams(endpoints),
			TemplatesLoaded: det.TemplatesLoaded,
			RequestsSent:    det.RequestsSent,
			DurationSeconds: time.Since(start).Round(10 * time.Millisecond).Seconds(),
		},
		Findings: findings,
	}

	finished := time.Now().UTC()
	j.Status = job.StatusCompleted
	j.FinishedAt = &finished
	j.Result = result
	o.save(j)
	if o.metrics != nil {
		o.metrics.JobFinished(string(job.StatusCompleted))
	}
	log.Info("scan completed",
		"endpoints", result.Summary.TotalEndpoints,
		"raw_findings", result.Summary.RawFindings,
		"top_issues", result.Summary.TopIssues,
		"duration_seconds", result.Summary.DurationSeconds)
}

func (o *Orchestrator) finishFailed(j *job.Job, cause string, log logSink) {
	finished := time.Now().UTC()
	j.Status = job.StatusFailed
	j.FinishedAt = &finished
	j.Error = cause
	o.save(j)
	if o.metrics != nil {
		o.metrics.JobFinished(string(job.StatusFailed))
	}
	log.Error("scan failed", "error", cause)
}

func (o *Orchestrator) finishCancelled(j *job.Job, log logSink) {
	finished := time.Now().UTC()
	j.Status = job.StatusCancelled
	j.FinishedAt = &finished
	j.Error = "scan was cancelled by user"
	o.save(j)
	if o.metrics != nil {
		o.metrics.JobFinished(string(job.StatusCancelled))
	}
	log.Info("scan cancelled")
}

// save replaces the stored record with the pipeline's current copy.
// A NotFound here means the job was deleted mid-flight; the write is
// dropped and the result orphaned, per the delete contract.
func (o *Orchestrator) save(j *job.Job) {
	if err := o.store.Replace(j); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			o.logger.Warn("scan record deleted mid-flight, result orphaned", "scan_id", j.ID)
			return
		}
		o.logger.Error("persisting scan state failed", "scan_id", j.ID, "error", err)
	}
}

func (o *Orchestrator) observe(stage string, since time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveStage(stage, time.Since(since))
	}
}

func countParams(endpoints []string) int {
	n := 0
	for _, e := range endpoints {
		if strings.Contains(e, "?") {
			n++
		}
	}
	return n
}

// logSink is the slog surface the pipeline helpers need.
type logSink interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
