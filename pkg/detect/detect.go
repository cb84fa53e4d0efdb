// Package detect wraps the nuclei scanner behind the pipeline's detection
// contract: given discovered endpoints, inspect them against the policy's
// template set and return normalized raw findings.
//
// nuclei runs as a subprocess. Findings arrive as JSONL on stdout with a
// fallback parser for the bracketed console format; run statistics
// (templates loaded, requests sent) are scraped from stderr. Like
// discovery, the adapter is pass/fail with a timeout: a scanner failure
// fails the job, but zero findings is a success.
package detect

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/snlscan/snlscan/pkg/duration"
	"github.com/snlscan/snlscan/pkg/finding"
	"github.com/snlscan/snlscan/pkg/job"
)

// Nuclei invokes the nuclei binary to detect vulnerabilities.
type Nuclei struct {
	// Binary is the nuclei executable; defaults to "nuclei" on PATH.
	Binary string

	// TemplatesDir is the nuclei-templates checkout root. Policy template
	// dirs resolve relative to it.
	TemplatesDir string

	// Policy controls templates, tags, severities, and rate limiting.
	Policy Policy

	// Logger for progress. Nil means slog.Default().
	Logger *slog.Logger
}

// NewNuclei returns a Nuclei adapter with the given binary and templates
// root, scanning under policy.
func NewNuclei(binary, templatesDir string, policy Policy, logger *slog.Logger) *Nuclei {
	if binary == "" {
		binary = "nuclei"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Nuclei{Binary: binary, TemplatesDir: templatesDir, Policy: policy, Logger: logger}
}

// Detect scans the endpoints and returns normalized findings plus run
// statistics. Bounded by a mode-dependent timeout; exceeding it is
// reported as finding.ErrTimeout.
func (n *Nuclei) Detect(ctx context.Context, endpoints []string, mode job.Mode) (*finding.Detection, error) {
	if len(endpoints) == 0 {
		return &finding.Detection{}, nil
	}

	timeout := duration.DetectQuick
	if mode == job.ModeDeep {
		timeout = duration.DetectDeep
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	listFile, err := writeTargetList(endpoints)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	defer os.Remove(listFile)

	cmd := exec.CommandContext(ctx, n.Binary, n.args(listFile)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	n.Logger.Info("detection started", "endpoints", len(endpoints), "mode", string(mode))

	runErr := cmd.Run()
	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: nuclei exceeded %v", finding.ErrTimeout, timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var execErr *exec.Error
		if errors.As(runErr, &execErr) {
			return nil, fmt.Errorf("%w: %s", finding.ErrToolMissing, n.Binary)
		}
		return nil, fmt.Errorf("%w: nuclei: %s", finding.ErrToolFailed, firstLine(stderr.Bytes()))
	}

	det := &finding.Detection{Findings: ParseFindings(stdout.Bytes())}
	det.TemplatesLoaded, det.RequestsSent = ParseStats(stderr.Bytes())

	n.Logger.Info("detection complete",
		"raw_findings", len(det.Findings),
		"templates_loaded", det.TemplatesLoaded,
		"requests_sent", det.RequestsSent)
	return det, nil
}

func (n *Nuclei) args(listFile string) []string {
	p := n.Policy
	args := []string{
		"-l", listFile,
		"-severity", strings.Join(p.Severities, ","),
		"-rl", strconv.Itoa(p.RateLimit),
		"-timeout", strconv.Itoa(p.RequestTimeout),
		"-silent",
		"-jsonl",
		"-stats",
		"-stats-interval", "1",
	}
	if p.DAST {
		args = append(args, "-dast")
	}
	for _, dir := range p.TemplateDirs {
		full := filepath.Join(n.TemplatesDir, dir)
		if _, err := os.Stat(full); err != nil {
			n.Logger.Warn("template directory missing", "dir", full)
			continue
		}
		args = append(args, "-t", full)
	}
	if len(p.ExcludedTags) > 0 {
		args = append(args, "-etags", strings.Join(p.ExcludedTags, ","))
	}
	return args
}

// writeTargetList writes the endpoint list to a temp file for nuclei -l.
func writeTargetList(endpoints []string) (string, error) {
	f, err := os.CreateTemp("", "snlscan-endpoints-*.txt")
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	for _, e := range endpoints {
		fmt.Fprintln(w, e)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	if len(b) == 0 {
		return "no output"
	}
	return string(b)
}
