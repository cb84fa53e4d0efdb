// Package discover wraps the katana crawler behind the pipeline's
// discovery contract: given a target URL, enumerate the reachable attack
// surface (pages, scripts, forms) without sending any payloads.
//
// katana runs as a subprocess with JSONL output on stdout. The adapter is
// a black box to the orchestrator: it either returns endpoints within its
// timeout or an error. An empty endpoint list is a valid outcome.
package discover

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/snlscan/snlscan/internal/jsonutil"
	"github.com/snlscan/snlscan/pkg/duration"
	"github.com/snlscan/snlscan/pkg/finding"
	"github.com/snlscan/snlscan/pkg/job"
)

// Crawl depth per mode. Depth 2 keeps quick scans inside the two-minute
// budget; deep mode goes one level further.
const (
	depthQuick = 2
	depthDeep  = 3
)

// Katana invokes the katana binary to discover endpoints.
type Katana struct {
	// Binary is the katana executable; defaults to "katana" on PATH.
	Binary string

	// Logger for progress. Nil means slog.Default().
	Logger *slog.Logger
}

// NewKatana returns a Katana adapter using the given binary path.
func NewKatana(binary string, logger *slog.Logger) *Katana {
	if binary == "" {
		binary = "katana"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Katana{Binary: binary, Logger: logger}
}

// Discover crawls target and returns the deduplicated endpoint list.
// The crawl is bounded by a mode-dependent timeout; exceeding it is
// reported as finding.ErrTimeout.
func (k *Katana) Discover(ctx context.Context, target string, mode job.Mode) ([]string, error) {
	timeout := duration.DiscoverQuick
	depth := depthQuick
	if mode == job.ModeDeep {
		timeout = duration.DiscoverDeep
		depth = depthDeep
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// -jc parses JavaScript, -fx extracts forms, -silent -jsonl keeps
	// stdout machine-readable.
	cmd := exec.CommandContext(ctx, k.Binary,
		"-u", target,
		"-d", strconv.Itoa(depth),
		"-jc",
		"-fx",
		"-silent",
		"-jsonl",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	k.Logger.Info("discovery started", "target", target, "mode", string(mode), "depth", depth)

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: katana exceeded %v", finding.ErrTimeout, timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %s", finding.ErrToolMissing, k.Binary)
		}
		return nil, fmt.Errorf("%w: katana: %s", finding.ErrToolFailed, firstLine(stderr.Bytes()))
	}

	endpoints := ParseJSONL(stdout.Bytes())
	k.Logger.Info("discovery complete", "target", target, "endpoints", len(endpoints))
	return endpoints, nil
}

// ParseJSONL extracts endpoint URLs from katana JSONL output. Rows carry
// the URL either as request.endpoint or as a top-level url field,
// depending on katana version. Unparseable lines are skipped; duplicates
// are dropped preserving first-seen order.
func ParseJSONL(out []byte) []string {
	var endpoints []string
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var row struct {
			URL     string `json:"url"`
			Request struct {
				Endpoint string `json:"endpoint"`
			} `json:"request"`
		}
		if err := jsonutil.Unmarshal(line, &row); err != nil {
			continue
		}

		u := row.Request.Endpoint
		if u == "" {
			u = row.URL
		}
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		endpoints = append(endpoints, u)
	}
	return endpoints
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
