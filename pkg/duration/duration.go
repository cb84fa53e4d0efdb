// Package duration provides canonical time constants for the codebase.
//
// Stage timeouts, server timeouts, and client cadence all live here so a
// scan profile can be reasoned about in one place. Do not scatter
// hardcoded time.Duration literals through adapter code; reference the
// appropriate constant instead.
package duration

import "time"

// Stage timeouts. Discovery and detection are each bounded independently;
// exceeding a bound is reported the same way as a tool failure.
const (
	// DiscoverQuick bounds a quick-mode crawl (2m, matches katana defaults
	// for depth-2 crawls of small sites).
	DiscoverQuick = 2 * time.Minute

	// DiscoverDeep bounds a deep-mode crawl (4m).
	DiscoverDeep = 4 * time.Minute

	// DetectQuick bounds quick-mode detection (5m).
	DetectQuick = 5 * time.Minute

	// DetectDeep bounds deep-mode detection (10m).
	DetectDeep = 10 * time.Minute

	// InterpretCall bounds a single AI interpretation request (60s,
	// standard for hosted LLM APIs).
	InterpretCall = 60 * time.Second
)

// HTTP server timeouts.
const (
	// ServerRead bounds reading a client request (10s).
	ServerRead = 10 * time.Second

	// ServerWrite bounds writing a response (30s). Responses embed full
	// scan results but never stream, so this stays short.
	ServerWrite = 30 * time.Second

	// ShutdownGrace is how long in-flight requests get on SIGTERM (10s).
	// Pipeline tasks are not awaited; their jobs resurface as history.
	ShutdownGrace = 10 * time.Second
)

// Client cadence.
const (
	// PollInterval is the canonical status polling interval. Purely
	// advisory; the API tolerates any client cadence.
	PollInterval = 2 * time.Second
)
