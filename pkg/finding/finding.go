package finding

// RawFinding is an unscored, unexplained vulnerability report from the
// detection stage. Immutable once produced; the prioritization engine
// reads it, never mutates it.
type RawFinding struct {
	// Name is the issue identifier, typically the nuclei template id.
	Name string `json:"name"`

	// Title is the human-readable issue title from template metadata.
	Title string `json:"title,omitempty"`

	// URL is the affected endpoint the issue was matched at.
	URL string `json:"url"`

	// Description carries the template's own description, when present.
	Description string `json:"description,omitempty"`

	// Severity is the tool-reported severity level.
	Severity Severity `json:"severity"`

	// EaseOfFix is a heuristic weight; higher means cheaper to fix.
	EaseOfFix float64 `json:"ease_of_fix"`

	// Confidence is the detection confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Tags are the template tags, kept for the ease-of-fix heuristic
	// and for operator context in exports.
	Tags []string `json:"tags,omitempty"`
}

// Interpretation is the plain-language explanation of a finding,
// produced by the AI interpretation stage.
type Interpretation struct {
	WhatIsWrong  string `json:"what_is_wrong"`
	WhyItMatters string `json:"why_it_matters"`
	HowToFix     string `json:"how_to_fix"`
}

// Finding is a prioritized raw finding plus its interpretation. Order in
// ScanResult.Findings matches the prioritization ranking.
type Finding struct {
	RawFinding
	Interpretation Interpretation `json:"interpretation"`
}

// Summary aggregates scan-level counters for the final report.
type Summary struct {
	Target          string  `json:"target"`
	TotalEndpoints  int     `json:"total_endpoints"`
	RawFindings     int     `json:"raw_findings_count"`
	TopIssues       int     `json:"top_issues_count"`
	ParamsFound     int     `json:"params_found"`
	TemplatesLoaded int     `json:"templates_loaded"`
	RequestsSent    int     `json:"requests_sent"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ScanResult is the completed output of one scan job. Owned by the job
// once attached and immutable thereafter.
type ScanResult struct {
	Summary  Summary   `json:"summary"`
	Findings []Finding `json:"findings"`
}
