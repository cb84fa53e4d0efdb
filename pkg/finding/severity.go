package finding

// Severity represents the severity level of a security finding.
// Values are lowercase strings matching nuclei's severity vocabulary.
type Severity string

const (
	// Critical represents immediate system compromise (RCE, auth bypass).
	Critical Severity = "critical"

	// High represents significant impact requiring prompt fix (SQLi, stored XSS).
	High Severity = "high"

	// Medium represents moderate impact (reflected XSS, CSRF).
	Medium Severity = "medium"

	// Low represents limited impact (verbose errors, minor info leak).
	Low Severity = "low"

	// Info represents informational findings with no direct security impact.
	Info Severity = "info"
)

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// Rank returns a numeric rank for sorting and tie-breaking.
// Critical=5, High=4, Medium=3, Low=2, Info=1, Unknown=0.
func (s Severity) Rank() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// Impact returns the impact weight used by the prioritization score.
// Unknown severities weigh the same as Info.
func (s Severity) Impact() float64 {
	switch s {
	case Critical:
		return 10
	case High:
		return 8
	case Medium:
		return 5
	case Low:
		return 2
	default:
		return 1
	}
}

// ParseSeverity normalizes a tool-supplied severity string. Unrecognized
// values map to Info rather than failing the scan.
func ParseSeverity(raw string) Severity {
	s := Severity(raw)
	if s.IsValid() {
		return s
	}
	return Info
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}
