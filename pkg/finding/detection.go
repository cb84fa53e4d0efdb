package finding

// Detection is the output of the detect stage: the raw findings plus the
// tool counters surfaced in the scan summary.
type Detection struct {
	Findings        []RawFinding `json:"findings"`
	TemplatesLoaded int          `json:"templates_loaded"`
	RequestsSent    int          `json:"requests_sent"`
}
