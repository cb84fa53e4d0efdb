package detect

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/snlscan/snlscan/internal/jsonutil"
	"github.com/snlscan/snlscan/pkg/finding"
)

// nucleiRow is the subset of nuclei's JSONL export the pipeline cares about.
type nucleiRow struct {
	TemplateID string `json:"template-id"`
	Type       string `json:"type"`
	MatchedAt  string `json:"matched-at"`
	Host       string `json:"host"`
	Info       struct {
		Name        string   `json:"name"`
		Severity    string   `json:"severity"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	} `json:"info"`
}

// bracketLine matches nuclei's console format:
// [template-id] [protocol] [severity] http://target/path
var bracketLine = regexp.MustCompile(`\[([^\]]+)\] \[([^\]]+)\] \[([^\]]+)\] (\S+)`)

// ParseFindings parses nuclei stdout into normalized raw findings.
// JSONL rows are preferred; lines that are not JSON fall back to the
// bracketed console format. Lines matching neither are dropped.
func ParseFindings(out []byte) []finding.RawFinding {
	var findings []finding.RawFinding

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var row nucleiRow
		if err := jsonutil.Unmarshal(line, &row); err == nil && row.TemplateID != "" {
			findings = append(findings, normalize(row))
			continue
		}

		if m := bracketLine.FindSubmatch(line); m != nil {
			sev := finding.ParseSeverity(string(m[3]))
			findings = append(findings, finding.RawFinding{
				Name:       string(m[1]),
				URL:        string(m[4]),
				Severity:   sev,
				EaseOfFix:  easeOfFix(nil, string(m[1])),
				Confidence: confidence(sev),
			})
		}
	}
	return findings
}

func normalize(row nucleiRow) finding.RawFinding {
	url := row.MatchedAt
	if url == "" {
		url = row.Host
	}
	sev := finding.ParseSeverity(row.Info.Severity)
	return finding.RawFinding{
		Name:        row.TemplateID,
		Title:       row.Info.Name,
		URL:         url,
		Description: row.Info.Description,
		Severity:    sev,
		Tags:        row.Info.Tags,
		EaseOfFix:   easeOfFix(row.Info.Tags, row.TemplateID),
		Confidence:  confidence(sev),
	}
}

// easeOfFixWeights estimates how cheap a class of issue is to fix; higher
// is easier. Header and TLS issues are config changes, injection flaws
// need code or schema work.
var easeOfFixWeights = []struct {
	tag    string
	weight float64
}{
	{"header", 10},
	{"csp", 9},
	{"hsts", 9},
	{"tls", 8},
	{"ssl", 8},
	{"ratelimit", 7},
	{"redirect", 6},
	{"xss", 4},
	{"csrf", 4},
	{"sqli", 2},
}

const easeOfFixDefault = 5

// easeOfFix picks the weight of the first known tag, consulting the
// template id when the row carried no tags (bracket-format lines).
func easeOfFix(tags []string, templateID string) float64 {
	for _, t := range tags {
		for _, w := range easeOfFixWeights {
			if t == w.tag {
				return w.weight
			}
		}
	}
	for _, w := range easeOfFixWeights {
		if strings.Contains(templateID, w.tag) {
			return w.weight
		}
	}
	return easeOfFixDefault
}

// confidence reflects that matcher-based findings rarely false-positive,
// while informational matches are weaker signals.
func confidence(sev finding.Severity) float64 {
	if sev == finding.Info {
		return 0.5
	}
	return 0.8
}

var (
	templatesLoadedLine = regexp.MustCompile(`Templates loaded[^:]*:\s*(\d+)`)
	statsRequests       = regexp.MustCompile(`requests:\s*(\d+)`)
	statsTemplates      = regexp.MustCompile(`templates:\s*(\d+)`)
)

// ParseStats scrapes run statistics from nuclei stderr. Two sources feed
// the same counters: the startup "Templates loaded for current scan: N"
// line and the periodic "[stats]" lines; the last [stats] line wins.
func ParseStats(stderr []byte) (templatesLoaded, requestsSent int) {
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	for sc.Scan() {
		line := sc.Text()

		if m := templatesLoadedLine.FindStringSubmatch(line); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				templatesLoaded = v
			}
			continue
		}
		if strings.Contains(line, "[stats]") {
			if m := statsRequests.FindStringSubmatch(line); m != nil {
				if v, err := strconv.Atoi(m[1]); err == nil {
					requestsSent = v
				}
			}
			if m := statsTemplates.FindStringSubmatch(line); m != nil {
				if v, err := strconv.Atoi(m[1]); err == nil {
					templatesLoaded = v
				}
			}
		}
	}
	return templatesLoaded, requestsSent
}
