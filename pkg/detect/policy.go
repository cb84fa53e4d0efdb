package detect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy controls what nuclei is allowed to run. The defaults mirror a
// conservative production profile: broad coverage templates, everything
// intrusive excluded, rate limited to stay polite.
type Policy struct {
	// TemplateDirs are template paths relative to the templates root.
	// Missing directories are skipped with a warning, not an error.
	TemplateDirs []string `yaml:"template_dirs"`

	// ExcludedTags are template tags that must never run.
	ExcludedTags []string `yaml:"excluded_tags"`

	// Severities limits which severities are scanned for.
	Severities []string `yaml:"severities"`

	// RateLimit is the requests-per-second cap passed to nuclei.
	RateLimit int `yaml:"rate_limit"`

	// RequestTimeout is the per-request timeout in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	// DAST enables nuclei's DAST mode, required for the generic
	// injection templates (SQLi, XSS).
	DAST bool `yaml:"dast"`
}

// DefaultPolicy returns the built-in scan policy.
func DefaultPolicy() Policy {
	return Policy{
		TemplateDirs: []string{
			"http/misconfiguration/",
			"http/exposures/",
			"http/vulnerabilities/",
			"dast/vulnerabilities/",
			"ssl/",
			"http/technologies/",
		},
		ExcludedTags:   []string{"bruteforce", "dos", "network", "intrusive"},
		Severities:     []string{"info", "low", "medium", "high", "critical"},
		RateLimit:      50,
		RequestTimeout: 10,
		DAST:           true,
	}
}

// LoadPolicy reads a policy from a YAML file. Fields left unset keep their
// default values, so a policy file only needs to state overrides.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("detect: read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("detect: parse policy: %w", err)
	}
	return p, nil
}
