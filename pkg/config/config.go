// Package config holds server configuration: flags first, environment
// second, baked-in defaults last. A .env file in the working directory is
// loaded before the environment is read, matching how deployments ship
// the OpenAI key.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Sentinel errors for configuration failure modes.
var (
	// ErrInvalidConfig indicates a syntactically or semantically
	// invalid configuration value.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config holds all server options.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DataDir is where the scan history snapshot lives.
	DataDir string

	// KatanaBin and NucleiBin locate the scanner binaries; empty means
	// resolve from PATH.
	KatanaBin string
	NucleiBin string

	// TemplatesDir is the nuclei-templates checkout root.
	TemplatesDir string

	// PolicyFile optionally overrides the built-in detection policy.
	PolicyFile string

	// OpenAIKey authenticates interpretation calls. Empty disables
	// interpretation; findings degrade to placeholder explanations.
	OpenAIKey string

	// OpenAIModel and OpenAIBaseURL override the interpretation client
	// defaults.
	OpenAIModel   string
	OpenAIBaseURL string

	// TopFindings caps how many findings are interpreted per scan.
	TopFindings int

	// Verbose enables debug logging.
	Verbose bool
}

// ParseFlags parses command line arguments, layering them over the
// environment (after loading .env, if present).
func ParseFlags(args []string) (*Config, error) {
	// Missing .env is the common case outside deployments.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          envOr("SNL_ADDR", "127.0.0.1:8000"),
		DataDir:       envOr("SNL_DATA_DIR", "results"),
		KatanaBin:     os.Getenv("SNL_KATANA_BIN"),
		NucleiBin:     os.Getenv("SNL_NUCLEI_BIN"),
		TemplatesDir:  envOr("SNL_TEMPLATES_DIR", "nuclei-templates"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("SNL_OPENAI_MODEL"),
		OpenAIBaseURL: os.Getenv("SNL_OPENAI_BASE_URL"),
		TopFindings:   10,
	}
	if v := os.Getenv("SNL_TOP_FINDINGS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: SNL_TOP_FINDINGS: %v", ErrInvalidConfig, err)
		}
		cfg.TopFindings = n
	}

	fs := flag.NewFlagSet("snlscan", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for scan history")
	fs.StringVar(&cfg.KatanaBin, "katana", cfg.KatanaBin, "Path to katana binary")
	fs.StringVar(&cfg.NucleiBin, "nuclei", cfg.NucleiBin, "Path to nuclei binary")
	fs.StringVar(&cfg.TemplatesDir, "templates", cfg.TemplatesDir, "nuclei-templates root")
	fs.StringVar(&cfg.PolicyFile, "policy", cfg.PolicyFile, "Detection policy YAML (optional)")
	fs.IntVar(&cfg.TopFindings, "top", cfg.TopFindings, "Max findings interpreted per scan")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges; presence of scanner binaries is checked
// at first use, not here, so the server can boot in degraded setups.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: empty listen address", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: empty data directory", ErrInvalidConfig)
	}
	if c.TopFindings <= 0 {
		return fmt.Errorf("%w: top findings must be positive", ErrInvalidConfig)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
