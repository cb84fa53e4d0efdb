package detect

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snlscan/snlscan/pkg/job"
)

func TestDetect_NoEndpoints(t *testing.T) {
	t.Parallel()

	n := NewNuclei("nuclei-not-installed", "", DefaultPolicy(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	det, err := n.Detect(context.Background(), nil, job.ModeQuick)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Empty(t, det.Findings)
	assert.Zero(t, det.TemplatesLoaded)
}

func TestArgs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "http/misconfiguration"), 0o755))

	p := Policy{
		TemplateDirs:   []string{"http/misconfiguration/", "dast/vulnerabilities/"},
		ExcludedTags:   []string{"dos", "intrusive"},
		Severities:     []string{"high", "critical"},
		RateLimit:      25,
		RequestTimeout: 5,
		DAST:           true,
	}
	n := NewNuclei("nuclei", dir, p, slog.New(slog.NewTextHandler(io.Discard, nil)))

	args := n.args("/tmp/targets.txt")
	assert.Contains(t, args, "-l")
	assert.Contains(t, args, "/tmp/targets.txt")
	assert.Contains(t, args, "high,critical")
	assert.Contains(t, args, "25")
	assert.Contains(t, args, "-dast")
	assert.Contains(t, args, "dos,intrusive")
	// Existing template dir is passed, the missing one is skipped.
	assert.Contains(t, args, filepath.Join(dir, "http/misconfiguration"))
	assert.NotContains(t, args, filepath.Join(dir, "dast/vulnerabilities"))
}

func TestArgs_NoDAST(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	p.DAST = false
	n := NewNuclei("nuclei", t.TempDir(), p, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NotContains(t, n.args("targets.txt"), "-dast")
}

func TestWriteTargetList(t *testing.T) {
	t.Parallel()

	path, err := writeTargetList([]string{"https://a.example.com/", "https://b.example.com/?q=1"})
	require.NoError(t, err)
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com/\nhttps://b.example.com/?q=1\n", string(data))
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	assert.Contains(t, p.TemplateDirs, "http/misconfiguration/")
	assert.Contains(t, p.ExcludedTags, "intrusive")
	assert.Equal(t, 50, p.RateLimit)
	assert.Equal(t, 10, p.RequestTimeout)
	assert.True(t, p.DAST)
}

func TestLoadPolicy_OverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit: 10\nseverities: [critical]\n"), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 10, p.RateLimit)
	assert.Equal(t, []string{"critical"}, p.Severities)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10, p.RequestTimeout)
	assert.True(t, p.DAST)
	assert.Contains(t, p.ExcludedTags, "dos")
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadPolicy_BadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit: [not an int\n"), 0o644))

	_, err := LoadPolicy(path)
	assert.Error(t, err)
}
