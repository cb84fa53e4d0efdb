package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snlscan/snlscan/pkg/finding"
)

func raw(name, url string, sev finding.Severity, ease, conf float64) finding.RawFinding {
	return finding.RawFinding{Name: name, URL: url, Severity: sev, EaseOfFix: ease, Confidence: conf}
}

func TestPrioritize_EmptyInput(t *testing.T) {
	t.Parallel()

	got := Prioritize(nil, 10)
	require.NotNil(t, got, "empty input is a success outcome, not nil")
	assert.Empty(t, got)

	got = Prioritize([]finding.RawFinding{}, 10)
	assert.Empty(t, got)
}

func TestPrioritize_ScoringExample(t *testing.T) {
	t.Parallel()

	// critical: impact 10 × ease 2 × conf 0.9 = 18
	x := raw("sqli-error-based", "https://a.example/login", finding.Critical, 2, 0.9)
	// medium: impact 5 × ease 3 × conf 0.8 = 12
	y := raw("missing-csp", "https://a.example/", finding.Medium, 3, 0.8)

	require.Equal(t, 18.0, Score(x))
	require.Equal(t, 12.0, Score(y))

	got := Prioritize([]finding.RawFinding{y, x}, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "sqli-error-based", got[0].Name, "higher score ranks first")
	assert.Equal(t, "missing-csp", got[1].Name)
}

func TestPrioritize_Deterministic(t *testing.T) {
	t.Parallel()

	input := []finding.RawFinding{
		raw("hsts-missing", "https://b.example/", finding.Info, 9, 0.5),
		raw("xss-reflected", "https://b.example/search", finding.High, 4, 0.8),
		raw("ssl-weak-cipher", "https://b.example/", finding.Low, 8, 0.8),
		raw("sqli-blind", "https://b.example/items", finding.Critical, 2, 0.8),
		raw("open-redirect", "https://b.example/out", finding.Medium, 6, 0.8),
	}

	first := Prioritize(input, 10)
	for range 50 {
		again := Prioritize(input, 10)
		require.Equal(t, first, again, "repeated calls must agree exactly")
	}
}

func TestPrioritize_TieBreaks(t *testing.T) {
	t.Parallel()

	// Identical score and severity; URL decides the order.
	a := raw("csp-missing", "https://z.example/", finding.Medium, 6, 0.5)
	b := raw("csp-missing", "https://a.example/", finding.Medium, 6, 0.5)

	got := Prioritize([]finding.RawFinding{a, b}, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "https://a.example/", got[0].URL)
	assert.Equal(t, "https://z.example/", got[1].URL)

	// Equal score, differing severity; severity rank decides.
	c := raw("tls-issue", "https://c.example/", finding.Low, 8, 0.5)   // 2*8*0.5 = 8
	d := raw("xss-found", "https://c.example/q", finding.High, 2, 0.5) // 8*2*0.5 = 8

	got = Prioritize([]finding.RawFinding{c, d}, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "xss-found", got[0].Name, "higher severity wins the tie")
}

func TestPrioritize_Dedup(t *testing.T) {
	t.Parallel()

	dup1 := raw("hsts-missing", "https://a.example/", finding.High, 9, 0.8)
	dup2 := raw("hsts-missing", "https://a.example/", finding.High, 9, 0.8)

	got := Prioritize([]finding.RawFinding{dup1, dup2}, 10)
	require.Len(t, got, 1, "identical (name,url) pairs collapse to one entry")

	// The higher-scoring duplicate survives.
	weak := raw("xss-reflected", "https://a.example/q", finding.Medium, 4, 0.5)
	strong := raw("xss-reflected", "https://a.example/q", finding.High, 4, 0.8)
	got = Prioritize([]finding.RawFinding{weak, strong}, 10)
	require.Len(t, got, 1)
	assert.Equal(t, finding.High, got[0].Severity)

	// Distinct URLs are distinct issues.
	got = Prioritize([]finding.RawFinding{
		raw("hsts-missing", "https://a.example/", finding.High, 9, 0.8),
		raw("hsts-missing", "https://b.example/", finding.High, 9, 0.8),
	}, 10)
	assert.Len(t, got, 2)
}

func TestPrioritize_Cap(t *testing.T) {
	t.Parallel()

	var input []finding.RawFinding
	for i := range 25 {
		input = append(input, raw("issue", urlN(i), finding.Medium, 5, 0.8))
	}

	got := Prioritize(input, 10)
	assert.Len(t, got, 10)

	// Cap can never exceed the deduplicated population.
	got = Prioritize(input[:3], 10)
	assert.Len(t, got, 3)

	// Non-positive cap falls back to the default.
	got = Prioritize(input, 0)
	assert.Len(t, got, DefaultCap)
}

func TestPrioritize_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	input := []finding.RawFinding{
		raw("b-issue", "https://a.example/2", finding.Low, 5, 0.5),
		raw("a-issue", "https://a.example/1", finding.Critical, 5, 0.9),
	}
	snapshot := append([]finding.RawFinding(nil), input...)

	_ = Prioritize(input, 10)
	assert.Equal(t, snapshot, input, "engine must not reorder or mutate its input")
}

func urlN(i int) string {
	return "https://a.example/p" + string(rune('a'+i%26)) + string(rune('a'+i/26))
}
