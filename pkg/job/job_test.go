package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snlscan/snlscan/pkg/finding"
)

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		assert.True(t, s.Terminal(), "%s must be terminal", s)
	}
	for _, s := range []Status{StatusPending, StatusRunning} {
		assert.False(t, s.Terminal(), "%s must not be terminal", s)
	}
}

func TestStatus_CanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRunning, StatusPending, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCancelled, false},
		{StatusCancelled, StatusRunning, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestMode_IsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, ModeQuick.IsValid())
	assert.True(t, ModeDeep.IsValid())
	assert.False(t, Mode("paranoid").IsValid())
	assert.False(t, Mode("").IsValid())
}

func TestJob_CloneIsolation(t *testing.T) {
	t.Parallel()

	started := time.Now().UTC()
	orig := &Job{
		ID:          "abc",
		Target:      "https://example.com",
		Mode:        ModeQuick,
		Status:      StatusCompleted,
		SubmittedAt: started.Add(-time.Minute),
		StartedAt:   &started,
		Result: &finding.ScanResult{
			Summary: finding.Summary{Target: "https://example.com", TopIssues: 1},
			Findings: []finding.Finding{{
				RawFinding: finding.RawFinding{
					Name: "hsts-missing",
					URL:  "https://example.com/",
					Tags: []string{"hsts", "header"},
				},
			}},
		},
	}

	c := orig.Clone()
	require.Equal(t, orig, c)

	// Mutating the clone must not leak into the original.
	c.Status = StatusFailed
	*c.StartedAt = c.StartedAt.Add(time.Hour)
	c.Result.Findings[0].Name = "changed"
	c.Result.Findings[0].Tags[0] = "changed"

	assert.Equal(t, StatusCompleted, orig.Status)
	assert.Equal(t, started, *orig.StartedAt)
	assert.Equal(t, "hsts-missing", orig.Result.Findings[0].Name)
	assert.Equal(t, "hsts", orig.Result.Findings[0].Tags[0])
}

func TestJob_CloneNilFields(t *testing.T) {
	t.Parallel()

	orig := &Job{ID: "abc", Status: StatusPending}
	c := orig.Clone()
	require.Equal(t, orig, c)
	assert.Nil(t, c.StartedAt)
	assert.Nil(t, c.FinishedAt)
	assert.Nil(t, c.Result)
}
