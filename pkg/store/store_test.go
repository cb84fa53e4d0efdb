package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snlscan/snlscan/pkg/finding"
	"github.com/snlscan/snlscan/pkg/job"
)

func newJob(id string, submitted time.Time) *job.Job {
	return &job.Job{
		ID:          id,
		Target:      "https://example.com",
		Mode:        job.ModeQuick,
		Status:      job.StatusPending,
		SubmittedAt: submitted,
	}
}

func TestStore_PutGetRoundtrip(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	require.NoError(t, err)

	j := newJob("a", time.Now().UTC())
	require.NoError(t, s.Put(j))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, j, got)
}

func TestStore_GetUnknown(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CopyOnRead(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	require.NoError(t, err)

	j := newJob("a", time.Now().UTC())
	j.Status = job.StatusCompleted
	j.Result = &finding.ScanResult{
		Summary:  finding.Summary{Target: j.Target},
		Findings: []finding.Finding{{RawFinding: finding.RawFinding{Name: "x", URL: "https://example.com/"}}},
	}
	require.NoError(t, s.Put(j))

	// Mutating what Put received must not affect the stored record.
	j.Status = job.StatusFailed
	j.Result.Findings[0].Name = "tampered"

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, got.Status)
	assert.Equal(t, "x", got.Result.Findings[0].Name)

	// Mutating a read snapshot must not affect subsequent reads.
	got.Result.Findings[0].Name = "tampered"
	again, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "x", again.Result.Findings[0].Name)
}

func TestStore_ReloadFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	done := time.Now().UTC().Truncate(time.Second)
	j := newJob("persisted", done.Add(-time.Minute))
	j.Status = job.StatusCompleted
	j.FinishedAt = &done
	j.Result = &finding.ScanResult{
		Summary:  finding.Summary{Target: j.Target, TotalEndpoints: 4, TopIssues: 1},
		Findings: []finding.Finding{{RawFinding: finding.RawFinding{Name: "hsts-missing", URL: "https://example.com/", Severity: finding.Info}}},
	}
	require.NoError(t, s.Put(j))

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Len())

	got, err := reopened.Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, got.Status)
	assert.Equal(t, 4, got.Result.Summary.TotalEndpoints)
	assert.Equal(t, "hsts-missing", got.Result.Findings[0].Name)
}

func TestStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	require.NoError(t, err)

	base := time.Now().UTC()
	require.NoError(t, s.Put(newJob("oldest", base.Add(-2*time.Hour))))
	require.NoError(t, s.Put(newJob("newest", base)))
	require.NoError(t, s.Put(newJob("middle", base.Add(-time.Hour))))

	got, err := s.List()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "newest", got[0].ID)
	assert.Equal(t, "middle", got[1].ID)
	assert.Equal(t, "oldest", got[2].ID)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(newJob("a", time.Now().UTC())))
	require.NoError(t, s.Delete("a"))

	_, err = s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete("a"), ErrNotFound)
}

func TestStore_ReplaceRefusesResurrection(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	require.NoError(t, err)

	j := newJob("a", time.Now().UTC())
	require.NoError(t, s.Put(j))
	require.NoError(t, s.Delete("a"))

	j.Status = job.StatusCompleted
	assert.ErrorIs(t, s.Replace(j), ErrNotFound, "a deleted job must stay deleted")
	assert.Equal(t, 0, s.Len())
}

func TestStore_SnapshotFileIsAtomicallyReplaced(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(newJob("a", time.Now().UTC())))

	// The temp file from the write-then-rename must not linger.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scan_history.json", entries[0].Name())

	_, err = os.Stat(filepath.Join(dir, "scan_history.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}
