// Package store provides the job store: the single source of truth for
// scan jobs, read by pollers and written by each job's pipeline task.
//
// Jobs live in an in-memory map guarded by a RWMutex, with a durable JSON
// snapshot on disk so scan history survives restarts. Every read returns a
// deep copy and every write stores a deep copy, so a snapshot handed to a
// poller is frozen even while the pipeline keeps mutating its own copy.
//
// Data is stored as a single JSON document for portability and simplicity.
// For high-volume production use, consider upgrading to a database backend.
package store

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/snlscan/snlscan/internal/jsonutil"
	"github.com/snlscan/snlscan/pkg/job"
)

// ErrNotFound is returned when the requested job id is unknown.
var ErrNotFound = errors.New("store: scan not found")

const snapshotFile = "scan_history.json"

// Store manages scan jobs with file-backed persistence.
type Store struct {
	mu       sync.RWMutex
	basePath string
	jobs     map[string]*job.Job
}

// snapshot is the on-disk layout: a flat sequence of job records.
type snapshot struct {
	Jobs []*job.Job `json:"jobs"`
}

// Open creates a store rooted at basePath, loading any existing snapshot.
// A missing snapshot file is not an error; the store starts empty.
func Open(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		basePath: basePath,
		jobs:     make(map[string]*job.Job),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

func (s *Store) path() string {
	return filepath.Join(s.basePath, snapshotFile)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return err
	}
	var snap snapshot
	if err := jsonutil.Unmarshal(data, &snap); err != nil {
		return err
	}
	for _, j := range snap.Jobs {
		s.jobs[j.ID] = j
	}
	return nil
}

// persist writes the snapshot using a temp-file + rename so a crash
// mid-write never corrupts the history file. Caller must hold s.mu.
func (s *Store) persist() error {
	snap := snapshot{Jobs: make([]*job.Job, 0, len(s.jobs))}
	for _, j := range s.jobs {
		snap.Jobs = append(snap.Jobs, j)
	}
	// Stable file contents regardless of map iteration order.
	sort.Slice(snap.Jobs, func(i, k int) bool {
		return snap.Jobs[i].SubmittedAt.After(snap.Jobs[k].SubmittedAt)
	})

	data, err := jsonutil.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Put stores a deep copy of j, inserting or replacing wholesale.
func (s *Store) Put(j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[j.ID] = j.Clone()
	return s.persist()
}

// Replace overwrites an existing job wholesale. Unlike Put it refuses to
// resurrect a job that was deleted out from under its pipeline; the
// caller drops the write and the result is orphaned.
func (s *Store) Replace(j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[j.ID]; !ok {
		return ErrNotFound
	}
	s.jobs[j.ID] = j.Clone()
	return s.persist()
}

// Get retrieves a job snapshot by id.
func (s *Store) Get(id string) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// List returns snapshots of all jobs, most recently submitted first.
func (s *Store) List() ([]*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].SubmittedAt.After(out[k].SubmittedAt)
	})
	return out, nil
}

// Delete removes a job unconditionally if present. Deleting a running
// job does not stop its pipeline task; it only orphans the result.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return s.persist()
}

// Len reports the number of stored jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
