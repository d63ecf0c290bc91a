// Package runstore records review run metadata. The default backend is a
// JSON file so a single binary needs nothing external; a Postgres backend
// takes over when a DSN is configured.
package runstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrNotFound reports that no run exists with the requested id.
var ErrNotFound = errors.New("run not found")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one review execution and its outcome.
type Run struct {
	ID         string    `json:"id"`
	Repo       string    `json:"repo"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Status     Status    `json:"status"`
	Iterations int       `json:"iterations"`
	Warnings   int       `json:"warnings"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// Store persists runs to either a JSON file or Postgres. The zero value is
// not usable; construct with New, NewPostgres, or NewFromEnv.
type Store struct {
	path string
	db   dbConn

	loadOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
	byID     map[string]Run

	schemaOnce sync.Once
	schemaErr  error
}

// New returns a file-backed store at path.
func New(path string) *Store {
	return &Store{path: path, byID: make(map[string]Run)}
}

// NewFromEnv prefers Postgres when ARCHSIGHT_PG_DSN is set, falling back to
// the file backend when the connection fails.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("ARCHSIGHT_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

// Create stores a new run. The id must be unique.
func (s *Store) Create(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("runstore: run id is required")
	}
	if s.db != nil {
		return s.createDB(ctx, run)
	}
	return s.createFile(run)
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	if s.db != nil {
		return s.getDB(ctx, id)
	}
	return s.getFile(id)
}

// Update applies fn to the stored run and persists the result.
func (s *Store) Update(ctx context.Context, id string, fn func(*Run)) (Run, error) {
	if s.db != nil {
		return s.updateDB(ctx, id, fn)
	}
	return s.updateFile(id, fn)
}

// List returns every run, most recently started first.
func (s *Store) List(ctx context.Context) ([]Run, error) {
	if s.db != nil {
		return s.listDB(ctx)
	}
	return s.listFile()
}
