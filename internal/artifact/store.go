// Package artifact persists the outputs of a review run: the raw model
// replies, the parsed insight JSON, and the rendered report. Backends share
// one interface so a run can write locally during development and to object
// storage in deployments.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound reports that no artifact exists at the requested path.
var ErrNotFound = errors.New("artifact not found")

// Store persists named artifacts grouped by run.
type Store interface {
	Put(ctx context.Context, runID, name string, content []byte) error
	Get(ctx context.Context, runID, name string) ([]byte, error)
	List(ctx context.Context, runID string) ([]string, error)
}

// LocalStore keeps artifacts on the filesystem under base/<runID>/<name>.
type LocalStore struct {
	base string
}

// NewLocalStore creates base if needed.
func NewLocalStore(base string) (*LocalStore, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, fmt.Errorf("artifact: base dir is required")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create base dir: %w", err)
	}
	return &LocalStore{base: base}, nil
}

func (s *LocalStore) Put(ctx context.Context, runID, name string, content []byte) error {
	full, err := s.resolve(runID, name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if content == nil {
		content = []byte{}
	}
	return os.WriteFile(full, content, 0o644)
}

func (s *LocalStore) Get(ctx context.Context, runID, name string) ([]byte, error) {
	full, err := s.resolve(runID, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *LocalStore) List(ctx context.Context, runID string) ([]string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("artifact: run id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := filepath.Join(s.base, runID)
	var names []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// resolve validates the run id and name and keeps the result under base.
func (s *LocalStore) resolve(runID, name string) (string, error) {
	runID = strings.TrimSpace(runID)
	name = strings.TrimSpace(name)
	if runID == "" {
		return "", fmt.Errorf("artifact: run id is required")
	}
	if name == "" {
		return "", fmt.Errorf("artifact: name is required")
	}
	if strings.Contains(runID, "/") || strings.Contains(runID, "..") {
		return "", fmt.Errorf("artifact: invalid run id %q", runID)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("artifact: invalid name %q", name)
		}
	}
	return filepath.Join(s.base, runID, filepath.FromSlash(name)), nil
}
