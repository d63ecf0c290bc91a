package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

func (s *Store) ensureLoaded() error {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if os.IsNotExist(err) {
			return
		}
		if err != nil {
			s.loadErr = fmt.Errorf("runstore: load %s: %w", s.path, err)
			return
		}
		var runs []Run
		if err := json.Unmarshal(b, &runs); err != nil {
			s.loadErr = fmt.Errorf("runstore: parse %s: %w", s.path, err)
			return
		}
		for _, r := range runs {
			s.byID[r.ID] = r
		}
	})
	return s.loadErr
}

// saveLocked writes the full run set back to disk. Callers hold s.mu.
func (s *Store) saveLocked() error {
	runs := make([]Run, 0, len(s.byID))
	for _, r := range s.byID {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })

	b, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("runstore: encode: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("runstore: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("runstore: write: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) createFile(run Run) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[run.ID]; exists {
		return fmt.Errorf("runstore: run %q already exists", run.ID)
	}
	s.byID[run.ID] = run
	return s.saveLocked()
}

func (s *Store) getFile(id string) (Run, error) {
	if err := s.ensureLoaded(); err != nil {
		return Run{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.byID[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (s *Store) updateFile(id string, fn func(*Run)) (Run, error) {
	if err := s.ensureLoaded(); err != nil {
		return Run{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.byID[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	fn(&run)
	run.ID = id // the id is the key and cannot be changed
	s.byID[id] = run
	if err := s.saveLocked(); err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) listFile() ([]Run, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]Run, 0, len(s.byID))
	for _, r := range s.byID {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, nil
}
