package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func fileStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.json")
	return New(path), path
}

func TestFileStore_CreateGetUpdate(t *testing.T) {
	store, _ := fileStore(t)
	ctx := context.Background()
	started := time.Now().Truncate(time.Second)

	run := Run{ID: "run-1", Repo: "/src/app", Provider: "gemini", Model: "gemini-2.5-flash", Status: StatusRunning, StartedAt: started}
	if err := store.Create(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusRunning || got.Provider != "gemini" {
		t.Fatalf("got %+v", got)
	}

	updated, err := store.Update(ctx, "run-1", func(r *Run) {
		r.Status = StatusCompleted
		r.Iterations = 3
		r.FinishedAt = started.Add(time.Minute)
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != StatusCompleted || updated.Iterations != 3 {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	store, path := fileStore(t)
	ctx := context.Background()
	if err := store.Create(ctx, Run{ID: "run-1", Status: StatusFailed, Error: "boom", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	reopened := New(path)
	got, err := reopened.Get(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusFailed || got.Error != "boom" {
		t.Fatalf("got %+v", got)
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	store, _ := fileStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFileStore_DuplicateCreate(t *testing.T) {
	store, _ := fileStore(t)
	ctx := context.Background()
	if err := store.Create(ctx, Run{ID: "run-1", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, Run{ID: "run-1", StartedAt: time.Now()}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestFileStore_ListNewestFirst(t *testing.T) {
	store, _ := fileStore(t)
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		if err := store.Create(ctx, Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != "new" || runs[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", runs)
	}
}
