package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

func TestRegistrySharesWorkspace(t *testing.T) {
	r := NewRegistry(repository.NewMemoryKV(0), Options{})
	id := uuid.New()

	var wg sync.WaitGroup
	got := make([]*Workspace, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ws, err := r.Get(context.Background(), id)
			if err != nil {
				t.Error(err)
				return
			}
			got[i] = ws
		}(i)
	}
	wg.Wait()
	for _, ws := range got {
		if ws != got[0] {
			t.Fatal("concurrent loads produced different workspaces")
		}
	}
	if len(r.Loaded()) != 1 {
		t.Fatalf("expected one loaded workspace, got %d", len(r.Loaded()))
	}
}

func TestRegistryIsolatesProfiles(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(repository.NewMemoryKV(0), Options{})
	a, _ := r.Get(ctx, uuid.New())
	b, _ := r.Get(ctx, uuid.New())
	_, _ = a.State.Mutate(addCard("only-a"))
	if len(b.State.Snapshot().Flashcards) != 0 {
		t.Fatal("state leaked across profiles")
	}
}

func TestRegistryCloseFlushes(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV(0)
	id := uuid.New()
	r := NewRegistry(kv, Options{Debounce: time.Hour})
	ws, _ := r.Get(ctx, id)
	_, _ = ws.State.Mutate(addCard("c1"))
	if err := r.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := kv.Get(ctx, repository.StateKey(id)); err != nil {
		t.Fatalf("state not flushed on close: %v", err)
	}
	if _, err := r.Get(ctx, uuid.New()); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected closed registry to refuse loads, got %v", err)
	}
}

func TestWorkspaceDrafts(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(repository.NewMemoryKV(0), Options{})
	ws, _ := r.Get(ctx, uuid.New())

	if d, err := ws.Draft(ctx, "flashcard"); err != nil || d != nil {
		t.Fatalf("expected no draft, got %s, %v", d, err)
	}
	if err := ws.SaveDraft(ctx, "flashcard", json.RawMessage(`{"front":"x"}`)); err != nil {
		t.Fatal(err)
	}
	d, err := ws.Draft(ctx, "flashcard")
	if err != nil || string(d) != `{"front":"x"}` {
		t.Fatalf("unexpected draft %s, %v", d, err)
	}
	if err := ws.SaveDraft(ctx, "flashcard", json.RawMessage(`{bad`)); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected invalid draft, got %v", err)
	}
	if err := ws.DeleteDraft(ctx, "flashcard"); err != nil {
		t.Fatal(err)
	}
	if d, _ := ws.Draft(ctx, "flashcard"); d != nil {
		t.Fatal("draft not deleted")
	}
}

func TestWorkspaceRoadmapCache(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV(0)
	r := NewRegistry(kv, Options{})
	ws, _ := r.Get(ctx, uuid.New())

	if rm, err := ws.Roadmap(ctx); err != nil || rm != nil {
		t.Fatalf("expected empty cache, got %+v, %v", rm, err)
	}
	want := models.StudyRoadmap{Target: "27 điểm khối A00", Steps: []models.RoadmapStep{{Phase: "Tháng 1"}}}
	if err := ws.SaveRoadmap(ctx, want); err != nil {
		t.Fatal(err)
	}
	rm, err := ws.Roadmap(ctx)
	if err != nil || rm == nil || rm.Target != want.Target || len(rm.Steps) != 1 {
		t.Fatalf("unexpected roadmap %+v, %v", rm, err)
	}

	_ = kv.Put(ctx, repository.RoadmapKey(ws.ProfileID), []byte("garbage"))
	if rm, err := ws.Roadmap(ctx); err != nil || rm != nil {
		t.Fatalf("corrupt cache should read as empty, got %+v, %v", rm, err)
	}
	if w := ws.Warnings(); len(w) != 1 || w[0].Code != "STORAGE_CORRUPT" {
		t.Fatalf("expected corrupt warning, got %v", w)
	}
}

func TestWorkspaceQuotaWarningOnDraft(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(repository.NewMemoryKV(4), Options{})
	ws, _ := r.Get(ctx, uuid.New())
	if err := ws.SaveDraft(ctx, "chat", json.RawMessage(`"a long draft"`)); err != nil {
		t.Fatalf("quota should be a warning, got %v", err)
	}
	if w := ws.Warnings(); len(w) != 1 || w[0].Code != "STORAGE_QUOTA_EXCEEDED" {
		t.Fatalf("expected quota warning, got %v", w)
	}
}
