package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
)

func TestMemoryKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	value := []byte(`{"a":1}`)
	if err := kv.Put(ctx, "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'

	got, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("stored value aliased caller buffer: %s", got)
	}

	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestMemoryKVQuota(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(8)
	if err := kv.Put(ctx, "k", []byte("12345678")); err != nil {
		t.Fatalf("value at the limit should fit: %v", err)
	}
	err := kv.Put(ctx, "k", []byte("123456789"))
	if !errors.Is(err, apperr.ErrStorageQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	got, _ := kv.Get(ctx, "k")
	if string(got) != "12345678" {
		t.Fatalf("rejected write replaced the old value: %s", got)
	}
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("7b4ad1f0-6a8b-4c34-9b1e-2f0c1e0f9a11")
	if got := StateKey(id); got != "studyhub:7b4ad1f0-6a8b-4c34-9b1e-2f0c1e0f9a11:state" {
		t.Fatalf("unexpected state key %s", got)
	}
	if StateKey(id) == ResultsKey(id) || ResultsKey(id) == RoadmapKey(id) {
		t.Fatal("keys must not collide")
	}

	key, err := DraftKey(id, "exam-notes")
	if err != nil || !strings.HasSuffix(key, ":draft:exam-notes") {
		t.Fatalf("unexpected draft key %q, %v", key, err)
	}
	for _, bad := range []string{"", "  ", "a:b", "a/b", strings.Repeat("x", 65)} {
		if _, err := DraftKey(id, bad); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("expected invalid draft name for %q, got %v", bad, err)
		}
	}
}

type codedErr int

func (c codedErr) Error() string { return "sqlite error" }
func (c codedErr) Code() int     { return int(c) }

func TestIsSQLiteFull(t *testing.T) {
	if !isSQLiteFull(codedErr(13)) {
		t.Fatal("expected SQLITE_FULL to be detected")
	}
	if isSQLiteFull(codedErr(5)) {
		t.Fatal("SQLITE_BUSY is not a quota error")
	}
	if isSQLiteFull(errors.New("plain")) {
		t.Fatal("plain error is not a quota error")
	}
}
