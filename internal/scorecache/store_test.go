package scorecache_test

import (
	"context"
	"testing"
	"time"

	"subalign/internal/scorecache"
)

func mustOpen(t *testing.T) *scorecache.Store {
	t.Helper()
	store, err := scorecache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutAndGet(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	key := scorecache.Key{
		Backend:       "gemini",
		Model:         "gemini-2.5-flash",
		SourceHash:    "src-1",
		ReferenceHash: "ref-1",
	}
	entries := []scorecache.Entry{{Key: key, Score: 0.87}}
	if err := store.Put(ctx, entries); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	score, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cached score")
	}
	if score != 0.87 {
		t.Fatalf("score = %v, want 0.87", score)
	}

	_, ok, err = store.Get(ctx, scorecache.Key{Backend: "gemini", Model: "gemini-2.5-flash", SourceHash: "src-1", ReferenceHash: "other"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("unexpected hit for unknown pair")
	}
}

func TestPutUpsertsExistingPair(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	key := scorecache.Key{Backend: "openai", Model: "gpt-4o-mini", SourceHash: "a", ReferenceHash: "b"}
	if err := store.Put(ctx, []scorecache.Entry{{Key: key, Score: 0.2}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, []scorecache.Entry{{Key: key, Score: 0.9}}); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	score, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get failed: score=%v ok=%v err=%v", score, ok, err)
	}
	if score != 0.9 {
		t.Fatalf("score = %v, want upserted 0.9", score)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Entries != 1 {
		t.Fatalf("entries = %d, want 1 after upsert", stats.Entries)
	}
}

func TestLookupReturnsOnlyKnownPairs(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	known := scorecache.Key{Backend: "grok", Model: "grok-3-mini", SourceHash: "s1", ReferenceHash: "r1"}
	unknown := scorecache.Key{Backend: "grok", Model: "grok-3-mini", SourceHash: "s2", ReferenceHash: "r2"}
	if err := store.Put(ctx, []scorecache.Entry{{Key: known, Score: 0.5}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	found, err := store.Lookup(ctx, []scorecache.Key{known, unknown})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d entries, want 1", len(found))
	}
	if found[known] != 0.5 {
		t.Fatalf("score = %v, want 0.5", found[known])
	}
}

func TestModelChangesKey(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	old := scorecache.Key{Backend: "gemini", Model: "gemini-2.0-flash", SourceHash: "s", ReferenceHash: "r"}
	if err := store.Put(ctx, []scorecache.Entry{{Key: old, Score: 0.4}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	upgraded := old
	upgraded.Model = "gemini-2.5-flash"
	_, ok, err := store.Get(ctx, upgraded)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("score from another model must not be reused")
	}
}

func TestClear(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	entries := []scorecache.Entry{
		{Key: scorecache.Key{Backend: "gemini", Model: "m", SourceHash: "1", ReferenceHash: "1"}, Score: 0.1},
		{Key: scorecache.Key{Backend: "openai", Model: "m", SourceHash: "2", ReferenceHash: "2"}, Score: 0.2},
	}
	if err := store.Put(ctx, entries); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("entries = %d, want 0 after clear", stats.Entries)
	}
}

func TestPruneRemovesOnlyOldEntries(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	now := time.Now().UTC()
	entries := []scorecache.Entry{
		{
			Key:       scorecache.Key{Backend: "gemini", Model: "m", SourceHash: "old", ReferenceHash: "old"},
			Score:     0.3,
			CreatedAt: now.Add(-48 * time.Hour),
		},
		{
			Key:       scorecache.Key{Backend: "gemini", Model: "m", SourceHash: "new", ReferenceHash: "new"},
			Score:     0.6,
			CreatedAt: now,
		},
	}
	if err := store.Put(ctx, entries); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	removed, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	_, ok, err := store.Get(ctx, entries[1].Key)
	if err != nil || !ok {
		t.Fatalf("recent entry lost: ok=%v err=%v", ok, err)
	}
}

func TestStatsGroupsByBackend(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	entries := []scorecache.Entry{
		{Key: scorecache.Key{Backend: "gemini", Model: "m", SourceHash: "1", ReferenceHash: "1"}, Score: 0.1},
		{Key: scorecache.Key{Backend: "gemini", Model: "m", SourceHash: "2", ReferenceHash: "2"}, Score: 0.2},
		{Key: scorecache.Key{Backend: "openai", Model: "m", SourceHash: "3", ReferenceHash: "3"}, Score: 0.3},
	}
	if err := store.Put(ctx, entries); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Entries != 3 {
		t.Fatalf("entries = %d, want 3", stats.Entries)
	}
	if stats.PerBackend["gemini"] != 2 || stats.PerBackend["openai"] != 1 {
		t.Fatalf("unexpected backend counts: %v", stats.PerBackend)
	}
	if stats.SizeBytes == 0 {
		t.Fatal("expected non-zero database size")
	}
}

func TestCheckHealth(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	if err := store.Put(ctx, []scorecache.Entry{
		{Key: scorecache.Key{Backend: "gemini", Model: "m", SourceHash: "1", ReferenceHash: "1"}, Score: 0.5},
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.Entries != 1 {
		t.Fatalf("entries = %d, want 1", health.Entries)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := scorecache.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	key := scorecache.Key{Backend: "gemini", Model: "m", SourceHash: "persist", ReferenceHash: "persist"}
	if err := store.Put(ctx, []scorecache.Entry{{Key: key, Score: 0.75}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := scorecache.Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	score, ok, err := reopened.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get after reopen failed: ok=%v err=%v", ok, err)
	}
	if score != 0.75 {
		t.Fatalf("score = %v, want 0.75", score)
	}
}
