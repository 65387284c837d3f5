package persistence

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, _, err := s.LoadLatestSnapshot(); err != ErrNoSnapshot {
		t.Fatalf("empty store returned %v, want ErrNoSnapshot", err)
	}

	raw := []byte(`{"tick":42,"seq":7,"grid":{"width":16,"height":16}}`)
	if err := s.SaveSnapshot(42, 7, raw); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	got, tick, err := s.LoadLatestSnapshot()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if tick != 42 {
		t.Fatalf("tick %d, want 42", tick)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("snapshot data %q, want %q", got, raw)
	}
}

func TestSnapshotReplaceAtSameTick(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveSnapshot(10, 1, []byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSnapshot(10, 2, []byte(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}
	got, tick, err := s.LoadLatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if tick != 10 || string(got) != `{"v":2}` {
		t.Fatalf("got tick %d data %q, want the replacement", tick, got)
	}
}

func TestSnapshotPruning(t *testing.T) {
	s := openTestStore(t)

	for tick := uint64(100); tick <= 800; tick += 100 {
		raw := []byte(fmt.Sprintf(`{"tick":%d}`, tick))
		if err := s.SaveSnapshot(tick, tick, raw); err != nil {
			t.Fatalf("save at tick %d: %v", tick, err)
		}
	}

	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM snapshots`); err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Fatalf("kept %d snapshots, want 5", count)
	}

	// The newest save survives pruning.
	got, tick, err := s.LoadLatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if tick != 800 || string(got) != `{"tick":800}` {
		t.Fatalf("latest is tick %d data %q, want 800", tick, got)
	}

	// The oldest saves are gone.
	var oldest uint64
	if err := s.db.Get(&oldest, `SELECT MIN(tick) FROM snapshots`); err != nil {
		t.Fatal(err)
	}
	if oldest != 400 {
		t.Fatalf("oldest kept tick %d, want 400", oldest)
	}
}

func TestEventLog(t *testing.T) {
	s := openTestStore(t)

	if err := s.AppendEvents(5, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	if err := s.AppendEvents(5, []EventRecord{
		{Tick: 5, Category: "company", Description: "Ironclad Haulage founded"},
		{Tick: 5, Category: "market", Description: "boom phase begins"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEvents(9, []EventRecord{
		{Tick: 9, Category: "town", Description: "Springfield grew to 3100 residents"},
	}); err != nil {
		t.Fatal(err)
	}

	all, err := s.EventsSince(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	if all[0].Category != "company" || all[2].Tick != 9 {
		t.Fatalf("events out of order: %+v", all)
	}

	late, err := s.EventsSince(6, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(late) != 1 || late[0].Description != "Springfield grew to 3100 residents" {
		t.Fatalf("events since tick 6: %+v", late)
	}

	capped, err := s.EventsSince(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(capped) != 2 {
		t.Fatalf("limit ignored, got %d events", len(capped))
	}
}

func TestMeta(t *testing.T) {
	s := openTestStore(t)

	v, err := s.GetMeta("seed")
	if err != nil || v != "" {
		t.Fatalf("unset key returned (%q, %v), want empty", v, err)
	}
	if err := s.SetMeta("seed", "42"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMeta("seed", "1337"); err != nil {
		t.Fatal(err)
	}
	v, err = s.GetMeta("seed")
	if err != nil {
		t.Fatal(err)
	}
	if v != "1337" {
		t.Fatalf("seed meta %q, want 1337", v)
	}
}
