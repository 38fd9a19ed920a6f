package draft

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"specsmith/internal/catalog"
	"specsmith/internal/wizard"
)

func testSession(id string, step int) wizard.Session {
	layer, _ := catalog.DeriveLayer(step)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return wizard.Session{
		ID:           id,
		CurrentStep:  step,
		CurrentLayer: layer,
		Answers: map[string]catalog.Answer{
			"purpose": catalog.TextAnswer("Automate expense reporting"),
			"goal":    catalog.TextAnswer("Halve processing time"),
		},
		StartedAt:    started,
		LastModified: started.Add(5 * time.Minute),
	}
}

func fileStore(t *testing.T, now *time.Time) *Store {
	t.Helper()
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(kv, nil, WithClock(func() time.Time { return *now }))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := fileStore(t, &now)

	session := testSession("round-trip", 7)
	if err := store.Save(session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load("round-trip")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(session, loaded) {
		t.Fatalf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", session, loaded)
	}
}

func TestLoadMissing(t *testing.T) {
	now := time.Now()
	store := fileStore(t, &now)
	if _, err := store.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiryIsLazy(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := fileStore(t, &now)

	if err := store.Save(testSession("stale", 3)); err != nil {
		t.Fatal(err)
	}

	// Just inside the retention window: still present.
	now = now.Add(Retention - time.Minute)
	if _, err := store.Load("stale"); err != nil {
		t.Fatalf("draft inside retention reported: %v", err)
	}

	// Past the window: gone, and deleted as a side effect.
	now = now.Add(2 * time.Minute)
	if _, err := store.Load("stale"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("expired draft still listed: %+v", list)
	}
}

func TestListSortsAndPrunes(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := fileStore(t, &now)

	if err := store.Save(testSession("old", 2)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour)
	if err := store.Save(testSession("mid", 5)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour)
	if err := store.Save(testSession("new", 9)); err != nil {
		t.Fatal(err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(list))
	}
	if list[0].SessionID != "new" || list[2].SessionID != "old" {
		t.Fatalf("list not sorted newest first: %+v", list)
	}
	if list[0].CurrentStep != 9 || list[0].AnsweredCount != 2 {
		t.Fatalf("metadata mismatch: %+v", list[0])
	}

	// Age out the first save only ("old" was written 2h before now).
	now = now.Add(Retention - 90*time.Minute)
	list, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected expired draft pruned from list, got %+v", list)
	}
	for _, d := range list {
		if d.SessionID == "old" {
			t.Fatal("expired draft survived in list")
		}
	}
}

func TestChecksumMismatchDiscards(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(kv, nil, WithClock(func() time.Time { return now }))

	if err := store.Save(testSession("tamper", 4)); err != nil {
		t.Fatal(err)
	}

	// Alter the payload text without fixing the checksum.
	raw, err := kv.Get("draft/tamper")
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Replace(raw, []byte("Automate"), []byte("AutoMate"), 1)
	if bytes.Equal(raw, tampered) {
		t.Fatal("tamper target not found in stored payload")
	}
	if err := kv.Set("draft/tamper", tampered); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load("tamper"); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
	// Corrupt entry must be gone afterwards.
	if _, err := kv.Get("draft/tamper"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("corrupt draft not discarded: %v", err)
	}
}

func TestQuotaPurgesThenRefuses(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	kv.quota = 2048
	store := NewStore(kv, nil, WithClock(func() time.Time { return now }))

	if err := store.Save(testSession("first", 2)); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	// Park a valid, unexpired envelope big enough that nothing else fits.
	pad := envelope{
		Version:  SchemaVersion,
		WizardID: "pad",
		Data:     json.RawMessage(`"` + strings.Repeat("x", 1700) + `"`),
		Metadata: envelopeMeta{SavedAt: now, ExpiresAt: now.Add(Retention)},
	}
	payload, err := json.Marshal(pad)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set("draft/pad", payload); err != nil {
		t.Fatal(err)
	}

	// Everything stored is still live, so purging frees nothing.
	if err := store.Save(testSession("second", 3)); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// After the retention window the padding is purgeable and the save
	// goes through.
	now = now.Add(Retention + time.Minute)
	store2 := NewStore(kv, nil, WithClock(func() time.Time { return now }))
	if err := store2.Save(testSession("second", 3)); err != nil {
		t.Fatalf("save after purge failed: %v", err)
	}
	list, err := store2.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SessionID != "second" {
		t.Fatalf("unexpected drafts after purge: %+v", list)
	}
}

func TestDelete(t *testing.T) {
	now := time.Now()
	store := fileStore(t, &now)
	if err := store.Save(testSession("gone", 2)); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load("gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted draft still loads: %v", err)
	}
	// Deleting twice is fine.
	if err := store.Delete("gone"); err != nil {
		t.Fatalf("repeated delete failed: %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := fileStore(t, &now)

	if err := store.Save(testSession("a", 2)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(Retention + time.Hour)
	if err := store.Save(testSession("b", 3)); err != nil {
		t.Fatal(err)
	}

	purged, err := store.PurgeExpired()
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SessionID != "b" {
		t.Fatalf("unexpected survivors: %+v", list)
	}
}
