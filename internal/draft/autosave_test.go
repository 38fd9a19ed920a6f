package draft

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"specsmith/internal/wizard"
)

// memKV is an in-memory backend for exercising save scheduling without
// touching the filesystem.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (m *memKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *memKV) Usage() (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var used int64
	for _, value := range m.data {
		used += int64(len(value))
	}
	return used, DefaultQuota, nil
}

func (m *memKV) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func testSaver(t *testing.T, kv KV) (*AutoSaver, chan error) {
	t.Helper()
	saves := make(chan error, 16)
	saver := NewAutoSaver(NewStore(kv, nil), nil, func(err error) { saves <- err })
	saver.interval = 30 * time.Millisecond
	t.Cleanup(saver.Close)
	return saver, saves
}

func waitSave(t *testing.T, saves chan error) error {
	t.Helper()
	select {
	case err := <-saves:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for save")
		return nil
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	kv := newMemKV()
	saver, saves := testSaver(t, kv)

	// Five rapid edits within the quiet window collapse into one write
	// of the newest snapshot.
	for step := 1; step <= 5; step++ {
		saver.Notify(testSession("burst", step))
		time.Sleep(2 * time.Millisecond)
	}
	if err := waitSave(t, saves); err != nil {
		t.Fatalf("auto-save failed: %v", err)
	}
	if got := kv.setCount(); got != 1 {
		t.Fatalf("expected 1 write for the burst, got %d", got)
	}

	payload, err := kv.Get("draft/burst")
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatal(err)
	}
	var session wizard.Session
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatal(err)
	}
	if session.CurrentStep != 5 {
		t.Fatalf("expected newest snapshot persisted, got step %d", session.CurrentStep)
	}
}

func TestSeparateBurstsSaveSeparately(t *testing.T) {
	kv := newMemKV()
	saver, saves := testSaver(t, kv)

	saver.Notify(testSession("bursts", 2))
	if err := waitSave(t, saves); err != nil {
		t.Fatal(err)
	}
	saver.Notify(testSession("bursts", 3))
	if err := waitSave(t, saves); err != nil {
		t.Fatal(err)
	}
	if got := kv.setCount(); got != 2 {
		t.Fatalf("expected 2 writes, got %d", got)
	}
}

func TestFlushBypassesDebounce(t *testing.T) {
	kv := newMemKV()
	saver, saves := testSaver(t, kv)

	saver.Notify(testSession("flush", 4))
	if err := saver.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := kv.setCount(); got != 1 {
		t.Fatalf("expected flush to write immediately, got %d writes", got)
	}
	if err := waitSave(t, saves); err != nil {
		t.Fatal(err)
	}

	// The pending snapshot was consumed; the debounce timer must not
	// write it a second time.
	time.Sleep(4 * saver.interval)
	if got := kv.setCount(); got != 1 {
		t.Fatalf("flushed snapshot written again by timer, %d writes", got)
	}
}

func TestFlushWithoutPendingIsNoop(t *testing.T) {
	kv := newMemKV()
	saver, _ := testSaver(t, kv)
	if err := saver.Flush(); err != nil {
		t.Fatalf("empty flush failed: %v", err)
	}
	if got := kv.setCount(); got != 0 {
		t.Fatalf("empty flush wrote %d times", got)
	}
}

func TestCompletedSessionStopsAutoSave(t *testing.T) {
	kv := newMemKV()
	saver, _ := testSaver(t, kv)

	session := testSession("done", 15)
	session.IsComplete = true
	saver.Notify(session)
	time.Sleep(4 * saver.interval)
	if got := kv.setCount(); got != 0 {
		t.Fatalf("completed session auto-saved %d times", got)
	}
}

func TestCompletionDropsQueuedSnapshot(t *testing.T) {
	kv := newMemKV()
	saver, _ := testSaver(t, kv)

	saver.Notify(testSession("done", 15))
	done := testSession("done", 15)
	done.IsComplete = true
	saver.Notify(done)

	// Neither the timer nor a flush may write the superseded snapshot.
	if err := saver.Flush(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * saver.interval)
	if got := kv.setCount(); got != 0 {
		t.Fatalf("queued snapshot written after completion, %d writes", got)
	}
}

func TestCloseCancelsPending(t *testing.T) {
	kv := newMemKV()
	saver, _ := testSaver(t, kv)

	saver.Notify(testSession("closing", 6))
	saver.Close()
	time.Sleep(4 * saver.interval)
	if got := kv.setCount(); got != 0 {
		t.Fatalf("save fired after Close, %d writes", got)
	}
}

func TestSaveFailureIsRecorded(t *testing.T) {
	kv := newMemKV()
	kv.setErr = errors.New("disk full")
	saver, saves := testSaver(t, kv)

	saver.Notify(testSession("failing", 2))
	if err := waitSave(t, saves); err == nil {
		t.Fatal("expected save error to reach the callback")
	}
	if saver.LastErr() == nil {
		t.Fatal("expected LastErr to report the failure")
	}
}
