package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/draftlens/internal/blobstore"
)

// countingStore wraps a MemoryStore and counts Puts; it can be told to fail
// or block.
type countingStore struct {
	*blobstore.MemoryStore
	mu    sync.Mutex
	puts  int
	fail  error
	block chan struct{}
}

func (s *countingStore) Put(ctx context.Context, k blobstore.Key, data []byte) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.puts++
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	return s.MemoryStore.Put(ctx, k, data)
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPersister_WritesAndSkipsUnchanged(t *testing.T) {
	store := &countingStore{MemoryStore: blobstore.NewMemoryStore()}
	p := NewPersister(PersistConfig{Workers: 1, QueueSize: 10}, store, testLogger())
	p.Start(context.Background())

	w1, err := p.Submit(draftKey, []byte("Dear Alex,"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	w2, _ := p.Submit(draftKey, []byte("Dear Alex,"))
	p.Stop()

	if got, _ := store.Get(context.Background(), draftKey); string(got) != "Dear Alex," {
		t.Errorf("stored %q", got)
	}
	if store.count() != 1 {
		t.Errorf("expected 1 put, got %d", store.count())
	}
	if s := w1.Snapshot().Status; s != StatusStored {
		t.Errorf("w1 status = %s", s)
	}
	if s := w2.Snapshot().Status; s != StatusUnchanged {
		t.Errorf("w2 status = %s", s)
	}
	if p.Latest(draftKey) != w2 || p.GetWrite(w1.ID) != w1 {
		t.Error("write records not tracked")
	}
}

func TestPersister_FailureIsRecorded(t *testing.T) {
	store := &countingStore{MemoryStore: blobstore.NewMemoryStore(), fail: errors.New("unavailable")}
	p := NewPersister(PersistConfig{Workers: 1, QueueSize: 10}, store, testLogger())
	p.Start(context.Background())
	w, _ := p.Submit(draftKey, []byte("x"))
	p.Stop()

	snap := w.Snapshot()
	if snap.Status != StatusFailed || snap.Error != "unavailable" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if store.count() != 1 {
		t.Errorf("failed writes must not be retried, got %d puts", store.count())
	}
}

func TestPersister_SubmitNeverBlocks(t *testing.T) {
	store := &countingStore{MemoryStore: blobstore.NewMemoryStore(), block: make(chan struct{})}
	p := NewPersister(PersistConfig{Workers: 1, QueueSize: 1}, store, testLogger())
	p.Start(context.Background())

	done := make(chan error, 1)
	go func() {
		var last error
		for range 5 {
			if _, err := p.Submit(draftKey, []byte(time.Now().String())); err != nil {
				last = err
			}
		}
		done <- last
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected a queue-full error")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked")
	}

	close(store.block)
	p.Stop()
	if _, err := p.Submit(draftKey, []byte("late")); err == nil {
		t.Error("expected error after Stop")
	}
}
