package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/draftlens/internal/blobstore"
)

// WriteStatus represents the state of a background blob write.
type WriteStatus string

const (
	StatusQueued    WriteStatus = "queued"
	StatusStoring   WriteStatus = "storing"
	StatusStored    WriteStatus = "stored"
	StatusFailed    WriteStatus = "failed"
	StatusUnchanged WriteStatus = "unchanged"
)

// Write tracks one fire-and-forget blob write.
type Write struct {
	mu sync.Mutex

	ID     string        `json:"write_id"`
	Key    blobstore.Key `json:"-"`
	Status WriteStatus   `json:"status"`
	Error  string        `json:"error,omitempty"`

	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	data []byte
}

// NewWrite prepares a write of data to k.
func NewWrite(k blobstore.Key, data []byte) *Write {
	now := time.Now()
	return &Write{
		ID:          NewID(),
		Key:         k,
		Status:      StatusQueued,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		data:        data,
	}
}

// SetStatus updates the write status atomically.
func (w *Write) SetStatus(status WriteStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Status = status
	w.UpdatedAt = time.Now()
}

// Fail records err and marks the write failed.
func (w *Write) Fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Status = StatusFailed
	w.Error = err.Error()
	w.UpdatedAt = time.Now()
}

// Data returns the bytes to be written.
func (w *Write) Data() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.data
}

// WriteSnapshot is a read-only, JSON-safe copy of write state.
type WriteSnapshot struct {
	ID          string      `json:"write_id"`
	Path        string      `json:"path"`
	Status      WriteStatus `json:"status"`
	Error       string      `json:"error,omitempty"`
	ContentHash string      `json:"content_hash"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the write state.
func (w *Write) Snapshot() WriteSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WriteSnapshot{
		ID:          w.ID,
		Path:        w.Key.Path,
		Status:      w.Status,
		Error:       w.Error,
		ContentHash: w.ContentHash,
		UpdatedAt:   w.UpdatedAt,
	}
}

// WriteStore is a thread-safe registry of recent writes with TTL eviction.
// It also remembers the last hash stored per key so unchanged content is
// not written twice.
type WriteStore struct {
	mu     sync.Mutex
	writes map[string]*Write
	latest map[string]*Write
	stored map[string]string
	ttl    time.Duration
}

func NewWriteStore(ttl time.Duration) *WriteStore {
	return &WriteStore{
		writes: make(map[string]*Write),
		latest: make(map[string]*Write),
		stored: make(map[string]string),
		ttl:    ttl,
	}
}

func (s *WriteStore) Put(w *Write) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[w.ID] = w
	s.latest[w.Key.String()] = w
}

func (s *WriteStore) Get(id string) *Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[id]
}

// Latest returns the most recently submitted write for k.
func (s *WriteStore) Latest(k blobstore.Key) *Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[k.String()]
}

// MarkStored records hash as the content now held at k.
func (s *WriteStore) MarkStored(k blobstore.Key, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[k.String()] = hash
}

// IsStored reports whether hash is already the content at k.
func (s *WriteStore) IsStored(k blobstore.Key, hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored[k.String()] == hash
}

// Cleanup removes expired writes.
func (s *WriteStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, w := range s.writes {
		w.mu.Lock()
		expired := now.Sub(w.UpdatedAt) > s.ttl
		w.mu.Unlock()
		if !expired {
			continue
		}
		delete(s.writes, id)
		key := w.Key.String()
		if s.latest[key] == w {
			delete(s.latest, key)
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
