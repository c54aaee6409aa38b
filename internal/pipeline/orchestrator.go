package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/draftlens/internal/blobstore"
)

// PersistConfig sizes the background writer.
type PersistConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
	RecordTTL    time.Duration
}

// Persister drains a bounded queue of blob writes with a pool of workers.
// Callers never wait for a write to finish.
type Persister struct {
	writes *WriteStore
	queue  chan *Write
	store  blobstore.Store
	log    *slog.Logger
	cfg    PersistConfig

	mu     sync.Mutex
	closed bool

	cancel  context.CancelFunc
	workers sync.WaitGroup
	wg      sync.WaitGroup
}

// NewPersister creates the writer; Start launches it.
func NewPersister(cfg PersistConfig, store blobstore.Store, log *slog.Logger) *Persister {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = time.Hour
	}
	return &Persister{
		writes: NewWriteStore(cfg.RecordTTL),
		queue:  make(chan *Write, cfg.QueueSize),
		store:  store,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines. Workers run until Stop has drained
// the queue.
func (p *Persister) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	for range p.cfg.Workers {
		p.workers.Add(1)
		go func() {
			defer p.workers.Done()
			for w := range p.queue {
				p.process(workerCtx, w)
			}
		}()
	}

	// Start write record cleanup.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				p.writes.Cleanup()
			}
		}
	}()
}

// Stop drains the queue and waits for in-flight writes.
func (p *Persister) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.workers.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Submit queues data for writing to k. It never blocks: a full queue is
// reported as an error and the write is dropped.
func (p *Persister) Submit(k blobstore.Key, data []byte) (*Write, error) {
	w := NewWrite(k, data)
	p.writes.Put(w)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		w.Fail(fmt.Errorf("persister stopped"))
		return w, fmt.Errorf("persister stopped")
	}
	select {
	case p.queue <- w:
		return w, nil
	default:
		w.Fail(fmt.Errorf("queue full"))
		return w, fmt.Errorf("persist queue is full (%d)", p.cfg.QueueSize)
	}
}

// GetWrite returns a write by ID.
func (p *Persister) GetWrite(id string) *Write {
	return p.writes.Get(id)
}

// Latest returns the most recent write submitted for k.
func (p *Persister) Latest(k blobstore.Key) *Write {
	return p.writes.Latest(k)
}

// QueueDepth returns current queue depth.
func (p *Persister) QueueDepth() int {
	return len(p.queue)
}
