package pipeline

import (
	"context"
)

// process performs one queued write. Content identical to what was last
// stored at the same key is skipped. Failures are logged and not retried.
func (p *Persister) process(ctx context.Context, w *Write) {
	log := p.log.With("write_id", w.ID, "key", w.Key.String())

	if p.writes.IsStored(w.Key, w.ContentHash) {
		log.Debug("content unchanged, skipping")
		w.SetStatus(StatusUnchanged)
		return
	}

	w.SetStatus(StatusStoring)
	writeCtx, cancel := context.WithTimeout(ctx, p.cfg.WriteTimeout)
	defer cancel()

	if err := p.store.Put(writeCtx, w.Key, w.Data()); err != nil {
		log.Error("persist failed", "error", err)
		w.Fail(err)
		return
	}
	p.writes.MarkStored(w.Key, w.ContentHash)
	w.SetStatus(StatusStored)
	log.Info("persisted", "bytes", len(w.Data()))
}
