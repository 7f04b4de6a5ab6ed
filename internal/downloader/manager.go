package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/soundvault/soundvault/internal/cache"
	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/downloader/progress"
	"github.com/soundvault/soundvault/internal/logctx"
	"github.com/soundvault/soundvault/internal/transfer"
	"golang.org/x/sync/errgroup"
)

const defaultProgressInterval = 256 * 1024 // bytes between progress ticks

// Fetcher is the underlying transport: it turns a reference into a byte
// stream and a total size (or -1 when unknown). It is opaque to the manager
// beyond that contract.
type Fetcher interface {
	Fetch(ctx context.Context, ref catalog.Reference) (io.ReadCloser, int64, error)
}

// Outcome describes what a Request call did.
type Outcome string

const (
	// OutcomeAlreadyCached means the payload was on disk; no transfer was created.
	OutcomeAlreadyCached Outcome = "already_cached"
	// OutcomeJoined means the caller joined a transfer already in flight.
	OutcomeJoined Outcome = "joined"
	// OutcomeStarted means a fresh transfer was created and started.
	OutcomeStarted Outcome = "started"
)

// Manager turns remote references into durable cache files. It owns the
// transfer registry, drives each transfer from creation to terminal state,
// and multicasts every state change to subscribed observers.
type Manager struct {
	index            *cache.Index
	fetcher          Fetcher
	registry         *transfer.Registry
	events           *transfer.Multicast
	maxParallel      int
	progressInterval int64

	// sem bounds concurrent copies; a transfer stays Queued until it gets a slot.
	sem chan struct{}
}

func NewManager(index *cache.Index, fetcher Fetcher, events *transfer.Multicast, maxParallel int) *Manager {
	if maxParallel <= 0 {
		maxParallel = 1
	}

	return &Manager{
		index:            index,
		fetcher:          fetcher,
		registry:         transfer.NewRegistry(),
		events:           events,
		maxParallel:      maxParallel,
		progressInterval: defaultProgressInterval,
		sem:              make(chan struct{}, maxParallel),
	}
}

// Events returns the multicast observers subscribe to.
func (m *Manager) Events() *transfer.Multicast {
	return m.events
}

// Active returns snapshots of all live transfers.
func (m *Manager) Active() []transfer.Snapshot {
	return m.registry.Active()
}

// Request materializes ref locally. If the payload is already cached it
// emits already_cached synchronously and returns no transfer. If a transfer
// for ref is in flight the caller joins it; otherwise a fresh transfer is
// created, registered and started. Transfers outlive the caller's request
// context: only explicit cancellation stops them.
func (m *Manager) Request(ctx context.Context, ref catalog.Reference) (*transfer.Transfer, Outcome) {
	logger := logctx.LoggerFromContext(ctx).With("reference", ref.String())

	cached, err := m.index.Exists(ref)
	if err != nil {
		// Fail-safe: a broken existence check means re-download, not crash.
		logger.Warn("cache existence check failed, treating as miss", "err", err)
	}

	if cached {
		m.events.Publish(ctx, transfer.Event{
			Type:      transfer.EventAlreadyCached,
			Reference: ref,
			LocalPath: m.index.LocalPath(ref),
		})

		return nil, OutcomeAlreadyCached
	}

	var workerCtx context.Context

	t, joined := m.registry.GetOrInsert(ref, func() *transfer.Transfer {
		var cancel context.CancelFunc

		workerCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))

		return transfer.New(ref, cancel)
	})
	if joined {
		logger.Debug("joining in-flight transfer")

		return t, OutcomeJoined
	}

	go m.run(workerCtx, t)

	return t, OutcomeStarted
}

// Cancel requests cancellation of the live transfer for ref. Cancelling a
// reference with no live transfer is a no-op.
func (m *Manager) Cancel(ref catalog.Reference) {
	if t := m.registry.Get(ref); t != nil {
		t.Cancel()
	}
}

// Prefetch requests every reference and waits until each reaches a terminal
// state, bounded by the manager's parallelism. It returns the number of
// references fetched over the network and the first failure, if any.
func (m *Manager) Prefetch(ctx context.Context, refs []catalog.Reference) (int, error) {
	var fetched int32

	wg, ctx := errgroup.WithContext(ctx)

	sem := make(chan struct{}, m.maxParallel)

	for i := range refs {
		ref := refs[i]
		sem <- struct{}{}

		wg.Go(func() error {
			defer func() { <-sem }() // release the slot

			t, outcome := m.Request(ctx, ref)
			if outcome == OutcomeAlreadyCached {
				return nil
			}

			select {
			case <-t.Done():
			case <-ctx.Done():
				return ctx.Err()
			}

			snap := t.Snapshot()
			if snap.State == transfer.StateFailed {
				return snap.Err
			}

			if snap.State == transfer.StateCompleted && outcome == OutcomeStarted {
				atomic.AddInt32(&fetched, 1)
			}

			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		return int(fetched), fmt.Errorf("failed to prefetch references: %w", err)
	}

	return int(fetched), nil
}

// run drives one transfer to a terminal state. It is the only goroutine
// that emits events for this reference, so observers see progress in order
// and the terminal event last.
func (m *Manager) run(ctx context.Context, t *transfer.Transfer) {
	ref := t.Reference()
	logger := logctx.LoggerFromContext(ctx).With("reference", ref.String())

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }() // release the slot
	case <-ctx.Done():
		m.finishCancelled(ctx, t)

		return
	}

	if ctx.Err() != nil {
		m.finishCancelled(ctx, t)

		return
	}

	body, total, err := m.fetcher.Fetch(ctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			m.finishCancelled(ctx, t)

			return
		}

		m.finishFailed(ctx, t, err)

		return
	}

	defer body.Close()

	t.Start()
	m.publishProgress(ctx, t, 0)

	logger.Info("downloading", "size", humanize.Bytes(uint64(max(total, 0))))

	tmpPath, err := m.receive(ctx, t, body, total)
	if err != nil {
		if ctx.Err() != nil {
			m.finishCancelled(ctx, t)

			return
		}

		m.finishFailed(ctx, t, err)

		return
	}

	dest := m.index.LocalPath(ref)
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)

		m.finishFailed(ctx, t, &transfer.PersistError{Reference: ref, Path: dest, Err: err})

		return
	}

	m.finishCompleted(ctx, t, dest)

	logger.Info("downloaded and cached", "target", dest)
}

// receive copies the transport stream into a temp file inside the cache
// dir, emitting progress ticks. On any failure the temp file is removed so
// no partial payload survives.
func (m *Manager) receive(ctx context.Context, t *transfer.Transfer, body io.Reader, total int64) (string, error) {
	logger := logctx.LoggerFromContext(ctx)
	ref := t.Reference()

	tmp, err := os.CreateTemp(m.index.Dir(), cache.TempPattern)
	if err != nil {
		return "", &transfer.PersistError{Reference: ref, Path: m.index.Dir(), Err: err}
	}

	tmpPath := tmp.Name()

	pr := progress.NewReader(body, total, m.progressInterval, func(written, totalBytes int64) {
		if totalBytes <= 0 {
			return
		}

		logger.Debug("download progress",
			"reference", ref.String(),
			"downloaded", humanize.Bytes(uint64(written)),
			"total", humanize.Bytes(uint64(totalBytes)),
			"percent", humanize.FtoaWithDigits(float64(written)*100/float64(totalBytes), 2))

		m.publishProgress(ctx, t, float64(written)/float64(totalBytes))
	})

	if _, err := io.Copy(tmp, pr); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		return "", &transfer.TransportError{Reference: ref, Err: err}
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return "", &transfer.PersistError{Reference: ref, Path: tmpPath, Err: err}
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return "", &transfer.PersistError{Reference: ref, Path: tmpPath, Err: err}
	}

	return tmpPath, nil
}

func (m *Manager) publishProgress(ctx context.Context, t *transfer.Transfer, value float64) {
	reported, ok := t.Advance(value)
	if !ok {
		return
	}

	m.events.Publish(ctx, transfer.Event{
		Type:      transfer.EventProgress,
		Reference: t.Reference(),
		Progress:  reported,
	})
}

// The finish helpers apply the terminal transition, drop the registry entry
// and only then publish, so an observer reacting to a terminal event always
// finds the registry already cleared.

func (m *Manager) finishCompleted(ctx context.Context, t *transfer.Transfer, dest string) {
	if !t.Complete(dest) {
		return
	}

	m.registry.Remove(t.Reference())
	m.events.Publish(ctx, transfer.Event{
		Type:      transfer.EventCompleted,
		Reference: t.Reference(),
		Progress:  1,
		LocalPath: dest,
	})
}

func (m *Manager) finishFailed(ctx context.Context, t *transfer.Transfer, err error) {
	if !t.Fail(err) {
		return
	}

	m.registry.Remove(t.Reference())
	m.events.Publish(ctx, transfer.Event{
		Type:      transfer.EventFailed,
		Reference: t.Reference(),
		Err:       err,
	})

	logctx.LoggerFromContext(ctx).Error("transfer failed", "reference", t.Reference().String(), "err", err)
}

func (m *Manager) finishCancelled(ctx context.Context, t *transfer.Transfer) {
	if !t.MarkCancelled() {
		return
	}

	m.registry.Remove(t.Reference())
	m.events.Publish(ctx, transfer.Event{
		Type:      transfer.EventCancelled,
		Reference: t.Reference(),
	})
}
