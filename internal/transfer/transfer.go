package transfer

import (
	"context"
	"sync"

	"github.com/soundvault/soundvault/internal/catalog"
)

// State is the lifecycle stage of a Transfer.
type State string

const (
	StateQueued     State = "queued"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Transfer models one download attempt for a reference. All mutation flows
// through the transition methods below, which serialize on the transfer's
// own mutex; callers outside the downloader only ever see Snapshot copies.
type Transfer struct {
	ref    catalog.Reference
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	progress   float64
	resultPath string
	err        error

	done chan struct{}
}

// Snapshot is a consistent copy of a Transfer's mutable fields.
type Snapshot struct {
	Reference  catalog.Reference
	State      State
	Progress   float64
	ResultPath string
	Err        error
}

// New creates a Transfer in the Queued state. cancel stops the underlying
// transport when cancellation is requested.
func New(ref catalog.Reference, cancel context.CancelFunc) *Transfer {
	return &Transfer{
		ref:    ref,
		cancel: cancel,
		state:  StateQueued,
		done:   make(chan struct{}),
	}
}

func (t *Transfer) Reference() catalog.Reference {
	return t.ref
}

// Done is closed when the transfer reaches a terminal state.
func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

func (t *Transfer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		Reference:  t.ref,
		State:      t.state,
		Progress:   t.progress,
		ResultPath: t.resultPath,
		Err:        t.err,
	}
}

// Start moves Queued -> InProgress. It reports false if the transfer is no
// longer startable.
func (t *Transfer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateQueued {
		return false
	}

	t.state = StateInProgress

	return true
}

// Advance applies a progress tick. Ticks may arrive out of byte order from
// the transport; the stored value never decreases, and the clamped value is
// what observers must be told. The second return is false when the tick
// must not be reported (stale value, or the transfer left InProgress).
func (t *Transfer) Advance(progress float64) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateInProgress {
		return t.progress, false
	}

	if progress > 1 {
		progress = 1
	}

	if progress < t.progress {
		return t.progress, false
	}

	t.progress = progress

	return t.progress, true
}

// Complete moves InProgress -> Completed and records where the payload was
// materialized.
func (t *Transfer) Complete(resultPath string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateInProgress {
		return false
	}

	t.state = StateCompleted
	t.progress = 1
	t.resultPath = resultPath
	close(t.done)

	return true
}

// Fail moves Queued/InProgress -> Failed with the transport or persist error.
func (t *Transfer) Fail(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Terminal() {
		return false
	}

	t.state = StateFailed
	t.err = err
	close(t.done)

	return true
}

// Cancel requests cancellation of the underlying transport. Idempotent and
// a no-op on terminal transfers. The terminal Cancelled transition itself is
// recorded by the worker via MarkCancelled once the transport has stopped.
func (t *Transfer) Cancel() {
	t.mu.Lock()
	terminal := t.state.Terminal()
	t.mu.Unlock()

	if terminal {
		return
	}

	t.cancel()
}

// MarkCancelled moves Queued/InProgress -> Cancelled.
func (t *Transfer) MarkCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Terminal() {
		return false
	}

	t.state = StateCancelled
	close(t.done)

	return true
}
