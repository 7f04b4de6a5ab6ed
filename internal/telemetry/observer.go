package telemetry

import (
	"sync"
	"time"

	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/transfer"
)

// TransferObserver subscribes to the download multicast and turns transfer
// events into metrics. It tracks first-progress times per reference so the
// terminal event can record a duration.
type TransferObserver struct {
	telemetry *Telemetry

	mu      sync.Mutex
	started map[catalog.Reference]time.Time
}

func NewTransferObserver(tel *Telemetry) *TransferObserver {
	return &TransferObserver{
		telemetry: tel,
		started:   make(map[catalog.Reference]time.Time),
	}
}

// HandleTransferEvent implements transfer.Observer.
func (o *TransferObserver) HandleTransferEvent(event transfer.Event) {
	switch {
	case event.Type == transfer.EventAlreadyCached:
		o.telemetry.RecordCacheHit()
	case event.Type == transfer.EventProgress:
		o.markStarted(event.Reference)
	case event.Type.Terminal():
		o.markFinished(event.Reference, string(event.Type))
	}
}

func (o *TransferObserver) markStarted(ref catalog.Reference) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.started[ref]; ok {
		return
	}

	o.started[ref] = time.Now()
	o.telemetry.AddActiveDownloads(1)
}

func (o *TransferObserver) markFinished(ref catalog.Reference, status string) {
	o.mu.Lock()
	start, ok := o.started[ref]
	delete(o.started, ref)
	o.mu.Unlock()

	var duration time.Duration
	if ok {
		duration = time.Since(start)

		o.telemetry.AddActiveDownloads(-1)
	}

	o.telemetry.RecordDownload(status, duration)
}
