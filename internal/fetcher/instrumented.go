package fetcher

import (
	"context"
	"io"

	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/downloader"
	"github.com/soundvault/soundvault/internal/telemetry"
)

// Instrumented wraps a Fetcher with telemetry spans and counters.
type Instrumented struct {
	fetcher   downloader.Fetcher
	telemetry *telemetry.Telemetry
}

func NewInstrumented(fetcher downloader.Fetcher, tel *telemetry.Telemetry) *Instrumented {
	return &Instrumented{fetcher: fetcher, telemetry: tel}
}

// Fetch opens a byte stream for ref with telemetry.
func (f *Instrumented) Fetch(ctx context.Context, ref catalog.Reference) (io.ReadCloser, int64, error) {
	var (
		body  io.ReadCloser
		total int64
		err   error
	)

	instrumentedErr := f.telemetry.InstrumentOperation(ctx, "fetch", "fetcher", func(ctx context.Context) error {
		body, total, err = f.fetcher.Fetch(ctx, ref)

		return err
	})

	if instrumentedErr != nil {
		return nil, 0, instrumentedErr
	}

	return body, total, nil
}
