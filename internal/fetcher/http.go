package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/logctx"
	"github.com/soundvault/soundvault/internal/transfer"
	"golang.org/x/oauth2"
)

// HTTP fetches remote audio payloads over plain or bearer-authenticated
// HTTP. It implements the downloader's Fetcher contract.
type HTTP struct {
	client    *http.Client
	userAgent string
}

// NewHTTP creates a fetcher. When token is non-empty, requests carry it as
// an OAuth2 bearer token.
func NewHTTP(timeout time.Duration, userAgent, token string) *HTTP {
	client := &http.Client{Timeout: timeout}

	if token != "" {
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), tokenSource)
		client.Timeout = timeout
	}

	if userAgent == "" {
		userAgent = "soundvault/1.0"
	}

	return &HTTP{client: client, userAgent: userAgent}
}

// Fetch opens a byte stream for ref. The second return is the content
// length, or -1 when the server does not announce one. Failures are
// reported as *transfer.TransportError.
func (f *HTTP) Fetch(ctx context.Context, ref catalog.Reference) (io.ReadCloser, int64, error) {
	logger := logctx.LoggerFromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), http.NoBody)
	if err != nil {
		return nil, 0, &transfer.TransportError{Reference: ref, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch reference", "reference", ref.String(), "err", err)

		return nil, 0, &transfer.TransportError{Reference: ref, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()

		return nil, 0, &transfer.TransportError{Reference: ref, StatusCode: resp.StatusCode}
	}

	return resp.Body, resp.ContentLength, nil
}
