package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTP_FetchSuccess(t *testing.T) {
	payload := []byte("audio-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "soundvault-test", r.Header.Get("User-Agent"))

		_, _ = w.Write(payload)
	}))
	defer server.Close()

	f := NewHTTP(5*time.Second, "soundvault-test", "")

	body, total, err := f.Fetch(context.Background(), catalog.Reference(server.URL+"/track.mp3"))
	require.NoError(t, err)

	defer body.Close()

	assert.Equal(t, int64(len(payload)), total)

	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, payload, content)
}

func TestHTTP_FetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	f := NewHTTP(5*time.Second, "", "")
	ref := catalog.Reference(server.URL + "/missing.mp3")

	_, _, err := f.Fetch(context.Background(), ref)
	require.Error(t, err)

	var transportErr *transfer.TransportError

	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusNotFound, transportErr.StatusCode)
	assert.Equal(t, ref, transportErr.Reference)
}

func TestHTTP_FetchConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	f := NewHTTP(time.Second, "", "")

	_, _, err := f.Fetch(context.Background(), catalog.Reference(server.URL+"/track.mp3"))

	var transportErr *transfer.TransportError

	require.ErrorAs(t, err, &transportErr)
	assert.Zero(t, transportErr.StatusCode)
	assert.Error(t, transportErr.Err)
}

func TestHTTP_FetchSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewHTTP(5*time.Second, "", "s3cret")

	body, _, err := f.Fetch(context.Background(), catalog.Reference(server.URL+"/track.mp3"))
	require.NoError(t, err)
	require.NoError(t, body.Close())
}

func TestHTTP_FetchHonoursContextCancellation(t *testing.T) {
	blocked := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(blocked)
	}))
	defer server.Close()

	f := NewHTTP(30*time.Second, "", "")

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := f.Fetch(ctx, catalog.Reference(server.URL+"/track.mp3"))
	require.Error(t, err)

	select {
	case <-blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("server handler never observed cancellation")
	}
}
