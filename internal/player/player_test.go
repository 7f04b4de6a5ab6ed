package player

import (
	"context"
	"os"
	"testing"

	"github.com/soundvault/soundvault/internal/cache"
	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_PrefersCachedFile(t *testing.T) {
	index, err := cache.NewIndex(t.TempDir())
	require.NoError(t, err)

	ref := catalog.Reference("https://cdn.example.com/audio/a.mp3")
	require.NoError(t, os.WriteFile(index.LocalPath(ref), []byte("payload"), 0o644))

	src := NewResolver(index).Resolve(context.Background(), ref)

	assert.True(t, src.Local)
	assert.Equal(t, index.LocalPath(ref), src.URI)
}

func TestResolver_FallsBackToRemote(t *testing.T) {
	index, err := cache.NewIndex(t.TempDir())
	require.NoError(t, err)

	ref := catalog.Reference("https://cdn.example.com/audio/uncached.mp3")

	src := NewResolver(index).Resolve(context.Background(), ref)

	assert.False(t, src.Local)
	assert.Equal(t, ref.String(), src.URI)
}

func TestExecPlayer_RequiresCommand(t *testing.T) {
	p := NewExecPlayer("")

	err := p.Play(context.Background(), Source{URI: "x"})
	assert.ErrorContains(t, err, "no player command configured")
}

func TestExecPlayer_StopWithoutPlaybackIsNoOp(t *testing.T) {
	p := NewExecPlayer("ffplay")

	assert.NoError(t, p.Stop())
}

func TestExecPlayer_PlayAndStop(t *testing.T) {
	// A long-running harmless process stands in for the audio player.
	p := NewExecPlayer("sleep")

	require.NoError(t, p.Play(context.Background(), Source{URI: "30"}))
	require.NoError(t, p.Stop())

	// Stop is idempotent once the process is gone.
	assert.NoError(t, p.Stop())
}

func TestExecPlayer_PlayReplacesCurrentPlayback(t *testing.T) {
	p := NewExecPlayer("sleep")

	require.NoError(t, p.Play(context.Background(), Source{URI: "30"}))

	p.mu.Lock()
	first := p.current
	p.mu.Unlock()

	require.NoError(t, p.Play(context.Background(), Source{URI: "30"}))

	p.mu.Lock()
	second := p.current
	p.mu.Unlock()

	assert.NotSame(t, first, second)
	require.NoError(t, p.Stop())
}
