package player

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/soundvault/soundvault/internal/cache"
	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/logctx"
)

// Source is what a player consumes: a local cache path or the remote URL.
type Source struct {
	URI   string
	Local bool
}

// Player plays one source at a time.
type Player interface {
	Play(ctx context.Context, src Source) error
	Stop() error
}

// Resolver picks the playback source for a reference: the cached file when
// it exists, the remote location otherwise. Cache check failures degrade to
// remote playback.
type Resolver struct {
	index *cache.Index
}

func NewResolver(index *cache.Index) *Resolver {
	return &Resolver{index: index}
}

func (r *Resolver) Resolve(ctx context.Context, ref catalog.Reference) Source {
	cached, err := r.index.Exists(ref)
	if err != nil {
		logctx.LoggerFromContext(ctx).Warn("cache check failed, playing from remote",
			"reference", ref.String(), "err", err)
	}

	if cached {
		return Source{URI: r.index.LocalPath(ref), Local: true}
	}

	return Source{URI: ref.String()}
}

// ExecPlayer shells out to an external audio player (ffplay, mpv, ...). It
// stops any running playback before starting the next source.
type ExecPlayer struct {
	command string
	args    []string

	mu      sync.Mutex
	current *exec.Cmd
}

func NewExecPlayer(command string, args ...string) *ExecPlayer {
	return &ExecPlayer{command: command, args: args}
}

func (p *ExecPlayer) Play(ctx context.Context, src Source) error {
	if p.command == "" {
		return fmt.Errorf("no player command configured")
	}

	if err := p.Stop(); err != nil {
		return err
	}

	args := append(append([]string{}, p.args...), src.URI)
	cmd := exec.CommandContext(ctx, p.command, args...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}

	p.mu.Lock()
	p.current = cmd
	p.mu.Unlock()

	go func() {
		// Reap the process; playback runs until it exits or Stop kills it.
		_ = cmd.Wait()

		p.mu.Lock()
		if p.current == cmd {
			p.current = nil
		}
		p.mu.Unlock()
	}()

	return nil
}

func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	cmd := p.current
	p.current = nil
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to stop player: %w", err)
	}

	return nil
}
