package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/logctx"
)

const dirPerm = 0o755

// IOError reports a failed filesystem metadata check. Callers treat it as a
// cache miss so a broken disk degrades to a re-download, not a crash.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache i/o error for %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Index answers "is this reference materialized locally" against a single
// cache directory. The filesystem is the only source of truth: there is no
// manifest, so an externally deleted file simply reads as uncached on the
// next Exists call.
type Index struct {
	dir string
}

func NewIndex(dir string) (*Index, error) {
	if dir == "" || !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("cache dir must be absolute: %q", dir)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	return &Index{dir: dir}, nil
}

// Dir returns the cache directory root.
func (i *Index) Dir() string {
	return i.dir
}

// LocalPath maps a reference to its canonical location inside the cache
// namespace. It is a pure function of the reference and does not imply the
// file exists.
func (i *Index) LocalPath(ref catalog.Reference) string {
	return filepath.Join(i.dir, ref.Filename())
}

// Exists reports whether the payload for ref has been materialized. Metadata
// failures other than "not there" come back as *IOError.
func (i *Index) Exists(ref catalog.Reference) (bool, error) {
	path := i.LocalPath(ref)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, &IOError{Path: path, Err: err}
	}

	return info.Mode().IsRegular(), nil
}

// Clear removes every cached payload. This is the user-initiated cache wipe;
// the download core never calls it. Temp files from in-flight transfers are
// left alone.
func (i *Index) Clear(ctx context.Context) error {
	logger := logctx.LoggerFromContext(ctx)

	entries, err := os.ReadDir(i.dir)
	if err != nil {
		return fmt.Errorf("failed to list cache dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}

		path := filepath.Join(i.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Error("failed to remove cached file", "file", path, "err", err)

			return fmt.Errorf("failed to remove cached file: %w", err)
		}

		logger.Info("removed cached file", "file", path)
	}

	return nil
}

// tempPrefix marks in-flight downloads written next to the cache so the
// final publish is a same-filesystem rename.
const tempPrefix = "dl-"

// TempPattern is the os.CreateTemp pattern for in-flight payloads.
const TempPattern = tempPrefix + "*.part"
