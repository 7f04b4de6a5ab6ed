package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"path"
	"strings"
)

// ErrAssetNotFound is returned when a lookup matches no catalog entry.
var ErrAssetNotFound = errors.New("asset not found")

// Reference identifies a remote audio resource by its URL. It is the key
// used for download de-duplication and for deriving the cached file name.
type Reference string

func (r Reference) String() string {
	return string(r)
}

// Filename derives a stable local file name for the reference: the last
// path segment of the URL, or a hash of the whole reference when the URL
// has no usable segment.
func (r Reference) Filename() string {
	if u, err := url.Parse(string(r)); err == nil {
		if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
			return sanitizeFilename(name)
		}
	}

	h := sha256.Sum256([]byte(r))

	return hex.EncodeToString(h[:])
}

func sanitizeFilename(name string) string {
	return strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', ':', 0:
			return '_'
		}

		return c
	}, name)
}

// Asset is one entry in the audio catalog.
type Asset struct {
	ID        int64
	Title     string
	Filename  string
	Category  string
	Reference Reference
}

// AssetReadRepository answers catalog queries.
type AssetReadRepository interface {
	GetAssets(ctx context.Context) ([]Asset, error)
	GetAssetsByCategory(ctx context.Context, category string) ([]Asset, error)
	GetAsset(ctx context.Context, id int64) (*Asset, error)
}

// AssetWriteRepository mutates the catalog.
type AssetWriteRepository interface {
	AddAsset(ctx context.Context, asset *Asset) error
	RemoveAsset(ctx context.Context, id int64) error
}
