package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReference_Filename(t *testing.T) {
	tests := []struct {
		name string
		ref  Reference
		want string
	}{
		{
			name: "last URL segment",
			ref:  "https://cdn.example.com/audio/track.mp3",
			want: "track.mp3",
		},
		{
			name: "query string ignored",
			ref:  "https://cdn.example.com/audio/track.mp3?token=abc",
			want: "track.mp3",
		},
		{
			name: "unsafe characters are sanitized",
			ref:  "https://cdn.example.com/audio/a:b.mp3",
			want: "a_b.mp3",
		},
		{
			name: "bare host falls back to a hash",
			ref:  "https://cdn.example.com/",
			want: hashOf("https://cdn.example.com/"),
		},
		{
			name: "empty reference falls back to a hash",
			ref:  "",
			want: hashOf(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.Filename())
		})
	}
}

func TestReference_FilenameIsStable(t *testing.T) {
	ref := Reference("https://cdn.example.com/audio/track.mp3")

	assert.Equal(t, ref.Filename(), ref.Filename())
}

func hashOf(s string) string {
	h := sha256.Sum256([]byte(s))

	return hex.EncodeToString(h[:])
}
