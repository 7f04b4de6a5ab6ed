package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, r io.Reader, bufSize int) int64 {
	t.Helper()

	buf := make([]byte, bufSize)

	var total int64

	for {
		n, err := r.Read(buf)
		total += int64(n)

		if err == io.EOF {
			return total
		}

		require.NoError(t, err)
	}
}

func TestReader_ReportsAtInterval(t *testing.T) {
	data := strings.Repeat("x", 10)

	var reports []int64

	r := NewReader(strings.NewReader(data), int64(len(data)), 4, func(written, total int64) {
		reports = append(reports, written)
		assert.Equal(t, int64(len(data)), total)
	})

	copied := drain(t, r, 4)
	require.Equal(t, int64(len(data)), copied)

	// One tick per interval crossing, plus the final bytes at the total.
	assert.Equal(t, []int64{4, 8, 10}, reports)
}

func TestReader_EveryByteWithUnitInterval(t *testing.T) {
	var reports []int64

	r := NewReader(bytes.NewReader([]byte("abc")), 3, 1, func(written, total int64) {
		reports = append(reports, written)
	})

	drain(t, r, 1)

	assert.Equal(t, []int64{1, 2, 3}, reports)
}

func TestReader_LargeIntervalStillReportsFinalByte(t *testing.T) {
	var reports []int64

	r := NewReader(strings.NewReader("0123456789"), 10, 1<<20, func(written, total int64) {
		reports = append(reports, written)
	})

	drain(t, r, 3)

	// The interval never fires, but the tick at totalRead == Total does.
	assert.Equal(t, []int64{10}, reports)
}

func TestReader_UnknownTotalStillTicks(t *testing.T) {
	var reports int

	r := NewReader(strings.NewReader("0123456789"), -1, 4, func(written, total int64) {
		reports++
		assert.Equal(t, int64(-1), total)
	})

	drain(t, r, 4)
	assert.Positive(t, reports)
}

func TestReader_PropagatesReadErrors(t *testing.T) {
	r := NewReader(io.MultiReader(strings.NewReader("ab"), brokenReader{}), 10, 1, func(int64, int64) {})

	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, errBroken)
}

var errBroken = errors.New("stream broken")

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errBroken }
