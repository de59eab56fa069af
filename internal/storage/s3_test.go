package storage

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_NilWithoutCallback(t *testing.T) {
	assert.Nil(t, newProgressReporter(10, nil))
}

func TestProgressReporter_ReportsCompletion(t *testing.T) {
	var calls [][2]int64
	p := newProgressReporter(9, func(done, total int64) {
		calls = append(calls, [2]int64{done, total})
	})
	require.NotNil(t, p)

	p.report(0)
	n, err := io.Copy(io.Discard, io.TeeReader(bytes.NewReader([]byte("abcdefghi")), p))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	p.flush()

	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int64{0, 9}, calls[0])
	assert.Equal(t, [2]int64{9, 9}, calls[len(calls)-1])
}
