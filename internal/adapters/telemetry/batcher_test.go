package telemetry_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/telemetry"
)

type chunkSink struct {
	mu     sync.Mutex
	chunks []string
}

func (s *chunkSink) add(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, string(data))
}

func (s *chunkSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chunks...)
}

func TestBatchProcessor_FlushOnSizeAtLineBoundary(t *testing.T) {
	sink := &chunkSink{}
	bp := telemetry.NewBatchProcessor(10, time.Hour, sink.add)

	_, err := bp.Write([]byte("checking\nfor gcc"))
	require.NoError(t, err)

	assert.Equal(t, []string{"checking\n"}, sink.snapshot())

	require.NoError(t, bp.Close())
	assert.Equal(t, []string{"checking\n", "for gcc"}, sink.snapshot())
}

func TestBatchProcessor_FlushOnSizeWithoutNewline(t *testing.T) {
	sink := &chunkSink{}
	bp := telemetry.NewBatchProcessor(4, time.Hour, sink.add)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("abcdef"))
	require.NoError(t, err)

	assert.Equal(t, []string{"abcdef"}, sink.snapshot())
}

func TestBatchProcessor_FlushOnTime(t *testing.T) {
	sink := &chunkSink{}
	bp := telemetry.NewBatchProcessor(1024, 10*time.Millisecond, sink.add)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("partial"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(sink.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"partial"}, sink.snapshot())
}

func TestBatchProcessor_ManualFlush(t *testing.T) {
	sink := &chunkSink{}
	bp := telemetry.NewBatchProcessor(1024, time.Hour, sink.add)
	defer func() { _ = bp.Close() }()

	bp.Flush()
	assert.Empty(t, sink.snapshot())

	_, _ = bp.Write([]byte("data"))
	bp.Flush()
	assert.Equal(t, []string{"data"}, sink.snapshot())
}

func TestBatchProcessor_WriteAfterClose(t *testing.T) {
	bp := telemetry.NewBatchProcessor(0, 0, nil)
	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close())

	_, err := bp.Write([]byte("late"))
	assert.Error(t, err)
}

func TestBatchProcessor_ThreadSafety(t *testing.T) {
	sink := &chunkSink{}
	bp := telemetry.NewBatchProcessor(64, time.Millisecond, sink.add)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_, _ = bp.Write([]byte("x\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, bp.Close())

	assert.Equal(t, 800, strings.Count(strings.Join(sink.snapshot(), ""), "x\n"))
}
