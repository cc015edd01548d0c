// Package telemetry provides adapters for collecting and processing telemetry data.
package telemetry

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultSizeLimit is the buffer size (4KB) that triggers a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is the interval (50ms) after which partial output is flushed.
	DefaultTimeLimit = 50 * time.Millisecond
)

var errBatcherClosed = errors.New("batch processor is closed")

// BatchProcessor buffers span output. A full buffer is flushed up to its last
// complete line so renderers rarely see a line split across two chunks; the
// ticker and Close flush whatever is buffered.
type BatchProcessor struct {
	sizeLimit int
	onFlush   func([]byte)

	mu     sync.Mutex
	buffer bytes.Buffer
	closed bool

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBatchProcessor returns a running BatchProcessor. Non-positive limits
// select the defaults. Close must be called to stop the ticker.
func NewBatchProcessor(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *BatchProcessor {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	bp := &BatchProcessor{
		sizeLimit: sizeLimit,
		onFlush:   onFlush,
		ticker:    time.NewTicker(timeLimit),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go bp.run()

	return bp
}

// Write buffers p.
func (bp *BatchProcessor) Write(p []byte) (int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return 0, errBatcherClosed
	}

	n, _ := bp.buffer.Write(p)
	if bp.buffer.Len() >= bp.sizeLimit {
		bp.flushLines()
	}
	return n, nil
}

// Flush sends everything buffered to the callback.
func (bp *BatchProcessor) Flush() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.flushAll()
}

// Close stops the ticker and flushes the remaining output. It is safe to call
// more than once.
func (bp *BatchProcessor) Close() error {
	bp.mu.Lock()
	if bp.closed {
		bp.mu.Unlock()
		return nil
	}
	bp.closed = true
	close(bp.stopCh)
	bp.flushAll()
	bp.mu.Unlock()

	<-bp.doneCh
	return nil
}

func (bp *BatchProcessor) run() {
	defer close(bp.doneCh)
	defer bp.ticker.Stop()

	for {
		select {
		case <-bp.ticker.C:
			bp.Flush()
		case <-bp.stopCh:
			return
		}
	}
}

// flushLines must be called with mu held.
func (bp *BatchProcessor) flushLines() {
	data := bp.buffer.Bytes()
	i := bytes.LastIndexByte(data, '\n')
	if i < 0 {
		bp.flushAll()
		return
	}
	bp.emit(bp.buffer.Next(i + 1))
}

// flushAll must be called with mu held.
func (bp *BatchProcessor) flushAll() {
	if bp.buffer.Len() == 0 {
		return
	}
	bp.emit(bp.buffer.Next(bp.buffer.Len()))
}

func (bp *BatchProcessor) emit(chunk []byte) {
	if bp.onFlush == nil {
		return
	}
	// chunk aliases the buffer, which is reused by the next Write
	data := make([]byte, len(chunk))
	copy(data, chunk)
	bp.onFlush(data)
}
