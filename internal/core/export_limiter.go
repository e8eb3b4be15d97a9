package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyExports is returned when all export slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyExports = errors.New("too many exports in progress, please try again later")

const (
	DefaultMaxConcurrentExports = 3
	DefaultExportWaitTime       = 10 * time.Second
)

// ExportLimiter bounds the number of exports building at once. Each export
// loads a full submission set and its templates into memory.
type ExportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewExportLimiter creates a limiter that allows at most maxConcurrent
// simultaneous exports. Callers waiting longer than maxWait receive
// ErrTooManyExports.
func NewExportLimiter(maxConcurrent int, maxWait time.Duration) *ExportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultExportWaitTime
	}

	return &ExportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for an export slot. The caller must Release on success.
func (l *ExportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyExports
	}
}

// Release returns a slot taken by Acquire.
func (l *ExportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of exports in progress.
func (l *ExportLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *ExportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active exports complete or ctx is done.
func (l *ExportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
