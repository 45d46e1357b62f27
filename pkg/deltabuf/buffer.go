// Package deltabuf holds text deltas that have been received from a session
// but not yet flushed to disk.
package deltabuf

import (
	"strings"
	"sync"
)

// Buffer accumulates pending deltas. It is safe for concurrent use.
// There is no bound on how much can accumulate between drains.
type Buffer struct {
	mu      sync.Mutex
	pending strings.Builder
}

func New() *Buffer {
	return new(Buffer)
}

// Append adds text verbatim to the end of the pending content.
func (b *Buffer) Append(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.WriteString(text)
}

// DrainAndClear returns everything appended since the previous drain and
// leaves the buffer empty. Capture and reset happen under one lock hold, so
// an Append is seen by exactly one drain.
func (b *Buffer) DrainAndClear() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending.String()
	b.pending.Reset()
	return out
}

// Len is the number of pending bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Len()
}
