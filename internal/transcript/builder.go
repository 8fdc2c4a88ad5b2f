// Package transcript reconciles incremental recognition output into a
// single authoritative text buffer.
//
// Vendors deliver partial hypotheses that are either appended to the
// settled text or revise the still-open utterance. The Builder keeps a
// boundary between text the vendor has committed to and the open tail
// it may still rewrite; an append delta closes the open utterance and
// starts a new one, a replace delta rewrites only the open tail.
package transcript

import (
	"strings"
	"sync"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

// Builder accumulates TranscriptDelta values for one session and
// maintains the running transcript. Safe for concurrent use: adapter
// read loops deliver deltas from their own goroutines.
type Builder struct {
	mu        sync.Mutex
	finalized strings.Builder
	open      string
	done      bool
}

// NewBuilder creates an empty transcript builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Apply folds one delta into the buffer. Deltas arriving after a
// terminal delta are dropped.
func (b *Builder) Apply(delta asr.TranscriptDelta) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return
	}

	if delta.Replace {
		b.open = delta.Text
	} else {
		// An append commits the open utterance and opens the next one.
		b.finalized.WriteString(b.open)
		b.open = delta.Text
	}

	if delta.IsFinal {
		b.finalized.WriteString(b.open)
		b.open = ""
		b.done = true
	}
}

// Text returns the current transcript: all finalized utterances plus
// the open tail. The returned string never shrinks across calls except
// when the open tail was revised by a replace delta.
func (b *Builder) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalized.String() + b.open
}

// Finalized returns only the committed portion of the transcript.
func (b *Builder) Finalized() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalized.String()
}

// Done reports whether a terminal delta has been applied.
func (b *Builder) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Reset clears the builder for reuse with a new session.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalized.Reset()
	b.open = ""
	b.done = false
}
