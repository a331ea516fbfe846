package testutil

import (
	"fmt"
	"sync"
)

// CallRecorder records calls from several fakes in a single ordered log.
type CallRecorder struct {
	mu    sync.Mutex
	calls []string
}

// Record appends a call. Nil recorders ignore calls.
func (r *CallRecorder) Record(format string, args ...any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls.
func (r *CallRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset clears the log.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
