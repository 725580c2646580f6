package notify

import (
	"context"
	"sync"
)

// Recorder is an in-memory Sender for tests and local development. It keeps
// every message and can be primed to fail.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	failWith error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.messages = append(r.messages, msg)
	return nil
}

// FailWith makes every subsequent Send return err; nil restores delivery.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
