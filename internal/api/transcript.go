package api

import (
	"sync"

	"github.com/bz888/deepchat/internal/api/server/client"
)

// Transcript is the ordered conversation held by one client session. Entries
// are immutable once appended, except the single in-flight assistant entry
// that receives streamed fragments.
type Transcript struct {
	mu       sync.RWMutex
	messages []client.Message
	inFlight int
}

func NewTranscript() *Transcript {
	return &Transcript{inFlight: -1}
}

func (t *Transcript) Append(msg client.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Begin appends an empty assistant message and makes it the append target.
// It reports false if another message is already in flight.
func (t *Transcript) Begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight >= 0 {
		return false
	}
	t.messages = append(t.messages, client.Message{Role: client.RoleAssistant})
	t.inFlight = len(t.messages) - 1
	return true
}

// AppendInFlight adds text to the in-flight message. Without one it is a
// no-op and reports false.
func (t *Transcript) AppendInFlight(text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight < 0 {
		return false
	}
	t.messages[t.inFlight].Content += text
	return true
}

// End freezes the in-flight message.
func (t *Transcript) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight = -1
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []client.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]client.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
