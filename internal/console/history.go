package console

import "sync"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation, in display order.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History is an append-only log of turns. Nothing truncates or reorders it.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

func (h *History) append(turn Turn) {
	h.mu.Lock()
	h.turns = append(h.turns, turn)
	h.mu.Unlock()
}

// Turns returns a copy of the log.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}
