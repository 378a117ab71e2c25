package session

import (
	"sync"

	"github.com/lexiqai/voice-client/internal/protocol"
)

// Turn is one conversational contribution, or the end-of-conversation marker.
type Turn struct {
	Role              protocol.Role
	Message           string
	EndOfConversation bool
}

// TurnLog records the conversational transcript. One instance per session,
// injected explicitly so independent sessions never share history.
type TurnLog interface {
	Append(role protocol.Role, message string)
	EndTurn()
	EndConversation()
	Turns() []Turn
}

// TurnHistory is the in-memory TurnLog. Consecutive appends for the same role
// merge into the open turn until EndTurn closes it, so a streamed transcript
// lands as a single history entry.
type TurnHistory struct {
	mu    sync.Mutex
	turns []Turn
	open  bool
}

// NewTurnHistory creates an empty history.
func NewTurnHistory() *TurnHistory {
	return &TurnHistory{}
}

// Append adds transcript text for a role. Text for the role currently open
// extends that turn; any other role starts a new one.
func (h *TurnHistory) Append(role protocol.Role, message string) {
	if message == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.open && len(h.turns) > 0 {
		last := &h.turns[len(h.turns)-1]
		if last.Role == role {
			last.Message += " " + message
			return
		}
	}

	h.turns = append(h.turns, Turn{Role: role, Message: message})
	h.open = true
}

// EndTurn closes the open turn. A no-op when nothing is open, so duplicate
// end-turn signals are harmless.
func (h *TurnHistory) EndTurn() {
	h.mu.Lock()
	h.open = false
	h.mu.Unlock()
}

// EndConversation closes any open turn and appends the end marker.
func (h *TurnHistory) EndConversation() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open = false
	h.turns = append(h.turns, Turn{EndOfConversation: true})
}

// Turns returns a copy of the transcript in conversational order.
func (h *TurnHistory) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}
