package session

import (
	"testing"

	"github.com/lexiqai/voice-client/internal/protocol"
)

func TestTurnHistory_MergesSameRole(t *testing.T) {
	h := NewTurnHistory()

	h.Append(protocol.RoleUser, "hello")
	h.Append(protocol.RoleUser, "there")

	turns := h.Turns()
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}
	if turns[0].Message != "hello there" {
		t.Errorf("Expected merged message 'hello there', got '%s'", turns[0].Message)
	}
}

func TestTurnHistory_EndTurnSplitsSameRole(t *testing.T) {
	h := NewTurnHistory()

	h.Append(protocol.RoleUser, "first")
	h.EndTurn()
	h.Append(protocol.RoleUser, "second")

	turns := h.Turns()
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[0].Message != "first" || turns[1].Message != "second" {
		t.Errorf("Unexpected turns: %+v", turns)
	}
}

func TestTurnHistory_RoleChangeStartsNewTurn(t *testing.T) {
	h := NewTurnHistory()

	h.Append(protocol.RoleUser, "question")
	h.Append(protocol.RoleAssistant, "answer")

	turns := h.Turns()
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != protocol.RoleUser || turns[1].Role != protocol.RoleAssistant {
		t.Errorf("Unexpected roles: %+v", turns)
	}
}

func TestTurnHistory_EndTurnIdempotent(t *testing.T) {
	h := NewTurnHistory()

	h.Append(protocol.RoleUser, "hello")
	h.EndTurn()
	h.EndTurn()
	h.EndTurn()

	if len(h.Turns()) != 1 {
		t.Errorf("Expected 1 turn after repeated EndTurn, got %d", len(h.Turns()))
	}
}

func TestTurnHistory_EmptyMessageIgnored(t *testing.T) {
	h := NewTurnHistory()
	h.Append(protocol.RoleUser, "")
	if len(h.Turns()) != 0 {
		t.Errorf("Expected empty message ignored, got %d turns", len(h.Turns()))
	}
}

func TestTurnHistory_EndConversation(t *testing.T) {
	h := NewTurnHistory()

	h.Append(protocol.RoleUser, "bye")
	h.EndConversation()

	turns := h.Turns()
	if len(turns) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(turns))
	}
	if !turns[1].EndOfConversation {
		t.Error("Expected end-of-conversation marker")
	}

	// Appends after the marker start a fresh turn, not a merge into it.
	h.Append(protocol.RoleUser, "again")
	turns = h.Turns()
	if len(turns) != 3 || turns[2].Message != "again" {
		t.Errorf("Unexpected turns after marker: %+v", turns)
	}
}
