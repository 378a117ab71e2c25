package session

import (
	"sync"

	"github.com/lexiqai/voice-client/internal/protocol"
)

// Context holds the mutable state of one conversation session. Capture
// callbacks, the event router goroutine and user commands all observe it, so
// every field is guarded. One Context per session attempt; independent
// sessions share nothing.
type Context struct {
	id string

	mu                   sync.RWMutex
	active               bool
	initialized          bool
	muted                bool
	openRole             protocol.Role
	waitingForUser       bool
	waitingForAssistant  bool
	displayAssistantText bool
	controlsEnabled      bool
	errorMessage         string
}

// NewContext creates a fresh session context.
func NewContext(id string) *Context {
	return &Context{
		id:              id,
		muted:           true,
		openRole:        protocol.RoleNone,
		controlsEnabled: true,
	}
}

// ID returns the session identifier.
func (c *Context) ID() string { return c.id }

// Active reports whether a session is running.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// SetActive flips the session running flag.
func (c *Context) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
}

// Initialized reports whether the channel handshake has run.
func (c *Context) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// SetInitialized records handshake state. Reset to false on channel close,
// error teardown or user stop; the handshake must rerun before new frames.
func (c *Context) SetInitialized(initialized bool) {
	c.mu.Lock()
	c.initialized = initialized
	c.mu.Unlock()
}

// Muted reports whether capture is muted.
func (c *Context) Muted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.muted
}

// SetMuted flips the mute flag.
func (c *Context) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
}

// Capturing reports whether capture frames should be sent: the session is
// active and not muted. Checked per capture callback.
func (c *Context) Capturing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active && !c.muted
}

// OpenRole returns the role of the currently open content block, or RoleNone.
func (c *Context) OpenRole() protocol.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.openRole
}

// SetOpenRole records the role opened by contentStart. Exactly one role is
// open at a time; the matching contentEnd clears it back to RoleNone.
func (c *Context) SetOpenRole(role protocol.Role) {
	c.mu.Lock()
	c.openRole = role
	c.mu.Unlock()
}

// WaitingForUser reports the "listening" indicator.
func (c *Context) WaitingForUser() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.waitingForUser
}

// SetWaitingForUser flips the "listening" indicator.
func (c *Context) SetWaitingForUser(waiting bool) {
	c.mu.Lock()
	c.waitingForUser = waiting
	c.mu.Unlock()
}

// WaitingForAssistant reports the "thinking" indicator.
func (c *Context) WaitingForAssistant() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.waitingForAssistant
}

// SetWaitingForAssistant flips the "thinking" indicator.
func (c *Context) SetWaitingForAssistant(waiting bool) {
	c.mu.Lock()
	c.waitingForAssistant = waiting
	c.mu.Unlock()
}

// DisplayAssistantText reports whether assistant transcripts from the current
// block are retained. The agent sends a fast speculative transcript and a
// slower final one; only one of the pair is kept.
func (c *Context) DisplayAssistantText() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayAssistantText
}

// SetDisplayAssistantText gates assistant transcript retention per block.
func (c *Context) SetDisplayAssistantText(display bool) {
	c.mu.Lock()
	c.displayAssistantText = display
	c.mu.Unlock()
}

// ControlsEnabled reports whether user controls are usable. Disabled on
// channel loss; a new process/connection is required.
func (c *Context) ControlsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.controlsEnabled
}

// SetControlsEnabled flips the controls flag.
func (c *Context) SetControlsEnabled(enabled bool) {
	c.mu.Lock()
	c.controlsEnabled = enabled
	c.mu.Unlock()
}

// SetError records a user-visible error message. The session keeps running.
func (c *Context) SetError(message string) {
	c.mu.Lock()
	c.errorMessage = message
	c.mu.Unlock()
}

// LastError returns the most recent error message, empty if none.
func (c *Context) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errorMessage
}
