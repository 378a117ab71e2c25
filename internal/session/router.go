package session

import (
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/observability"
	"github.com/lexiqai/voice-client/internal/protocol"
)

// Playback is the router's view of the playback pipeline.
type Playback interface {
	Submit(frameB64 string)
	Interrupt()
}

// Recorder is the archival collaborator as the router sees it.
type Recorder interface {
	Write(pcm []byte)
	Stop() error
	Persisted() bool
}

// Router demultiplexes inbound channel events and drives the turn-taking
// state. All events for a session are dispatched from a single goroutine; the
// Context handles visibility for readers on other goroutines.
type Router struct {
	ctx      *Context
	history  TurnLog
	playback Playback
	logger   zerolog.Logger
	metrics  *observability.Metrics

	// Wired by the controller after construction. Nil hooks are skipped,
	// which keeps synthetic-sequence tests small.
	recorder  func() Recorder
	forceStop func()
	announce  func()
}

// NewRouter creates a router over one session's state.
func NewRouter(ctx *Context, history TurnLog, playback Playback, logger zerolog.Logger) *Router {
	return &Router{
		ctx:      ctx,
		history:  history,
		playback: playback,
		logger:   logger.With().Str("component", "router").Logger(),
	}
}

// SetRecorderProvider wires the current archival recorder lookup.
func (r *Router) SetRecorderProvider(provider func() Recorder) { r.recorder = provider }

// SetStopFunc wires the session force-stop hook.
func (r *Router) SetStopFunc(stop func()) { r.forceStop = stop }

// SetAnnounceFunc wires the post-connect metadata announcement hook.
func (r *Router) SetAnnounceFunc(announce func()) { r.announce = announce }

// SetMetrics attaches the per-session metrics tracker.
func (r *Router) SetMetrics(m *observability.Metrics) { r.metrics = m }

// Dispatch routes one inbound event through the protocol state machine.
func (r *Router) Dispatch(event protocol.StreamEvent) {
	switch ev := event.(type) {
	case protocol.ContentStartEvent:
		r.handleContentStart(ev)
	case protocol.TextOutputEvent:
		r.handleTextOutput(ev)
	case protocol.AudioOutputEvent:
		r.playback.Submit(ev.Content)
		observability.RecordAudioBytes("in", int64(len(ev.Content)/4*3))
	case protocol.ContentEndEvent:
		r.handleContentEnd(ev)
	case protocol.StreamCompleteEvent:
		r.handleStreamComplete()
	case protocol.ErrorEvent:
		r.handleError(ev)
	case protocol.ConnectEvent:
		// The handshake must rerun on a fresh channel before any frame.
		r.ctx.SetInitialized(false)
		if r.announce != nil {
			r.announce()
		}
	case protocol.DisconnectEvent:
		r.handleDisconnect()
	default:
		r.logger.Debug().Str("event", event.StreamEventType()).Msg("Unhandled event type")
	}
}

func (r *Router) handleContentStart(ev protocol.ContentStartEvent) {
	r.ctx.SetOpenRole(ev.Role)

	switch ev.Modality {
	case protocol.ModalityText:
		switch ev.Role {
		case protocol.RoleUser:
			r.ctx.SetWaitingForUser(false)
		case protocol.RoleAssistant:
			r.ctx.SetWaitingForAssistant(false)
			// The agent emits a fast speculative transcript and a slow
			// final duplicate; keep the speculative one, drop the final.
			r.ctx.SetDisplayAssistantText(ev.Speculative)
		}
	case protocol.ModalityAudio:
		if r.ctx.Capturing() {
			r.ctx.SetWaitingForUser(true)
		}
	}
}

func (r *Router) handleTextOutput(ev protocol.TextOutputEvent) {
	switch r.ctx.OpenRole() {
	case protocol.RoleUser:
		r.history.Append(protocol.RoleUser, ev.Content)
		r.ctx.SetWaitingForAssistant(true)
	case protocol.RoleAssistant:
		if r.ctx.DisplayAssistantText() {
			r.history.Append(protocol.RoleAssistant, ev.Content)
		}
	default:
		r.logger.Debug().Msg("Text output with no open block, dropping")
	}
}

func (r *Router) handleContentEnd(ev protocol.ContentEndEvent) {
	// No open block means a duplicate or stray end; treat as a no-op.
	if r.ctx.OpenRole() == protocol.RoleNone {
		return
	}

	switch ev.Modality {
	case protocol.ModalityText:
		r.ctx.SetWaitingForUser(false)
		r.ctx.SetWaitingForAssistant(false)

		switch ev.StopReason {
		case protocol.StopEndTurn:
			r.history.EndTurn()
		case protocol.StopInterrupted:
			r.playback.Interrupt()
			if r.metrics != nil {
				r.metrics.RecordInterrupt()
			}
			r.logger.Info().Msg("Assistant interrupted, playback flushed")
		}
	case protocol.ModalityAudio:
		if r.ctx.Capturing() {
			r.ctx.SetWaitingForUser(true)
		}
	}

	r.ctx.SetOpenRole(protocol.RoleNone)
}

func (r *Router) handleStreamComplete() {
	r.logger.Info().Str("session_id", r.ctx.ID()).Msg("Stream complete")
	r.history.EndConversation()

	if r.ctx.Active() && r.forceStop != nil {
		r.forceStop()
	}

	if r.recorder != nil {
		if rec := r.recorder(); rec != nil && !rec.Persisted() {
			if err := rec.Stop(); err != nil {
				r.logger.Warn().Err(err).Msg("Stopping recorder")
			}
		}
	}
}

func (r *Router) handleError(ev protocol.ErrorEvent) {
	r.logger.Error().Str("message", ev.Message).Msg("Agent error")
	r.ctx.SetError(ev.Message)
	r.ctx.SetWaitingForUser(false)
	r.ctx.SetWaitingForAssistant(false)
	if r.metrics != nil {
		r.metrics.RecordError("agent_error", "router")
	}
}

func (r *Router) handleDisconnect() {
	r.logger.Warn().Str("session_id", r.ctx.ID()).Msg("Agent channel lost")
	if r.forceStop != nil {
		r.forceStop()
	}
	r.ctx.SetInitialized(false)
	r.ctx.SetControlsEnabled(false)
}
