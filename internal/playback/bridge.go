package playback

import (
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/audio"
)

// Bridge connects inbound audio-output frames to the speaker engine. Bridges
// are cheap and are discarded on every session stop so no partially played
// audio carries into the next session.
type Bridge struct {
	engine Engine
	logger zerolog.Logger
}

// NewBridge wraps a started (or about to be started) engine.
func NewBridge(engine Engine, logger zerolog.Logger) *Bridge {
	return &Bridge{
		engine: engine,
		logger: logger.With().Str("component", "playback").Logger(),
	}
}

// Submit decodes one transport frame and forwards it to the engine. Frames
// arriving before the engine starts are dropped; playback start is async and
// losing the first few milliseconds beats buffering stale audio.
func (b *Bridge) Submit(frameB64 string) {
	if !b.engine.Started() {
		b.logger.Debug().Msg("Engine not started, dropping audio frame")
		return
	}

	pcm, err := audio.DecodeFrameBytes(frameB64)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Invalid audio frame, dropping")
		return
	}
	b.engine.Write(pcm)
}

// Interrupt flushes everything queued for playback. The barge-in path.
func (b *Bridge) Interrupt() {
	b.engine.Interrupt()
}
