package playback

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/audio"
)

// Engine is the speaker output half of the audio pipeline. Start and Close
// bracket the session lifecycle; Interrupt discards everything buffered or
// in flight without stopping the engine itself.
type Engine interface {
	Start() error
	Started() bool
	Write(pcm []byte)
	Interrupt()
	Close() error
}

// bufferSeconds sizes the staging ring. Roughly two seconds of agent audio;
// beyond that the writer drops rather than grow latency unbounded.
const bufferSeconds = 2

// OtoEngine plays mono PCM16 through the system speaker. The device player is
// created lazily on the first write and torn down on every interrupt, so
// barge-in discards the device-side buffer too, not just our staging ring.
type OtoEngine struct {
	otoCtx *oto.Context
	logger zerolog.Logger

	mu      sync.Mutex
	buf     *audio.RingBuffer
	player  *oto.Player
	started bool
}

// NewOtoEngine initializes the speaker backend and blocks until it is ready.
func NewOtoEngine(logger zerolog.Logger) (*OtoEngine, error) {
	op := &oto.NewContextOptions{
		SampleRate:   audio.PlaybackSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("init speaker context: %w", err)
	}
	<-ready

	return &OtoEngine{
		otoCtx: otoCtx,
		logger: logger.With().Str("component", "playback").Logger(),
		buf:    audio.NewRingBuffer(audio.PlaybackSampleRate * 2 * bufferSeconds),
	}, nil
}

// Start marks the engine ready to accept audio. Idempotent.
func (e *OtoEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = true
	return nil
}

// Started reports whether the engine accepts audio.
func (e *OtoEngine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Write stages PCM16 bytes for playback, creating the device player on first
// use. Bytes that do not fit the staging ring are dropped.
func (e *OtoEngine) Write(pcm []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}

	n := e.buf.Write(pcm)
	if n < len(pcm) {
		e.logger.Debug().Int("dropped_bytes", len(pcm)-n).Msg("Playback buffer full, dropping audio")
	}

	if e.player == nil {
		e.player = e.otoCtx.NewPlayer(&silenceFillReader{buf: e.buf})
		e.player.Play()
	}
}

// Interrupt discards all staged and in-flight audio. The device player is
// recreated on the next Write.
func (e *OtoEngine) Interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discardLocked()
}

// Close discards pending audio and stops accepting writes.
func (e *OtoEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discardLocked()
	e.started = false
	return nil
}

func (e *OtoEngine) discardLocked() {
	e.buf.Clear()
	if e.player != nil {
		e.player.Pause()
		if err := e.player.Close(); err != nil {
			e.logger.Debug().Err(err).Msg("Closing speaker player")
		}
		e.player = nil
	}
}

// silenceFillReader feeds the pull-based player from the staging ring,
// padding with silence when the ring runs dry so the player never underruns.
type silenceFillReader struct {
	buf *audio.RingBuffer
}

func (r *silenceFillReader) Read(p []byte) (int, error) {
	n := r.buf.Read(p)
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}
