package audio

import (
	"sync"

	"github.com/rs/zerolog"
)

// Device is a live audio capture stream. Implementations deliver fixed-size
// buffers of normalized float samples from a hardware callback.
type Device interface {
	// Start begins capture; the callback receives each capture buffer.
	Start(onFrame func(samples []float32)) error

	// Stop halts capture. Safe to call when not started.
	Stop() error

	// SetEnabled gates buffer delivery without tearing down the stream
	// (the mute toggle and session stop both disable the track).
	SetEnabled(enabled bool)

	// Enabled reports whether buffers are currently delivered.
	Enabled() bool

	// Close releases the device. The device cannot be restarted after Close.
	Close() error
}

// FrameSender delivers encoded capture frames to the agent channel.
type FrameSender interface {
	SendAudioInput(frameB64 string) error
}

// CaptureState reports whether the session is actively capturing. Checked per
// callback so frames racing a stop request are dropped, not sent.
type CaptureState interface {
	Capturing() bool
}

// RecorderSink receives raw PCM16 bytes for session archival.
type RecorderSink interface {
	Write(pcm []byte)
}

// CaptureEncoder turns capture buffers into outbound audio-input frames:
// clamp, scale to PCM16, base64-encode, emit. Emission is fire-and-forget;
// the transport's own flow control is the only backpressure.
type CaptureEncoder struct {
	device  Device
	sender  FrameSender
	state   CaptureState
	tracker *ActivityTracker
	logger  zerolog.Logger

	// sinkMu guards sink: Attach/Detach run on the controller goroutine while
	// onFrame reads on the device callback thread.
	sinkMu sync.RWMutex
	sink   RecorderSink
}

// NewCaptureEncoder wires a capture device to the transport.
func NewCaptureEncoder(device Device, sender FrameSender, state CaptureState, tracker *ActivityTracker, logger zerolog.Logger) *CaptureEncoder {
	return &CaptureEncoder{
		device:  device,
		sender:  sender,
		state:   state,
		tracker: tracker,
		logger:  logger,
	}
}

// Attach starts the capture stream. The sink receives raw PCM16 for archival
// and may be nil.
func (e *CaptureEncoder) Attach(sink RecorderSink) error {
	e.sinkMu.Lock()
	e.sink = sink
	e.sinkMu.Unlock()
	return e.device.Start(e.onFrame)
}

// Detach stops the capture stream.
func (e *CaptureEncoder) Detach() error {
	e.sinkMu.Lock()
	e.sink = nil
	e.sinkMu.Unlock()
	return e.device.Stop()
}

func (e *CaptureEncoder) onFrame(samples []float32) {
	// A stop request can race an in-flight callback; drop silently.
	if !e.state.Capturing() {
		return
	}

	pcm := FloatToPCM16(samples)
	if e.tracker != nil {
		e.tracker.Process(pcm)
	}

	e.sinkMu.RLock()
	sink := e.sink
	e.sinkMu.RUnlock()
	if sink != nil {
		sink.Write(SamplesToBytes(pcm))
	}

	if err := e.sender.SendAudioInput(EncodeSamples(pcm)); err != nil {
		e.logger.Debug().Err(err).Msg("Dropping capture frame, send failed")
	}
}
