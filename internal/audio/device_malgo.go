package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// MicDevice captures mono float32 audio from the default system microphone
// via miniaudio. One MicDevice owns one backend context for its lifetime.
type MicDevice struct {
	sampleRate   int
	frameSamples int

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	enabled atomic.Bool
}

// OpenMicDevice acquires the audio backend. It fails when no capture backend
// is available, which the caller surfaces as a denied-microphone condition.
func OpenMicDevice(sampleRate, frameSamples int) (*MicDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &MicDevice{
		sampleRate:   sampleRate,
		frameSamples: frameSamples,
		ctx:          ctx,
	}, nil
}

// Start opens the capture stream. The callback runs on the miniaudio thread
// and must not block. Starting an already started device is a no-op.
func (d *MicDevice) Start(onFrame func(samples []float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return fmt.Errorf("capture device is closed")
	}
	if d.device != nil {
		return nil
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(d.sampleRate)
	cfg.PeriodSizeInFrames = uint32(d.frameSamples)
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			if !d.enabled.Load() || len(input) == 0 {
				return
			}
			onFrame(decodeF32LE(input))
		},
	}

	dev, err := malgo.InitDevice(d.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("start capture device: %w", err)
	}
	d.device = dev
	return nil
}

// Stop tears down the capture stream. The backend context stays open so the
// device can be started again.
func (d *MicDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil
	}
	d.device.Uninit()
	d.device = nil
	return nil
}

// SetEnabled gates callback delivery without touching the hardware stream.
func (d *MicDevice) SetEnabled(enabled bool) {
	d.enabled.Store(enabled)
}

// Enabled reports whether capture buffers are being delivered.
func (d *MicDevice) Enabled() bool {
	return d.enabled.Load()
}

// Close stops capture and releases the backend context.
func (d *MicDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
	return nil
}

func decodeF32LE(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
