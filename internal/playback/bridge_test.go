package playback

import (
	"encoding/base64"
	"testing"

	"github.com/rs/zerolog"
)

type fakeEngine struct {
	started    bool
	written    [][]byte
	interrupts int
	closed     bool
}

func (e *fakeEngine) Start() error  { e.started = true; return nil }
func (e *fakeEngine) Started() bool { return e.started }
func (e *fakeEngine) Write(pcm []byte) {
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	e.written = append(e.written, buf)
}
func (e *fakeEngine) Interrupt()   { e.interrupts++ }
func (e *fakeEngine) Close() error { e.closed = true; return nil }

func TestBridge_SubmitForwardsDecodedAudio(t *testing.T) {
	engine := &fakeEngine{started: true}
	bridge := NewBridge(engine, zerolog.Nop())

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	bridge.Submit(base64.StdEncoding.EncodeToString(pcm))

	if len(engine.written) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(engine.written))
	}
	if string(engine.written[0]) != string(pcm) {
		t.Errorf("Expected %v forwarded, got %v", pcm, engine.written[0])
	}
}

func TestBridge_DropsBeforeEngineStart(t *testing.T) {
	engine := &fakeEngine{started: false}
	bridge := NewBridge(engine, zerolog.Nop())

	bridge.Submit(base64.StdEncoding.EncodeToString([]byte{0x01, 0x02}))

	if len(engine.written) != 0 {
		t.Errorf("Expected frame dropped before engine start, got %d writes", len(engine.written))
	}
}

func TestBridge_DropsInvalidFrames(t *testing.T) {
	engine := &fakeEngine{started: true}
	bridge := NewBridge(engine, zerolog.Nop())

	bridge.Submit("!!! not base64 !!!")
	// Odd byte count is not valid PCM16 either.
	bridge.Submit(base64.StdEncoding.EncodeToString([]byte{0x01}))

	if len(engine.written) != 0 {
		t.Errorf("Expected invalid frames dropped, got %d writes", len(engine.written))
	}
}

func TestBridge_Interrupt(t *testing.T) {
	engine := &fakeEngine{started: true}
	bridge := NewBridge(engine, zerolog.Nop())

	bridge.Interrupt()
	bridge.Interrupt()

	if engine.interrupts != 2 {
		t.Errorf("Expected 2 engine interrupts, got %d", engine.interrupts)
	}
}
