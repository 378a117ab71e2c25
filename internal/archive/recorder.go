package archive

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// WAVRecorder archives the outbound capture stream as a mono PCM16 WAV file.
// Write appends raw samples; Stop finalizes the RIFF header and closes the
// file. Stop is idempotent and checked via Persisted, so the session stop
// path and the stream-complete path can both call it safely.
type WAVRecorder struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	sampleRate int
	dataBytes  int
	persisted  bool
	logger     zerolog.Logger
}

const wavHeaderSize = 44

// NewWAVRecorder creates the archive file with a placeholder header.
func NewWAVRecorder(dir, sessionID string, sampleRate int, logger zerolog.Logger) (*WAVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	path := filepath.Join(dir, sessionID+".wav")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	if _, err := file.Write(make([]byte, wavHeaderSize)); err != nil {
		file.Close()
		return nil, fmt.Errorf("reserve wav header: %w", err)
	}

	return &WAVRecorder{
		file:       file,
		path:       path,
		sampleRate: sampleRate,
		logger:     logger.With().Str("component", "archive").Str("path", path).Logger(),
	}, nil
}

// Path returns the archive file location.
func (r *WAVRecorder) Path() string { return r.path }

// Write appends raw PCM16 bytes. Writes after Stop are dropped.
func (r *WAVRecorder) Write(pcm []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.persisted {
		return
	}

	n, err := r.file.Write(pcm)
	r.dataBytes += n
	if err != nil {
		r.logger.Warn().Err(err).Msg("Archive write failed")
	}
}

// Stop finalizes the header and closes the file. Safe to call repeatedly.
func (r *WAVRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.persisted {
		return nil
	}
	r.persisted = true

	header := r.header()
	if _, err := r.file.WriteAt(header, 0); err != nil {
		r.file.Close()
		return fmt.Errorf("finalize wav header: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close archive file: %w", err)
	}

	r.logger.Info().Int("data_bytes", r.dataBytes).Msg("Recording persisted")
	return nil
}

// Persisted reports whether the recording has been finalized.
func (r *WAVRecorder) Persisted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persisted
}

// header builds the 44-byte RIFF header for mono PCM16 at the capture rate.
func (r *WAVRecorder) header() []byte {
	h := make([]byte, wavHeaderSize)
	byteRate := r.sampleRate * 2

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+r.dataBytes))
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(h[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(h[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(h[24:28], uint32(r.sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(h[34:36], 16) // bits per sample

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(r.dataBytes))
	return h
}
