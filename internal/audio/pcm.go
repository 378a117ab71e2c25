package audio

import (
	"encoding/base64"
	"fmt"
)

const (
	// FrameSamples is the fixed capture buffer size delivered by the device callback.
	FrameSamples = 512

	// CaptureSampleRate is the microphone capture rate in Hz.
	CaptureSampleRate = 16000

	// PlaybackSampleRate is the agent audio output rate in Hz.
	PlaybackSampleRate = 24000

	// pcmScale maps normalized floats onto the signed 16-bit range. Using
	// 32768 (not 32767) keeps the int16 -> float -> int16 round trip exact
	// for every representable sample, including -32768.
	pcmScale = 32768.0
)

// FloatToPCM16 converts normalized floating-point samples to signed 16-bit PCM.
// Input samples are clamped to [-1.0, 1.0] before scaling.
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := float64(s) * pcmScale
		// Round to nearest, then clamp the positive edge (1.0 * 32768
		// overshoots the int16 range by one).
		var r int32
		if v >= 0 {
			r = int32(v + 0.5)
		} else {
			r = int32(v - 0.5)
		}
		if r > 32767 {
			r = 32767
		}
		if r < -32768 {
			r = -32768
		}
		out[i] = int16(r)
	}
	return out
}

// PCM16ToFloat converts signed 16-bit PCM samples to normalized floats.
func PCM16ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(float64(s) / pcmScale)
	}
	return out
}

// SamplesToBytes packs int16 samples into little-endian PCM16 bytes.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// BytesToSamples unpacks little-endian PCM16 bytes into int16 samples.
func BytesToSamples(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM16 data length must be even, got %d", len(data))
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return out, nil
}

// EncodeFrame converts one capture buffer of normalized floats into the
// transport's text-safe frame encoding (base64 over little-endian PCM16).
func EncodeFrame(samples []float32) string {
	return EncodeSamples(FloatToPCM16(samples))
}

// EncodeSamples encodes int16 samples into the text-safe frame encoding.
func EncodeSamples(samples []int16) string {
	return base64.StdEncoding.EncodeToString(SamplesToBytes(samples))
}

// DecodeSamples reverses EncodeSamples. The round trip is lossless for any
// valid 16-bit sample sequence.
func DecodeSamples(frame string) ([]int16, error) {
	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return nil, fmt.Errorf("decode audio frame: %w", err)
	}
	return BytesToSamples(data)
}

// DecodeFrameBytes decodes a text-safe frame into raw little-endian PCM16
// bytes, validating sample alignment. Used on the playback path where the
// engine consumes bytes directly.
func DecodeFrameBytes(frame string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return nil, fmt.Errorf("decode audio frame: %w", err)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM16 frame length must be even, got %d", len(data))
	}
	return data, nil
}
