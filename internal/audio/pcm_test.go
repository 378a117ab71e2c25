package audio

import (
	"testing"
)

func TestPCM16RoundTrip_AllValues(t *testing.T) {
	// Every representable 16-bit sample must survive the float round trip.
	samples := make([]int16, 0, 65536)
	for v := -32768; v <= 32767; v++ {
		samples = append(samples, int16(v))
	}

	floats := PCM16ToFloat(samples)
	back := FloatToPCM16(floats)

	for i, original := range samples {
		if back[i] != original {
			t.Fatalf("Expected %d after round trip, got %d", original, back[i])
		}
	}
}

func TestFloatToPCM16_Clamping(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"positive overflow", 2.5, 32767},
		{"positive edge", 1.0, 32767},
		{"negative edge", -1.0, -32768},
		{"negative overflow", -3.0, -32768},
		{"zero", 0.0, 0},
		{"half", 0.5, 16384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FloatToPCM16([]float32{tt.input})
			if out[0] != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, out[0])
			}
		})
	}
}

func TestSamplesToBytes_RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 256, -256, 32767, -32768}

	data := SamplesToBytes(samples)
	if len(data) != len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", len(samples)*2, len(data))
	}

	back, err := BytesToSamples(data)
	if err != nil {
		t.Fatalf("BytesToSamples failed: %v", err)
	}
	for i, s := range samples {
		if back[i] != s {
			t.Errorf("Expected sample %d at index %d, got %d", s, i, back[i])
		}
	}
}

func TestBytesToSamples_OddLength(t *testing.T) {
	if _, err := BytesToSamples([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for odd-length PCM data")
	}
}

func TestEncodeDecodeSamples_Lossless(t *testing.T) {
	samples := make([]int16, FrameSamples)
	for i := range samples {
		samples[i] = int16((i*257)%65536 - 32768)
	}

	frame := EncodeSamples(samples)
	back, err := DecodeSamples(frame)
	if err != nil {
		t.Fatalf("DecodeSamples failed: %v", err)
	}

	if len(back) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(back))
	}
	for i, s := range samples {
		if back[i] != s {
			t.Fatalf("Expected sample %d at index %d, got %d", s, i, back[i])
		}
	}
}

func TestDecodeSamples_InvalidBase64(t *testing.T) {
	if _, err := DecodeSamples("not-base64!!!"); err == nil {
		t.Error("Expected error for invalid base64 frame")
	}
}

func TestDecodeFrameBytes(t *testing.T) {
	samples := []int16{100, -100, 20000}
	frame := EncodeSamples(samples)

	data, err := DecodeFrameBytes(frame)
	if err != nil {
		t.Fatalf("DecodeFrameBytes failed: %v", err)
	}
	if len(data) != len(samples)*2 {
		t.Errorf("Expected %d bytes, got %d", len(samples)*2, len(data))
	}
}

func TestDecodeFrameBytes_OddLength(t *testing.T) {
	// "AAA=" decodes to 2 bytes, "AA==" to 1 byte.
	if _, err := DecodeFrameBytes("AA=="); err == nil {
		t.Error("Expected error for odd-length frame")
	}
}
