package audio

import (
	"math"
	"sync"
	"time"
)

// CalculateRMS calculates the root mean square (RMS) of audio samples
// Useful for detecting audio levels and silence
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs that change
// sign, in [0, 1]. A coarse pitch/noisiness feature for the activity display.
func ZeroCrossingRate(samples []int16) float64 {
	if len(samples) < 2 {
		return 0.0
	}

	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// Snapshot is one voice-activity observation. It feeds visualization only and
// has no effect on session correctness, but it is computed from the same
// capture frames the transport sends.
type Snapshot struct {
	Energy        float64
	ZeroCrossings float64
	Speaking      bool
	CapturedAt    time.Time
}

// ActivityTracker derives voice-activity snapshots from capture frames.
// The capture callback writes, visualization consumers read.
type ActivityTracker struct {
	mu             sync.RWMutex
	threshold      float64
	latest         Snapshot
	speaking       bool
	silenceStreak  int
	silenceFrames  int
}

// NewActivityTracker creates a tracker with the given RMS energy threshold.
func NewActivityTracker(threshold float64) *ActivityTracker {
	if threshold <= 0 {
		threshold = 500.0
	}
	return &ActivityTracker{
		threshold:     threshold,
		silenceFrames: 10, // ~320ms of silence at 512 samples / 16kHz
	}
}

// Process updates the snapshot from one capture frame.
func (t *ActivityTracker) Process(samples []int16) Snapshot {
	energy := CalculateRMS(samples)
	zcr := ZeroCrossingRate(samples)

	t.mu.Lock()
	defer t.mu.Unlock()

	if energy > t.threshold {
		t.silenceStreak = 0
		t.speaking = true
	} else {
		t.silenceStreak++
		if t.speaking && t.silenceStreak >= t.silenceFrames {
			t.speaking = false
			t.silenceStreak = 0
		}
	}

	t.latest = Snapshot{
		Energy:        energy,
		ZeroCrossings: zcr,
		Speaking:      t.speaking,
		CapturedAt:    time.Now(),
	}
	return t.latest
}

// Snapshot returns the most recent observation.
func (t *ActivityTracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// Reset clears the tracker state between sessions.
func (t *ActivityTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = Snapshot{}
	t.speaking = false
	t.silenceStreak = 0
}
