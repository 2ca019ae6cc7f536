package audio

import (
	"math"
	"time"
)

const (
	SampleRate = 16000
	FrameSize  = 320 // 20ms
	FrameDur   = time.Second * FrameSize / SampleRate
)

// Segmenter cuts one utterance out of a stream of frames: it keeps frames
// from the first loud one until enough quiet frames follow. Quiet frames
// inside the utterance are kept.
type Segmenter struct {
	threshold   float64
	quietLimit  int
	speaking    bool
	quietFrames int
	out         []float32
}

func NewSegmenter(threshold float64, silence time.Duration) *Segmenter {
	return &Segmenter{
		threshold:  threshold,
		quietLimit: max(int(silence/FrameDur), 1),
		out:        make([]float32, 0, SampleRate*3),
	}
}

// Feed reports whether the utterance is complete.
func (s *Segmenter) Feed(frame []float32) bool {
	if FrameRMS(frame) > s.threshold {
		s.speaking = true
		s.quietFrames = 0
		s.out = append(s.out, frame...)
		return false
	}

	if !s.speaking {
		return false
	}

	s.quietFrames++
	if s.quietFrames >= s.quietLimit {
		return true
	}
	s.out = append(s.out, frame...)
	return false
}

// Samples is the utterance so far. Empty means nobody spoke.
func (s *Segmenter) Samples() []float32 {
	return s.out
}

func FrameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
