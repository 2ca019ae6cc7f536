package mic

import (
	"context"
	"time"

	"github.com/gordonklaus/portaudio"

	"nova/internal/audio"
)

// Recorder captures one utterance at a time from the default input device.
type Recorder struct {
	// Threshold is the frame RMS that counts as speech.
	Threshold float64
	// Silence after speech that ends the utterance.
	Silence time.Duration
	// MaxLength caps a single capture, speech or not.
	MaxLength time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{
		Threshold: 0.015,
		Silence:   600 * time.Millisecond,
		MaxLength: 10 * time.Second,
	}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record returns mono 16 kHz samples of the next utterance. The result is
// empty when nobody spoke within MaxLength.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	buf := make([]float32, audio.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, audio.SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	seg := audio.NewSegmenter(r.Threshold, r.Silence)
	maxFrames := int(r.MaxLength / audio.FrameDur)

	for range maxFrames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		if seg.Feed(buf) {
			break
		}
	}

	return seg.Samples(), nil
}
