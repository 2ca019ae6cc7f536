package audio

import (
	"context"
	"strings"
	"testing"
	"time"
)

func frame(level float32) []float32 {
	f := make([]float32, FrameSize)
	for i := range f {
		f[i] = level
	}
	return f
}

func TestSegmenterWaitsForSpeech(t *testing.T) {
	seg := NewSegmenter(0.015, 60*time.Millisecond)

	for range 5 {
		if seg.Feed(frame(0)) {
			t.Fatal("silence before speech must not end the utterance")
		}
	}
	if len(seg.Samples()) != 0 {
		t.Fatalf("leading silence must be dropped, got %d samples", len(seg.Samples()))
	}

	seg.Feed(frame(0.5))
	seg.Feed(frame(0))
	seg.Feed(frame(0.5))
	seg.Feed(frame(0))
	seg.Feed(frame(0))
	if !seg.Feed(frame(0)) {
		t.Fatal("expected end of utterance after three quiet frames")
	}

	if got, want := len(seg.Samples()), 5*FrameSize; got != want {
		t.Errorf("expected %d samples, got %d", want, got)
	}
}

func TestFrameRMS(t *testing.T) {
	if got := FrameRMS(frame(0.5)); got < 0.4999 || got > 0.5001 {
		t.Errorf("expected 0.5, got %f", got)
	}
	if FrameRMS(nil) != 0 {
		t.Error("empty frame must be silent")
	}
}

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: front-left: 52429 /  80% / -5.81 dB
	Properties:
		application.name = "nova"
Sink Input #bogus
	Volume: 10%
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)
	if len(got) != 2 {
		t.Fatalf("expected 2 inputs, got %+v", got)
	}
	if got[0] != (sinkInput{ID: 41, Volume: 100, AppName: "Firefox"}) {
		t.Errorf("unexpected first input %+v", got[0])
	}
	if got[1].AppName != "nova" || got[1].Volume != 80 {
		t.Errorf("unexpected second input %+v", got[1])
	}
}

func TestDuckAndRestore(t *testing.T) {
	var calls []string
	d := NewDucker([]string{"nova"}, 10)
	d.run = func(_ context.Context, args ...string) ([]byte, error) {
		if args[0] == "list" {
			return []byte(sinkInputs), nil
		}
		calls = append(calls, strings.Join(args, " "))
		return nil, nil
	}

	if err := d.Duck(context.Background(), 0.3, 0); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != "set-sink-input-volume 41 30%" {
		t.Fatalf("unexpected duck calls %v", calls)
	}

	// A second duck is a no-op while active.
	d.Duck(context.Background(), 0.3, 0)
	if len(calls) != 1 {
		t.Fatalf("expected no extra calls, got %v", calls)
	}

	calls = nil
	if err := d.Restore(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != "set-sink-input-volume 41 100%" {
		t.Errorf("unexpected restore calls %v", calls)
	}
}
