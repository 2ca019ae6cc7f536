package main

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"time"

	"nova/internal/audio"
	"nova/internal/audio/mic"
	"nova/internal/tts"
	"nova/pkg/audioconv"
	"nova/pkg/stt"
)

const duckFade = 300 * time.Millisecond

type micListener struct {
	rec *mic.Recorder
	stt *stt.Transcriber
}

func (m *micListener) Listen(ctx context.Context) (string, error) {
	pcm, err := m.rec.Record(ctx)
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}
	if len(pcm) == 0 {
		return "", nil
	}

	log.Debug("Recorded", "samples", len(pcm))

	res, err := m.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	log.Debug("Transcribed", "text", res.Text, "lang", res.Language)
	return res.Text, nil
}

// fileListener transcribes one audio file per call and then reports io.EOF.
type fileListener struct {
	paths []string
	next  int
	stt   *stt.Transcriber
}

func (f *fileListener) Listen(ctx context.Context) (string, error) {
	if f.next >= len(f.paths) {
		return "", io.EOF
	}
	path := f.paths[f.next]
	f.next++

	pcm, err := audioconv.File(path, 0)
	if err != nil {
		return "", err
	}

	res, err := f.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", path, err)
	}

	log.Info("Transcribed file", "path", path, "text", res.Text)
	return res.Text, nil
}

// espeakSpeaker talks over other audio by ducking it first.
type espeakSpeaker struct {
	voice  *tts.Voice
	ducker *audio.Ducker
}

func (s *espeakSpeaker) Speak(ctx context.Context, text string) error {
	if err := s.ducker.Duck(ctx, 0.3, duckFade); err != nil {
		log.Debug("Failed to duck other streams", "err", err)
	}
	defer func() {
		if err := s.ducker.Restore(context.WithoutCancel(ctx), duckFade); err != nil {
			log.Debug("Failed to restore other streams", "err", err)
		}
	}()

	return s.voice.Say(text)
}

type printSpeaker struct {
	name string
	w    io.Writer
}

func (p printSpeaker) Speak(_ context.Context, text string) error {
	_, err := fmt.Fprintf(p.w, "%s: %s\n", p.name, text)
	return err
}
