package voice

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"sync/atomic"
	"time"

	"nova/internal/model"
)

const (
	StatusListening  = "listening"
	StatusProcessing = "processing"
	StatusSpeaking   = "speaking"
	StatusIdle       = "idle"
	StatusOffline    = "offline"

	DefaultName        = "Nova"
	DefaultListenRetry = time.Second
	userName           = "User"
	fallbackSay        = "Sorry, something went wrong."
)

// Listener returns the transcript of the next utterance. io.EOF means no
// more input will come.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Reporter is the server side of the loop: status updates and log entries.
type Reporter interface {
	PostStatus(ctx context.Context, status string) error
	PostLog(ctx context.Context, e model.LogEntry) error
}

type Assistant struct {
	Name     string
	WakeWord string

	// ListenRetry is the pause after a failed listen.
	ListenRetry time.Duration

	listener   Listener
	speaker    Speaker
	reporter   Reporter
	dispatcher *Dispatcher

	// armed skips the wake word for the next utterance.
	armed atomic.Bool
}

func NewAssistant(l Listener, s Speaker, r Reporter, d *Dispatcher) *Assistant {
	return &Assistant{
		Name:        DefaultName,
		WakeWord:    DefaultWakeWord,
		ListenRetry: DefaultListenRetry,
		listener:    l,
		speaker:     s,
		reporter:    r,
		dispatcher:  d,
	}
}

// Trigger makes the next utterance count as a command without the wake word.
func (a *Assistant) Trigger() {
	a.armed.Store(true)
}

// Run listens and answers until ctx is cancelled, the listener runs dry or a
// shutdown command is handled. The status is left at offline.
func (a *Assistant) Run(ctx context.Context) error {
	defer func() {
		octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		a.status(octx, StatusOffline)
	}()

	log.Info("Assistant ready", "name", a.Name, "wake_word", a.WakeWord)

	for {
		if ctx.Err() != nil {
			return nil
		}

		a.status(ctx, StatusListening)

		utterance, err := a.listener.Listen(ctx)
		if errors.Is(err, io.EOF) {
			log.Info("Input exhausted")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Error("Failed to listen", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(a.ListenRetry):
			}
			continue
		}

		cmd, ok := a.command(utterance)
		if !ok {
			if utterance != "" {
				log.Debug("Ignoring utterance without wake word", "text", utterance)
			}
			continue
		}

		if a.Handle(ctx, cmd) {
			log.Info("Shutdown requested by voice command")
			return nil
		}
	}
}

func (a *Assistant) command(utterance string) (string, bool) {
	if a.armed.Load() {
		if cmd := Normalize(utterance); cmd != "" {
			a.armed.Store(false)
			if c, ok := ExtractCommand(cmd, a.WakeWord); ok {
				return c, true
			}
			return cmd, true
		}
	}
	return ExtractCommand(utterance, a.WakeWord)
}

// Handle runs one command through the dispatcher, speaks and records the
// outcome. It reports whether the loop should stop.
func (a *Assistant) Handle(ctx context.Context, cmd string) bool {
	log.Info("Command", "text", cmd)
	a.status(ctx, StatusProcessing)

	entry := model.LogEntry{
		Command:       cmd,
		WhoIsTalking:  userName,
		IsUserTalking: true,
	}
	empty := ""
	entry.Response = &empty

	rule, reply, err := a.dispatcher.Dispatch(ctx, cmd)
	switch {
	case err != nil:
		say := fallbackSay
		var ap *Apology
		if errors.As(err, &ap) {
			say = ap.Say
		}
		log.Error("Command failed", "rule", rule, "err", err)
		reply = Reply{Text: say}
		a.answer(&entry, say, nil)
	case !reply.Silent:
		a.answer(&entry, reply.Text, reply.Forecast)
	}

	if reply.Text != "" {
		a.status(ctx, StatusSpeaking)
		if err := a.speaker.Speak(ctx, reply.Text); err != nil {
			log.Error("Failed to speak", "err", err)
		}
	}

	if err := a.reporter.PostLog(ctx, entry); err != nil {
		log.Warn("Failed to send log", "err", err)
	}

	if !reply.Shutdown {
		a.status(ctx, StatusIdle)
	}
	return reply.Shutdown
}

func (a *Assistant) answer(e *model.LogEntry, text string, forecast []model.ForecastDay) {
	e.WhoIsTalking = a.Name
	e.IsUserTalking = false
	e.Response = &text
	e.Forecast = forecast
}

func (a *Assistant) status(ctx context.Context, s string) {
	if err := a.reporter.PostStatus(ctx, s); err != nil {
		log.Warn("Failed to send status", "status", s, "err", err)
	}
}
