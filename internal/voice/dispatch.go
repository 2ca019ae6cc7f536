package voice

import (
	"context"
	"errors"
	"strings"

	"nova/internal/model"
)

// Reply is what a handler wants said and recorded.
type Reply struct {
	// Text is spoken back.
	Text string
	// Silent handlers are logged as the user's command without a response.
	Silent   bool
	Forecast []model.ForecastDay
	// Shutdown ends the loop after the reply is spoken.
	Shutdown bool
}

type Handler func(ctx context.Context, command string) (Reply, error)

// Rule pairs a predicate over the normalized command with its handler.
type Rule struct {
	Name   string
	Match  func(command string) bool
	Handle Handler
}

// Dispatcher tries its rules in order; the first match wins.
type Dispatcher struct {
	rules []Rule
}

var ErrNoRule = errors.New("no rule matched")

func NewDispatcher(rules ...Rule) *Dispatcher {
	return &Dispatcher{rules: rules}
}

// Match returns the rule that would handle command.
func (d *Dispatcher) Match(command string) (Rule, bool) {
	for _, r := range d.rules {
		if r.Match(command) {
			return r, true
		}
	}
	return Rule{}, false
}

func (d *Dispatcher) Dispatch(ctx context.Context, command string) (string, Reply, error) {
	r, ok := d.Match(command)
	if !ok {
		return "", Reply{}, ErrNoRule
	}
	reply, err := r.Handle(ctx, command)
	return r.Name, reply, err
}

// Any matches when the command contains one of words.
func Any(words ...string) func(string) bool {
	return func(cmd string) bool {
		for _, w := range words {
			if strings.Contains(cmd, w) {
				return true
			}
		}
		return false
	}
}

// All matches when every predicate does.
func All(preds ...func(string) bool) func(string) bool {
	return func(cmd string) bool {
		for _, p := range preds {
			if !p(cmd) {
				return false
			}
		}
		return true
	}
}

func Always(string) bool { return true }

// Apology is a handler failure with the sentence to say instead.
type Apology struct {
	Say string
	Err error
}

func (a *Apology) Error() string {
	if a.Err == nil {
		return a.Say
	}
	return a.Say + ": " + a.Err.Error()
}

func (a *Apology) Unwrap() error { return a.Err }

func apologize(say string, err error) error {
	return &Apology{Say: say, Err: err}
}
