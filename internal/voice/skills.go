package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nova/internal/model"
	"nova/internal/music"
	"nova/internal/nlu"
	"nova/internal/weather"
)

type Player interface {
	Play(ctx context.Context, query string) (music.Track, error)
}

type EventAdder interface {
	AddEvent(ctx context.Context, f model.EventFields) (model.CalendarEvent, error)
}

// ErrUnavailable means the skill's backend is not configured.
var ErrUnavailable = errors.New("skill not configured")

// Skills holds the backends of the command handlers. Nil backends make
// their handlers apologize.
type Skills struct {
	Music    Player
	Weather  weather.Provider
	Locator  weather.Locator
	Brain    nlu.Completer
	Calendar EventAdder
	Joke     func() string
	Now      func() time.Time
}

// Rules returns the handlers in dispatch priority order.
func (s *Skills) Rules() []Rule {
	return []Rule{
		{Name: "music", Match: Any("play"), Handle: s.play},
		{Name: "clock", Match: Any("time"), Handle: s.clock},
		{Name: "weather", Match: Any("weather"), Handle: s.weather},
		{Name: "joke", Match: Any("joke"), Handle: s.joke},
		{Name: "question", Match: Any("who", "what", "how", "why", "do you know"), Handle: s.ask},
		{Name: "calendar.add", Match: All(Any("calendar"), Any("add")), Handle: s.addEvent},
		{Name: "calendar.show", Match: All(Any("calendar"), Any("show", "list")), Handle: s.showEvents},
		{Name: "shutdown", Match: Any("shut down"), Handle: s.shutdown},
		{Name: "fallback", Match: Always, Handle: s.ask},
	}
}

func (s *Skills) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Skills) play(ctx context.Context, cmd string) (Reply, error) {
	song := strings.TrimSpace(after(cmd, "play"))
	if s.Music == nil {
		return Reply{}, apologize("Sorry, Spotify is not set up.", ErrUnavailable)
	}

	track, err := s.Music.Play(ctx, song)
	if errors.Is(err, music.ErrNotFound) {
		return Reply{Text: "I couldn't find that song on Spotify.", Silent: true}, nil
	}
	if err != nil {
		return Reply{}, apologize("Sorry, I couldn't start the music.", err)
	}

	return Reply{Text: fmt.Sprintf("Playing %s on Spotify", track), Silent: true}, nil
}

func (s *Skills) clock(context.Context, string) (Reply, error) {
	return Reply{Text: "Current time is " + s.now().Format("03:04 PM"), Silent: true}, nil
}

func (s *Skills) weather(ctx context.Context, cmd string) (Reply, error) {
	if s.Weather == nil {
		return Reply{}, apologize("Sorry, I couldn't fetch the weather right now.", ErrUnavailable)
	}

	city := ""
	if strings.Contains(cmd, "weather in") {
		city = strings.TrimSpace(after(cmd, "weather in"))
	}
	if city == "" {
		if s.Locator == nil {
			return Reply{}, apologize("Sorry, I couldn't detect your location.", ErrUnavailable)
		}
		var err error
		if city, err = s.Locator.City(ctx); err != nil {
			return Reply{}, apologize("Sorry, I couldn't detect your location.", err)
		}
	}

	report, err := s.Weather.Forecast(ctx, city)
	if err != nil {
		return Reply{}, apologize("Sorry, I couldn't fetch the weather right now.", err)
	}

	return Reply{Text: report.Summary(), Forecast: report.Days}, nil
}

func (s *Skills) joke(context.Context, string) (Reply, error) {
	if s.Joke == nil {
		return Reply{}, apologize("Sorry, I'm out of jokes.", ErrUnavailable)
	}
	return Reply{Text: s.Joke()}, nil
}

func (s *Skills) ask(ctx context.Context, cmd string) (Reply, error) {
	if s.Brain == nil {
		return Reply{}, apologize("Sorry, I can't answer questions right now.", ErrUnavailable)
	}

	answer, err := nlu.Ask(ctx, s.Brain, cmd)
	if err != nil {
		return Reply{}, apologize("Sorry, I couldn't come up with an answer.", err)
	}
	return Reply{Text: answer}, nil
}

func (s *Skills) addEvent(ctx context.Context, cmd string) (Reply, error) {
	if s.Brain == nil || s.Calendar == nil {
		return Reply{}, apologize("Sorry, I can't reach your calendar.", ErrUnavailable)
	}

	fields, err := nlu.ParseEvent(ctx, s.Brain, cmd, s.now())
	if err != nil {
		return Reply{}, apologize("Sorry, I didn't catch what to add to your calendar.", err)
	}

	ev, err := s.Calendar.AddEvent(ctx, fields)
	if err != nil {
		return Reply{}, apologize("Sorry, I couldn't save that to your calendar.", err)
	}

	return Reply{Text: fmt.Sprintf("Added %s to your calendar on %s at %s.", ev.Title, ev.Date, ev.Time)}, nil
}

func (s *Skills) showEvents(context.Context, string) (Reply, error) {
	return Reply{Text: "Reading your calendar is not supported yet."}, nil
}

func (s *Skills) shutdown(context.Context, string) (Reply, error) {
	return Reply{Text: "Shutting down. Goodbye!", Shutdown: true}, nil
}

// after returns the text following the first occurrence of word.
func after(s, word string) string {
	if _, rest, ok := strings.Cut(s, word); ok {
		return rest
	}
	return s
}
