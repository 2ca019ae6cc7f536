package voice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nova/internal/model"
	"nova/internal/music"
	"nova/internal/weather"
)

type fakePlayer struct {
	query string
	err   error
}

func (f *fakePlayer) Play(_ context.Context, q string) (music.Track, error) {
	f.query = q
	if f.err != nil {
		return music.Track{}, f.err
	}
	return music.Track{Name: "Hey Jude", Artist: "The Beatles"}, nil
}

type fakeWeather struct {
	city string
	err  error
}

func (f *fakeWeather) Forecast(_ context.Context, city string) (weather.Report, error) {
	f.city = city
	if f.err != nil {
		return weather.Report{}, f.err
	}
	return weather.Report{
		City:      city,
		Condition: "Sunny",
		TempC:     21,
		Days:      []model.ForecastDay{{Date: "2025-06-01", Condition: "Sunny"}},
	}, nil
}

type fakeBrain struct {
	reply string
	user  string
}

func (f *fakeBrain) Complete(_ context.Context, _, user string) (string, error) {
	f.user = user
	return f.reply, nil
}

type fakeCalendar struct {
	got model.EventFields
}

func (f *fakeCalendar) AddEvent(_ context.Context, ev model.EventFields) (model.CalendarEvent, error) {
	f.got = ev
	return model.CalendarEvent{ID: "1", Title: ev.Title, Date: ev.Date, Time: "00:00"}, nil
}

func newSkills() (*Skills, *fakePlayer, *fakeWeather, *fakeBrain, *fakeCalendar) {
	p, w, b, c := &fakePlayer{}, &fakeWeather{}, &fakeBrain{reply: "An answer."}, &fakeCalendar{}
	s := &Skills{
		Music:    p,
		Weather:  w,
		Locator:  weather.StaticCity("Lisbon"),
		Brain:    b,
		Calendar: c,
		Joke:     func() string { return "A joke." },
		Now:      func() time.Time { return time.Date(2025, 3, 4, 15, 4, 0, 0, time.UTC) },
	}
	return s, p, w, b, c
}

func TestDispatchPriority(t *testing.T) {
	s, _, _, _, _ := newSkills()
	d := NewDispatcher(s.Rules()...)

	cases := map[string]string{
		"play hey jude":               "music",
		"play what time is it":        "music",
		"what time is it":             "clock",
		"what's the weather in paris": "weather",
		"tell me a joke about time":   "clock",
		"tell me a joke":              "joke",
		"what's on my calendar":       "question",
		"who wrote hamlet":            "question",
		"do you know the muffin man":  "question",
		"add dentist to my calendar":  "calendar.add",
		"list my calendar":            "calendar.show",
		"show my calendar":            "question",
		"shut down":                   "shutdown",
		"sing me a song":              "fallback",
	}

	for cmd, want := range cases {
		r, ok := d.Match(cmd)
		if !ok || r.Name != want {
			t.Errorf("%q matched %q, want %q", cmd, r.Name, want)
		}
	}
}

func TestPlay(t *testing.T) {
	s, p, _, _, _ := newSkills()

	reply, err := s.play(context.Background(), "play hey jude")
	if err != nil {
		t.Fatal(err)
	}
	if p.query != "hey jude" {
		t.Errorf("unexpected query %q", p.query)
	}
	if reply.Text != "Playing Hey Jude by The Beatles on Spotify" || !reply.Silent {
		t.Errorf("unexpected reply %+v", reply)
	}

	p.err = music.ErrNotFound
	reply, err = s.play(context.Background(), "play nothing")
	if err != nil || reply.Text != "I couldn't find that song on Spotify." {
		t.Errorf("unexpected not-found reply %+v, %v", reply, err)
	}
}

func TestClock(t *testing.T) {
	s, _, _, _, _ := newSkills()

	reply, _ := s.clock(context.Background(), "what time is it")
	if reply.Text != "Current time is 03:04 PM" || !reply.Silent {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestWeatherCity(t *testing.T) {
	s, _, w, _, _ := newSkills()

	reply, err := s.weather(context.Background(), "what's the weather in new york")
	if err != nil {
		t.Fatal(err)
	}
	if w.city != "new york" {
		t.Errorf("expected city after the phrase, got %q", w.city)
	}
	if reply.Text != "Weather in new york: Sunny, 21°C" || len(reply.Forecast) != 1 || reply.Silent {
		t.Errorf("unexpected reply %+v", reply)
	}

	if _, err := s.weather(context.Background(), "how is the weather"); err != nil {
		t.Fatal(err)
	}
	if w.city != "Lisbon" {
		t.Errorf("expected located city, got %q", w.city)
	}
}

func TestWeatherFailureApologizes(t *testing.T) {
	s, _, w, _, _ := newSkills()
	w.err = errors.New("503")

	_, err := s.weather(context.Background(), "weather in oslo")
	var ap *Apology
	if !errors.As(err, &ap) || ap.Say != "Sorry, I couldn't fetch the weather right now." {
		t.Errorf("expected apology, got %v", err)
	}

	s.Locator = weather.StaticCity("")
	_, err = s.weather(context.Background(), "weather")
	if !errors.As(err, &ap) || !strings.Contains(ap.Say, "location") {
		t.Errorf("expected location apology, got %v", err)
	}
}

func TestAddEvent(t *testing.T) {
	s, _, _, b, c := newSkills()
	b.reply = `{"title":"Dentist","date":"2025-03-05"}`

	reply, err := s.addEvent(context.Background(), "add dentist tomorrow to my calendar")
	if err != nil {
		t.Fatal(err)
	}
	if c.got.Title != "Dentist" || c.got.Date != "2025-03-05" {
		t.Errorf("unexpected fields %+v", c.got)
	}
	if reply.Text != "Added Dentist to your calendar on 2025-03-05 at 00:00." {
		t.Errorf("unexpected reply %q", reply.Text)
	}
}

func TestAskUsesShortAnswerPrompt(t *testing.T) {
	s, _, _, b, _ := newSkills()

	reply, err := s.ask(context.Background(), "why is the sky blue")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "An answer." || b.user != "Answer in only one short sentence:why is the sky blue" {
		t.Errorf("unexpected reply %q for prompt %q", reply.Text, b.user)
	}
}

func TestMissingBackendsApologize(t *testing.T) {
	s := &Skills{}
	for _, r := range s.Rules() {
		if r.Name == "clock" || r.Name == "calendar.show" || r.Name == "shutdown" {
			continue
		}
		_, err := r.Handle(context.Background(), "x")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("%s: expected ErrUnavailable, got %v", r.Name, err)
		}
	}
}
