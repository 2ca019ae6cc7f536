package music

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

type fakeAPI struct {
	tracks  []spotify.FullTrack
	devices []spotify.PlayerDevice
	played  *spotify.PlayOptions
	limit   bool
}

func (f *fakeAPI) Search(_ context.Context, _ string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error) {
	f.limit = len(opts) == 1
	if t != spotify.SearchTypeTrack {
		return nil, errors.New("unexpected search type")
	}
	return &spotify.SearchResult{Tracks: &spotify.FullTrackPage{Tracks: f.tracks}}, nil
}

func (f *fakeAPI) PlayerDevices(context.Context) ([]spotify.PlayerDevice, error) {
	return f.devices, nil
}

func (f *fakeAPI) PlayOpt(_ context.Context, opt *spotify.PlayOptions) error {
	f.played = opt
	return nil
}

func track(name, artist, uri string) spotify.FullTrack {
	var ft spotify.FullTrack
	ft.Name = name
	ft.URI = spotify.URI(uri)
	ft.Artists = []spotify.SimpleArtist{{Name: artist}}
	return ft
}

func TestPlayPrefersActiveComputer(t *testing.T) {
	api := &fakeAPI{
		tracks: []spotify.FullTrack{track("Hey Jude", "The Beatles", "spotify:track:1")},
		devices: []spotify.PlayerDevice{
			{ID: "phone", Type: "Smartphone", Active: true},
			{ID: "idle-pc", Type: "Computer"},
			{ID: "desk", Type: "Computer", Active: true},
		},
	}

	tr, err := NewPlayer(api).Play(context.Background(), " hey jude ")
	if err != nil {
		t.Fatal(err)
	}

	if tr.String() != "Hey Jude by The Beatles" {
		t.Errorf("unexpected track %q", tr)
	}
	if !api.limit {
		t.Error("expected a limited search")
	}
	if api.played == nil || api.played.DeviceID == nil || *api.played.DeviceID != "desk" {
		t.Fatalf("expected playback on desk, got %+v", api.played)
	}
	if len(api.played.URIs) != 1 || api.played.URIs[0] != "spotify:track:1" {
		t.Errorf("unexpected uris %v", api.played.URIs)
	}
}

func TestPlayWithoutDesktop(t *testing.T) {
	api := &fakeAPI{tracks: []spotify.FullTrack{track("Song", "", "spotify:track:2")}}

	if _, err := NewPlayer(api).Play(context.Background(), "song"); err != nil {
		t.Fatal(err)
	}
	if api.played.DeviceID != nil {
		t.Errorf("expected default device, got %v", *api.played.DeviceID)
	}
}

func TestPlayNotFound(t *testing.T) {
	api := &fakeAPI{}

	if _, err := NewPlayer(api).Play(context.Background(), "nothing matches"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if api.played != nil {
		t.Error("nothing should be played")
	}
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotify", "token.json")

	if _, err := LoadToken(path); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, want); err != nil {
		t.Fatal(err)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.RefreshToken != "r" || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("unexpected token %+v", got)
	}
}

func TestLoginIgnoresRepeatedCallbacks(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	creds := Credentials{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://" + addr}
	hc := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var calls []error
	_, err = Login(ctx, creds, func(string) {
		for range 2 {
			resp, err := hc.Get("http://" + addr + "/?error=access_denied")
			if err == nil {
				resp.Body.Close()
			}
			calls = append(calls, err)
		}
	})

	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the denied callback error, got %v", err)
	}
	for i, err := range calls {
		if err != nil {
			t.Errorf("callback %d: %v", i, err)
		}
	}
}
