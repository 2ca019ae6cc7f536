package music

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// ErrNotFound means the search returned no track.
var ErrNotFound = errors.New("track not found")

// API is the part of the Spotify Web API client the player needs.
type API interface {
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
	PlayerDevices(ctx context.Context) ([]spotify.PlayerDevice, error)
	PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error
}

type Track struct {
	Name   string
	Artist string
	URI    spotify.URI
}

func (t Track) String() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Name + " by " + t.Artist
}

type Player struct {
	api API
}

func NewPlayer(api API) *Player {
	return &Player{api: api}
}

// Play starts the best match for query, preferring the active desktop device.
func (p *Player) Play(ctx context.Context, query string) (Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Track{}, ErrNotFound
	}

	res, err := p.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return Track{}, fmt.Errorf("search %q: %w", query, err)
	}
	if res == nil || res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return Track{}, ErrNotFound
	}

	ft := res.Tracks.Tracks[0]
	track := Track{Name: ft.Name, URI: ft.URI}
	if len(ft.Artists) > 0 {
		track.Artist = ft.Artists[0].Name
	}

	opt := &spotify.PlayOptions{URIs: []spotify.URI{track.URI}}
	if id, ok := p.desktopDevice(ctx); ok {
		opt.DeviceID = &id
	}

	if err := p.api.PlayOpt(ctx, opt); err != nil {
		return Track{}, fmt.Errorf("start playback: %w", err)
	}

	log.Info("Playing track", "track", track.String(), "uri", track.URI)
	return track, nil
}

// desktopDevice finds the active computer device. Without one playback
// goes to whatever device Spotify considers current.
func (p *Player) desktopDevice(ctx context.Context) (spotify.ID, bool) {
	devices, err := p.api.PlayerDevices(ctx)
	if err != nil {
		log.Warn("Failed to list Spotify devices", "err", err)
		return "", false
	}

	for _, d := range devices {
		if d.Type == "Computer" && d.Active {
			return d.ID, true
		}
	}
	return "", false
}
