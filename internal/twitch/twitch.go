package twitch

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"

	"nova/internal/config"
	"nova/internal/model"
)

var ErrNotConfigured = errors.New("twitch credentials not configured")

const unknownGame = "Unknown Game"

type User struct {
	ID          string
	DisplayName string
}

type Stream struct {
	GameID       string
	Title        string
	ThumbnailURL string
	ViewerCount  int
}

// API is the slice of the streaming platform used by the lookup. A nil
// result with a nil error means "not found" / "offline".
type API interface {
	UserByLogin(ctx context.Context, login string) (*User, error)
	StreamByUserID(ctx context.Context, userID string) (*Stream, error)
	GameName(ctx context.Context, gameID string) (string, error)
}

// Lookup resolves the configured channels to live stream summaries.
type Lookup struct {
	mu       sync.RWMutex
	api      API
	channels []string
}

func NewLookup(api API, channels []string) *Lookup {
	return &Lookup{api: api, channels: append([]string(nil), channels...)}
}

// SetChannels replaces the channel list, e.g. after a config reload.
func (l *Lookup) SetChannels(channels []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = append([]string(nil), channels...)
}

// Reconfigure swaps the API client and channels from a reloaded config.
func (l *Lookup) Reconfigure(cfg config.Twitch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = append([]string(nil), cfg.Channels...)
	if cfg.Configured() {
		l.api = NewHelixAPI(cfg.ClientID, cfg.ClientSecret)
	} else {
		l.api = nil
	}
}

// LiveStreams walks the channels in order and returns the live ones.
// A failing channel is logged and skipped; only a missing API or a
// cancelled context fails the whole call.
func (l *Lookup) LiveStreams(ctx context.Context) ([]model.StreamSummary, error) {
	l.mu.RLock()
	api, channels := l.api, l.channels
	l.mu.RUnlock()

	if api == nil {
		return nil, ErrNotConfigured
	}

	out := make([]model.StreamSummary, 0, len(channels))
	for _, name := range channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := l.lookupOne(ctx, api, name)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return nil, err
			}
			log.Error("Error fetching stream", "channel", name, "err", err)
			continue
		}
		if s != nil {
			out = append(out, *s)
		}
	}

	return out, nil
}

func (l *Lookup) lookupOne(ctx context.Context, api API, name string) (*model.StreamSummary, error) {
	user, err := api.UserByLogin(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", name, err)
	}
	if user == nil {
		return nil, nil
	}

	stream, err := api.StreamByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", name, err)
	}
	if stream == nil {
		return nil, nil
	}

	game, err := api.GameName(ctx, stream.GameID)
	if err != nil {
		log.Warn("Failed to resolve game", "channel", name, "game_id", stream.GameID, "err", err)
	}
	if game == "" {
		game = unknownGame
	}

	return &model.StreamSummary{
		IsLive:       true,
		PreviewURL:   PreviewURL(stream.ThumbnailURL, 320, 180),
		Title:        stream.Title,
		StreamerName: user.DisplayName,
		GameName:     game,
		ViewerCount:  stream.ViewerCount,
	}, nil
}

// PreviewURL fills the {width}/{height} placeholders of a thumbnail template.
func PreviewURL(template string, width, height int) string {
	r := strings.NewReplacer(
		"{width}", fmt.Sprint(width),
		"{height}", fmt.Sprint(height),
	)
	return r.Replace(template)
}
