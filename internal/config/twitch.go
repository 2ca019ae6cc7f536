package config

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/jsonc"
)

// Twitch is the stream-status lookup configuration. The file may carry
// comments and trailing commas.
type Twitch struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	Channels     []string `json:"channels"`
}

func (t Twitch) Configured() bool {
	return t.ClientID != "" && t.ClientSecret != ""
}

func LoadTwitch(path string) (Twitch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Twitch{}, err
	}

	var t Twitch
	if err := json.Unmarshal(jsonc.ToJSON(data), &t); err != nil {
		return Twitch{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return t, nil
}

// WatchTwitch calls onChange with the reloaded config whenever the file at
// path is written or replaced, until ctx is done. Reload errors are logged
// and the previous config stays in effect.
func WatchTwitch(ctx context.Context, path string, onChange func(Twitch)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: editors often replace the file instead of writing it.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	target := filepath.Clean(path)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}

				t, err := LoadTwitch(path)
				if err != nil {
					log.Warn("Failed to reload twitch config", "path", path, "err", err)
					continue
				}
				log.Info("Reloaded twitch config", "path", path, "channels", len(t.Channels))
				onChange(t)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("Twitch config watcher error", "err", err)
			}
		}
	}()

	return nil
}
