package music

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	log "log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// ErrNoToken means the token file does not exist yet; run the login flow.
var ErrNoToken = errors.New("no spotify token, run nova-ctl spotify-login")

type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

func CredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("SPOTIFY_REDIRECT_URI"),
	}
}

func NewAuthenticator(c Credentials) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(c.ClientID),
		spotifyauth.WithClientSecret(c.ClientSecret),
		spotifyauth.WithRedirectURL(c.RedirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
		),
	)
}

// DefaultTokenPath is the token file under the user config directory.
func DefaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "spotify-token.json"
	}
	return filepath.Join(dir, "nova", "spotify-token.json")
}

func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	return &tok, nil
}

func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// Connect builds a Spotify client from the stored token. Refreshed tokens
// are kept in memory only; the refresh token itself does not change.
func Connect(ctx context.Context, auth *spotifyauth.Authenticator, tokenPath string) (*spotify.Client, error) {
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return spotify.New(auth.Client(ctx, tok)), nil
}

// Login runs the authorization code flow: it serves the redirect URI
// locally, hands the consent URL to open and waits for the callback.
func Login(ctx context.Context, c Credentials, open func(url string)) (*oauth2.Token, error) {
	redirect, err := url.Parse(c.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("redirect uri: %w", err)
	}

	auth := NewAuthenticator(c)
	state := uuid.NewString()

	type result struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan result, 1)
	// Only the first callback counts; reloads must not block their handler.
	finish := func(res result) {
		select {
		case done <- res:
		default:
		}
	}

	path := redirect.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		tok, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "Couldn't get token", http.StatusForbidden)
			finish(result{err: err})
			return
		}
		fmt.Fprintln(w, "Nova is connected to Spotify. You can close this tab.")
		finish(result{tok: tok})
	})

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", redirect.Host, err)
	}
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Close()

	log.Info("Waiting for Spotify authorization", "callback", c.RedirectURI)
	open(auth.AuthURL(state))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.tok, res.err
	}
}
