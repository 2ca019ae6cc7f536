package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/nicklaw5/helix/v2"
)

// ErrUnauthorized means the app credentials were rejected.
var ErrUnauthorized = errors.New("twitch app token rejected")

// HelixAPI implements API on top of the Helix REST client using an app
// access token that is requested lazily and renewed after a 401.
type HelixAPI struct {
	mu       sync.Mutex
	client   *helix.Client
	clientID string
	secret   string
	hasToken bool
}

func NewHelixAPI(clientID, clientSecret string) *HelixAPI {
	return &HelixAPI{clientID: clientID, secret: clientSecret}
}

func (h *HelixAPI) ensure() (*helix.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		c, err := helix.NewClient(&helix.Options{
			ClientID:     h.clientID,
			ClientSecret: h.secret,
		})
		if err != nil {
			return nil, fmt.Errorf("helix client: %w", err)
		}
		h.client = c
	}

	if !h.hasToken {
		resp, err := h.client.RequestAppAccessToken(nil)
		if err != nil {
			return nil, fmt.Errorf("app token: %w", err)
		}
		if resp.StatusCode != http.StatusOK || resp.Data.AccessToken == "" {
			return nil, fmt.Errorf("%w: %d %s", ErrUnauthorized, resp.StatusCode, resp.ErrorMessage)
		}
		h.client.SetAppAccessToken(resp.Data.AccessToken)
		h.hasToken = true
	}

	return h.client, nil
}

// check turns a non-2xx helix response into an error and drops the token on 401.
func (h *HelixAPI) check(common helix.ResponseCommon) error {
	if common.StatusCode >= 200 && common.StatusCode < 300 {
		return nil
	}
	if common.StatusCode == http.StatusUnauthorized {
		h.mu.Lock()
		h.hasToken = false
		h.mu.Unlock()
	}
	return fmt.Errorf("helix: %d %s", common.StatusCode, common.ErrorMessage)
}

func (h *HelixAPI) UserByLogin(_ context.Context, login string) (*User, error) {
	c, err := h.ensure()
	if err != nil {
		return nil, err
	}

	resp, err := c.GetUsers(&helix.UsersParams{Logins: []string{login}})
	if err != nil {
		return nil, err
	}
	if err := h.check(resp.ResponseCommon); err != nil {
		return nil, err
	}
	if len(resp.Data.Users) == 0 {
		return nil, nil
	}

	u := resp.Data.Users[0]
	return &User{ID: u.ID, DisplayName: u.DisplayName}, nil
}

func (h *HelixAPI) StreamByUserID(_ context.Context, userID string) (*Stream, error) {
	c, err := h.ensure()
	if err != nil {
		return nil, err
	}

	resp, err := c.GetStreams(&helix.StreamsParams{UserIDs: []string{userID}})
	if err != nil {
		return nil, err
	}
	if err := h.check(resp.ResponseCommon); err != nil {
		return nil, err
	}
	if len(resp.Data.Streams) == 0 {
		return nil, nil
	}

	s := resp.Data.Streams[0]
	return &Stream{
		GameID:       s.GameID,
		Title:        s.Title,
		ThumbnailURL: s.ThumbnailURL,
		ViewerCount:  s.ViewerCount,
	}, nil
}

func (h *HelixAPI) GameName(_ context.Context, gameID string) (string, error) {
	if gameID == "" {
		return "", nil
	}

	c, err := h.ensure()
	if err != nil {
		return "", err
	}

	resp, err := c.GetGames(&helix.GamesParams{IDs: []string{gameID}})
	if err != nil {
		return "", err
	}
	if err := h.check(resp.ResponseCommon); err != nil {
		return "", err
	}
	if len(resp.Data.Games) == 0 {
		return "", nil
	}

	return resp.Data.Games[0].Name, nil
}
