package feed

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"strings"
	"time"

	ws "github.com/gorilla/websocket"

	"nova/internal/model"
)

const DefaultReconnect = 2 * time.Second

// URLFor turns a server base URL into the address of its live feed.
func URLFor(serverURL string) string {
	u := strings.TrimRight(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Client follows the live feed of a nova-server and survives restarts of
// the server by redialing.
type Client struct {
	url       string
	reconnect time.Duration
	dialer    *ws.Dialer
}

func New(url string, reconnect time.Duration) *Client {
	if reconnect <= 0 {
		reconnect = DefaultReconnect
	}
	return &Client{
		url:       url,
		reconnect: reconnect,
		dialer:    ws.DefaultDialer,
	}
}

type readKind uint

const (
	connClosed readKind = iota
	readFailure
	readOK
)

type income struct {
	kind readKind
	env  model.Envelope
	err  error
}

// Run delivers every envelope to fn until ctx is cancelled and then
// returns ctx.Err(). Undecodable messages are skipped.
func (c *Client) Run(ctx context.Context, fn func(model.Envelope)) error {
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			return err
		}

		log.Debug("Feed connected", "url", c.url)
		c.pump(ctx, conn, fn)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Feed connection lost, reconnecting", "url", c.url, "after", c.reconnect)
	}
}

// dial retries until it connects or ctx ends.
func (c *Client) dial(ctx context.Context) (*ws.Conn, error) {
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			return conn, nil
		}
		log.Debug("Failed to dial feed", "url", c.url, "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.reconnect):
		}
	}
}

func (c *Client) pump(ctx context.Context, conn *ws.Conn, fn func(model.Envelope)) {
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		in := read(conn)
		switch in.kind {
		case connClosed:
			log.Debug("Feed closed by server", "err", in.err)
			return
		case readFailure:
			var syntax *json.SyntaxError
			var typ *json.UnmarshalTypeError
			if errors.As(in.err, &syntax) || errors.As(in.err, &typ) {
				log.Warn("Skipping malformed feed message", "err", in.err)
				continue
			}
			if ctx.Err() == nil {
				log.Debug("Feed read failed", "err", in.err)
			}
			return
		case readOK:
			fn(in.env)
		}
	}
}

func read(conn *ws.Conn) income {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		if isClosed(err) {
			return income{kind: connClosed, err: err}
		}
		return income{kind: readFailure, err: err}
	}

	var env model.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return income{kind: readFailure, err: err}
	}
	return income{kind: readOK, env: env}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
