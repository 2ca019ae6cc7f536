package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocket = "/tmp/nova.sock"

const (
	CmdShutdown = "shutdown"
	CmdTrigger  = "trigger"
)

// ErrUnknownCommand is returned by handlers for commands they do not serve.
var ErrUnknownCommand = errors.New("unknown command")

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

type reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Serve accepts control messages on a unix socket until ctx is cancelled.
// Each connection carries one message and gets one reply.
func Serve(ctx context.Context, path string, handler func(ControlMessage) error) error {
	os.Remove(path)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", path, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer os.Remove(path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Control accept failed", "err", err)
			continue
		}
		go handleConn(conn, handler)
	}
}

func handleConn(conn net.Conn, handler func(ControlMessage) error) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Debug("Bad control message", "err", err)
		return
	}

	log.Debug("Control message", "cmd", msg.Cmd)

	rep := reply{OK: true}
	if err := handler(msg); err != nil {
		rep = reply{Error: err.Error()}
	}
	_ = json.NewEncoder(conn).Encode(rep)
}

// Send delivers one command to the daemon listening on path.
func Send(path, cmd string) error {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd}); err != nil {
		return err
	}

	var rep reply
	if err := json.NewDecoder(conn).Decode(&rep); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if !rep.OK {
		return errors.New(rep.Error)
	}
	return nil
}
