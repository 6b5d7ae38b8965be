// Package mpv controls an external mpv process over its JSON IPC socket.
package mpv

import (
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const (
	endpointPollInterval = 50 * time.Millisecond
	dialTimeout          = time.Second
	readChunkSize        = 4096
)

// Session owns the external player process and its control socket. At most
// one player process and one control connection are owned at a time. All
// methods are called from the scheduler goroutine; no locking.
type Session struct {
	settings Settings

	cmd  *exec.Cmd // owned player process; nil when reusing an external one
	conn net.Conn  // persistent control connection; nil when disconnected
	buf  eventBuffer
}

// NewSession creates a session. Nothing is launched until EnsureStarted.
func NewSession(settings Settings) *Session {
	return &Session{settings: settings}
}

// EnsureStarted connects to an existing control endpoint if one is live
// (reattaching to a player that survived a front-end restart), or removes
// any stale endpoint, launches a new player process, and polls for its
// endpoint to appear.
func (s *Session) EnsureStarted(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	if err := s.connect(); err == nil {
		zlog.Debug().Str("endpoint", s.settings.SocketPath).Msg("mpv: reusing running player")
		return nil
	}

	_ = os.Remove(s.settings.SocketPath)
	if err := s.spawn(); err != nil {
		return err
	}
	return s.waitForEndpoint(ctx)
}

// Connected reports whether the persistent control connection is up.
func (s *Session) Connected() bool {
	return s.conn != nil
}

// Send writes one command. The persistent connection is preferred; if it is
// absent or fails, the command is retried over a one-shot connection so it
// is not silently dropped. The one-shot path does not re-establish the
// persistent channel.
func (s *Session) Send(args ...any) error {
	if s.conn != nil {
		if err := s.writeCommand(s.conn, args...); err == nil {
			return nil
		}
		s.disconnect()
	}
	return s.sendOneShot(args...)
}

// TogglePause flips the player's pause state.
func (s *Session) TogglePause() error {
	return s.Send("cycle", "pause")
}

// Stop stops playback, leaving the player idle.
func (s *Session) Stop() error {
	return s.Send("stop")
}

// Load replaces whatever is playing with the given URL.
func (s *Session) Load(url string) error {
	return s.Send("loadfile", url, "replace")
}

// PollTrackEnded performs a non-blocking read of pending events and reports
// whether a genuine end-of-file completion arrived. Callers must not trust
// the result inside the grace window after a load.
func (s *Session) PollTrackEnded() bool {
	ended := false
	for {
		data, ok := s.readPending()
		if !ok {
			break
		}
		if s.buf.feed(data) {
			ended = true
		}
	}
	return ended
}

// Drain reads and discards pending events so stale completion signals do
// not leak into the next real poll.
func (s *Session) Drain() {
	for {
		data, ok := s.readPending()
		if !ok {
			return
		}
		s.buf.feed(data)
	}
}

// Quit asks the player to exit, waits briefly, then terminates the owned
// process and removes the control endpoint. Safe to call at any point in
// the session lifecycle, including before EnsureStarted and repeatedly.
func (s *Session) Quit() {
	_ = s.Send("quit")
	time.Sleep(time.Duration(s.settings.QuitGraceMs) * time.Millisecond)

	s.disconnect()

	if s.cmd != nil && s.cmd.Process != nil {
		// Advisory only; the reaper goroutine collects the exit status.
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
		s.cmd = nil
	}
	_ = os.Remove(s.settings.SocketPath)
}

func (s *Session) spawn() error {
	args := append([]string{
		"--no-video",
		"--idle=yes",
		"--force-window=no",
		"--really-quiet",
		"--input-ipc-server=" + s.settings.SocketPath,
	}, s.settings.ExtraArgs...)

	cmd := exec.Command(s.settings.Binary, args...)
	// Stdout/Stderr stay nil so the child writes to the null device and
	// cannot corrupt the terminal display.
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start %s", s.settings.Binary)
	}
	s.cmd = cmd
	go func() { _ = cmd.Wait() }()

	zlog.Info().Int("pid", cmd.Process.Pid).Msg("mpv: player process started")
	return nil
}

func (s *Session) waitForEndpoint(ctx context.Context) error {
	deadline := time.Now().Add(time.Duration(s.settings.StartTimeoutMs) * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for control endpoint")
		case <-time.After(endpointPollInterval):
		}
		if _, err := os.Stat(s.settings.SocketPath); err != nil {
			continue
		}
		if err := s.connect(); err == nil {
			return nil
		}
	}
	return errors.Newf("control endpoint %s did not appear within %dms",
		s.settings.SocketPath, s.settings.StartTimeoutMs)
}

func (s *Session) connect() error {
	if s.conn != nil {
		return nil
	}
	if _, err := os.Stat(s.settings.SocketPath); err != nil {
		return errors.Wrap(err, "control endpoint missing")
	}
	conn, err := net.DialTimeout("unix", s.settings.SocketPath, dialTimeout)
	if err != nil {
		return errors.Wrap(err, "failed to connect to control endpoint")
	}
	s.conn = conn
	s.buf.reset()

	// Subscribe so subsequent reads surface track-completion events.
	if err := s.writeCommand(conn, "observe_property", 1, "eof-reached"); err != nil {
		s.disconnect()
		return err
	}
	return nil
}

func (s *Session) writeCommand(w io.Writer, args ...any) error {
	data, err := encodeCommand(args...)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write command")
	}
	return nil
}

func (s *Session) sendOneShot(args ...any) error {
	conn, err := net.DialTimeout("unix", s.settings.SocketPath, dialTimeout)
	if err != nil {
		return errors.Wrap(err, "one-shot connect failed")
	}
	defer conn.Close()
	return s.writeCommand(conn, args...)
}

// readPending reads whatever is already buffered on the persistent
// connection without blocking. A would-block result is "nothing pending";
// any other error tears down the connection so the next command falls back
// or triggers a fresh EnsureStarted.
func (s *Session) readPending() ([]byte, bool) {
	if s.conn == nil {
		return nil, false
	}
	_ = s.conn.SetReadDeadline(time.Now())

	buf := make([]byte, readChunkSize)
	n, err := s.conn.Read(buf)
	if n > 0 {
		// A read error alongside data surfaces again on the next poll.
		return buf[:n], true
	}
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, false
		}
		zlog.Debug().Err(err).Msg("mpv: control connection lost")
		s.disconnect()
	}
	return nil, false
}

func (s *Session) disconnect() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.buf.reset()
}
