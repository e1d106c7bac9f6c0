package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/illgrenoble/webx-session-manager/internal/events"
	"github.com/illgrenoble/webx-session-manager/internal/session"
	"github.com/illgrenoble/webx-session-manager/internal/telemetry"
)

// Engine is the subset of *session.Engine the server drives. Declared
// here (rather than imported as the concrete type) so tests can swap in
// a fake, the same shrink-the-interface-at-point-of-use pattern the
// engine package itself uses for its own collaborators.
type Engine interface {
	Create(creds session.Credentials, resolution session.ScreenResolution) (session.Session, error)
	List() []session.Session
	Terminate(id uuid.UUID) error
	Drain() []session.Session
	ReapTick() []session.Session
}

// Server listens on a Unix domain socket and answers login/who/logout
// requests against an Engine, reaping dead sessions on a fixed tick.
// Grounded on the teacher's cmd/gc/controller.go
// startControllerSocket/handleControllerConn pair: a net.Listen("unix",
// ...) accept loop spawning one goroutine per connection, plus a
// time.Ticker running alongside it — here the ticker drives
// Engine.ReapTick instead of a config-reload flag.
type Server struct {
	SocketPath  string
	SocketOwner int // uid to chown the socket to, conventionally the service user
	SocketGroup int
	ReapPeriod  time.Duration // defaults to 1s if zero

	engine   Engine
	encoder  Encoder
	recorder events.Recorder
	stderr   io.Writer
}

// NewServer returns a Server ready to [Server.Serve]. rec and stderr may
// be nil/zero-valued stand-ins; NewServer substitutes
// events.Discard/io.Discard respectively.
func NewServer(socketPath string, engine Engine, rec events.Recorder, stderr io.Writer) *Server {
	if rec == nil {
		rec = events.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Server{
		SocketPath: socketPath,
		ReapPeriod: time.Second,
		engine:     engine,
		encoder:    NewEncoder(),
		recorder:   rec,
		stderr:     stderr,
	}
}

// Serve listens on SocketPath, chowns it to SocketOwner:SocketGroup, and
// accepts connections until ctx is canceled. It removes a stale socket
// left by a previous crash before binding, and unlinks its own socket on
// return. Blocking; run it in a goroutine and cancel ctx to stop it.
func (s *Server) Serve(ctx context.Context) error {
	os.Remove(s.SocketPath) //nolint:errcheck // stale socket cleanup

	lis, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("ipc: listening on %s: %w", s.SocketPath, err)
	}
	defer lis.Close()              //nolint:errcheck // best-effort cleanup
	defer os.Remove(s.SocketPath) //nolint:errcheck // best-effort cleanup

	if s.SocketOwner != 0 || s.SocketGroup != 0 {
		if err := os.Chown(s.SocketPath, s.SocketOwner, s.SocketGroup); err != nil {
			return fmt.Errorf("ipc: chown %s: %w", s.SocketPath, err)
		}
	}

	period := s.ReapPeriod
	if period <= 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				for _, reaped := range s.engine.ReapTick() {
					s.recorder.Record(events.Event{
						Type:    events.SessionReaped,
						Actor:   "session-manager",
						Subject: reaped.Username,
					})
					telemetry.RecordReap(ctx, reaped.Username)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		lis.Close() //nolint:errcheck // unblocks Accept
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if errListenerClosed(err) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("ipc: accept: %w", err)
			}
		}
		go s.handleConn(conn)
	}
}

// handleConn answers every request on conn as a newline-delimited JSON
// line until the client disconnects, a line exceeds 1 MiB, or a response
// cannot be encoded or written. A malformed line gets an error response
// and the connection stays open.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close() //nolint:errcheck // best-effort cleanup

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.handleLine(line)
		raw, err := s.encoder.Encode(resp)
		if err != nil {
			fmt.Fprintf(s.stderr, "ipc: encoding response: %v\n", err) //nolint:errcheck // best-effort stderr
			return
		}
		if _, err := conn.Write(append(raw, '\n')); err != nil {
			return
		}
	}
}

// handleLine decodes and dispatches a single request line, translating
// domain errors into error Responses rather than propagating them.
func (s *Server) handleLine(line []byte) Response {
	req, err := s.encoder.Decode(line)
	if err != nil {
		return NewErrorResponse(session.TransportError("decoding request: %v", err))
	}

	switch req.Kind {
	case RequestLogin:
		return s.handleLogin(req.Login)
	case RequestWho:
		return s.handleWho()
	case RequestLogout:
		return s.handleLogout(req.Logout)
	default:
		return NewErrorResponse(session.TransportError("unhandled request kind %q", req.Kind))
	}
}

func (s *Server) handleLogin(c *LoginContent) Response {
	if c == nil {
		return NewErrorResponse(session.TransportError("login request missing content"))
	}
	ctx := context.Background()
	creds := session.NewCredentials(c.Username, c.Password)
	resolution := session.ScreenResolution{Width: c.Width, Height: c.Height}

	start := time.Now()
	sess, err := s.engine.Create(creds, resolution)
	durationMs := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		s.recorder.Record(events.Event{
			Type:    events.AuthenticationFailed,
			Actor:   "session-manager",
			Subject: c.Username,
			Message: err.Error(),
		})
		telemetry.RecordLogin(ctx, c.Username, durationMs, err)
		telemetry.RecordAuthFailure(ctx, c.Username, err.Error())
		return NewErrorResponse(err)
	}

	if sess.CreatedAt.Before(start) {
		s.recorder.Record(events.Event{
			Type:    events.SessionLoginIdempotent,
			Actor:   "session-manager",
			Subject: sess.Username,
		})
		telemetry.RecordLoginIdempotent(ctx, sess.Username)
	} else {
		s.recorder.Record(events.Event{
			Type:    events.SessionCreated,
			Actor:   "session-manager",
			Subject: sess.Username,
		})
	}
	telemetry.RecordLogin(ctx, sess.Username, durationMs, nil)
	return Response{Kind: ResponseLogin, Login: sess.ToView()}
}

func (s *Server) handleWho() Response {
	sessions := s.engine.List()
	views := make([]session.View, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sess.ToView())
	}
	return Response{Kind: ResponseWho, Who: views}
}

func (s *Server) handleLogout(c *LogoutContent) Response {
	if c == nil {
		return NewErrorResponse(session.TransportError("logout request missing content"))
	}
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return NewErrorResponse(session.TransportError("malformed session id %q: %v", c.ID, err))
	}
	username := c.ID
	for _, sess := range s.engine.List() {
		if sess.ID == id {
			username = sess.Username
			break
		}
	}
	if err := s.engine.Terminate(id); err != nil {
		return NewErrorResponse(err)
	}
	s.recorder.Record(events.Event{
		Type:    events.SessionTerminated,
		Actor:   "session-manager",
		Subject: c.ID,
	})
	telemetry.RecordTermination(context.Background(), username, nil)
	return Response{Kind: ResponseLogout}
}

// errListenerClosed matches net.ErrClosed across Go versions for Accept
// loop teardown.
func errListenerClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
