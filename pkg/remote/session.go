package remote

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/snapshot"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// SessionConfig configures a session.
type SessionConfig struct {
	// ReadTimeout bounds the wait for the next client frame. Heartbeats
	// keep an idle client inside it.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration

	// HeartbeatInterval is the ping period.
	HeartbeatInterval time.Duration

	// Frame is the time slice given to each engine callback.
	Frame time.Duration

	// ContainerTag is the tag of the mount element.
	ContainerTag string

	// Engine is passed to the session's engine.
	Engine engine.Config
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 25 * time.Second,
		Frame:             sched.DefaultFrame,
		ContainerTag:      "div",
		Engine:            engine.DefaultConfig(),
	}
}

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("remote: session closed")

// Session connects one client to its own engine. The engine and host run
// on the session's sched.Loop; the read loop hands events to it through
// Dispatch.
type Session struct {
	id     string
	conn   *websocket.Conn
	config SessionConfig
	logger *slog.Logger

	host   *Host
	loop   *sched.Loop
	engine *engine.Engine
	app    func() *vdom.VNode
	seq    uint64 // Loop goroutine only

	writeMu sync.Mutex
	done    chan struct{}
	closed  atomic.Bool

	events  atomic.Uint64
	batches atomic.Uint64
	sent    atomic.Uint64
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

func newSession(conn *websocket.Conn, app func() *vdom.VNode, config SessionConfig, logger *slog.Logger, metrics *engine.Metrics) *Session {
	id := generateSessionID()
	logger = logger.With("session_id", id)

	s := &Session{
		id:     id,
		conn:   conn,
		config: config,
		logger: logger,
		host:   NewHost(config.ContainerTag),
		app:    app,
		done:   make(chan struct{}),
	}
	s.loop = sched.NewLoop(sched.WithFrame(config.Frame), sched.WithLoopLogger(logger))
	s.engine = engine.New(s.host, s.loop,
		engine.WithConfig(config.Engine),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
		engine.OnCommit(s.sendBatch),
		engine.OnError(s.reportError),
	)
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Done returns a channel that's closed when the session is done.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Serve runs the session until the connection drops or ctx ends.
func (s *Session) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.Close()

	hello := &protocol.Hello{
		Version:   protocol.ProtocolVersion,
		SessionID: s.id,
		Root:      NodeID(s.host.Container()),
	}
	if err := s.writeFrame(protocol.NewFrame(protocol.FrameHello, protocol.EncodeHello(hello))); err != nil {
		return err
	}

	go s.loop.Run(ctx)
	go s.heartbeat(ctx)

	var mountErr error
	if err := s.loop.Do(ctx, func() {
		mountErr = s.engine.Mount(s.host.Container(), s.app())
	}); err != nil {
		return err
	}
	if mountErr != nil {
		return mountErr
	}

	s.logger.Info("session started")
	s.readLoop()
	return nil
}

// readLoop reads frames until the connection fails.
func (s *Session) readLoop() {
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Error("frame decode error", "error", err)
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEventFrame(frame.Payload)
		case protocol.FrameControl:
			s.handleControlFrame(frame.Payload)
		case protocol.FrameError:
			if m, err := protocol.DecodeErrorMessage(frame.Payload); err == nil {
				s.logger.Warn("client error", "code", m.Code, "message", m.Message)
			}
		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

func (s *Session) handleEventFrame(payload []byte) {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.logger.Error("event decode error", "error", err)
		s.sendError("", "invalid event", false)
		return
	}
	s.events.Add(1)

	ok := s.loop.Dispatch(func() {
		if !s.host.Dispatch(ev) {
			s.logger.Debug("event without listener", "node", ev.Node, "type", ev.Type)
		}
	})
	if !ok {
		s.sendError("", "event queue full", false)
	}
}

func (s *Session) handleControlFrame(payload []byte) {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Error("control decode error", "error", err)
		return
	}
	switch c.Type {
	case protocol.ControlPing:
		pong := &protocol.Control{Type: protocol.ControlPong, Timestamp: c.Timestamp}
		if err := s.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(pong))); err != nil {
			s.logger.Error("pong error", "error", err)
		}
	case protocol.ControlPong:
		s.logger.Debug("received pong")
	}
}

// sendBatch ships the mutations of one commit. It runs on the loop.
func (s *Session) sendBatch(info engine.CommitInfo) {
	s.seq++
	batch := &protocol.Batch{Seq: s.seq, Epoch: info.Epoch, Mutations: s.host.Take()}
	frames, err := batch.Frames()
	if err != nil {
		s.logger.Error("encode batch", "seq", batch.Seq, "error", err)
		s.sendError("", err.Error(), true)
		s.Close()
		return
	}
	for _, f := range frames {
		if err := s.writeFrame(f); err != nil {
			s.logger.Error("send batch", "seq", batch.Seq, "error", err)
			s.Close()
			return
		}
	}
	s.batches.Add(1)
	s.logger.Debug("sent batch",
		"seq", batch.Seq,
		"epoch", batch.Epoch,
		"mutations", len(batch.Mutations),
		"frames", len(frames))
}

// reportError forwards aborted passes to the client. It runs on the loop.
func (s *Session) reportError(err error) {
	s.sendError(engine.Code(err), err.Error(), false)
}

func (s *Session) sendError(code, message string, fatal bool) {
	m := &protocol.ErrorMessage{Code: code, Message: message, Fatal: fatal}
	if err := s.writeFrame(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(m))); err != nil {
		s.logger.Debug("error frame not sent", "error", err)
	}
}

func (s *Session) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ping := &protocol.Control{Type: protocol.ControlPing, Timestamp: uint64(time.Now().UnixMilli())}
			if err := s.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ping))); err != nil {
				return
			}
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) writeFrame(f *protocol.Frame) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	data := f.Encode()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	s.sent.Add(uint64(len(data)))
	return nil
}

// Capture snapshots the session's committed tree under key. It waits for
// the loop, so a commit in progress finishes first.
func (s *Session) Capture(ctx context.Context, key string) (*snapshot.Snapshot, error) {
	var snap *snapshot.Snapshot
	var cerr error
	err := s.loop.Do(ctx, func() {
		snap, cerr = snapshot.Capture(key, s.engine.Epoch(), s.host.Container())
	})
	if err != nil {
		return nil, err
	}
	return snap, cerr
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	s.loop.Stop()

	s.writeMu.Lock()
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()
	s.conn.Close()

	s.logger.Info("session closed",
		"events", s.events.Load(),
		"batches", s.batches.Load(),
		"bytes_sent", s.sent.Load())
}
