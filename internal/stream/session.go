package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angsh-d/clinops-intel-sub000/internal/metrics"
	"github.com/angsh-d/clinops-intel-sub000/internal/models"
)

// ErrClosedBeforeCompletion reports a stream that ended before the
// investigation reached a terminal frame. It covers server-side closes,
// dropped connections, and explicit Close calls alike; network failures wrap
// it with the underlying read error.
var ErrClosedBeforeCompletion = errors.New("stream closed before investigation completed")

const defaultHandshakeTimeout = 10 * time.Second

// State identifies where a session sits in its lifecycle. Terminal is
// absorbing: once reached, no further callbacks fire and Close is a no-op.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Handlers receive investigation progress. All callbacks run on the session's
// reader goroutine, so phase updates arrive in wire order and the terminal
// callback runs strictly after every phase callback. Exactly one of
// OnComplete or OnError fires per session. Nil handlers are skipped.
type Handlers struct {
	OnPhase    func(models.PhaseUpdate)
	OnComplete func(*models.InvestigationResult)
	OnError    func(error)
}

// Invalidator evicts cached dashboard responses once an investigation
// completes and fresh data is worth refetching.
type Invalidator interface {
	InvalidateCache()
}

// Options tune a session. The zero value is usable.
type Options struct {
	// HandshakeTimeout bounds the websocket upgrade. Defaults to 10s.
	HandshakeTimeout time.Duration
	// Invalidator, when set, is called exactly once before OnComplete so the
	// completion handler already observes an empty cache. Error and close
	// outcomes never invalidate.
	Invalidator Invalidator
	// Logger receives malformed-frame warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Session is a live subscription to one investigation's progress stream.
// A single reader goroutine drains the connection and dispatches callbacks,
// and a guarded state transition guarantees the terminal callback fires
// exactly once no matter which trigger wins: a completion frame, an error
// frame, or the connection closing early.
type Session struct {
	conn    *websocket.Conn
	queryID string

	handlers Handlers
	inval    Invalidator
	logger   *slog.Logger

	mu    sync.Mutex
	state State

	done chan struct{}
}

// frame is the wire shape of one stream message. A non-empty Error outranks
// Phase when both are set.
type frame struct {
	Error        string                     `json:"error"`
	Phase        string                     `json:"phase"`
	AgentID      string                     `json:"agent_id"`
	Message      string                     `json:"message"`
	Data         json.RawMessage            `json:"data"`
	Synthesis    models.Synthesis           `json:"synthesis"`
	AgentOutputs map[string]json.RawMessage `json:"agent_outputs"`
}

// Open dials the investigation stream at rawURL and starts reading frames.
// The context bounds the handshake only; a session's lifetime is managed
// through Close and Done. Dial failures are returned synchronously and no
// handler is invoked for them.
func Open(ctx context.Context, rawURL string, h Handlers, opts Options) (*Session, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}

	s := &Session{
		queryID:  path.Base(u.Path),
		handlers: h,
		inval:    opts.Invalidator,
		logger:   opts.Logger,
		state:    StateConnecting,
		done:     make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	conn, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("stream handshake rejected with %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial stream: %w", err)
	}

	s.conn = conn
	s.mu.Lock()
	s.state = StateOpen
	s.mu.Unlock()

	go s.readLoop()
	return s, nil
}

// QueryID returns the investigation id this session is subscribed to.
func (s *Session) QueryID() string {
	return s.queryID
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed after the terminal callback has returned. Waiting on it
// guarantees every handler invocation for this session has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close tears down the connection. Called before the stream terminates it
// surfaces ErrClosedBeforeCompletion through OnError; called afterwards it
// does nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	terminal := s.state == StateTerminal
	s.mu.Unlock()
	if terminal {
		return nil
	}
	return s.conn.Close()
}

// readLoop drains frames until a terminal trigger fires. Running callbacks
// on this one goroutine is what keeps phase order intact.
func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.terminate(func() {
				if s.handlers.OnError != nil {
					s.handlers.OnError(closeError(err))
				}
			})
			return
		}
		if s.handleFrame(data) {
			return
		}
	}
}

// handleFrame dispatches one frame and reports whether it was terminal.
func (s *Session) handleFrame(data []byte) bool {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		metrics.ObserveStreamFrame(metrics.FrameMalformed)
		s.logger.Warn("dropping malformed stream frame",
			"query_id", s.queryID,
			"error", err,
		)
		return false
	}

	// Error wins over phase so a frame carrying both never reports success.
	if f.Error != "" {
		metrics.ObserveStreamFrame(metrics.FrameError)
		s.terminate(func() {
			if s.handlers.OnError != nil {
				s.handlers.OnError(fmt.Errorf("investigation %s failed: %s", s.queryID, f.Error))
			}
		})
		return true
	}

	if f.Phase == "" {
		metrics.ObserveStreamFrame(metrics.FrameMalformed)
		s.logger.Warn("dropping stream frame without phase or error",
			"query_id", s.queryID,
		)
		return false
	}

	if f.Phase == models.PhaseComplete {
		metrics.ObserveStreamFrame(metrics.FrameComplete)
		result := &models.InvestigationResult{
			QueryID:      s.queryID,
			Synthesis:    f.Synthesis,
			AgentOutputs: f.AgentOutputs,
			Raw:          append([]byte(nil), data...),
		}
		s.terminate(func() {
			if s.inval != nil {
				s.inval.InvalidateCache()
			}
			if s.handlers.OnComplete != nil {
				s.handlers.OnComplete(result)
			}
		})
		return true
	}

	if f.Phase == models.PhaseInfo {
		metrics.ObserveStreamFrame(metrics.FrameInfo)
	} else {
		metrics.ObserveStreamFrame(metrics.FramePhase)
	}
	if s.handlers.OnPhase != nil {
		s.handlers.OnPhase(models.PhaseUpdate{
			Phase:   f.Phase,
			AgentID: f.AgentID,
			Message: f.Message,
			Data:    f.Data,
		})
	}
	return false
}

// terminate moves the session to its terminal state and runs fn, exactly
// once across all triggers. The callback runs without the lock held so
// handlers may call back into the session, and done closes only after the
// callback returns.
func (s *Session) terminate(fn func()) {
	s.mu.Lock()
	if s.state == StateTerminal {
		s.mu.Unlock()
		return
	}
	s.state = StateTerminal
	s.mu.Unlock()

	fn()
	close(s.done)
	s.conn.Close()
}

// closeError maps a read failure to the synthetic early-close error. Clean
// closes, local or remote, yield the bare sentinel; anything else keeps the
// underlying detail.
func closeError(readErr error) error {
	if websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(readErr, net.ErrClosed) {
		return ErrClosedBeforeCompletion
	}
	return fmt.Errorf("%w: %v", ErrClosedBeforeCompletion, readErr)
}
