package session

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/logging"
	"github.com/muurk/webosctl/internal/protocol"
)

// closeGrace bounds the close frame written by Close.
const closeGrace = time.Second

// Request is one outbound command.
type Request struct {
	// Kind defaults to protocol.KindRequest.
	Kind protocol.Kind
	URI  string
	// Payload is marshalled to JSON; nil omits it.
	Payload any
	// Prefix is prepended to the correlation id as "prefix_N".
	Prefix string
}

// Session is a caller's handle on one display. It is safe for concurrent
// use; Issue may be called from any number of goroutines once Ready.
type Session struct {
	id     string
	opts   options
	dialer Dialer
	log    *zap.Logger
	tracer trace.Tracer

	state   atomic.Int32
	counter atomic.Uint64

	pending     *pendingMap
	unsolicited sink

	mu        sync.Mutex
	cred      Credential
	link      *link
	lastClose error
}

// New creates a disconnected session for the display described by cred.
func New(cred Credential, opts ...Option) (*Session, error) {
	if cred.Target() == "" {
		return nil, errs.NewConnectionError("new", "credential has no ip or hostname", errs.ErrNoTarget)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		id:      uuid.NewString(),
		opts:    o,
		dialer:  o.dialer,
		pending: newPendingMap(),
		cred:    cred,
	}
	if s.dialer == nil {
		s.dialer = NewWebSocketDialer()
	}
	s.tracer = newTracer(o.tracerProvider)

	base := o.logger
	if base == nil {
		base = logging.GetLogger()
	}
	s.log = base.With(
		zap.String("session", s.id),
		zap.String("remote_addr", cred.Target()),
	)

	return s, nil
}

// ID returns the session's unique identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// ClientKey returns the key stored on the credential.
func (s *Session) ClientKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred.ClientKey
}

// Credential returns a copy of the session credential, including a key
// obtained by the last handshake.
func (s *Session) Credential() Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// Pending returns the number of requests awaiting a response.
func (s *Session) Pending() int { return s.pending.len() }

// Connect dials the display and performs the pairing handshake. It returns
// once the session is Ready or the attempt has failed; on failure the
// session is Disconnected and Connect may be called again.
func (s *Session) Connect(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "webos.connect",
		attribute.Bool("webos.secure", s.opts.secure),
	)
	defer span.End()

	err := s.connect(ctx)
	endSpan(span, err)
	return err
}

func (s *Session) connect(ctx context.Context) error {
	if !s.transition(Disconnected, Connecting) {
		return errs.NewConnectionError("connect", "session already connected", errs.ErrAlreadyActive)
	}

	s.mu.Lock()
	s.lastClose = nil
	target := s.cred.Target()
	s.mu.Unlock()

	logging.LogSessionEvent(s.log, "dialing")
	conn, err := s.dialer.Dial(ctx, target, s.opts.secure)
	if err != nil {
		s.transition(Connecting, Disconnected)
		if errs.IsConnectionError(err) {
			return err
		}
		return errs.ClassifyDialError(err, target)
	}

	l := newLink(conn, target, s.opts.queueSize)
	s.mu.Lock()
	s.link = l
	s.mu.Unlock()

	l.wg.Add(2)
	go s.readLoop(l)
	go s.writeLoop(l)

	if !s.transition(Connecting, Handshaking) {
		s.teardown(l, errs.NewConnectionError("connect", "connection lost", errs.ErrClosed))
		return l.closedError("connect")
	}

	key, err := s.handshake(ctx, l)
	if err != nil {
		s.teardown(l, err)
		return err
	}

	s.mu.Lock()
	s.cred.ClientKey = key
	s.mu.Unlock()

	if !s.transition(Handshaking, Ready) {
		return l.closedError("connect")
	}

	logging.LogSessionEvent(s.log, "ready")
	return nil
}

// Issue sends req and waits for the response carrying its correlation id.
//
// A device-reported failure is returned as a normal envelope; use
// Envelope.DeviceError to inspect it.
func (s *Session) Issue(ctx context.Context, req Request) (*protocol.Envelope, error) {
	if req.Kind == "" {
		req.Kind = protocol.KindRequest
	}
	ctx, span := s.startSpan(ctx, "webos.issue",
		attribute.String("webos.uri", req.URI),
		attribute.String("webos.kind", string(req.Kind)),
	)
	defer span.End()

	env, err := s.issue(ctx, req)
	if err == nil {
		span.SetAttributes(attribute.String("webos.id", env.ID))
		if devErr := env.DeviceError(); devErr != nil {
			endSpan(span, devErr)
			return env, nil
		}
	}
	endSpan(span, err)
	return env, err
}

func (s *Session) issue(ctx context.Context, req Request) (*protocol.Envelope, error) {
	if req.Prefix == protocol.RegisterPrefix {
		return nil, errs.NewCommandError("issue", "prefix "+req.Prefix+" is used by registration", errs.ErrReservedPrefix)
	}

	l, err := s.readyLink()
	if err != nil {
		return nil, err
	}

	if s.opts.requestTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.requestTimeout)
			defer cancel()
		}
	}

	kind := req.Kind
	if kind == "" {
		kind = protocol.KindRequest
	}

	id := s.nextID(req.Prefix)
	env, err := protocol.NewRequest(id, kind, req.URI, req.Payload)
	if err != nil {
		return nil, errs.NewCommandError("issue", "invalid request", err)
	}
	data, err := env.Encode()
	if err != nil {
		return nil, errs.NewCommandError("issue", "invalid request", err)
	}

	slot, n, err := s.pending.insert(id)
	if err != nil {
		return nil, errs.NewCommandError("issue", "failed to register request", err)
	}
	s.opts.observer.PendingChanged(n)
	defer s.prune(id)

	s.opts.observer.RequestIssued(req.URI)
	start := time.Now()

	select {
	case l.outbound <- data:
	case <-l.done:
		s.opts.observer.RequestAbandoned(req.URI, "closed")
		return nil, l.closedError("issue")
	case <-ctx.Done():
		s.opts.observer.RequestAbandoned(req.URI, "context")
		return nil, errs.NewCommandError("issue", "request not sent", ctx.Err())
	}

	select {
	case resp := <-slot:
		s.opts.observer.RequestCompleted(req.URI, time.Since(start))
		return resp, nil
	case <-ctx.Done():
		s.opts.observer.RequestAbandoned(req.URI, "context")
		return nil, errs.NewCommandError("issue", "no response received", ctx.Err())
	case <-l.done:
		// The response may have been routed just before teardown.
		select {
		case resp := <-slot:
			s.opts.observer.RequestCompleted(req.URI, time.Since(start))
			return resp, nil
		default:
		}
		s.opts.observer.RequestAbandoned(req.URI, "closed")
		return nil, l.closedError("issue")
	}
}

// Request issues a "request" envelope and returns the response payload, or
// an empty object when the response has none.
func (s *Session) Request(ctx context.Context, uri string, payload any, prefix string) (json.RawMessage, error) {
	resp, err := s.Issue(ctx, Request{Kind: protocol.KindRequest, URI: uri, Payload: payload, Prefix: prefix})
	if err != nil {
		return nil, err
	}
	return resp.PayloadOrEmpty(), nil
}

// Close ends the connection. Callers waiting in Issue return a
// ConnectionError. Close on a disconnected session is a no-op. It must not
// be called from an unsolicited handler.
func (s *Session) Close() error {
	s.mu.Lock()
	l := s.link
	s.mu.Unlock()
	if l == nil {
		return nil
	}

	if cw, ok := l.conn.(interface {
		WriteControl(messageType int, data []byte, deadline time.Time) error
	}); ok {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = cw.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	}

	s.teardown(l, errs.NewConnectionError("close", "session closed", errs.ErrClosed))
	l.wg.Wait()
	return nil
}

// teardown closes l once: it stops both loops, closes the stream, abandons
// pending requests and returns the session to Disconnected.
func (s *Session) teardown(l *link, cause error) {
	l.closeOnce.Do(func() {
		l.cause = cause
		close(l.done)
		_ = l.conn.Close()

		if n := s.pending.drain(); n > 0 {
			s.log.Debug("Abandoned pending requests", zap.Int("count", n))
			s.opts.observer.PendingChanged(0)
		}

		// A racing Handshaking → Ready either lands before the swap or fails.
		s.mu.Lock()
		from := State(s.state.Swap(int32(Disconnected)))
		if s.link == l {
			s.link = nil
		}
		if from == Ready {
			s.lastClose = l.err()
		}
		s.mu.Unlock()

		s.stateChanged(from, Disconnected)
		logging.LogSessionEvent(s.log, "closed")
	})
}

// readyLink returns the live link, failing fast when the session is not
// Ready.
func (s *Session) readyLink() (*link, error) {
	s.mu.Lock()
	l, lastClose, state := s.link, s.lastClose, s.State()
	s.mu.Unlock()

	if state != Ready || l == nil {
		if lastClose != nil && state == Disconnected {
			return nil, errs.NewConnectionError("issue", "connection closed", lastClose)
		}
		return nil, errs.NewCommandError("issue", "handshake not completed", errs.ErrNotReady)
	}
	return l, nil
}

func (s *Session) nextID(prefix string) string {
	n := strconv.FormatUint(s.counter.Add(1)-1, 10)
	if prefix == "" {
		return n
	}
	return prefix + "_" + n
}

func (s *Session) prune(id string) {
	if _, n, ok := s.pending.take(id); ok {
		s.opts.observer.PendingChanged(n)
	}
}

func (s *Session) transition(from, to State) bool {
	if !s.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	s.opts.observer.StateChanged(from, to)
	s.log.Debug("State changed", zap.Stringer("from", from), zap.Stringer("to", to))
	return true
}

func (s *Session) stateChanged(from, to State) {
	if from != to {
		s.opts.observer.StateChanged(from, to)
		s.log.Debug("State changed", zap.Stringer("from", from), zap.Stringer("to", to))
	}
}
