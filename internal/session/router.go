package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/logging"
	"github.com/muurk/webosctl/internal/protocol"
)

// errDuplicateID is returned when a correlation id is registered twice.
var errDuplicateID = errors.New("correlation id already pending")

// pendingMap correlates request ids with single-use delivery slots.
type pendingMap struct {
	mu    sync.Mutex
	slots map[string]chan *protocol.Envelope
}

func newPendingMap() *pendingMap {
	return &pendingMap{slots: make(map[string]chan *protocol.Envelope)}
}

// insert registers id and returns the slot its response will arrive on.
func (p *pendingMap) insert(id string) (<-chan *protocol.Envelope, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.slots[id]; ok {
		return nil, len(p.slots), fmt.Errorf("%w: %s", errDuplicateID, id)
	}
	slot := make(chan *protocol.Envelope, 1)
	p.slots[id] = slot
	return slot, len(p.slots), nil
}

// take removes id and returns its slot. The second result is false when id
// was never registered or was already taken.
func (p *pendingMap) take(id string) (chan *protocol.Envelope, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.slots[id]
	if ok {
		delete(p.slots, id)
	}
	return slot, len(p.slots), ok
}

// drain removes every entry and returns how many were abandoned.
func (p *pendingMap) drain() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.slots)
	clear(p.slots)
	return n
}

func (p *pendingMap) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// subscription is a consumer of unsolicited frames. stop is closed when the
// consumer goes away so a blocked delivery can give up.
type subscription struct {
	ch   chan *protocol.Envelope
	stop chan struct{}
}

// sink holds at most one unsolicited-frame subscription.
type sink struct {
	mu  sync.Mutex
	sub *subscription
}

// subscribe replaces the current subscription and returns a function that
// removes it.
func (s *sink) subscribe(ch chan *protocol.Envelope) func() {
	sub := &subscription{ch: ch, stop: make(chan struct{})}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.sub == sub {
				s.sub = nil
			}
			s.mu.Unlock()
			close(sub.stop)
		})
	}
}

func (s *sink) current() *subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

// link is the per-connection driver: one reader and one writer goroutine
// around a Conn. A link is never reused after it closes.
type link struct {
	conn     Conn
	remote   string
	outbound chan []byte
	done     chan struct{}

	closeOnce sync.Once
	cause     error
	wg        sync.WaitGroup
}

func newLink(conn Conn, remote string, queueSize int) *link {
	return &link{
		conn:     conn,
		remote:   remote,
		outbound: make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

// err returns why the link closed. Only valid after done is closed.
func (l *link) err() error {
	if l.cause == nil {
		return errs.ErrClosed
	}
	return l.cause
}

// closedError reports a call interrupted by link teardown.
func (l *link) closedError(op string) *errs.Error {
	return errs.NewConnectionError(op, "connection closed", l.err())
}

// writeLoop is the only writer on the connection, which keeps outbound
// frames in enqueue order.
func (s *Session) writeLoop(l *link) {
	defer l.wg.Done()

	for {
		select {
		case data := <-l.outbound:
			if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.teardown(l, errs.NewConnectionError("write", "failed to write frame", err))
				return
			}
			logging.LogFrame(s.log, "send", data)
		case <-l.done:
			return
		}
	}
}

// readLoop routes inbound frames until the stream ends.
func (s *Session) readLoop(l *link) {
	defer l.wg.Done()

	for {
		messageType, data, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
				// Closed locally; the cause is already recorded.
			default:
				s.log.Debug("Read loop ended", zap.Error(err))
			}
			s.teardown(l, errs.NewConnectionError("read", "connection closed", fmt.Errorf("%w: %w", errs.ErrClosed, err)))
			return
		}

		if messageType != websocket.TextMessage {
			s.log.Debug("Ignoring non-text frame", zap.Int("message_type", messageType))
			continue
		}

		logging.LogFrame(s.log, "recv", data)
		s.route(l, data)
	}
}

// route delivers one decoded frame to its pending caller or to the
// unsolicited sink.
func (s *Session) route(l *link, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		logging.LogUndecodable(s.log, data, err)
		s.opts.observer.FrameDropped("decode")
		return
	}

	if env.ID != "" {
		if slot, n, ok := s.pending.take(env.ID); ok {
			// Capacity 1 and a single taker, so this never blocks.
			slot <- env
			s.opts.observer.PendingChanged(n)
			return
		}
	}

	s.forwardUnsolicited(l, env)
}

func (s *Session) forwardUnsolicited(l *link, env *protocol.Envelope) {
	if sub := s.unsolicited.current(); sub != nil {
		select {
		case sub.ch <- env:
			s.opts.observer.UnsolicitedFrame(true)
		case <-sub.stop:
			s.opts.observer.UnsolicitedFrame(false)
		case <-l.done:
		}
		return
	}

	if s.opts.onUnsolicited != nil && State(s.state.Load()) == Ready {
		s.opts.onUnsolicited(env)
		s.opts.observer.UnsolicitedFrame(true)
		return
	}

	s.log.Debug("Discarding unsolicited frame", zap.String("id", env.ID), zap.String("type", string(env.Type)))
	s.opts.observer.UnsolicitedFrame(false)
}
