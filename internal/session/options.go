package session

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/protocol"
)

// DefaultQueueSize is the capacity of the outbound frame queue.
const DefaultQueueSize = 32

type options struct {
	secure         bool
	dialer         Dialer
	queueSize      int
	requestTimeout time.Duration
	logger         *zap.Logger
	observer       Observer
	onPrompt       func()
	onUnsolicited  func(*protocol.Envelope)
	tracerProvider trace.TracerProvider
}

func defaultOptions() options {
	return options{
		queueSize: DefaultQueueSize,
		observer:  nopObserver{},
	}
}

// Option configures a Session.
type Option func(*options)

// WithSecure selects the TLS endpoint.
func WithSecure(secure bool) Option {
	return func(o *options) { o.secure = secure }
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithQueueSize sets the outbound queue capacity. Values below 1 are ignored.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithRequestTimeout applies a deadline to Issue calls whose context has
// none. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the logger used by the session and its loops.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver installs instrumentation hooks.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithPairingPrompt registers a callback fired once when the display asks
// the user to accept the pairing request.
func WithPairingPrompt(fn func()) Option {
	return func(o *options) { o.onPrompt = fn }
}

// WithUnsolicitedHandler receives frames that match no pending request once
// the handshake is over. The handler runs on the reader goroutine and must
// not block.
func WithUnsolicitedHandler(fn func(*protocol.Envelope)) Option {
	return func(o *options) { o.onUnsolicited = fn }
}

// WithTracerProvider sets the provider for connect and issue spans. The
// global otel provider is used when unset.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}
