package emulator

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/logging"
)

// Config holds the emulator configuration. The env tags are read by
// LoadConfig.
type Config struct {
	Host   string `env:"HOST"`                  // Listen host, empty for all interfaces
	Port   int    `env:"PORT" envDefault:"3000"` // Listen port, 0 picks a free one
	Secure bool   `env:"SSL"`                   // Serve TLS with a generated self-signed certificate

	// ClientKey is issued on pairing. A random key is generated when empty.
	ClientKey string `env:"KEY"`
	// Reject makes the emulated user deny every pairing prompt.
	Reject bool `env:"REJECT"`
	// PromptDelay is how long the emulated user takes to accept.
	PromptDelay time.Duration `env:"PROMPT_DELAY" envDefault:"1s"`

	ModelName string `env:"MODEL"` // Reported by getSystemInfo
	MAC       string `env:"MAC"`   // Reported by connectionmanager/getinfo
}

// Display is an emulated webOS display serving the command socket, the
// pointer socket and a Prometheus endpoint on one listener.
type Display struct {
	config    Config
	log       *zap.Logger
	router    chi.Router
	upgrader  websocket.Upgrader
	tlsConfig *tls.Config
	metrics   *displayMetrics

	srv      *http.Server
	listener net.Listener
	closing  chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	state       *tvState
}

// New creates a Display. Call Start to begin serving.
func New(config Config) (*Display, error) {
	if config.ClientKey == "" {
		config.ClientKey = uuid.NewString()
	}
	if config.ModelName == "" {
		config.ModelName = "OLED55EMU"
	}
	if config.MAC == "" {
		config.MAC = "02:00:00:00:00:01"
	}

	d := &Display{
		config:      config,
		log:         logging.GetLogger().With(zap.String("component", "emulator")),
		closing:     make(chan struct{}),
		activeConns: make(map[string]*websocket.Conn),
		state:       newTVState(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	if config.Secure {
		cert, err := generateCertificate([]string{config.Host, "localhost", "127.0.0.1", "::1"})
		if err != nil {
			return nil, fmt.Errorf("failed to generate certificate: %w", err)
		}
		d.tlsConfig = newTLSConfig(cert)
	}

	reg := prometheus.NewRegistry()
	d.metrics = newDisplayMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", d.handleControl)
	r.Get("/resources/{token}/netinput.pointer.sock", d.handlePointer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	d.router = r

	return d, nil
}

// Handler returns the HTTP handler, for mounting in tests.
func (d *Display) Handler() http.Handler { return d.router }

// ClientKey returns the key issued on pairing.
func (d *Display) ClientKey() string { return d.config.ClientKey }

// Start listens and serves in the background.
func (d *Display) Start() error {
	addr := net.JoinHostPort(d.config.Host, strconv.Itoa(d.config.Port))

	var (
		ln  net.Listener
		err error
	)
	if d.tlsConfig != nil {
		ln, err = tls.Listen("tcp", addr, d.tlsConfig)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	d.listener = ln
	d.srv = &http.Server{Handler: d.router, ReadHeaderTimeout: 10 * time.Second}

	d.log.Info("Emulated display listening",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("secure", d.tlsConfig != nil),
		zap.String("model", d.config.ModelName),
	)

	go func() {
		if err := d.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("Serve failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listening address, or "" before Start.
func (d *Display) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Port returns the listening port, or 0 before Start.
func (d *Display) Port() int {
	if d.listener == nil {
		return 0
	}
	if tcp, ok := d.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Shutdown stops accepting connections, closes the open sockets and waits
// for their handlers to return.
func (d *Display) Shutdown(ctx context.Context) error {
	d.once.Do(func() { close(d.closing) })

	var err error
	if d.srv != nil {
		err = d.srv.Shutdown(ctx)
	}

	d.mu.Lock()
	for addr, conn := range d.activeConns {
		d.log.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.log.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}
	return err
}

// ActiveConnections returns the number of open sockets.
func (d *Display) ActiveConnections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.activeConns)
}

// Buttons returns the pointer-socket presses received so far.
func (d *Display) Buttons() []string {
	return d.state.pressed()
}

// Volume returns the current emulated volume.
func (d *Display) Volume() int {
	return d.state.volumeLevel()
}

// upgrade switches r to a WebSocket and tracks it until release is called.
func (d *Display) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, func(), bool) {
	select {
	case <-d.closing:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return nil, nil, false
	default:
	}

	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Warn("Upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return nil, nil, false
	}

	key := r.RemoteAddr + r.URL.Path
	if !d.track(key, conn) {
		_ = conn.Close()
		return nil, nil, false
	}
	logging.LogConnection(d.log, r.RemoteAddr, "socket opened "+r.URL.Path)

	release := func() {
		_ = conn.Close()
		d.mu.Lock()
		delete(d.activeConns, key)
		d.mu.Unlock()
		logging.LogConnection(d.log, r.RemoteAddr, "socket closed "+r.URL.Path)
		d.wg.Done()
	}
	return conn, release, true
}

// track registers conn for Shutdown. It refuses once Shutdown has begun, so
// wg.Add never races wg.Wait.
func (d *Display) track(key string, conn *websocket.Conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.closing:
		return false
	default:
	}
	d.activeConns[key] = conn
	d.wg.Add(1)
	return true
}

// pointerURL returns the socketPath handed out by getPointerInputSocket.
func (d *Display) pointerURL(host string) string {
	scheme := "ws"
	if d.tlsConfig != nil {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/resources/%s/netinput.pointer.sock", scheme, host, uuid.NewString())
}

type displayMetrics struct {
	registrations *prometheus.CounterVec
	requests      *prometheus.CounterVec
	buttons       prometheus.Counter
}

func newDisplayMetrics(reg prometheus.Registerer) *displayMetrics {
	factory := promauto.With(reg)
	return &displayMetrics{
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webosctl_emulator_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webosctl_emulator_requests_total",
			Help: "Requests received by URI.",
		}, []string{"uri"}),
		buttons: factory.NewCounter(prometheus.CounterOpts{
			Name: "webosctl_emulator_buttons_total",
			Help: "Pointer socket button frames received.",
		}),
	}
}
