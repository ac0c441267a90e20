package server

import (
	"fmt"
	"net"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/shared"
)

const (
	// LoopbackHost is the only interface the listener binds.
	LoopbackHost = "127.0.0.1"
	// CallbackPath receives the URL posted by the bridge page.
	CallbackPath = "/cb"
	// FullURLHeader carries the complete browser URL, fragment included.
	FullURLHeader = "Full-Url"
	// CallbackEvent is published with the captured URL as payload.
	CallbackEvent = "oauth-callback"
	// MaxRequestSize bounds how much of each request is read.
	MaxRequestSize = 4096
	// MaxAttempts is the number of connections a flow accepts before giving up.
	MaxAttempts = 2
)

// Emitter publishes named events to the embedding application.
type Emitter interface {
	Emit(event, payload string) error
}

// EmitterFunc adapts a function to [Emitter].
type EmitterFunc func(event, payload string) error

// Emit calls f(event, payload).
func (f EmitterFunc) Emit(event, payload string) error {
	return f(event, payload)
}

var discard = EmitterFunc(func(string, string) error { return nil })

// LauncherOpts configures a [Launcher].
type LauncherOpts struct {
	// Port must match the redirect URI registered with the identity provider. Zero binds an ephemeral port.
	Port uint16
	// AppName is shown on the bridge page.
	AppName string
	Emitter Emitter
	Logger  *log.Logger
}

// Launcher binds the loopback port and starts the callback worker.
type Launcher struct {
	port    uint16
	appName string
	emitter Emitter
	logger  *log.Logger
}

// NewLauncher creates a [Launcher] from opts, filling in a discarding emitter and a default logger.
func NewLauncher(opts LauncherOpts) *Launcher {
	if opts.Emitter == nil {
		opts.Emitter = discard
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.AppName == "" {
		opts.AppName = "the application"
	}

	return &Launcher{
		port:    opts.Port,
		appName: opts.AppName,
		emitter: opts.Emitter,
		logger:  opts.Logger,
	}
}

// Start binds 127.0.0.1 on the configured port and hands the socket to a background worker.
//
// It never retries or tries another port. A bind failure is returned with the port and the OS reason, wrapped in
// [shared.ErrBindFailed], and no worker is started. Calling Start again while a flow is running is not guarded here.
func (l *Launcher) Start() (*Flow, error) {
	addr := net.JoinHostPort(LoopbackHost, strconv.Itoa(int(l.port)))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %w", shared.ErrBindFailed, l.port, err)
	}

	port := uint16(ln.Addr().(*net.TCPAddr).Port)

	page, err := renderBridge(port, l.appName)
	if err != nil {
		ln.Close()
		return nil, err
	}

	flow := newFlow(ln, port, page, l.emitter, shared.WithLogger(l.logger, "port", port))
	l.logger.Info("listening for OAuth redirect", "addr", ln.Addr().String())

	go flow.serve()

	return flow, nil
}
