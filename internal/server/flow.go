package server

import (
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/shared"
)

// Result is the outcome of a flow. Exactly one of URL and Err is set.
type Result struct {
	URL string
	Err error
}

// Flow is a running callback worker. It owns the listener until it delivers a URL or spends its attempts.
type Flow struct {
	ln       net.Listener
	port     uint16
	page     []byte
	emitter  Emitter
	logger   *log.Logger
	accepted atomic.Int32
	done     chan Result
}

func newFlow(ln net.Listener, port uint16, page []byte, emitter Emitter, logger *log.Logger) *Flow {
	return &Flow{
		ln:      ln,
		port:    port,
		page:    page,
		emitter: emitter,
		logger:  logger,
		done:    make(chan Result, 1),
	}
}

// Port returns the bound port.
func (f *Flow) Port() uint16 {
	return f.port
}

// RedirectURI returns the loopback URL the identity provider should redirect to.
func (f *Flow) RedirectURI() string {
	return fmt.Sprintf("http://%s:%d/", LoopbackHost, f.port)
}

// Done receives exactly one [Result] when the worker exits and is then closed.
//
// The listener is already closed when the result is sent.
func (f *Flow) Done() <-chan Result {
	return f.done
}

// Accepted returns how many connections the worker has accepted so far.
func (f *Flow) Accepted() int {
	return int(f.accepted.Load())
}

func (f *Flow) serve() {
	result := f.run()
	f.ln.Close()
	f.done <- result
	close(f.done)
}

// run is the two-phase state machine: every attempt either serves the bridge page, drops the connection, or
// delivers the URL and ends the flow.
func (f *Flow) run() Result {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		conn, err := f.ln.Accept()
		if err != nil {
			f.logger.Debug("accept failed", "attempt", attempt, "error", err)
			continue
		}
		f.accepted.Add(1)

		if url, ok := f.handle(conn, attempt); ok {
			return Result{URL: url}
		}
	}

	f.logger.Info("no callback received", "attempts", MaxAttempts)
	return Result{Err: shared.ErrAttemptsExhausted}
}

func (f *Flow) handle(conn net.Conn, attempt int) (string, bool) {
	defer conn.Close()

	logger := f.logger.With("attempt", attempt, "remote", conn.RemoteAddr().String())

	raw, complete, err := readHead(conn)
	if err != nil {
		logger.Debug("dropping connection", "error", err)
		return "", false
	}
	if !complete {
		logger.Debug("dropping incomplete request", "bytes", len(raw), "limit", MaxRequestSize)
		return "", false
	}

	req, ok := parseRequest(raw)
	if !ok {
		logger.Debug("dropping malformed request", "bytes", len(raw))
		return "", false
	}

	if !req.isCallback() {
		logger.Debug("serving bridge page", "method", req.Method, "path", req.Path)
		f.respond(conn, logger, bridgeHeader(), f.page)
		return "", false
	}

	if req.FullURL == "" {
		logger.Debug("dropping callback without URL header", "header", FullURLHeader)
		return "", false
	}

	if err := f.emitter.Emit(CallbackEvent, req.FullURL); err != nil {
		logger.Warn("failed to publish callback", "event", CallbackEvent, "error", err)
	}

	f.respond(conn, logger, callbackHeader(), nil)
	logger.Info("callback delivered", "event", CallbackEvent)

	return req.FullURL, true
}

// respond is best-effort; the flow is finishing or moving on either way.
func (f *Flow) respond(conn net.Conn, logger *log.Logger, header http.Header, body []byte) {
	if err := writeResponse(conn, http.StatusOK, header, body); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}
