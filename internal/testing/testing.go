// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// Event is one call recorded by [MockEmitter].
type Event struct {
	Name    string
	Payload string
}

// MockEmitter records emitted events and returns Err from every Emit call.
type MockEmitter struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (m *MockEmitter) Emit(event, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{Name: event, Payload: payload})
	return m.Err
}

// Events returns a copy of the recorded events.
func (m *MockEmitter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// ChunkReader returns one chunk per Read call, then io.EOF.
type ChunkReader struct {
	Chunks [][]byte
}

func (c *ChunkReader) Read(p []byte) (int, error) {
	if len(c.Chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.Chunks[0])
	c.Chunks[0] = c.Chunks[0][n:]
	if len(c.Chunks[0]) == 0 {
		c.Chunks = c.Chunks[1:]
	}
	return n, nil
}

// NewDiscardLogger returns a [log.Logger] that writes nowhere.
func NewDiscardLogger() *log.Logger {
	return log.New(io.Discard)
}

// MustDial opens a TCP connection to addr with a short deadline for the whole exchange.
func MustDial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", addr, err)
	}
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return conn
}

// FreePort returns a loopback port that was free a moment ago.
func FreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
