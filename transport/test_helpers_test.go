package transport

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// MockTimeProvider is a test implementation of TimeProvider for deterministic testing.
type MockTimeProvider struct {
	mu          sync.Mutex
	currentTime time.Time
}

func newMockTimeProvider() *MockTimeProvider {
	return &MockTimeProvider{currentTime: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the mock time.
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

// NewTicker creates a real ticker; only Now is simulated.
func (m *MockTimeProvider) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// Advance advances the mock time by the specified duration.
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }

// pipeSocket is an in-memory DatagramSocket. Datagrams pass through an
// optional filter that may rewrite them or return nil to drop them.
type pipeSocket struct {
	local pipeAddr
	peer  *pipeSocket
	in    chan []byte

	mu     sync.Mutex
	filter func([]byte) []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newPipePair() (*pipeSocket, *pipeSocket) {
	a := &pipeSocket{local: "pipe-a", in: make(chan []byte, 4096), closed: make(chan struct{})}
	b := &pipeSocket{local: "pipe-b", in: make(chan []byte, 4096), closed: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

// setFilter installs fn for datagrams sent from this socket.
func (s *pipeSocket) setFilter(fn func([]byte) []byte) {
	s.mu.Lock()
	s.filter = fn
	s.mu.Unlock()
}

func (s *pipeSocket) Send(data []byte) error {
	select {
	case <-s.closed:
		return net.ErrClosed
	default:
	}

	cp := append([]byte(nil), data...)
	s.mu.Lock()
	filter := s.filter
	s.mu.Unlock()
	if filter != nil {
		if cp = filter(cp); cp == nil {
			return nil
		}
	}

	// A full queue loses the datagram, like a real network would
	select {
	case s.peer.in <- cp:
	default:
	}
	return nil
}

func (s *pipeSocket) Receive(buf []byte) (int, error) {
	select {
	case d := <-s.in:
		return copy(buf, d), nil
	case <-s.closed:
		return 0, net.ErrClosed
	}
}

func (s *pipeSocket) LocalAddr() net.Addr  { return s.local }
func (s *pipeSocket) RemoteAddr() net.Addr { return s.peer.local }

func (s *pipeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func frameTypeOf(data []byte) FrameType {
	if len(data) < 9 {
		return 0
	}
	return FrameType(data[8])
}

// testConfig shortens the timers so tests finish quickly.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CloseTimeout = 500 * time.Millisecond
	return cfg
}

// newConnPair connects two Conns over an in-memory pipe and waits for both
// to reach ModeConnected.
func newConnPair(t testing.TB, cfg Config) (*Conn, *Conn, *pipeSocket, *pipeSocket) {
	t.Helper()

	sa, sb := newPipePair()
	a, err := NewConn(sa, cfg)
	require.NoError(t, err)
	b, err := NewConn(sb, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	require.NoError(t, a.Connect())
	require.NoError(t, b.Connect())
	require.Eventually(t, func() bool {
		return a.Mode() == ModeConnected && b.Mode() == ModeConnected
	}, 2*time.Second, 5*time.Millisecond)

	return a, b, sa, sb
}
