package transport

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/opd-ai/seqlink/sequence"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/tomb.v1"
)

// Mode is the peer-tracking state of a Conn.
type Mode uint8

const (
	// ModeWaiting adopts the peer id of every frame it receives
	ModeWaiting Mode = iota
	// ModeConnected accepts frames from the adopted peer id only
	ModeConnected
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeWaiting:
		return "waiting"
	case ModeConnected:
		return "connected"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// outboundSlot is a sent chunk kept until the peer acknowledges it.
type outboundSlot struct {
	data         []byte
	acknowledged bool
}

// Conn is a reliable, ordered byte stream over a DatagramSocket. It
// implements net.Conn.
//
// Every PUSH is retained in the outbound window until acknowledged and is
// retransmitted by Update. Incoming PUSH frames are reordered in the
// inbound window and appended to the read stream in sequence order.
type Conn struct {
	sock        DatagramSocket
	cfg         Config
	localPeerID uint64

	// mu guards everything below and is the lock of cond. When a window
	// lock is also needed it is always taken after mu.
	mu           sync.Mutex
	cond         *sync.Cond
	remotePeerID uint64
	sessionPeer  uint64
	mode         Mode
	peerGone     bool
	closing      bool
	closed       bool
	lastSend     time.Time
	timeProvider TimeProvider

	outbound *sequence.Window[*outboundSlot]
	inbound  *sequence.Window[[]byte]

	stream    deque.Deque[[]byte]
	streamLen int

	// writing is held by the Flush whose chunks are being reserved, so the
	// chunks of one Flush stay contiguous
	writing bool

	deadlineMu    sync.RWMutex
	readDeadline  time.Time
	writeDeadline time.Time

	death     tomb.Tomb
	closeOnce sync.Once
	closeErr  error

	dropLimiter *rate.Limiter
	stats       counters
}

var _ net.Conn = (*Conn)(nil)

// NewConn creates a Conn over sock and starts its receive loop. The Conn
// starts in ModeWaiting; call Connect to announce it to the peer.
func NewConn(sock DatagramSocket, cfg Config) (*Conn, error) {
	logrus.WithFields(logrus.Fields{
		"function":        "NewConn",
		"window_capacity": cfg.WindowCapacity,
		"mtu":             cfg.MTU,
	}).Info("Creating reliable connection")

	if sock == nil {
		return nil, ErrNilSocket
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}

	peerID, err := randomPeerID()
	if err != nil {
		return nil, fmt.Errorf("generate peer id: %w", err)
	}

	outbound, err := sequence.New[*outboundSlot](cfg.WindowCapacity)
	if err != nil {
		return nil, fmt.Errorf("create outbound window: %w", err)
	}
	inbound, err := sequence.New[[]byte](cfg.WindowCapacity)
	if err != nil {
		return nil, fmt.Errorf("create inbound window: %w", err)
	}

	c := &Conn{
		sock:         sock,
		cfg:          cfg,
		localPeerID:  peerID,
		mode:         ModeWaiting,
		timeProvider: getTimeProvider(nil),
		outbound:     outbound,
		inbound:      inbound,
		dropLimiter:  rate.NewLimiter(rate.Limit(cfg.DropLogRate), 1),
	}
	c.cond = sync.NewCond(&c.mu)

	go func() {
		<-c.death.Dying()
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	}()
	go c.receiveLoop()

	logrus.WithFields(logrus.Fields{
		"function":      "NewConn",
		"local_peer_id": peerID,
		"local_addr":    addrString(sock.LocalAddr()),
	}).Debug("Reliable connection started")

	return c, nil
}

func randomPeerID() (uint64, error) {
	var b [8]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, err
		}
		if id := binary.BigEndian.Uint64(b[:]); id != 0 {
			return id, nil
		}
	}
}

// SetTimeProvider replaces the clock used by Update. A nil provider
// restores the system clock.
func (c *Conn) SetTimeProvider(tp TimeProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeProvider = getTimeProvider(tp)
}

// Connect announces this side to the peer with a CONTROL/CONNECT frame.
func (c *Conn) Connect() error {
	logrus.WithFields(logrus.Fields{
		"function":      "Conn.Connect",
		"local_peer_id": c.localPeerID,
		"remote_addr":   addrString(c.sock.RemoteAddr()),
	}).Info("Sending connect")

	return c.sendControl(ControlConnect)
}

// Flush reliably sends data, split into MTU-sized chunks with consecutive
// sequence numbers. It blocks while the outbound window is full and returns
// once every chunk has been transmitted once; delivery is then guaranteed
// by retransmission. ctx cancellation aborts the wait for window space.
func (c *Conn) Flush(ctx context.Context, data []byte) error {
	_, err := c.flush(ctx, data)
	return err
}

func (c *Conn) flush(ctx context.Context, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyWrite
	}

	stop := context.AfterFunc(ctx, c.broadcast)
	defer stop()

	if err := c.acquireWriter(ctx); err != nil {
		return 0, err
	}
	defer c.releaseWriter()

	written := 0
	for written < len(data) {
		n := len(data) - written
		if n > c.cfg.MTU {
			n = c.cfg.MTU
		}
		chunk := make([]byte, n)
		copy(chunk, data[written:written+n])

		seq, err := c.reserve(ctx, chunk)
		if err != nil {
			return written, err
		}
		// The chunk is now owned by the outbound window and will be
		// retransmitted even if this first send fails.
		written += n

		if err := c.sendPush(PushSend, seq, chunk); err != nil {
			return written, err
		}
	}

	return written, nil
}

// acquireWriter waits until no other Flush is reserving chunks. Like
// reserve it gives up when ctx ends or the Conn closes.
func (c *Conn) acquireWriter(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.writing {
		if c.closing {
			return newError("flush", addrString(c.sock.RemoteAddr()), ErrClosed)
		}
		if err := c.deathErrLocked(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		c.cond.Wait()
	}
	c.writing = true
	return nil
}

func (c *Conn) releaseWriter() {
	c.mu.Lock()
	c.writing = false
	c.cond.Broadcast()
	c.mu.Unlock()
}

// reserve waits for a free outbound slot and claims it for chunk.
func (c *Conn) reserve(ctx context.Context, chunk []byte) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.closing {
			return 0, newError("flush", addrString(c.sock.RemoteAddr()), ErrClosed)
		}
		if err := c.deathErrLocked(); err != nil {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if c.outbound.Available() > 0 {
			return c.outbound.PutNext(&outboundSlot{data: chunk})
		}

		logrus.WithFields(logrus.Fields{
			"function": "Conn.reserve",
			"offset":   c.outbound.Offset(),
		}).Debug("Outbound window full, waiting for acknowledgements")
		c.cond.Wait()
	}
}

// Write implements io.Writer on top of Flush, honouring the write deadline.
func (c *Conn) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	ctx := context.Background()
	c.deadlineMu.RLock()
	deadline := c.writeDeadline
	c.deadlineMu.RUnlock()

	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	n, err := c.flush(ctx, p)
	if errors.Is(err, context.DeadlineExceeded) {
		err = newError("write", addrString(c.sock.RemoteAddr()), ErrTimeout)
	}
	return n, err
}

// Read implements io.Reader over the in-order inbound stream. It blocks
// until data is available, the read deadline passes or the Conn closes.
// After Close, buffered data is still returned before io.EOF. A peer
// DISCONNECT does not end the stream, since the Conn keeps waiting for
// the next peer.
func (c *Conn) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	c.deadlineMu.RLock()
	deadline := c.readDeadline
	c.deadlineMu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !deadline.IsZero() {
		timer := time.AfterFunc(time.Until(deadline), c.broadcast)
		defer timer.Stop()
	}

	for c.streamLen == 0 {
		if c.closing || c.deathErrLocked() != nil {
			return 0, io.EOF
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0, newError("read", addrString(c.sock.RemoteAddr()), ErrTimeout)
		}
		c.cond.Wait()
	}

	n := 0
	for n < len(b) && c.stream.Len() > 0 {
		front := c.stream.PopFront()
		k := copy(b[n:], front)
		n += k
		if k < len(front) {
			c.stream.PushFront(front[k:])
		}
	}
	c.streamLen -= n
	c.cond.Broadcast()

	return n, nil
}

// Close stops accepting new data, waits up to Config.CloseTimeout for
// outstanding chunks to be acknowledged (or for the peer to disconnect),
// sends CONTROL/DISCONNECT and closes the socket. It is safe to call more
// than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.shutdown()
	})
	return c.closeErr
}

func (c *Conn) shutdown() error {
	logrus.WithFields(logrus.Fields{
		"function":      "Conn.Close",
		"local_peer_id": c.localPeerID,
	}).Info("Closing reliable connection")

	c.mu.Lock()
	c.closing = true
	c.cond.Broadcast()
	c.mu.Unlock()

	c.drainOutbound()

	if c.deathErr() == nil {
		if err := c.sendControl(ControlDisconnect); err != nil && !errors.Is(err, ErrNoRemote) {
			logrus.WithFields(logrus.Fields{
				"function": "Conn.Close",
				"error":    err.Error(),
			}).Warn("Failed to send disconnect")
		}
	}

	c.death.Kill(nil)
	err := c.sock.Close()
	_ = c.death.Wait()

	c.mu.Lock()
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()

	if err != nil {
		return newError("close", addrString(c.sock.RemoteAddr()), err)
	}
	return nil
}

// drainOutbound waits until every outbound chunk is acknowledged, the peer
// disconnects, the receive loop dies or the close timeout expires. It keeps
// calling Update so that lost chunks are retransmitted meanwhile.
func (c *Conn) drainOutbound() {
	deadline := time.Now().Add(c.cfg.CloseTimeout)

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.outbound.Caret() > 0 && !c.peerGone && c.deathErrLocked() == nil {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			logrus.WithFields(logrus.Fields{
				"function":    "Conn.Close",
				"outstanding": c.outbound.Caret(),
				"timeout":     c.cfg.CloseTimeout,
			}).Warn("Close timed out with unacknowledged data")
			return
		}

		c.mu.Unlock()
		if err := c.Update(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Conn.Close",
				"error":    err.Error(),
			}).Debug("Maintenance during close failed")
		}
		c.mu.Lock()

		wait := c.cfg.MaintenanceWindow
		if remaining < wait {
			wait = remaining
		}
		timer := time.AfterFunc(wait, c.broadcast)
		c.cond.Wait()
		timer.Stop()
	}
}

// broadcast wakes every goroutine waiting on the conn.
func (c *Conn) broadcast() {
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

func (c *Conn) deathErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deathErrLocked()
}

// deathErrLocked reports why the receive loop stopped, or nil while it runs.
func (c *Conn) deathErrLocked() error {
	select {
	case <-c.death.Dying():
	default:
		return nil
	}
	if err := c.death.Err(); err != nil && err != tomb.ErrDying {
		return err
	}
	return newError("receive", addrString(c.sock.RemoteAddr()), ErrClosed)
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.sock.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.sock.RemoteAddr()
}

// SetDeadline sets the read and write deadlines.
func (c *Conn) SetDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	defer c.deadlineMu.Unlock()
	c.readDeadline = t
	c.writeDeadline = t
	return nil
}

// SetReadDeadline sets the deadline for future Read calls.
func (c *Conn) SetReadDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	defer c.deadlineMu.Unlock()
	c.readDeadline = t
	return nil
}

// SetWriteDeadline sets the deadline for future Write calls.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	defer c.deadlineMu.Unlock()
	c.writeDeadline = t
	return nil
}

// LocalPeerID returns the random id this side stamps on its frames.
func (c *Conn) LocalPeerID() uint64 {
	return c.localPeerID
}

// RemotePeerID returns the adopted peer id, zero until a frame arrives.
func (c *Conn) RemotePeerID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remotePeerID
}

// Mode returns the current peer-tracking mode.
func (c *Conn) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// LocalSequence returns the oldest unacknowledged outbound sequence number.
func (c *Conn) LocalSequence() uint64 {
	return c.outbound.Offset()
}

// RemoteSequence returns the next inbound sequence number to be delivered.
func (c *Conn) RemoteSequence() uint64 {
	return c.inbound.Offset()
}

// IsBlocked reports whether the outbound window has no free slot.
func (c *Conn) IsBlocked() bool {
	return c.outbound.Available() <= 0
}

// Outstanding returns the number of sent chunks not yet acknowledged.
func (c *Conn) Outstanding() int {
	return c.outbound.Caret()
}

// Buffered returns the number of bytes ready to be Read.
func (c *Conn) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamLen
}
