package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// DatagramSocket is the unreliable datagram collaborator a Conn runs on.
// Send and Receive carry whole datagrams. Receive blocks until a datagram
// arrives or the socket is closed.
type DatagramSocket interface {
	Send(data []byte) error
	Receive(buf []byte) (int, error)
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
}

// PacketSocket adapts a net.PacketConn to a DatagramSocket bound to a
// single remote address. When no remote is given, the address of the first
// datagram received is adopted; datagrams from any other address are then
// discarded.
type PacketSocket struct {
	conn net.PacketConn

	mu     sync.RWMutex
	remote net.Addr
}

// NewPacketSocket wraps conn. remote may be nil for the listening side.
func NewPacketSocket(conn net.PacketConn, remote net.Addr) *PacketSocket {
	logrus.WithFields(logrus.Fields{
		"function": "NewPacketSocket",
		"local":    conn.LocalAddr().String(),
		"remote":   addrString(remote),
	}).Debug("Creating packet socket")

	return &PacketSocket{conn: conn, remote: remote}
}

// DialUDP opens a UDP socket on localAddr that exchanges datagrams with
// remoteAddr. An empty localAddr binds an ephemeral port.
func DialUDP(localAddr, remoteAddr string) (*PacketSocket, error) {
	remote, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve remote address %q: %w", remoteAddr, err)
	}

	if localAddr == "" {
		localAddr = ":0"
	}
	conn, err := net.ListenPacket("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", localAddr, err)
	}

	return NewPacketSocket(conn, remote), nil
}

// ListenUDP opens a UDP socket on localAddr whose remote address is learned
// from the first datagram it receives.
func ListenUDP(localAddr string) (*PacketSocket, error) {
	conn, err := net.ListenPacket("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", localAddr, err)
	}

	return NewPacketSocket(conn, nil), nil
}

// Send writes one datagram to the remote address.
func (s *PacketSocket) Send(data []byte) error {
	s.mu.RLock()
	remote := s.remote
	s.mu.RUnlock()

	if remote == nil {
		return ErrNoRemote
	}

	_, err := s.conn.WriteTo(data, remote)
	return err
}

// Receive reads the next datagram from the remote address into buf.
func (s *PacketSocket) Receive(buf []byte) (int, error) {
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			return 0, err
		}

		if s.acceptFrom(addr) {
			return n, nil
		}

		logrus.WithFields(logrus.Fields{
			"function": "PacketSocket.Receive",
			"from":     addrString(addr),
			"remote":   addrString(s.RemoteAddr()),
		}).Debug("Discarding datagram from unexpected address")
	}
}

func (s *PacketSocket) acceptFrom(addr net.Addr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remote == nil {
		s.remote = addr
		return true
	}
	return addr != nil && addr.String() == s.remote.String()
}

// LocalAddr returns the local socket address.
func (s *PacketSocket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// RemoteAddr returns the remote address, or nil while it is still unknown.
func (s *PacketSocket) RemoteAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote
}

// Close closes the underlying packet conn, unblocking Receive.
func (s *PacketSocket) Close() error {
	return s.conn.Close()
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
