package seqlink

import (
	"sync"

	"github.com/opd-ai/seqlink/transport"
	"github.com/sirupsen/logrus"
)

var (
	updaterOnce sync.Once
	updater     *transport.Updater
)

func sharedUpdater() *transport.Updater {
	updaterOnce.Do(func() {
		updater = transport.NewUpdater(0, nil)
	})
	return updater
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() transport.Config {
	return transport.DefaultConfig()
}

// Dial opens a UDP socket on localAddr (any port when empty), connects it to
// remoteAddr and announces itself with CONTROL/CONNECT.
func Dial(localAddr, remoteAddr string, cfg transport.Config) (*transport.Conn, error) {
	sock, err := transport.DialUDP(localAddr, remoteAddr)
	if err != nil {
		return nil, err
	}

	conn, err := transport.NewConn(sock, cfg)
	if err != nil {
		sock.Close()
		return nil, err
	}
	if err := conn.Connect(); err != nil {
		conn.Close()
		return nil, err
	}

	sharedUpdater().Add(conn)

	logrus.WithFields(logrus.Fields{
		"function":      "Dial",
		"local_addr":    sock.LocalAddr().String(),
		"remote_addr":   remoteAddr,
		"local_peer_id": conn.LocalPeerID(),
	}).Info("Dialed seqlink peer")

	return conn, nil
}

// Listen opens a UDP socket on localAddr and waits for the first peer to
// send to it. The returned connection is in ModeWaiting until that peer's
// CONNECT arrives.
func Listen(localAddr string, cfg transport.Config) (*transport.Conn, error) {
	sock, err := transport.ListenUDP(localAddr)
	if err != nil {
		return nil, err
	}

	conn, err := transport.NewConn(sock, cfg)
	if err != nil {
		sock.Close()
		return nil, err
	}

	sharedUpdater().Add(conn)

	logrus.WithFields(logrus.Fields{
		"function":      "Listen",
		"local_addr":    sock.LocalAddr().String(),
		"local_peer_id": conn.LocalPeerID(),
	}).Info("Listening for seqlink peer")

	return conn, nil
}
