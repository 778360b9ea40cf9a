package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/tomb.v1"
)

// Updater drives Update on a set of connections from one ticker, so
// applications do not need a timer per Conn. Connections whose Update
// reports ErrClosed are dropped from the set.
type Updater struct {
	mu    sync.Mutex
	conns map[*Conn]struct{}

	interval time.Duration
	stop     tomb.Tomb
}

// NewUpdater starts an updater ticking every interval. A non-positive
// interval uses DefaultMaintenanceWindow / 4 so that retransmission fires
// close to the maintenance window. tp may be nil.
func NewUpdater(interval time.Duration, tp TimeProvider) *Updater {
	if interval <= 0 {
		interval = DefaultMaintenanceWindow / 4
	}

	u := &Updater{
		conns:    make(map[*Conn]struct{}),
		interval: interval,
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewUpdater",
		"interval": interval,
	}).Debug("Starting connection updater")

	go u.updateTask(getTimeProvider(tp).NewTicker(interval))
	return u
}

// Add registers c for periodic maintenance.
func (u *Updater) Add(c *Conn) {
	u.mu.Lock()
	u.conns[c] = struct{}{}
	u.mu.Unlock()
}

// Remove unregisters c.
func (u *Updater) Remove(c *Conn) {
	u.mu.Lock()
	delete(u.conns, c)
	u.mu.Unlock()
}

// Len returns the number of registered connections.
func (u *Updater) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.conns)
}

// Close stops the updater. Registered connections are left open.
func (u *Updater) Close() error {
	u.stop.Kill(nil)
	return u.stop.Wait()
}

func (u *Updater) updateTask(ticker *time.Ticker) {
	defer u.stop.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			u.tick()
		case <-u.stop.Dying():
			return
		}
	}
}

func (u *Updater) tick() {
	u.mu.Lock()
	conns := make([]*Conn, 0, len(u.conns))
	for c := range u.conns {
		conns = append(conns, c)
	}
	u.mu.Unlock()

	for _, c := range conns {
		err := c.Update()
		if err == nil {
			continue
		}
		if errors.Is(err, ErrClosed) {
			u.Remove(c)
			continue
		}
		if errors.Is(err, ErrNoRemote) {
			// still listening for its first peer
			continue
		}
		logrus.WithFields(logrus.Fields{
			"function":      "Updater.tick",
			"local_peer_id": c.LocalPeerID(),
			"error":         err.Error(),
		}).Warn("Connection maintenance failed")
	}
}
