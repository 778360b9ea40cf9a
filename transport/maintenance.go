package transport

import (
	"errors"

	pool "github.com/libp2p/go-buffer-pool"
	"github.com/sirupsen/logrus"
)

type pendingChunk struct {
	seq  uint64
	data []byte
}

// Update performs periodic maintenance. When nothing has been sent for
// Config.MaintenanceWindow it retransmits every unacknowledged chunk with
// its original sequence number, or sends a PING if nothing is outstanding.
// Callers drive it from a timer, usually through an Updater.
func (c *Conn) Update() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return newError("update", addrString(c.sock.RemoteAddr()), ErrClosed)
	}
	if err := c.deathErrLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	now := c.timeProvider.Now()
	if now.Sub(c.lastSend) < c.cfg.MaintenanceWindow {
		c.mu.Unlock()
		return nil
	}
	c.lastSend = now

	var pending []pendingChunk
	c.outbound.Each(func(seq uint64, slot *outboundSlot) bool {
		if !slot.acknowledged {
			pending = append(pending, pendingChunk{seq: seq, data: slot.data})
		}
		return true
	})
	c.mu.Unlock()

	if len(pending) == 0 {
		c.stats.pingsSent.Add(1)
		return c.sendControl(ControlPing)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Conn.Update",
		"pending":  len(pending),
		"first":    pending[0].seq,
	}).Debug("Retransmitting unacknowledged chunks")

	for _, p := range pending {
		if err := c.sendPush(PushResend, p.seq, p.data); err != nil {
			return err
		}
		c.stats.retransmissions.Add(1)
	}
	return nil
}

func (c *Conn) sendPush(mode PushMode, seq uint64, data []byte) error {
	if err := c.writeFrame("push", NewPushFrame(c.localPeerID, mode, seq, data)); err != nil {
		return err
	}

	c.mu.Lock()
	c.lastSend = c.timeProvider.Now()
	c.mu.Unlock()

	c.stats.pushesSent.Add(1)
	return nil
}

func (c *Conn) sendControl(mode ControlMode) error {
	return c.writeFrame("control", NewControlFrame(c.localPeerID, mode))
}

func (c *Conn) sendAck(seq uint64) error {
	if err := c.writeFrame("ack", NewAckFrame(c.localPeerID, seq)); err != nil {
		return err
	}
	c.stats.acksSent.Add(1)
	return nil
}

// writeFrame encodes f into a pooled buffer and sends it as one datagram.
func (c *Conn) writeFrame(op string, f *Frame) error {
	buf := pool.Get(f.Size())
	defer pool.Put(buf)

	data, err := f.AppendTo(buf[:0])
	if err != nil {
		return newError(op, addrString(c.sock.RemoteAddr()), err)
	}

	if err := c.sock.Send(data); err != nil {
		if errors.Is(err, ErrNoRemote) {
			return newError(op, "", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "Conn.writeFrame",
			"type":     f.Type.String(),
			"error":    err.Error(),
		}).Error("Datagram send failed")
		return newError(op, addrString(c.sock.RemoteAddr()), err)
	}

	c.stats.framesSent.Add(1)
	return nil
}
