package transport

import (
	"errors"
	"net"

	pool "github.com/libp2p/go-buffer-pool"
	"github.com/opd-ai/seqlink/limits"
	"github.com/sirupsen/logrus"
)

// receiveLoop reads datagrams until the socket fails or the Conn is
// killed. Protocol anomalies are logged and dropped; only socket errors
// end the loop.
func (c *Conn) receiveLoop() {
	defer c.death.Done()

	buf := pool.Get(limits.MaxFrameSize(c.cfg.MTU))
	defer pool.Put(buf)

	for {
		n, err := c.sock.Receive(buf)
		if err != nil {
			select {
			case <-c.death.Dying():
				return
			default:
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			logrus.WithFields(logrus.Fields{
				"function": "Conn.receiveLoop",
				"error":    err.Error(),
			}).Error("Datagram receive failed")
			c.death.Kill(newError("receive", addrString(c.sock.RemoteAddr()), err))
			return
		}

		c.handleDatagram(buf[:n])
	}
}

func (c *Conn) handleDatagram(data []byte) {
	frame, err := ParseFrame(data, c.cfg.MTU)
	if err != nil {
		c.stats.framingErrors.Add(1)
		c.logDrop("malformed frame", logrus.Fields{"error": err.Error(), "size": len(data)})
		return
	}

	if !c.acceptPeer(frame.PeerID) {
		c.stats.peerMismatches.Add(1)
		c.logDrop("frame from unknown peer", logrus.Fields{"peer_id": frame.PeerID})
		return
	}
	c.stats.framesReceived.Add(1)

	switch frame.Type {
	case FrameControl:
		c.handleControl(frame.Control)
	case FramePush:
		c.handlePush(frame)
	case FrameAck:
		c.handleAck(frame.Sequence)
	}
}

// acceptPeer applies the peer id rules: while waiting the sender's id is
// adopted, once connected only the adopted non-zero id is accepted.
func (c *Conn) acceptPeer(peerID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeWaiting {
		c.remotePeerID = peerID
		return true
	}
	return peerID != 0 && peerID == c.remotePeerID
}

func (c *Conn) handleControl(mode ControlMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch mode {
	case ControlConnect:
		if c.mode == ModeWaiting {
			if c.sessionPeer != 0 && c.sessionPeer != c.remotePeerID {
				c.resetSessionLocked()
			}
			c.sessionPeer = c.remotePeerID
			c.mode = ModeConnected
			c.peerGone = false
			logrus.WithFields(logrus.Fields{
				"function":       "Conn.handleControl",
				"remote_peer_id": c.remotePeerID,
			}).Info("Peer connected")
		}
	case ControlDisconnect:
		if c.mode == ModeConnected {
			c.mode = ModeWaiting
			c.peerGone = true
			logrus.WithFields(logrus.Fields{
				"function":       "Conn.handleControl",
				"remote_peer_id": c.remotePeerID,
			}).Info("Peer disconnected")
		}
	case ControlPing:
	default:
		logrus.WithFields(logrus.Fields{
			"function": "Conn.handleControl",
			"mode":     mode.String(),
		}).Debug("Ignoring unknown control mode")
	}

	c.cond.Broadcast()
}

// resetSessionLocked restarts both sequence spaces for a new peer, which
// numbers its chunks from zero. Unacknowledged chunks meant for the previous
// peer are discarded; data already delivered stays readable.
func (c *Conn) resetSessionLocked() {
	logrus.WithFields(logrus.Fields{
		"function":        "Conn.handleControl",
		"previous_peer":   c.sessionPeer,
		"remote_peer_id":  c.remotePeerID,
		"discarded":       c.outbound.Caret(),
		"inbound_offset":  c.inbound.Offset(),
		"outbound_offset": c.outbound.Offset(),
	}).Info("New peer connected, resetting sequence windows")

	c.outbound.Reset()
	c.inbound.Reset()
}

func (c *Conn) handlePush(f *Frame) {
	if Checksum(f.Data) != f.Checksum {
		c.stats.checksumFailures.Add(1)
		c.logDrop("checksum mismatch", logrus.Fields{"sequence": f.Sequence})
		return
	}

	c.mu.Lock()
	end := c.inbound.Offset() + uint64(c.inbound.Capacity())
	full := c.streamLen >= c.cfg.ReceiveBufferSize
	c.mu.Unlock()

	// Unacknowledged frames are resent by the peer, so anything that cannot
	// be stored right now is dropped without an ACK.
	if f.Sequence >= end {
		c.stats.outOfWindow.Add(1)
		c.logDrop("push beyond inbound window", logrus.Fields{"sequence": f.Sequence, "window_end": end})
		return
	}
	if full {
		c.stats.overruns.Add(1)
		c.logDrop("receive buffer full", logrus.Fields{"sequence": f.Sequence})
		return
	}

	if err := c.sendAck(f.Sequence); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Conn.handlePush",
			"sequence": f.Sequence,
			"error":    err.Error(),
		}).Warn("Failed to send ack")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f.Sequence < c.inbound.Offset() {
		c.stats.duplicatePushes.Add(1)
		return
	}
	if has, err := c.inbound.Has(f.Sequence); err != nil || has {
		c.stats.duplicatePushes.Add(1)
		return
	}
	if err := c.inbound.Put(f.Sequence, f.Data); err != nil {
		c.logDrop("inbound window rejected push", logrus.Fields{"sequence": f.Sequence, "error": err.Error()})
		return
	}

	delivered := c.inbound.DrainReady(func(data []byte) {
		c.stream.PushBack(data)
		c.streamLen += len(data)
		c.stats.bytesDelivered.Add(uint64(len(data)))
	})
	if delivered > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Conn.handlePush",
			"chunks":   delivered,
			"offset":   c.inbound.Offset(),
		}).Debug("Delivered in-order chunks")
		c.cond.Broadcast()
	}
}

func (c *Conn) handleAck(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq < c.outbound.Offset() {
		c.stats.duplicateAcks.Add(1)
		return
	}

	slot, ok, err := c.outbound.Get(seq)
	if err != nil {
		c.stats.outOfWindow.Add(1)
		c.logDrop("ack beyond outbound window", logrus.Fields{"sequence": seq})
		return
	}
	if !ok || slot.acknowledged {
		c.stats.duplicateAcks.Add(1)
		return
	}

	slot.acknowledged = true
	c.stats.acksReceived.Add(1)

	advanced := 0
	for {
		head, ok := c.outbound.Current()
		if !ok || !head.acknowledged {
			break
		}
		if err := c.outbound.Advance(1); err != nil {
			break
		}
		advanced++
	}

	if advanced > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Conn.handleAck",
			"advanced": advanced,
			"offset":   c.outbound.Offset(),
		}).Debug("Outbound window advanced")
		c.cond.Broadcast()
	}
}

// logDrop reports a dropped frame at warn level, throttled by the drop
// limiter; excess reports go to debug.
func (c *Conn) logDrop(reason string, fields logrus.Fields) {
	fields["function"] = "Conn.receiveLoop"
	fields["reason"] = reason
	entry := logrus.WithFields(fields)
	if c.dropLimiter.Allow() {
		entry.Warn("Dropping frame")
		return
	}
	entry.Debug("Dropping frame")
}
