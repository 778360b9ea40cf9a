// Package seqlink implements a reliable, ordered byte stream over an
// unreliable datagram socket, together with an adaptive jitter buffer for
// media played out from that stream.
//
// The stream is carried by a small selective-repeat ARQ protocol. Each side
// holds a fixed-size sliding window of outbound chunks awaiting
// acknowledgement and a window of inbound chunks awaiting in-order delivery.
// Three frame types are used: CONTROL (connect, ping and disconnect), PUSH
// (a sequenced, checksummed payload) and ACK (the sequence number of an
// accepted PUSH). Unacknowledged chunks are resent when a connection has been
// idle for the maintenance window.
//
// # Getting Started
//
// Listen on one side and dial from the other:
//
//	server, err := seqlink.Listen("0.0.0.0:7000", seqlink.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//
//	client, err := seqlink.Dial("", "203.0.113.7:7000", seqlink.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Write([]byte("hello"))
//
// Connections returned by Dial and Listen are driven by a shared updater, so
// retransmission happens without any further calls. Connections built
// directly with transport.NewConn must call Update periodically or be added
// to a transport.Updater.
//
// # Packages
//
//   - sequence: the generic sliding window shared by the transport and the buffers
//   - transport: frames, checksums, the ARQ connection and datagram sockets
//   - buffer: delay-gated and adaptive jitter buffers
//   - media: RTP framing over a connection and a pipeline into a jitter buffer
//   - metrics: a Prometheus collector for connections and buffers
//   - config: YAML and TOML configuration files
//   - limits: protocol size limits and validation helpers
//
// # Logging
//
// All packages log through logrus with a "function" field identifying the
// call site. Dropped frames are logged at warning level at a bounded rate and
// at debug level beyond it.
package seqlink
