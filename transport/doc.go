// Package transport implements seqlink's reliable, ordered byte stream on
// top of an unreliable datagram socket.
//
// # Architecture
//
// A Conn wraps a DatagramSocket (any net.PacketConn through PacketSocket,
// or the DialUDP / ListenUDP helpers). Outgoing data is split into MTU-sized
// chunks, each stamped with a consecutive 64-bit sequence number and an
// RFC 1071 checksum, and kept in an outbound sequence.Window until the peer
// acknowledges it. Incoming chunks are reordered in an inbound window and
// appended to the read stream strictly in sequence order.
//
//	sock, err := transport.DialUDP("", "198.51.100.7:7000")
//	if err != nil {
//	    return err
//	}
//	conn, err := transport.NewConn(sock, transport.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//	_ = conn.Connect()
//
//	updater := transport.NewUpdater(250*time.Millisecond, nil)
//	updater.Add(conn)
//
//	_, err = conn.Write(payload)
//
// # Wire Format
//
// Every frame starts with the sender's 64-bit peer id and a frame type
// byte, all big endian:
//
//	CONTROL: [mode u8]                       CONNECT=1 PING=2 DISCONNECT=3
//	PUSH:    [mode u8][seq u64][sum u64][len u32][data]   SEND=1 RESEND=2
//	ACK:     [seq u64]
//
// # Reliability
//
// The sender never renumbers a chunk. Conn.Update retransmits every
// unacknowledged chunk once nothing has been sent for the maintenance
// window (1 s by default), or sends a PING when nothing is outstanding.
// Update must be called periodically; Updater does this for many
// connections from a single ticker.
//
// Flow control is the fixed window only: Flush blocks on a condition
// variable while all window slots are in flight. The receiver drops (and
// does not acknowledge) PUSH frames beyond its window or while its read
// buffer is full, relying on retransmission to redeliver them.
//
// # Peer Tracking
//
// A Conn starts in ModeWaiting and adopts the peer id of each frame it
// receives. A CONTROL/CONNECT switches it to ModeConnected, after which
// frames carrying any other peer id are dropped. CONTROL/DISCONNECT returns
// it to ModeWaiting.
//
// # Time Injection
//
// Update reads time from a TimeProvider so tests can drive retransmission
// deterministically:
//
//	conn.SetTimeProvider(mockClock)
//
// # Thread Safety
//
// Conn is safe for concurrent use. One goroutine per Conn reads the socket;
// any number of goroutines may call Flush, Write and Read.
package transport
