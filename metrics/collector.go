package metrics

import (
	"net/http"
	"sort"
	"sync"

	"github.com/opd-ai/seqlink/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConnSource is the part of transport.Conn the collector reads.
type ConnSource interface {
	Stats() transport.Stats
	LocalSequence() uint64
	RemoteSequence() uint64
	Outstanding() int
	Buffered() int
}

// BufferSource is the part of a jitter buffer the collector reads.
// buffer.Adaptive satisfies it.
type BufferSource interface {
	Size() int
	Capacity() int
	Current() float64
}

// Collector exports transport and jitter buffer statistics. Values are
// read at scrape time, so registered sources need no extra bookkeeping.
type Collector struct {
	mu      sync.RWMutex
	conns   map[string]ConnSource
	buffers map[string]BufferSource

	framesSentDesc     *prometheus.Desc
	framesReceivedDesc *prometheus.Desc
	retransmitsDesc    *prometheus.Desc
	acksSentDesc       *prometheus.Desc
	acksReceivedDesc   *prometheus.Desc
	droppedDesc        *prometheus.Desc
	duplicatesDesc     *prometheus.Desc
	bytesDesc          *prometheus.Desc
	outstandingDesc    *prometheus.Desc
	localSeqDesc       *prometheus.Desc
	remoteSeqDesc      *prometheus.Desc
	bufferedBytesDesc  *prometheus.Desc

	bufferSizeDesc     *prometheus.Desc
	bufferCapacityDesc *prometheus.Desc
	playoutDelayDesc   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	conn := func(name, help string, extra ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", name),
			help,
			append([]string{"conn"}, extra...), nil,
		)
	}
	buf := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "jitter", name),
			help,
			[]string{"buffer"}, nil,
		)
	}

	return &Collector{
		conns:   make(map[string]ConnSource),
		buffers: make(map[string]BufferSource),

		framesSentDesc:     conn("frames_sent_total", "Frames written to the datagram socket"),
		framesReceivedDesc: conn("frames_received_total", "Frames accepted from the datagram socket"),
		retransmitsDesc:    conn("retransmissions_total", "PUSH frames resent by maintenance"),
		acksSentDesc:       conn("acks_sent_total", "ACK frames sent"),
		acksReceivedDesc:   conn("acks_received_total", "New acknowledgements received"),
		droppedDesc:        conn("dropped_frames_total", "Received frames discarded", "reason"),
		duplicatesDesc:     conn("duplicates_total", "Duplicate frames ignored", "kind"),
		bytesDesc:          conn("bytes_delivered_total", "Bytes delivered in order to the read stream"),
		outstandingDesc:    conn("outstanding_chunks", "Sent chunks awaiting acknowledgement"),
		localSeqDesc:       conn("local_sequence", "Oldest unacknowledged outbound sequence number"),
		remoteSeqDesc:      conn("remote_sequence", "Next inbound sequence number to deliver"),
		bufferedBytesDesc:  conn("buffered_bytes", "Bytes waiting to be read"),

		bufferSizeDesc:     buf("items", "Items held by the jitter buffer"),
		bufferCapacityDesc: buf("capacity", "Maximum items the jitter buffer holds"),
		playoutDelayDesc:   buf("playout_delay_seconds", "Current estimated playout delay"),
	}
}

// AddConn registers a connection under name, replacing any previous one.
func (c *Collector) AddConn(name string, conn ConnSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[name] = conn
}

// RemoveConn unregisters a connection.
func (c *Collector) RemoveConn(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, name)
}

// AddBuffer registers a jitter buffer under name.
func (c *Collector) AddBuffer(name string, buf BufferSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers[name] = buf
}

// RemoveBuffer unregisters a jitter buffer.
func (c *Collector) RemoveBuffer(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buffers, name)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.framesSentDesc, c.framesReceivedDesc, c.retransmitsDesc,
		c.acksSentDesc, c.acksReceivedDesc, c.droppedDesc, c.duplicatesDesc,
		c.bytesDesc, c.outstandingDesc, c.localSeqDesc, c.remoteSeqDesc,
		c.bufferedBytesDesc, c.bufferSizeDesc, c.bufferCapacityDesc,
		c.playoutDelayDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, name := range sortedKeys(c.conns) {
		c.collectConn(ch, name, c.conns[name])
	}
	for _, name := range sortedKeys(c.buffers) {
		b := c.buffers[name]
		ch <- prometheus.MustNewConstMetric(c.bufferSizeDesc, prometheus.GaugeValue, float64(b.Size()), name)
		ch <- prometheus.MustNewConstMetric(c.bufferCapacityDesc, prometheus.GaugeValue, float64(b.Capacity()), name)
		ch <- prometheus.MustNewConstMetric(c.playoutDelayDesc, prometheus.GaugeValue, b.Current(), name)
	}
}

func (c *Collector) collectConn(ch chan<- prometheus.Metric, name string, conn ConnSource) {
	s := conn.Stats()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), append([]string{name}, labels...)...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, name)
	}

	counter(c.framesSentDesc, s.FramesSent)
	counter(c.framesReceivedDesc, s.FramesReceived)
	counter(c.retransmitsDesc, s.Retransmissions)
	counter(c.acksSentDesc, s.AcksSent)
	counter(c.acksReceivedDesc, s.AcksReceived)
	counter(c.droppedDesc, s.ChecksumFailures, "checksum")
	counter(c.droppedDesc, s.FramingErrors, "framing")
	counter(c.droppedDesc, s.PeerMismatches, "peer")
	counter(c.droppedDesc, s.OutOfWindow, "window")
	counter(c.droppedDesc, s.Overruns, "overrun")
	counter(c.duplicatesDesc, s.DuplicatePushes, "push")
	counter(c.duplicatesDesc, s.DuplicateAcks, "ack")
	counter(c.bytesDesc, s.BytesDelivered)

	gauge(c.outstandingDesc, float64(conn.Outstanding()))
	gauge(c.localSeqDesc, float64(conn.LocalSequence()))
	gauge(c.remoteSeqDesc, float64(conn.RemoteSequence()))
	gauge(c.bufferedBytesDesc, float64(conn.Buffered()))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Handler serves the metrics of reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
