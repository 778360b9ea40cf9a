// Package metrics exposes seqlink connection and jitter buffer statistics to
// Prometheus.
//
//	reg := prometheus.NewRegistry()
//	col := metrics.NewCollector("seqlink")
//	reg.MustRegister(col)
//	col.AddConn("peer-1", conn)
//	col.AddBuffer("audio", jitter)
//	http.Handle("/metrics", metrics.Handler(reg))
package metrics
