// Package config loads seqlink endpoint settings from YAML or TOML files and
// converts them into transport.Config and buffer.Config values.
//
// Fields missing from a file keep their defaults. Durations in the transport
// section are given in milliseconds, jitter buffer delays in seconds:
//
//	log_level: debug
//	transport:
//	  mtu: 1200
//	  maintenance_window_ms: 500
//	buffer:
//	  resolution: millisecond
//	  maximum_delay: 0.5
package config
