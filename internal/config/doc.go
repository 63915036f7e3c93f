// Package config loads vdiff.toml.
//
// Every setting has a default, so the file is optional:
//
//	[runtime]
//	frame_interval = "16ms"
//	metrics_namespace = "vdiff"
//
//	[journal]
//	enabled = true
//	path = "vdiff.journal"
//
//	[dev]
//	addr = "localhost:7070"
//	allowed_origins = ["http://localhost:3000"]
//
//	[log]
//	level = "debug"
//	format = "json"
//
// Loading fails with E301 when the file cannot be read or parsed and with
// E302 when a key is unknown or a value is out of range.
package config
