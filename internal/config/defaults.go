package config

import (
	"time"

	"github.com/tfunk1030/setupcompare/internal/report"
)

// Rule and input defaults.
const (
	DefaultRulesPath        = ""
	DefaultMaxSetupSize     = "2MB"
	DefaultMaxTelemetrySize = "5MB"
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Server defaults.
const (
	DefaultServerAddr         = ":8080"
	DefaultServerReadTimeout  = 30 * time.Second
	DefaultServerWriteTimeout = 30 * time.Second
	DefaultDiagnosticsAddr    = ""
)

// Output defaults.
const (
	DefaultOutputFormat  = string(report.FormatText)
	DefaultOutputNoColor = false
)
