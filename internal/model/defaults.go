package model

import "time"

// Shared defaults used by both the service and CLI binaries.
const (
	DefaultAPIPort        = 9643
	DefaultRequestTimeout = 10 * time.Second
	DefaultNoticeDuration = 4 * time.Second
	DefaultTransport      = "http"
)
