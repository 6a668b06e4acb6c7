package utils

import (
	"errors"
	"time"
)

const DefaultBufferSize = 1024 * 256 // 256KB buffer
const ToolUserAgent = "zou/dev"

const (
	PingTimes     = 5  // latency probes per mirror
	BenchChunkLen = 64 // bytes requested by each latency probe
	BenchTimeout  = 3 * time.Second
)

// MaxContentLengthAttempts bounds content length discovery: the direct probe
// plus one full-range fallback.
const MaxContentLengthAttempts = 2

var ErrTLSDisabled = errors.New("TLS support is disabled for this client")
var ErrUnsupportedProtocol = errors.New("unsupported protocol")
