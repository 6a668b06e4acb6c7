package utils

import (
	"fmt"
	"time"
)

type HTTPClientConfig struct {
	Timeout        time.Duration
	KATimeout      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	Headers        map[string]string
	EnableTLS      bool // https:// URLs are refused unless set
	HighThreadMode bool // advanced socket options for high concurrency
}

// MirrorScore pairs a mirror base URL with its mean probe latency in
// nanoseconds. Reachable is false when any probe failed.
type MirrorScore struct {
	Mirror    string
	Latency   uint64
	Reachable bool
}

// RemoteServerInfo holds the negotiated facts about one server/resource pair.
type RemoteServerInfo struct {
	URL                   string
	ContentLength         uint64
	AcceptsPartialContent bool
	AuthHeader            string
}

// ByteRange is the half-open interval [Start, End) of a resource.
type ByteRange struct {
	Start uint64
	End   uint64
}

func (r ByteRange) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Header renders the range as an HTTP Range header value (inclusive end).
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1)
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

type ChunkTask struct {
	ID     int
	Range  ByteRange
	Offset uint64
	URL    string
}
