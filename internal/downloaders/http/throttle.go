package zouhttp

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// throttledReader spends one token per byte read. Reads are capped at the
// limiter's burst so WaitN never asks for more than the bucket holds.
type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if burst := t.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
