package zouhttp

import (
	"context"
	"fmt"
	"time"

	"github.com/k0pernicus/zou/internal/scheduler"
	"github.com/k0pernicus/zou/internal/utils"
	"golang.org/x/time/rate"
)

// Progress receives the number of bytes each write committed to disk.
// Implementations must not block.
type Progress interface {
	Add(n int64)
}

type Fetcher struct {
	transport utils.Transport
	progress  Progress
	limiter   *rate.Limiter
}

type FetcherOption func(*Fetcher)

func WithProgress(p Progress) FetcherOption {
	return func(f *Fetcher) {
		f.progress = p
	}
}

// WithRateLimit caps the aggregate download speed across all workers.
// A non-positive limit disables throttling.
func WithRateLimit(bytesPerSecond int) FetcherOption {
	return func(f *Fetcher) {
		if bytesPerSecond <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)
	}
}

func NewFetcher(transport utils.Transport, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{transport: transport}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Download fetches info's resource into dest with up to workers concurrent
// range requests. It returns nil only when every chunk landed completely.
func (f *Fetcher) Download(ctx context.Context, info utils.RemoteServerInfo, dest *OutputFile, workers uint) error {
	log := utils.GetLogger("fetcher").With().Str("url", info.URL).Logger()
	if dest.Size() != info.ContentLength {
		return fmt.Errorf("%w: output file holds %d bytes, remote content is %d bytes", ErrIO, dest.Size(), info.ContentLength)
	}
	if !info.AcceptsPartialContent && workers > 1 {
		log.Warn().Msg("Server does not support partial content, falling back to a single connection")
	}
	workers = scheduler.EffectiveWorkers(info, workers)
	tasks := scheduler.Plan(info, workers)

	start := time.Now()
	log.Debug().Int("chunks", len(tasks)).Uint("workers", workers).Msg("Starting chunked download")
	err := scheduler.Run(ctx, tasks, workers, func(ctx context.Context, task utils.ChunkTask) error {
		return f.fetchChunk(ctx, info, task, dest)
	})
	if err != nil {
		return err
	}
	if err := dest.Sync(); err != nil {
		return err
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("Chunked download complete")
	return nil
}
