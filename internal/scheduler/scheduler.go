package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/k0pernicus/zou/internal/utils"
	"golang.org/x/sync/errgroup"
)

// FetchFunc downloads a single chunk task.
type FetchFunc func(ctx context.Context, task utils.ChunkTask) error

// Partition splits [0, contentLength) into workers contiguous ranges of
// contentLength/workers bytes. The last range absorbs the remainder.
func Partition(contentLength uint64, workers uint) []utils.ByteRange {
	if contentLength == 0 {
		return nil
	}
	if workers == 0 {
		workers = 1
	}
	size := contentLength / uint64(workers)
	ranges := make([]utils.ByteRange, workers)
	for i := range uint64(workers) {
		ranges[i] = utils.ByteRange{Start: i * size, End: (i + 1) * size}
	}
	ranges[workers-1].End = contentLength
	return ranges
}

// EffectiveWorkers returns the worker count that is safe against info's server.
func EffectiveWorkers(info utils.RemoteServerInfo, workers uint) uint {
	if !info.AcceptsPartialContent || workers == 0 {
		return 1
	}
	return workers
}

// Plan builds one task per non-empty range of info's resource.
func Plan(info utils.RemoteServerInfo, workers uint) []utils.ChunkTask {
	ranges := Partition(info.ContentLength, EffectiveWorkers(info, workers))
	tasks := make([]utils.ChunkTask, 0, len(ranges))
	for _, r := range ranges {
		if r.Len() == 0 {
			continue
		}
		tasks = append(tasks, utils.ChunkTask{
			ID:     len(tasks),
			Range:  r,
			Offset: r.Start,
			URL:    info.URL,
		})
	}
	return tasks
}

// Run executes every task on a pool of at most workers goroutines. A failed
// task never stops the others; the joined failures are returned once the
// pool has drained.
func Run(ctx context.Context, tasks []utils.ChunkTask, workers uint, fetch FetchFunc) error {
	log := utils.GetLogger("scheduler")
	if workers == 0 {
		workers = 1
	}
	start := time.Now()
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(int(workers))
	for i, task := range tasks {
		g.Go(func() error {
			logger := log.With().Int("chunkId", task.ID).Str("range", task.Range.String()).Logger()
			logger.Debug().Msg("Chunk dispatched")
			if err := fetch(ctx, task); err != nil {
				logger.Error().Err(err).Msg("Chunk failed")
				errs[i] = err
				return nil
			}
			logger.Debug().Msg("Chunk completed")
			return nil
		})
	}
	g.Wait()

	err := errors.Join(errs...)
	log.Debug().Int("tasks", len(tasks)).Uint("workers", workers).Dur("elapsed", time.Since(start)).Bool("ok", err == nil).Msg("Pool drained")
	return err
}
