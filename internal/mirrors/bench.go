// Package mirrors ranks candidate mirrors by measured round-trip latency.
package mirrors

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/k0pernicus/zou/internal/utils"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMirrorUnreachable  = errors.New("mirror unreachable")
	ErrNoMirrorsAvailable = errors.New("no mirrors available")
)

type Bench struct {
	transport utils.Transport
	pings     int
	timeout   time.Duration
}

func NewBench(transport utils.Transport) *Bench {
	return &Bench{
		transport: transport,
		pings:     utils.PingTimes,
		timeout:   utils.BenchTimeout,
	}
}

// Rank returns the reachable mirrors, fastest first. Zero or one candidate
// is returned as is without touching the network.
func (b *Bench) Rank(ctx context.Context, mirrors []string, resource string) ([]string, error) {
	if len(mirrors) <= 1 {
		return slices.Clone(mirrors), nil
	}
	ranked := RankScores(b.Scores(ctx, mirrors, resource))
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: all %d mirrors failed the benchmark", ErrNoMirrorsAvailable, len(mirrors))
	}
	return ranked, nil
}

// Scores benchmarks every mirror concurrently. The result is in input order.
func (b *Bench) Scores(ctx context.Context, mirrors []string, resource string) []utils.MirrorScore {
	scores := make([]utils.MirrorScore, len(mirrors))
	var g errgroup.Group
	for i, mirror := range mirrors {
		g.Go(func() error {
			scores[i] = b.score(ctx, mirror, resource)
			return nil
		})
	}
	g.Wait()
	return scores
}

// RankScores drops unreachable mirrors and sorts the rest by ascending
// latency. Ties keep their input order.
func RankScores(scores []utils.MirrorScore) []string {
	reachable := make([]utils.MirrorScore, 0, len(scores))
	for _, score := range scores {
		if score.Reachable {
			reachable = append(reachable, score)
		}
	}
	slices.SortStableFunc(reachable, func(a, b utils.MirrorScore) int {
		return cmp.Compare(a.Latency, b.Latency)
	})
	ranked := make([]string, len(reachable))
	for i, score := range reachable {
		ranked[i] = score.Mirror
	}
	return ranked
}

func (b *Bench) score(ctx context.Context, mirror, resource string) utils.MirrorScore {
	log := utils.GetLogger("bench").With().Str("mirror", mirror).Logger()
	score := utils.MirrorScore{Mirror: mirror}
	link, err := utils.JoinURL(mirror, resource)
	if err != nil {
		log.Debug().Err(err).Msg("Cannot build mirror URL")
		return score
	}
	latency, err := b.measure(ctx, link)
	if err != nil {
		log.Debug().Err(err).Msg("Mirror dropped")
		return score
	}
	score.Latency = latency
	score.Reachable = true
	log.Debug().Uint64("meanNanos", latency).Msg("Mirror benchmarked")
	return score
}

// measure returns the mean latency over all pings. A single failed ping
// invalidates the whole mirror.
func (b *Bench) measure(ctx context.Context, link string) (uint64, error) {
	var total uint64
	for i := range b.pings {
		elapsed, err := b.ping(ctx, link)
		if err != nil {
			return 0, fmt.Errorf("%w: probe %d/%d: %w", ErrMirrorUnreachable, i+1, b.pings, err)
		}
		total += elapsed
	}
	return total / uint64(b.pings), nil
}

func (b *Bench) ping(ctx context.Context, link string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	headers := http.Header{}
	headers.Set("Range", utils.ByteRange{Start: 0, End: utils.BenchChunkLen}.Header())
	start := time.Now()
	resp, err := b.transport.Send(ctx, http.MethodHead, link, headers)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	elapsed := time.Since(start)
	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return uint64(elapsed.Nanoseconds()), nil
}
