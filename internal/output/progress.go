package output

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/k0pernicus/zou/internal/utils"
)

// Tracker counts the bytes written by every worker and redraws a single
// progress line on a ticker. Add never blocks, so workers are never slowed
// down by rendering.
type Tracker struct {
	label       string
	total       uint64
	current     atomic.Int64
	startTime   time.Time
	displayTick time.Duration
	interactive bool

	doneCh    chan struct{}
	displayWg sync.WaitGroup
	stopOnce  sync.Once
}

func NewTracker(label string, total uint64) *Tracker {
	return &Tracker{
		label:       label,
		total:       total,
		displayTick: 200 * time.Millisecond,
		interactive: isTerminal(),
		doneCh:      make(chan struct{}),
	}
}

func (t *Tracker) Add(n int64) {
	t.current.Add(n)
}

func (t *Tracker) Current() int64 {
	return t.current.Load()
}

func (t *Tracker) line() string {
	current := t.current.Load()
	elapsed := time.Since(t.startTime)
	counts := fmt.Sprintf("%s / %s", utils.FormatBytes(uint64(max(0, current))), utils.FormatBytes(t.total))
	speed := utils.FormatSpeed(current, elapsed.Seconds())
	return fmt.Sprintf("  %s %s %s%s %s %s",
		FPending(StyleSymbols["pending"]),
		FDebug(elapsed.Round(time.Second).String()),
		PrintProgressBar(current, int64(t.total), barWidth()),
		FDetail(counts),
		StyleSymbols["bullet"],
		FDebug(speed),
	)
}

func (t *Tracker) StartDisplay() {
	t.startTime = time.Now()
	if !t.interactive {
		return
	}
	t.displayWg.Add(1)
	go func() {
		defer t.displayWg.Done()
		ticker := time.NewTicker(t.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fmt.Fprintf(Console, "\r\033[K%s", t.line())
			case <-t.doneCh:
				fmt.Fprintf(Console, "\r\033[K")
				return
			}
		}
	}()
}

// StopDisplay stops redrawing and prints the outcome of the transfer.
func (t *Tracker) StopDisplay(err error) {
	t.stopOnce.Do(func() {
		close(t.doneCh)
		t.displayWg.Wait()
		t.showSummary(err)
	})
}

func (t *Tracker) showSummary(err error) {
	elapsed := time.Since(t.startTime)
	if err != nil {
		PrintError(fmt.Sprintf("Failed %s after %s", t.label, elapsed.Round(time.Millisecond)))
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(Console, "%s%s\n", strings.Repeat(" ", 4), errorStyle.Render(line))
		}
		return
	}
	PrintSuccess(fmt.Sprintf("Completed %s (%s in %s, %s)",
		t.label,
		utils.FormatBytes(uint64(max(0, t.current.Load()))),
		elapsed.Round(time.Millisecond),
		utils.FormatSpeed(t.current.Load(), elapsed.Seconds()),
	))
}
