package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/k0pernicus/zou/internal/utils"
)

func TestPartitionProperties(t *testing.T) {
	lengths := []uint64{1, 2, 3, 7, 10, 100, 1023, 10000, 1 << 20}
	for _, contentLength := range lengths {
		for workers := uint(1); workers <= 17; workers++ {
			ranges := Partition(contentLength, workers)
			if len(ranges) != int(workers) {
				t.Fatalf("Partition(%d, %d): got %d ranges", contentLength, workers, len(ranges))
			}
			var next uint64
			for i, r := range ranges {
				if r.Start != next {
					t.Fatalf("Partition(%d, %d): range %d starts at %d, want %d", contentLength, workers, i, r.Start, next)
				}
				if r.End < r.Start {
					t.Fatalf("Partition(%d, %d): range %d is inverted: %v", contentLength, workers, i, r)
				}
				next = r.End
			}
			if next != contentLength {
				t.Fatalf("Partition(%d, %d): union ends at %d", contentLength, workers, next)
			}
			size := contentLength / uint64(workers)
			wantLast := contentLength - uint64(workers-1)*size
			if last := ranges[len(ranges)-1].Len(); last != wantLast {
				t.Errorf("Partition(%d, %d): last range size %d, want %d", contentLength, workers, last, wantLast)
			}
		}
	}
}

func TestPartitionExamples(t *testing.T) {
	tests := []struct {
		name          string
		contentLength uint64
		workers       uint
		want          []utils.ByteRange
	}{
		{
			name:          "even split",
			contentLength: 10000,
			workers:       4,
			want:          []utils.ByteRange{{Start: 0, End: 2500}, {Start: 2500, End: 5000}, {Start: 5000, End: 7500}, {Start: 7500, End: 10000}},
		},
		{
			name:          "last absorbs remainder",
			contentLength: 10,
			workers:       3,
			want:          []utils.ByteRange{{Start: 0, End: 3}, {Start: 3, End: 6}, {Start: 6, End: 10}},
		},
		{name: "empty resource", contentLength: 0, workers: 4, want: nil},
		{name: "zero workers", contentLength: 5, workers: 0, want: []utils.ByteRange{{Start: 0, End: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Partition(tt.contentLength, tt.workers)); diff != "" {
				t.Errorf("Partition mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanForcesSingleRangeWithoutPartialContent(t *testing.T) {
	info := utils.RemoteServerInfo{URL: "http://example.com/f", ContentLength: 4096, AcceptsPartialContent: false}
	for _, workers := range []uint{1, 2, 8, 64} {
		tasks := Plan(info, workers)
		if len(tasks) != 1 {
			t.Fatalf("workers=%d: expected 1 task, got %d", workers, len(tasks))
		}
		if tasks[0].Range != (utils.ByteRange{Start: 0, End: 4096}) {
			t.Errorf("unexpected range %v", tasks[0].Range)
		}
	}
}

func TestPlanTasks(t *testing.T) {
	info := utils.RemoteServerInfo{URL: "http://example.com/f", ContentLength: 10, AcceptsPartialContent: true}
	tasks := Plan(info, 3)
	want := []utils.ChunkTask{
		{ID: 0, Range: utils.ByteRange{Start: 0, End: 3}, Offset: 0, URL: info.URL},
		{ID: 1, Range: utils.ByteRange{Start: 3, End: 6}, Offset: 3, URL: info.URL},
		{ID: 2, Range: utils.ByteRange{Start: 6, End: 10}, Offset: 6, URL: info.URL},
	}
	if diff := cmp.Diff(want, tasks); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}

	// More workers than bytes: the empty leading ranges are skipped.
	small := utils.RemoteServerInfo{URL: info.URL, ContentLength: 2, AcceptsPartialContent: true}
	tasks = Plan(small, 5)
	if len(tasks) != 1 || tasks[0].Range != (utils.ByteRange{Start: 0, End: 2}) {
		t.Errorf("unexpected tasks %+v", tasks)
	}

	if tasks := Plan(utils.RemoteServerInfo{AcceptsPartialContent: true}, 4); len(tasks) != 0 {
		t.Errorf("expected no tasks for an empty resource, got %d", len(tasks))
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	tasks := Plan(utils.RemoteServerInfo{ContentLength: 100, AcceptsPartialContent: true}, 20)
	var running, peak atomic.Int32
	err := Run(context.Background(), tasks, 3, func(ctx context.Context, task utils.ChunkTask) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent tasks, saw %d", peak.Load())
	}
}

func TestRunCollectsFailuresWithoutStoppingOthers(t *testing.T) {
	tasks := Plan(utils.RemoteServerInfo{ContentLength: 10000, AcceptsPartialContent: true}, 4)
	boom := errors.New("boom")
	var mu sync.Mutex
	done := map[int]bool{}
	err := Run(context.Background(), tasks, 4, func(ctx context.Context, task utils.ChunkTask) error {
		mu.Lock()
		done[task.ID] = true
		mu.Unlock()
		if task.ID == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if len(done) != 4 {
		t.Errorf("expected every task to run, ran %d", len(done))
	}
}

func TestRunNoTasks(t *testing.T) {
	if err := Run(context.Background(), nil, 4, nil); err != nil {
		t.Errorf("expected success for no tasks, got %v", err)
	}
}
