package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestParallelizeCoversAllItems(t *testing.T) {
	for _, items := range []int{0, 1, 7, 1000} {
		t.Run(fmt.Sprint(items), func(t *testing.T) {
			seen := make([]int32, items)
			Parallelize(items, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			})
			for i, v := range seen {
				if v != 1 {
					t.Fatalf("item %d visited %d times", i, v)
				}
			}
		})
	}
}

func TestParallelizeWithThresholdRunsSequentially(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		calls++
		if start != 0 || end != 5 {
			t.Errorf("range = [%d, %d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWorkers(t *testing.T) {
	cpus := runtime.NumCPU()
	tests := []struct {
		nJobs, want int
	}{
		{3, 3},
		{0, 1},
		{-1, cpus},
		{-cpus - 5, 1},
	}
	for _, tt := range tests {
		if got := Workers(tt.nJobs); got != tt.want {
			t.Errorf("Workers(%d) = %d, want %d", tt.nJobs, got, tt.want)
		}
	}
}

func TestForEach(t *testing.T) {
	var sum int64
	err := ForEach(context.Background(), 10, 3, func(_ context.Context, i int) error {
		atomic.AddInt64(&sum, int64(i))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sum != 45 {
		t.Errorf("sum = %d, want 45", sum)
	}

	wantErr := fmt.Errorf("fold 2 failed")
	err = ForEach(context.Background(), 5, 1, func(_ context.Context, i int) error {
		if i == 2 {
			return wantErr
		}
		return nil
	})
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestForEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ForEach(ctx, 3, 1, func(context.Context, int) error { return nil })
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
