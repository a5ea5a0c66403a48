// Package parallel はチャンク分割による並列実行と、並列度を制限したタスク実行を提供します。
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallelize は items を CPU コア数に応じて分割し、各範囲 [start, end) に対して fn を並列実行します。
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN はワーカー数を指定して Parallelize を行います。
// workers が 0 以下の場合は CPU コア数を使います。
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}

	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, items)
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold は items が threshold を超える場合のみ並列化します。
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Workers は n_jobs の値を実際のワーカー数に変換します。
// -1 は全コア、-2 は全コア-1 というように負の値はコア数から数えます。
func Workers(nJobs int) int {
	if nJobs > 0 {
		return nJobs
	}
	if nJobs == 0 {
		return 1
	}
	return max(runtime.NumCPU()+1+nJobs, 1)
}

// ForEach は fn(ctx, i) を i = 0..n-1 について最大 workers 並列で実行します。
// 最初に失敗したタスクのエラーを返し、残りのタスクの ctx はキャンセルされます。
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
