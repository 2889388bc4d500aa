package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into contiguous ranges, one per available
// CPU, and calls fn(start, end) for each range concurrently. It returns once
// every range has been processed. If fn panics, the first panic value is
// re-raised on the calling goroutine after all ranges have finished.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var (
		wg        sync.WaitGroup
		once      sync.Once
		recovered any
		panicked  bool
	)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() {
						recovered = r
						panicked = true
					})
				}
			}()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()

	if panicked {
		panic(recovered)
	}
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items is at most threshold, and through Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
