package render

import "sync"

// dispatchSerialBelow is the dispatch size under which goroutine
// startup costs more than it saves.
const dispatchSerialBelow = 4096

// dispatch runs fn over [0, n) split into contiguous worker ranges.
// Invocations within a range touch only their own index's outputs, so
// the only synchronization is the join: dispatch returns when every
// range has completed, giving the full-stage barrier the pipeline
// requires between producer and consumer stages.
func (p *Pipeline) dispatch(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if p.workers <= 1 || n < dispatchSerialBelow {
		fn(0, n)
		return
	}

	chunk := (n + p.workers - 1) / p.workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

// dispatchBands splits the framebuffer into horizontal pixel bands and
// rasterizes them concurrently. Bands partition rows, so no two workers
// write the same pixel and each pixel still sees splats in sorted
// order.
func (p *Pipeline) dispatchBands(bands int) {
	rows := (p.fb.Height + bands - 1) / bands

	var wg sync.WaitGroup
	for yMin := 0; yMin < p.fb.Height; yMin += rows {
		yMax := yMin + rows
		if yMax > p.fb.Height {
			yMax = p.fb.Height
		}
		wg.Add(1)
		go func(yMin, yMax int) {
			defer wg.Done()
			p.rasterizeBand(yMin, yMax)
		}(yMin, yMax)
	}
	wg.Wait()
}
