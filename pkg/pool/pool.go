package pool

import (
	"sync"
	"sync/atomic"
)

// Run executes task(i) for every i in [0, n) using a fixed number of
// workers draining a shared index cursor. Each worker loops "claim next
// index, run task, repeat" until the cursor passes n. Distinct workers
// never receive the same index, so tasks that write worker-local state
// need no further synchronization.
func Run(workers, n int, task func(i int)) {
	if n <= 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := cursor.Add(1) - 1
				if i >= int64(n) {
					return
				}
				task(int(i))
			}
		}()
	}
	wg.Wait()
}
