package workflow

import (
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// defaultFanOutWorkers bounds concurrent completion calls within one node.
const defaultFanOutWorkers = 4

// runPool executes jobs on a bounded worker pool and blocks until every job
// has finished. Jobs write results into their own slot, so one failing job
// cannot cancel or corrupt its siblings; the caller assembles the aggregate
// delta only after this join returns.
func runPool(workers int, jobs []func()) error {
	if workers <= 0 {
		workers = defaultFanOutWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			job()
		}); submitErr != nil {
			// Pool rejected the task; run inline so the join still completes.
			job()
			wg.Done()
		}
	}
	wg.Wait()
	return nil
}
