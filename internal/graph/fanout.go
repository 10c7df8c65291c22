package graph

import (
	"log"
	"sync"
)

// maxParallelRequests bounds concurrent upstream fetches to stay within
// rate-limit headroom.
const maxParallelRequests = 5

// ParallelFetch runs fetch for every item on a bounded worker pool and
// returns results positionally aligned with items. A failed item yields nil
// in its slot only; it never aborts sibling fetches. Never more workers are
// spawned than there are items.
func ParallelFetch[T, R any](items []T, fetch func(T) (*R, error)) []*R {
	if len(items) == 0 {
		return nil
	}

	results := make([]*R, len(items))

	indexes := make(chan int)
	var wg sync.WaitGroup

	for range min(maxParallelRequests, len(items)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				res, err := fetch(items[i])
				if err != nil {
					log.Printf("Parallel fetch error for item %d: %v", i, err)
					continue
				}
				results[i] = res
			}
		}()
	}

	for i := range items {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}
