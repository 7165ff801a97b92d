package worker

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gyeh/hospital-prices/internal/directory"
)

// UniquePayers scans the full record set of every hospital with a
// chargemaster path and returns the distinct non-empty payer names in
// lexicographic order. The scan is independent of any search pattern —
// it characterizes who pays at a hospital, not who pays for a
// procedure. Loads run concurrently (bounded by the pool size) and the
// call returns only once every load has resolved or soft-failed.
func (p *Pool) UniquePayers(ctx context.Context, hospitals []directory.Hospital) []string {
	seen := make(map[string]struct{})
	var mu sync.Mutex

	var cursor atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < p.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(hospitals) {
					return
				}
				if ctx.Err() != nil {
					return
				}
				records := p.Store.Load(ctx, hospitals[i].ChargemasterPath)

				mu.Lock()
				for _, rec := range records {
					if name := strings.TrimSpace(string(rec.PayerName)); name != "" {
						seen[name] = struct{}{}
					}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	payers := make([]string, 0, len(seen))
	for name := range seen {
		payers = append(payers, name)
	}
	sort.Strings(payers)
	return payers
}
