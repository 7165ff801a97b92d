// Package worker drives the bounded-concurrency query over a set of
// hospitals: each worker claims the next unexamined hospital from a
// shared cursor, loads its chargemaster through the session store, and
// evaluates every record against the active pattern.
package worker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/gyeh/hospital-prices/internal/chargemaster"
	"github.com/gyeh/hospital-prices/internal/directory"
	"github.com/gyeh/hospital-prices/internal/pattern"
	"github.com/gyeh/hospital-prices/internal/price"
	"github.com/gyeh/hospital-prices/internal/progress"
)

// DefaultWorkers bounds the number of simultaneously outstanding
// chargemaster fetches. A tunable, not a correctness parameter.
const DefaultWorkers = 4

// MaxHitsPerHospital caps each hospital's hit list.
const MaxHitsPerHospital = 50

// Pool manages concurrent querying of hospital chargemasters.
type Pool struct {
	Workers  int
	Store    *chargemaster.Store
	Progress progress.Manager
	Log      zerolog.Logger
}

func (p *Pool) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return DefaultWorkers
}

func (p *Pool) progress() progress.Manager {
	if p.Progress != nil {
		return p.Progress
	}
	return progress.NoopManager{}
}

// Run queries every hospital and returns hits grouped by hospital id.
// Workers pull hospitals in index order from a shared cursor; the call
// returns only when every hospital has been processed. Per-hospital
// fetch failures yield an empty hit list and never abort the batch.
// Each hit list holds at most MaxHitsPerHospital records — the first
// matches in file order — re-sorted ascending by effective amount.
func (p *Pool) Run(ctx context.Context, hospitals []directory.Hospital, pat *pattern.Compiled, field pattern.CodeField, payer string) map[string][]chargemaster.PriceRecord {
	if pat == nil || len(hospitals) == 0 {
		return map[string][]chargemaster.PriceRecord{}
	}

	mgr := p.progress()
	results := make([][]chargemaster.PriceRecord, len(hospitals))

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
				// Cancellation is cooperative: checked between
				// hospitals, never mid-fetch.
				if ctx.Err() != nil {
					return
				}
				results[i] = p.queryHospital(ctx, hospitals[i], i, len(hospitals), pat, field, payer, mgr)
			}
		}()
	}
	wg.Wait()

	hits := make(map[string][]chargemaster.PriceRecord, len(hospitals))
	for i, h := range hospitals {
		hits[h.ID] = results[i]
	}
	return hits
}

func (p *Pool) queryHospital(ctx context.Context, h directory.Hospital, index, total int, pat *pattern.Compiled, field pattern.CodeField, payer string, mgr progress.Manager) []chargemaster.PriceRecord {
	tracker := mgr.NewTracker(index, total, h.Name)
	defer tracker.Done()

	if h.ChargemasterPath == "" {
		tracker.SetStage("no chargemaster")
		return nil
	}

	tracker.SetStage("fetching")
	records := p.Store.Load(ctx, h.ChargemasterPath)

	tracker.SetStage("matching")
	var matches []chargemaster.PriceRecord
	for _, rec := range records {
		if !pat.Matches(rec, field) || !pattern.PayerMatches(rec, payer) {
			continue
		}
		matches = append(matches, rec)
		if len(matches) == MaxHitsPerHospital {
			break
		}
	}

	// Stable keeps file order among equal amounts.
	sort.SliceStable(matches, func(a, b int) bool {
		return price.EffectiveAmount(matches[a]) < price.EffectiveAmount(matches[b])
	})

	tracker.SetHits(int64(len(matches)))
	p.Log.Debug().Str("hospital", h.ID).Int("hits", len(matches)).Msg("hospital queried")
	return matches
}
