// Package progress reports per-hospital fetch/match progress during a
// batch query. Three implementations: mpb bars for interactive runs,
// throttled log lines for CI, and a no-op for tests.
package progress

import (
	"fmt"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker tracks progress for a single hospital.
type Tracker interface {
	SetStage(stage string)
	SetHits(hits int64)
	Done()
}

// Manager creates trackers for individual hospitals.
type Manager interface {
	NewTracker(index, total int, hospital string) Tracker
	Wait()
}

// MPBManager implements Manager with a single aggregate bar over the
// hospital batch, annotated with the most recently active hospital.
type MPBManager struct {
	container *mpb.Progress
	bar       *mpb.Bar
	current   atomic.Value // string: "<hospital>: <stage>"
	totalHits atomic.Int64
}

// NewMPBManager creates an mpb-based progress manager for a batch of
// total hospitals.
func NewMPBManager(total int) *MPBManager {
	m := &MPBManager{container: mpb.New(mpb.WithWidth(60))}
	m.current.Store("")
	m.bar = m.container.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("hospitals ", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Any(func(s decor.Statistics) string {
				return m.current.Load().(string)
			}),
		),
	)
	return m
}

func (m *MPBManager) NewTracker(index, total int, hospital string) Tracker {
	return &mpbTracker{mgr: m, name: hospital}
}

// Wait waits for the bar to finish rendering. A run that ends short of
// the total (cancellation, nothing to scan) aborts the bar first so
// Wait cannot block on increments that will never come.
func (m *MPBManager) Wait() {
	if !m.bar.Completed() {
		m.bar.Abort(false)
	}
	m.container.Wait()
}

type mpbTracker struct {
	mgr  *MPBManager
	name string
	hits int64
}

func (t *mpbTracker) SetStage(stage string) {
	t.mgr.current.Store(fmt.Sprintf("%s: %s", t.name, stage))
}

func (t *mpbTracker) SetHits(hits int64) {
	t.hits = hits
}

func (t *mpbTracker) Done() {
	t.mgr.totalHits.Add(t.hits)
	t.mgr.current.Store(fmt.Sprintf("%s hits total", humanCount(t.mgr.totalHits.Load())))
	t.mgr.bar.Increment()
}

// NoopManager is a silent progress manager for non-interactive use and
// tests.
type NoopManager struct{}

func (NoopManager) NewTracker(index, total int, hospital string) Tracker { return noopTracker{} }
func (NoopManager) Wait()                                                {}

type noopTracker struct{}

func (noopTracker) SetStage(string) {}
func (noopTracker) SetHits(int64)   {}
func (noopTracker) Done()           {}

func humanCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
