package progress

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// LogManager implements Manager with throttled line-based output for
// non-TTY environments (CI, cron). Prints periodic status lines instead
// of interactive progress bars.
type LogManager struct {
	mu       sync.Mutex
	done     int
	total    int
	lastLine time.Time
}

const logInterval = 5 * time.Second

// NewLogManager creates a new log-based progress manager for a batch of
// total hospitals.
func NewLogManager(total int) *LogManager {
	return &LogManager{total: total}
}

func (m *LogManager) NewTracker(index, total int, hospital string) Tracker {
	return &logTracker{mgr: m, index: index, name: hospital, start: time.Now()}
}

func (m *LogManager) Wait() {}

func (m *LogManager) log(msg string, force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !force && time.Since(m.lastLine) < logInterval {
		return
	}
	m.lastLine = time.Now()
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stderr, "%s %s\n", ts, msg)
}

type logTracker struct {
	mgr   *LogManager
	index int
	name  string
	start time.Time
	hits  int64
}

func (t *logTracker) SetStage(stage string) {
	t.mgr.log(fmt.Sprintf("[%d/%d] %s  %s", t.index+1, t.mgr.total, t.name, stage), false)
}

func (t *logTracker) SetHits(hits int64) {
	t.hits = hits
}

func (t *logTracker) Done() {
	t.mgr.mu.Lock()
	t.mgr.done++
	done := t.mgr.done
	t.mgr.mu.Unlock()

	elapsed := time.Since(t.start).Truncate(time.Millisecond)
	t.mgr.log(fmt.Sprintf("[%d/%d] %s  %d hits in %s", done, t.mgr.total, t.name, t.hits, elapsed), done == t.mgr.total)
}
