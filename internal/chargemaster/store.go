package chargemaster

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Store is a session-scoped chargemaster cache keyed by file path. A
// file is fetched and parsed at most once per successful load; callers
// instantiate one Store per session. Concurrent first-loads of the same
// path may fetch twice — both writers store the same deterministic
// parse, so the race is redundant work, never a correctness hazard.
type Store struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu      sync.RWMutex
	records map[string][]PriceRecord
}

// NewStore creates an empty store backed by fetcher.
func NewStore(fetcher Fetcher, log zerolog.Logger) *Store {
	return &Store{
		fetcher: fetcher,
		log:     log,
		records: make(map[string][]PriceRecord),
	}
}

// Load returns the parsed records for path, fetching on first use. An
// empty path short-circuits to nil without I/O. Transport failures are
// soft: the result is nil, nothing is cached, and a later call may
// re-attempt the fetch.
func (s *Store) Load(ctx context.Context, path string) []PriceRecord {
	if path == "" {
		return nil
	}

	s.mu.RLock()
	cached, ok := s.records[path]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	body, err := s.fetcher.Fetch(ctx, path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("chargemaster fetch failed")
		return nil
	}
	defer body.Close()

	records := ParseRecords(body, s.log.With().Str("path", path).Logger())

	s.mu.Lock()
	s.records[path] = records
	s.mu.Unlock()

	return records
}

// Len returns the number of cached chargemaster files.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
