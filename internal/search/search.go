// Package search is the outward API of the query engine: radius search
// over the hospital directory with chargemaster pattern matching, and
// payer listing for filter population.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/gyeh/hospital-prices/internal/chargemaster"
	"github.com/gyeh/hospital-prices/internal/directory"
	"github.com/gyeh/hospital-prices/internal/geo"
	"github.com/gyeh/hospital-prices/internal/pattern"
	"github.com/gyeh/hospital-prices/internal/price"
	"github.com/gyeh/hospital-prices/internal/worker"
)

// ErrNoHospitals reports a search attempted before the hospital
// directory was loaded.
var ErrNoHospitals = errors.New("hospital directory is empty")

// UnknownZIPError reports a search ZIP absent from the centroid table.
type UnknownZIPError struct {
	ZIP string
}

func (e *UnknownZIPError) Error() string {
	return fmt.Sprintf("unknown ZIP code %q", e.ZIP)
}

// Engine holds the session's reference tables and chargemaster store.
// Construct one per session; there is no ambient shared state.
type Engine struct {
	Zips      map[string]geo.Point
	Hospitals []directory.Hospital

	ServicePatterns pattern.Table
	RevenuePatterns pattern.Table
	MedicareRates   price.MedicareTable

	Pool *worker.Pool
}

// Request describes one search invocation. Pattern.Source may be empty,
// in which case the search returns the in-radius hospitals with no hits
// and performs no I/O.
type Request struct {
	ZIP         string
	RadiusMiles float64
	Pattern     pattern.Pattern
	CodeField   pattern.CodeField
	Payer       string
}

// Result is the display-ready outcome of a search.
type Result struct {
	Center    geo.Point
	Hospitals []directory.Hospital
	Hits      map[string][]chargemaster.PriceRecord
}

// InRadius resolves the search center and returns the hospitals within
// the radius, without touching any chargemaster. Callers use it to size
// a progress display before the scan; Search runs it as its pre-flight.
func (e *Engine) InRadius(zip string, radiusMiles float64) (geo.Point, []directory.Hospital, error) {
	if len(e.Hospitals) == 0 {
		return geo.Point{}, nil, ErrNoHospitals
	}
	center, ok := e.Zips[directory.NormalizeZIP(zip)]
	if !ok {
		return geo.Point{}, nil, &UnknownZIPError{ZIP: zip}
	}
	return center, geo.FilterByRadius(e.Hospitals, center, radiusMiles), nil
}

// Search runs the full query: ZIP lookup, radius filter, then the
// bounded-concurrency chargemaster scan. Pre-flight failures (unknown
// ZIP, invalid pattern, missing directory) abort before any fetch;
// per-hospital failures inside the batch never do.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	center, hospitals, err := e.InRadius(req.ZIP, req.RadiusMiles)
	if err != nil {
		return nil, err
	}

	var compiled *pattern.Compiled
	if req.Pattern.Source != "" {
		compiled, err = req.Pattern.Compile()
		if err != nil {
			return nil, err
		}
	}

	result := &Result{
		Center:    center,
		Hospitals: hospitals,
		Hits:      map[string][]chargemaster.PriceRecord{},
	}
	if compiled != nil {
		result.Hits = e.Pool.Run(ctx, hospitals, compiled, req.CodeField, req.Payer)
	}
	return result, nil
}

// ListPayers returns the distinct payer names observed across the given
// hospitals' full chargemasters, sorted lexicographically.
func (e *Engine) ListPayers(ctx context.Context, hospitals []directory.Hospital) []string {
	return e.Pool.UniquePayers(ctx, hospitals)
}

// LookupPattern resolves a configured pattern name in the table for the
// given code field mode.
func (e *Engine) LookupPattern(field pattern.CodeField, name string) (pattern.Pattern, bool) {
	table := e.ServicePatterns
	if field == pattern.CodeFieldRevenue {
		table = e.RevenuePatterns
	}
	p, ok := table[name]
	return p, ok
}
