package search

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/hospital-prices/internal/chargemaster"
	"github.com/gyeh/hospital-prices/internal/directory"
	"github.com/gyeh/hospital-prices/internal/geo"
	"github.com/gyeh/hospital-prices/internal/pattern"
	"github.com/gyeh/hospital-prices/internal/worker"
)

const dukeChargemaster = `{"description":"MRI BRAIN W/O CONTRAST","code":"70551","payer_name":"Aetna","estimated_amount":748}
{"description":"XRAY CHEST 2 VIEWS","code":"71046","payer_name":"Aetna","estimated_amount":120}
{"description":"MRI KNEE","code":"73721","payer_name":"Cigna","estimated_amount":612}`

const farChargemaster = `{"description":"MRI BRAIN W/O CONTRAST","code":"70551","payer_name":"United","estimated_amount":510}`

// newTestEngine builds an engine over local fixture files. The centroid
// for 27710 sits a fraction of a mile from the first hospital; the
// second is roughly forty miles due north; the third has no usable
// coordinates.
func newTestEngine(t *testing.T) (*Engine, *chargemaster.Store) {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "duke.jsonl", dukeChargemaster)
	writeFixture(t, dir, "far.jsonl", farChargemaster)

	store := chargemaster.NewStore(&chargemaster.FileFetcher{Root: dir}, zerolog.Nop())
	return &Engine{
		Zips: map[string]geo.Point{
			"27710": {Lat: 36.0039, Lon: -78.9403},
		},
		Hospitals: []directory.Hospital{
			{ID: "duke", Name: "Duke University Hospital", Lat: 36.0076, Lon: -78.9382, ChargemasterPath: "duke.jsonl"},
			{ID: "far", Name: "Northern Regional", Lat: 36.5836, Lon: -78.9403, ChargemasterPath: "far.jsonl"},
			{ID: "nanhospital", Name: "Unmapped Clinic", Lat: math.NaN(), Lon: math.NaN(), ChargemasterPath: "duke.jsonl"},
		},
		ServicePatterns: pattern.Table{
			"MRI brain": {Name: "MRI brain", Source: "(MRI|70551)"},
		},
		Pool: &worker.Pool{Store: store, Log: zerolog.Nop()},
	}, store
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSearch_EmptyDirectory(t *testing.T) {
	e := &Engine{Zips: map[string]geo.Point{"27710": {}}}
	_, err := e.Search(context.Background(), Request{ZIP: "27710"})
	if !errors.Is(err, ErrNoHospitals) {
		t.Fatalf("err = %v, want ErrNoHospitals", err)
	}
}

func TestSearch_UnknownZIP(t *testing.T) {
	e, store := newTestEngine(t)
	_, err := e.Search(context.Background(), Request{ZIP: "99999", Pattern: pattern.Custom("MRI")})

	var uz *UnknownZIPError
	if !errors.As(err, &uz) {
		t.Fatalf("err = %v (%T), want *UnknownZIPError", err, err)
	}
	if uz.ZIP != "99999" {
		t.Errorf("UnknownZIPError.ZIP = %q", uz.ZIP)
	}
	if store.Len() != 0 {
		t.Error("unknown ZIP still triggered fetches")
	}
}

func TestSearch_InvalidPatternFailsBeforeAnyFetch(t *testing.T) {
	e, store := newTestEngine(t)
	_, err := e.Search(context.Background(), Request{
		ZIP:         "27710",
		RadiusMiles: 25,
		Pattern:     pattern.Custom("(MRI"),
	})

	var ce *pattern.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v (%T), want *pattern.CompileError", err, err)
	}
	if store.Len() != 0 {
		t.Error("invalid pattern still triggered fetches")
	}
}

func TestSearch_EmptyPatternListsHospitalsWithoutIO(t *testing.T) {
	e, store := newTestEngine(t)
	res, err := e.Search(context.Background(), Request{ZIP: "27710", RadiusMiles: 25})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hospitals) != 1 || res.Hospitals[0].ID != "duke" {
		t.Fatalf("hospitals = %+v, want duke only", res.Hospitals)
	}
	if len(res.Hits) != 0 {
		t.Errorf("empty pattern produced hits: %+v", res.Hits)
	}
	if store.Len() != 0 {
		t.Error("empty pattern still triggered fetches")
	}
}

func TestInRadius(t *testing.T) {
	e, store := newTestEngine(t)

	center, hospitals, err := e.InRadius("27710", 25)
	if err != nil {
		t.Fatal(err)
	}
	if center != e.Zips["27710"] {
		t.Errorf("center = %+v, want the 27710 centroid", center)
	}
	if len(hospitals) != 1 || hospitals[0].ID != "duke" {
		t.Fatalf("hospitals = %+v, want duke only", hospitals)
	}
	if store.Len() != 0 {
		t.Error("InRadius touched a chargemaster")
	}

	var uz *UnknownZIPError
	if _, _, err := e.InRadius("99999", 25); !errors.As(err, &uz) {
		t.Errorf("unknown ZIP err = %v, want *UnknownZIPError", err)
	}

	empty := &Engine{Zips: e.Zips}
	if _, _, err := empty.InRadius("27710", 25); !errors.Is(err, ErrNoHospitals) {
		t.Errorf("empty directory err = %v, want ErrNoHospitals", err)
	}
}

func TestSearch_RadiusFiltersThenMatches(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Search(context.Background(), Request{
		ZIP:         "27710",
		RadiusMiles: 25,
		Pattern:     e.ServicePatterns["MRI brain"],
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Hospitals) != 1 || res.Hospitals[0].ID != "duke" {
		t.Fatalf("hospitals = %+v, want duke only at 25 miles", res.Hospitals)
	}
	hits := res.Hits["duke"]
	if len(hits) != 2 {
		t.Fatalf("duke got %d hits, want 2", len(hits))
	}
	// Ascending by effective amount: the knee MRI is cheaper.
	if hits[0].Code != "73721" || hits[1].Code != "70551" {
		t.Errorf("hits out of order: %+v", hits)
	}
	if _, ok := res.Hits["far"]; ok {
		t.Error("out-of-radius hospital was scanned")
	}
}

func TestSearch_WideRadiusShowsAllMapped(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Search(context.Background(), Request{
		ZIP:         "27710",
		RadiusMiles: 500,
		Pattern:     pattern.Custom("MRI"),
	})
	if err != nil {
		t.Fatal(err)
	}

	ids := map[string]bool{}
	for _, h := range res.Hospitals {
		ids[h.ID] = true
	}
	if !ids["duke"] || !ids["far"] {
		t.Errorf("wide radius missing hospitals: %v", ids)
	}
	if ids["nanhospital"] {
		t.Error("hospital without coordinates included in results")
	}
	if len(res.Hits["far"]) != 1 {
		t.Errorf("far hospital got %d hits, want 1", len(res.Hits["far"]))
	}
}

func TestSearch_NormalizesRequestZIP(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Zips["02139"] = geo.Point{Lat: 42.3647, Lon: -71.1042}

	if _, err := e.Search(context.Background(), Request{ZIP: " 27710 "}); err != nil {
		t.Errorf("whitespace ZIP rejected: %v", err)
	}
	if _, err := e.Search(context.Background(), Request{ZIP: "2139"}); err != nil {
		t.Errorf("short ZIP not zero-padded: %v", err)
	}
}

func TestListPayers(t *testing.T) {
	e, _ := newTestEngine(t)
	payers := e.ListPayers(context.Background(), e.Hospitals[:2])

	want := []string{"Aetna", "Cigna", "United"}
	if len(payers) != len(want) {
		t.Fatalf("payers = %v, want %v", payers, want)
	}
	for i := range want {
		if payers[i] != want[i] {
			t.Fatalf("payers = %v, want %v", payers, want)
		}
	}
}

func TestLookupPattern(t *testing.T) {
	e, _ := newTestEngine(t)
	e.RevenuePatterns = pattern.Table{
		"Room and board": {Name: "Room and board", Source: "^012[0-9]$"},
	}

	if p, ok := e.LookupPattern(pattern.CodeFieldProcedure, "MRI brain"); !ok || p.Source != "(MRI|70551)" {
		t.Errorf("service lookup = %+v, ok=%v", p, ok)
	}
	if p, ok := e.LookupPattern(pattern.CodeFieldRevenue, "Room and board"); !ok || p.Source != "^012[0-9]$" {
		t.Errorf("revenue lookup = %+v, ok=%v", p, ok)
	}
	if _, ok := e.LookupPattern(pattern.CodeFieldProcedure, "Room and board"); ok {
		t.Error("revenue pattern resolved in procedure mode")
	}
}
