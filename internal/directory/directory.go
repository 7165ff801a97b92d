package directory

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gyeh/hospital-prices/internal/geo"
)

// Hospital is one row of the hospital directory table. Lat/Lon may be
// NaN when the source row had no usable coordinates; such hospitals are
// excluded from distance-based filtering but still listed.
type Hospital struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	ZIP     string  `json:"zip"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`

	// ChargemasterPath references the hospital's line-delimited price
	// record file. Empty when the hospital has not published one.
	ChargemasterPath string `json:"json_path"`
}

// Location returns the hospital's coordinates as a geo.Point.
func (h Hospital) Location() geo.Point {
	return geo.Point{Lon: h.Lon, Lat: h.Lat}
}

// LoadHospitals reads the hospital directory CSV. Expected header:
// id,name,state,address,city,zip,lat,lon,json_path. Rows with malformed
// coordinates are kept with NaN coordinates rather than dropped.
func LoadHospitals(path string) ([]Hospital, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hospital directory: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading hospital directory header: %w", err)
	}
	col := columnIndex(header)
	for _, required := range []string{"id", "name", "zip"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("hospital directory missing column %q", required)
		}
	}

	var hospitals []Hospital
	seen := map[string]struct{}{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading hospital directory row: %w", err)
		}

		h := Hospital{
			ID:               field(row, col, "id"),
			Name:             field(row, col, "name"),
			State:            field(row, col, "state"),
			Address:          field(row, col, "address"),
			City:             field(row, col, "city"),
			ZIP:              NormalizeZIP(field(row, col, "zip")),
			Lat:              parseCoord(field(row, col, "lat")),
			Lon:              parseCoord(field(row, col, "lon")),
			ChargemasterPath: field(row, col, "json_path"),
		}
		if h.ID == "" {
			continue
		}
		if _, dup := seen[h.ID]; dup {
			return nil, fmt.Errorf("duplicate hospital id %q", h.ID)
		}
		seen[h.ID] = struct{}{}
		hospitals = append(hospitals, h)
	}

	return hospitals, nil
}

// LoadZipCentroids reads the ZIP centroid CSV (header: zip,lat,lon) into
// a lookup table keyed by 5-character zero-padded ZIP. Rows with
// malformed coordinates are skipped.
func LoadZipCentroids(path string) (map[string]geo.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zip centroids: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading zip centroid header: %w", err)
	}
	col := columnIndex(header)
	for _, required := range []string{"zip", "lat", "lon"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("zip centroid table missing column %q", required)
		}
	}

	zips := make(map[string]geo.Point)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading zip centroid row: %w", err)
		}

		zip := NormalizeZIP(field(row, col, "zip"))
		if zip == "" {
			continue
		}
		p := geo.Point{
			Lat: parseCoord(field(row, col, "lat")),
			Lon: parseCoord(field(row, col, "lon")),
		}
		if !p.Finite() {
			continue
		}
		zips[zip] = p
	}

	return zips, nil
}

// NormalizeZIP trims a ZIP code and left-pads numeric codes to five
// characters (source tables store e.g. 2139 for 02139).
func NormalizeZIP(zip string) string {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return ""
	}
	if len(zip) < 5 {
		if _, err := strconv.Atoi(zip); err == nil {
			return strings.Repeat("0", 5-len(zip)) + zip
		}
	}
	return zip
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return col
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
