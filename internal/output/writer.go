package output

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/gyeh/hospital-prices/internal/geo"
	"github.com/gyeh/hospital-prices/internal/price"
	"github.com/gyeh/hospital-prices/internal/search"
)

// SearchParams holds metadata about a search.
type SearchParams struct {
	ZIP               string  `json:"zip"`
	RadiusMiles       float64 `json:"radius_miles"`
	Pattern           string  `json:"pattern"`
	Payer             string  `json:"payer,omitempty"`
	HospitalsSearched int     `json:"hospitals_searched"`
	HospitalsMatched  int     `json:"hospitals_matched"`
	DurationSeconds   float64 `json:"duration_seconds"`
}

// Hit is one display-ready matching price record.
type Hit struct {
	Description   string  `json:"description"`
	Code          string  `json:"code,omitempty"`
	RevenueCode   string  `json:"rc_code,omitempty"`
	PayerName     string  `json:"payer_name,omitempty"`
	PlanName      string  `json:"plan_name,omitempty"`
	Amount        float64 `json:"amount"`
	Price         string  `json:"price"`
	MedicareRatio string  `json:"medicare_ratio"`
}

// HospitalResult is one hospital's entry in the output document.
type HospitalResult struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	City          string  `json:"city,omitempty"`
	State         string  `json:"state,omitempty"`
	DistanceMiles float64 `json:"distance_miles"`
	Hits          []Hit   `json:"hits"`
}

// Document is the top-level output JSON structure.
type Document struct {
	SearchParams SearchParams     `json:"search_params"`
	Results      []HospitalResult `json:"results"`
}

// BuildResults converts a search result into display-ready hospital
// entries, in the result's hospital order.
func BuildResults(res *search.Result, rates price.MedicareTable) []HospitalResult {
	out := make([]HospitalResult, 0, len(res.Hospitals))
	for _, h := range res.Hospitals {
		hr := HospitalResult{
			ID:    h.ID,
			Name:  h.Name,
			City:  h.City,
			State: h.State,
			Hits:  []Hit{},
		}
		if h.Location().Finite() {
			hr.DistanceMiles = round1(geo.Distance(res.Center, h.Location()))
		}
		for _, rec := range res.Hits[h.ID] {
			amount := price.EffectiveAmount(rec)
			hr.Hits = append(hr.Hits, Hit{
				Description:   string(rec.Description),
				Code:          string(rec.Code),
				RevenueCode:   string(rec.RevenueCode),
				PayerName:     string(rec.PayerName),
				PlanName:      string(rec.PlanName),
				Amount:        amount,
				Price:         price.Display(amount),
				MedicareRatio: price.Ratio(amount, string(rec.Code), rates),
			})
		}
		out = append(out, hr)
	}
	return out
}

// WriteResults writes the final JSON output to the specified file, or
// stdout when outputPath is "-".
func WriteResults(outputPath string, doc Document) error {
	if doc.Results == nil {
		doc.Results = []HospitalResult{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}

	if outputPath == "-" {
		_, err = os.Stdout.Write(data)
		fmt.Fprintln(os.Stdout)
		return err
	}

	return os.WriteFile(outputPath, data, 0o644)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
