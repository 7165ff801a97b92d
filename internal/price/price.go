// Package price normalizes chargemaster amounts and computes Medicare
// reference ratios for display.
package price

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gyeh/hospital-prices/internal/chargemaster"
)

// EffectiveAmount extracts the usable dollar amount from a record,
// preferring in order: estimated amount, negotiated dollar charge, gross
// charge, standard charge min, standard charge max. The first non-zero
// field wins; a present-but-zero field falls through like an absent one.
func EffectiveAmount(rec chargemaster.PriceRecord) float64 {
	for _, a := range []chargemaster.Amount{
		rec.EstimatedAmount,
		rec.NegotiatedDollar,
		rec.GrossCharge,
		rec.MinCharge,
		rec.MaxCharge,
	} {
		if a != 0 {
			return float64(a)
		}
	}
	return 0
}

// MedicareTable maps procedure codes to reference rates. A missing code
// reads as 0, meaning unknown.
type MedicareTable map[string]float64

// Ratio formats amount as a multiple of the code's Medicare rate. An
// amount of 0 is "N/A" regardless of code; a missing or non-positive
// rate is "unknown"; otherwise a two-decimal multiplier like "1.87x".
func Ratio(amount float64, code string, rates MedicareTable) string {
	if amount == 0 {
		return "N/A"
	}
	rate := rates[code]
	if rate <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.2fx", amount/rate)
}

// Display formats amount as a dollar string, or "N/A" when no usable
// amount was found.
func Display(amount float64) string {
	if amount == 0 {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", amount)
}

// LoadMedicareRates reads the Medicare reference rate CSV (header:
// code,price). Rows with non-positive or malformed prices are skipped —
// a rate of 0 already means unknown.
func LoadMedicareRates(path string) (MedicareTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open medicare rates: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("reading medicare rate header: %w", err)
	}

	rates := make(MedicareTable)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading medicare rate row: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		code := strings.TrimSpace(row[0])
		rate, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil || rate <= 0 || code == "" {
			continue
		}
		rates[code] = rate
	}
	return rates, nil
}
