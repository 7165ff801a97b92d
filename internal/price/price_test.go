package price

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gyeh/hospital-prices/internal/chargemaster"
)

func TestEffectiveAmount_PrecedenceChain(t *testing.T) {
	tests := []struct {
		name string
		rec  chargemaster.PriceRecord
		want float64
	}{
		{"estimated wins", chargemaster.PriceRecord{EstimatedAmount: 100, NegotiatedDollar: 90, GrossCharge: 80}, 100},
		{"negotiated dollar next", chargemaster.PriceRecord{NegotiatedDollar: 90, GrossCharge: 80}, 90},
		{"gross next", chargemaster.PriceRecord{GrossCharge: 80, MinCharge: 70}, 80},
		{"min next", chargemaster.PriceRecord{MinCharge: 70, MaxCharge: 60}, 70},
		{"max last", chargemaster.PriceRecord{MaxCharge: 60}, 60},
		{"all absent", chargemaster.PriceRecord{}, 0},
		{"zero falls through", chargemaster.PriceRecord{EstimatedAmount: 0, GrossCharge: 80}, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveAmount(tt.rec); got != tt.want {
				t.Errorf("EffectiveAmount = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	rates := MedicareTable{"70551": 400}

	tests := []struct {
		name   string
		amount float64
		code   string
		want   string
	}{
		{"known rate", 748, "70551", "1.87x"},
		{"missing code", 748, "99999", "unknown"},
		{"zero amount", 0, "70551", "N/A"},
		{"zero amount unknown code", 0, "99999", "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ratio(tt.amount, tt.code, rates); got != tt.want {
				t.Errorf("Ratio(%v, %q) = %q, want %q", tt.amount, tt.code, got, tt.want)
			}
		})
	}
}

func TestDisplay(t *testing.T) {
	if got := Display(0); got != "N/A" {
		t.Errorf("Display(0) = %q, want N/A", got)
	}
	if got := Display(1234.5); got != "$1234.50" {
		t.Errorf("Display(1234.5) = %q", got)
	}
}

func TestLoadMedicareRates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medicare_rates.csv")
	content := "code,price\n70551,400.25\n70450,0\n99283,-5\nbad,notanumber\n,12\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rates, err := LoadMedicareRates(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rates) != 1 {
		t.Fatalf("got %d rates, want 1 (non-positive and malformed rows skipped)", len(rates))
	}
	if rates["70551"] != 400.25 {
		t.Errorf("rate = %v, want 400.25", rates["70551"])
	}
}
