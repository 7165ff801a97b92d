package chargemaster

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const sampleLines = `{"description":"MRI BRAIN W/O CONTRAST","code":"70551","payer_name":"Aetna","estimated_amount":1250.5}
{"description":"CT HEAD","code":70450,"rc_code":"0350","estimated_amount":"980.00"}
not json at all
{"description":"ER VISIT LEVEL 3","code":"99283","standard_charge|gross":410,"standard_charge_min":"$200.00","standard_charge_max":"1,100.25"}`

func parseAll(t *testing.T, input string) []PriceRecord {
	t.Helper()
	return parseRecordsStd(strings.NewReader(input), zerolog.Nop())
}

func TestParseRecords_DropsMalformedLines(t *testing.T) {
	records := parseAll(t, sampleLines)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (malformed line dropped)", len(records))
	}
}

func TestParseRecords_FieldExtraction(t *testing.T) {
	records := parseAll(t, sampleLines)

	first := records[0]
	if first.Description != "MRI BRAIN W/O CONTRAST" || first.Code != "70551" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.PayerName != "Aetna" || first.EstimatedAmount != 1250.5 {
		t.Errorf("unexpected payer/amount: %+v", first)
	}

	// Numeric code and string-typed amount both decode.
	second := records[1]
	if second.Code != "70450" {
		t.Errorf("numeric code = %q, want 70450", second.Code)
	}
	if second.RevenueCode != "0350" || second.EstimatedAmount != 980 {
		t.Errorf("unexpected second record: %+v", second)
	}

	// Dollar signs and thousands separators are tolerated.
	third := records[2]
	if third.GrossCharge != 410 || third.MinCharge != 200 || third.MaxCharge != 1100.25 {
		t.Errorf("unexpected charges: %+v", third)
	}
}

func TestParseRecords_JunkAmountIsZeroNotFatal(t *testing.T) {
	records := parseAll(t, `{"description":"X-RAY","estimated_amount":"call for price"}`)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].EstimatedAmount != 0 {
		t.Errorf("junk amount = %v, want 0", records[0].EstimatedAmount)
	}
}

func TestParseRecords_WrongTypedTextFieldIsEmptyNotFatal(t *testing.T) {
	// A structurally valid object with a number where text belongs keeps
	// the line; only structural failures drop it.
	records := parseAll(t, `{"description":123,"payer_name":true,"estimated_amount":50}`)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Description != "" || records[0].PayerName != "" {
		t.Errorf("wrong-typed text fields = %+v, want empty", records[0])
	}
	if records[0].EstimatedAmount != 50 {
		t.Errorf("amount = %v, want 50", records[0].EstimatedAmount)
	}
}

func TestParseRecords_EmptyAndBlankLines(t *testing.T) {
	records := parseAll(t, "\n\n{\"description\":\"A\"}\n\n")
	if len(records) != 1 || records[0].Description != "A" {
		t.Fatalf("got %+v, want single record A", records)
	}
}

func TestParseRecords_UnknownFieldsIgnored(t *testing.T) {
	records := parseAll(t, `{"description":"LAB PANEL","setting":"outpatient","modifiers":["25"],"estimated_amount":42}`)
	if len(records) != 1 || records[0].EstimatedAmount != 42 {
		t.Fatalf("record with unknown fields not parsed: %+v", records)
	}
}

// The simd path must agree with the stdlib path line for line.
func TestParseRecords_SimdMatchesStd(t *testing.T) {
	if !useSimd {
		t.Skip("simdjson unsupported on this CPU")
	}

	input := sampleLines + "\n" + `{"description":123,"payer_name":true,"estimated_amount":50}`
	std := parseRecordsStd(strings.NewReader(input), zerolog.Nop())
	simd := parseRecordsSimd(strings.NewReader(input), zerolog.Nop())

	if len(std) != len(simd) {
		t.Fatalf("std parsed %d records, simd parsed %d", len(std), len(simd))
	}
	for i := range std {
		if std[i] != simd[i] {
			t.Errorf("record %d differs:\n std: %+v\nsimd: %+v", i, std[i], simd[i])
		}
	}
}
