package chargemaster

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	simdjson "github.com/minio/simdjson-go"
	"github.com/rs/zerolog"
)

// parseRecordsSimd parses chargemaster NDJSON with simdjson. Full native
// extraction — no json.Unmarshal needed. Field semantics mirror the
// stdlib path: missing or junk values degrade to zero values, only lines
// that are not JSON objects are dropped.
func parseRecordsSimd(r io.Reader, log zerolog.Logger) []PriceRecord {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var pj *simdjson.ParsedJson // reused across simdjson.Parse calls

	var records []PriceRecord
	dropped := 0
	lineNo := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lineNo++

		var err error
		pj, err = simdjson.Parse(line, pj)
		if err != nil {
			dropped++
			log.Debug().Err(err).Int("line", lineNo).Msg("dropping malformed chargemaster line")
			continue
		}

		ok := false
		pj.ForEach(func(i simdjson.Iter) error {
			if i.Type() != simdjson.TypeObject {
				return nil
			}
			records = append(records, extractRecord(i))
			ok = true
			return nil
		})
		if !ok {
			dropped++
			log.Debug().Int("line", lineNo).Msg("dropping non-object chargemaster line")
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("chargemaster read stopped early")
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Int("kept", len(records)).Msg("chargemaster parsed with drops")
	}
	return records
}

func extractRecord(i simdjson.Iter) PriceRecord {
	return PriceRecord{
		Description: Text(simdString(i, "description")),
		Code:        Code(simdText(i, "code")),
		RevenueCode: Code(simdText(i, "rc_code")),
		PayerName:   Text(simdString(i, "payer_name")),
		PlanName:    Text(simdString(i, "plan_name")),

		EstimatedAmount:  simdAmount(i, "estimated_amount"),
		NegotiatedDollar: simdAmount(i, "standard_charge|negotiated_dollar"),
		GrossCharge:      simdAmount(i, "standard_charge|gross"),
		MinCharge:        simdAmount(i, "standard_charge_min"),
		MaxCharge:        simdAmount(i, "standard_charge_max"),
	}
}

// simdString returns the string value at key, or "" when the key is
// missing or not a string.
func simdString(i simdjson.Iter, key string) string {
	e, err := i.FindElement(nil, key)
	if err != nil {
		return ""
	}
	s, err := e.Iter.String()
	if err != nil {
		return ""
	}
	return s
}

// simdText returns the value at key as text, accepting both strings and
// bare numbers (codes appear as either).
func simdText(i simdjson.Iter, key string) string {
	e, err := i.FindElement(nil, key)
	if err != nil {
		return ""
	}
	if s, err := e.Iter.String(); err == nil {
		return strings.TrimSpace(s)
	}
	if n, err := e.Iter.Int(); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := e.Iter.Float(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// simdAmount returns the dollar amount at key with the same tolerance as
// Amount.UnmarshalJSON: numbers pass through, numeric strings (possibly
// with "$" or thousands separators) are parsed, everything else is 0.
func simdAmount(i simdjson.Iter, key string) Amount {
	e, err := i.FindElement(nil, key)
	if err != nil {
		return 0
	}
	if f, err := e.Iter.Float(); err == nil {
		return Amount(f)
	}
	s, err := e.Iter.String()
	if err != nil {
		return 0
	}
	s = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "$")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Amount(f)
}
