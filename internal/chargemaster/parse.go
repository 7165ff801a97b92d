package chargemaster

import (
	"bufio"
	"encoding/json"
	"io"

	simdjson "github.com/minio/simdjson-go"
	"github.com/rs/zerolog"
)

// useSimd is decided once at startup. simdjson needs AVX2 (amd64) or
// NEON (arm64); everywhere else the stdlib decoder is used.
var useSimd = simdjson.SupportedCPU()

// ParseRecords reads line-delimited JSON price records from r. Lines
// that fail structural parsing are dropped with a diagnostic; a partial
// file still yields every parseable record.
func ParseRecords(r io.Reader, log zerolog.Logger) []PriceRecord {
	if useSimd {
		return parseRecordsSimd(r, log)
	}
	return parseRecordsStd(r, log)
}

func parseRecordsStd(r io.Reader, log zerolog.Logger) []PriceRecord {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024) // chargemaster lines are small, but be generous

	var records []PriceRecord
	dropped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec PriceRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			dropped++
			log.Debug().Err(err).Int("line", len(records)+dropped).Msg("dropping malformed chargemaster line")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("chargemaster read stopped early")
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Int("kept", len(records)).Msg("chargemaster parsed with drops")
	}
	return records
}
