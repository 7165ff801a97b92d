package chargemaster

import (
	"bytes"
	"strconv"
	"strings"
)

// Amount is a dollar amount parsed from a chargemaster field. Source
// files are inconsistent: amounts appear as JSON numbers, numeric
// strings ("1234.50", "1,234.50"), null, or junk text. Anything that
// does not parse as a number decodes to 0 rather than failing the line.
type Amount float64

// UnmarshalJSON implements tolerant decoding for Amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	s := string(data)
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			*a = 0
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(unquoted), ",", "")
		s = strings.TrimPrefix(s, "$")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(v)
	return nil
}

// Text is a free-text field such as a description or payer name.
// Non-string values decode to "" rather than failing the line.
type Text string

// UnmarshalJSON implements tolerant decoding for Text.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		*t = ""
		return nil
	}
	unquoted, err := strconv.Unquote(string(data))
	if err != nil {
		*t = ""
		return nil
	}
	*t = Text(unquoted)
	return nil
}

// Code is a procedure or revenue code. Some files emit codes as bare
// JSON numbers; those decode to their decimal string form.
type Code string

// UnmarshalJSON implements tolerant decoding for Code.
func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			*c = ""
			return nil
		}
		*c = Code(strings.TrimSpace(unquoted))
		return nil
	}
	*c = Code(data)
	return nil
}

// PriceRecord is one line of a hospital chargemaster. Files are
// schemaless beyond these recognized fields; unknown fields are ignored.
type PriceRecord struct {
	Description Text `json:"description"`
	Code        Code `json:"code"`
	RevenueCode Code `json:"rc_code"`
	PayerName   Text `json:"payer_name"`
	PlanName    Text `json:"plan_name"`

	EstimatedAmount  Amount `json:"estimated_amount"`
	NegotiatedDollar Amount `json:"standard_charge|negotiated_dollar"`
	GrossCharge      Amount `json:"standard_charge|gross"`
	MinCharge        Amount `json:"standard_charge_min"`
	MaxCharge        Amount `json:"standard_charge_max"`
}
