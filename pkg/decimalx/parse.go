package decimalx

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Lenient is a decimal that tolerates the loose numeric encoding of exchange
// payloads: the same field may arrive as a JSON number or as a quoted string.
// Values that fail to parse become zero instead of failing the whole document.
type Lenient struct {
	decimal.Decimal
}

func (l *Lenient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		l.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			l.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			l.Decimal = decimal.Zero
			return nil
		}
		l.Decimal = d
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		l.Decimal = decimal.Zero
		return nil
	}
	l.Decimal = d
	return nil
}

func (l Lenient) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Decimal.String())
}
