package decimalx

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLenientUnmarshal(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want decimal.Decimal
	}{
		{name: "quoted string", in: `"1.5"`, want: decimal.NewFromFloat(1.5)},
		{name: "bare number", in: `1.5`, want: decimal.NewFromFloat(1.5)},
		{name: "integer", in: `42`, want: decimal.NewFromInt(42)},
		{name: "scientific", in: `"1.2e3"`, want: decimal.NewFromInt(1200)},
		{name: "garbage string", in: `"abc"`, want: decimal.Zero},
		{name: "empty string", in: `""`, want: decimal.Zero},
		{name: "null", in: `null`, want: decimal.Zero},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var l Lenient
			err := json.Unmarshal([]byte(tc.in), &l)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(l.Decimal), "got %s, want %s", l.Decimal, tc.want)
		})
	}
}

func TestLenientInStruct(t *testing.T) {
	type ticker struct {
		Last   Lenient `json:"lastPrice"`
		Volume Lenient `json:"volume"`
	}

	var tk ticker
	err := json.Unmarshal([]byte(`{"lastPrice": "104.25", "volume": 1200.5}`), &tk)
	require.NoError(t, err)
	assert.Equal(t, "104.25", tk.Last.String())
	assert.Equal(t, "1200.5", tk.Volume.String())
}

func TestLenientMarshal(t *testing.T) {
	l := Lenient{Decimal: decimal.NewFromFloat(3.14)}
	out, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, `"3.14"`, string(out))
}
