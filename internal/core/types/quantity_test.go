package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      string
		want    Quantity
		wantErr bool
	}{
		{"0", 0, false},
		{"1", 10000, false},
		{"12.5", 125000, false},
		{"-3.25", -32500, false},
		{"0.0001", 1, false},
		{"0.00005", 1, false}, // rounds half-up to one scaled unit
		{"  7 ", 70000, false},
		{"", 0, true},
		{"abc", 0, true},
		{"12,5", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseQuantity(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		assert.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseLenient_CoercesGarbageToZero(t *testing.T) {
	assert.Equal(t, Quantity(0), ParseLenient(""))
	assert.Equal(t, Quantity(0), ParseLenient("pallet"))
	assert.Equal(t, Quantity(0), ParseLenient("-"))
	assert.Equal(t, Quantity(425000), ParseLenient("42.5"))
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "0.0000", Quantity(0).String())
	assert.Equal(t, "98.0000", Quantity(980000).String())
	assert.Equal(t, "-2.0000", Quantity(-20000).String())
	assert.Equal(t, "0.0001", Quantity(1).String())
	assert.Equal(t, "-0.0001", Quantity(-1).String())
}

func TestQuantityJSONRoundTrip(t *testing.T) {
	type payload struct {
		Qty Quantity `json:"qty"`
	}

	out, err := json.Marshal(payload{Qty: 981234})
	assert.NoError(t, err)
	assert.Equal(t, `{"qty":98.1234}`, string(out))

	var in payload
	assert.NoError(t, json.Unmarshal([]byte(`{"qty":"12.5"}`), &in))
	assert.Equal(t, Quantity(125000), in.Qty)

	assert.NoError(t, json.Unmarshal([]byte(`{"qty":null}`), &in))
	assert.Equal(t, Quantity(0), in.Qty)
}

func TestQuantityAbsNeg(t *testing.T) {
	assert.Equal(t, Quantity(20000), Quantity(-20000).Abs())
	assert.Equal(t, Quantity(20000), Quantity(20000).Abs())
	assert.Equal(t, Quantity(-20000), Quantity(20000).Neg())
}
