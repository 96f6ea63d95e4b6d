package core

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestBidIncrement(t *testing.T) {
	tests := []struct {
		current   string
		increment string
		minimum   string
	}{
		{current: "0.01", increment: "1.00", minimum: "1.01"},
		{current: "50", increment: "1.00", minimum: "51.00"},
		{current: "99", increment: "1.00", minimum: "100.00"},
		{current: "99.99", increment: "1.00", minimum: "100.99"},
		{current: "100", increment: "5.00", minimum: "105.00"},
		{current: "499.99", increment: "5.00", minimum: "504.99"},
		{current: "500", increment: "10.00", minimum: "510.00"},
		{current: "999", increment: "10.00", minimum: "1009.00"},
		{current: "1000", increment: "25.00", minimum: "1025.00"},
		{current: "25000", increment: "25.00", minimum: "25025.00"},
	}

	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			check.Equal(t, tt.increment, FormatMoney(BidIncrement(amount(tt.current))))
			check.Equal(t, tt.minimum, FormatMoney(MinimumNextBid(amount(tt.current))))
		})
	}
}

func TestClearsIncrement(t *testing.T) {
	check.True(t, ClearsIncrement(amount("100"), amount("99")))
	check.False(t, ClearsIncrement(amount("99.99"), amount("99")))
	check.True(t, ClearsIncrement(amount("105"), amount("100")))
	check.False(t, ClearsIncrement(amount("104.99"), amount("100")))
	check.True(t, ClearsIncrement(amount("1009"), amount("999")))
	check.False(t, ClearsIncrement(amount("1008.99"), amount("999")))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "integer", input: "55", want: "55.00"},
		{name: "cents", input: "55.25", want: "55.25"},
		{name: "whitespace", input: " 60 ", want: "60.00"},
		{name: "trailing zeros beyond cents", input: "60.000", want: "60.00"},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "sub-cent", input: "1.005", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "nan", input: "NaN", wantErr: true},
		{name: "infinity", input: "Inf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				check.True(t, errors.Is(err, ErrInvalidAmount))
				return
			}
			assert.Nil(t, err)
			check.Equal(t, tt.want, FormatMoney(got))
		})
	}
}
