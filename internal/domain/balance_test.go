package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTreasuryNeedsRefill(t *testing.T) {
	required := d("500")

	tests := []struct {
		name     string
		current  decimal.Decimal
		required *decimal.Decimal
		want     bool
	}{
		{"healthy, no required", d("1000"), nil, false},
		{"exactly zero", decimal.Zero, nil, true},
		{"negative", d("-3"), nil, true},
		{"covers required", d("500"), &required, false},
		{"short of required", d("499.99"), &required, true},
		{"fraction left, no required", d("0.01"), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TreasuryNeedsRefill(tt.current, tt.required))
		})
	}
}
