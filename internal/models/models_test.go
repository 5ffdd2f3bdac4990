package models

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"inside", 0.82, 0.82},
		{"negative", -0.3, 0},
		{"above one", 1.4, 1},
		{"positive infinity", math.Inf(1), 1},
		{"negative infinity", math.Inf(-1), 0},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampConfidence(tt.in))
		})
	}
}

func TestContext_AmountValue(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
		ok     bool
	}{
		{"plain", "5000", "5000", true},
		{"commas", "10,000.50", "10000.5", true},
		{"empty", "", "0", false},
		{"not a number", "lots", "0", false},
		{"very long", strings.Repeat("9", 400), strings.Repeat("9", 400), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Context{Amount: tt.amount}.AmountValue()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
