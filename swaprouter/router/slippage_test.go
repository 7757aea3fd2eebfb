package router_test

import (
	"errors"
	"math"
	"testing"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"
)

func TestMinimumOutput(t *testing.T) {
	tests := []struct {
		expected uint64
		bps      uint32
		want     uint64
	}{
		{9915, 0, 9915},
		{9915, 100, 9815},
		{9915, 10_000, 0},
		{math.MaxUint64, 1, 18444899399302180659},
	}
	for _, tt := range tests {
		got, err := router.MinimumOutput(tt.expected, tt.bps)
		assert.NoError(t, err)
		assert.Equal(t, got, tt.want)
	}

	_, err := router.MinimumOutput(1, 10_001)
	assert.True(t, errors.Is(err, protocol.ErrInvalidRoute))
}

func TestMaximumInputRoundsUp(t *testing.T) {
	got, err := router.MaximumInput(1001, 100)
	assert.NoError(t, err)
	assert.Equal(t, got, uint64(1012))

	_, err = router.MaximumInput(math.MaxUint64, 100)
	assert.Error(t, err)
}

func TestPriceImpact(t *testing.T) {
	impact := router.PriceImpact(decimal.NewFromInt(2), 1000, 1992)
	assert.Equal(t, impact.String(), "0.004")
	assert.True(t, router.PriceImpact(decimal.Zero, 1000, 1992).IsZero())
}
