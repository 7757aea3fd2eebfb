package models_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"
)

func validRequest() models.SwapRequest {
	return models.SwapRequest{
		Sender:        protocol.AppAddress(1).String(),
		Mode:          "fixed-input",
		InputAmount:   "1000",
		MinimumOutput: "9915",
		Route:         []uint64{10, 7, 5},
		Pools:         []string{protocol.AppAddress(2).String(), protocol.AppAddress(3).String()},
	}
}

func TestToProtocol(t *testing.T) {
	in := validRequest()
	req, err := in.ToProtocol(nil)
	assert.NoError(t, err)
	assert.Equal(t, req.Sender, protocol.AppAddress(1))
	assert.Equal(t, req.Mode, protocol.FixedInput)
	assert.Equal(t, req.InputAmount, uint64(1000))
	assert.Equal(t, req.MinimumOutput, uint64(9915))
	assert.DeepEqual(t, req.Route, protocol.Route{10, 7, 5})
	assert.Equal(t, req.Pools[1], protocol.AppAddress(3))
}

func TestToProtocolResolver(t *testing.T) {
	in := validRequest()
	in.Sender = "alice"
	req, err := in.ToProtocol(func(s string) (protocol.Address, error) {
		if s == "alice" {
			return protocol.AppAddress(42), nil
		}
		return protocol.ParseAddress(s)
	})
	assert.NoError(t, err)
	assert.Equal(t, req.Sender, protocol.AppAddress(42))
}

func TestToProtocolValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.SwapRequest)
		field  string
	}{
		{"missing sender", func(r *models.SwapRequest) { r.Sender = "" }, "sender"},
		{"bad sender", func(r *models.SwapRequest) { r.Sender = "not-an-address" }, "sender"},
		{"bad mode", func(r *models.SwapRequest) { r.Mode = "exact" }, "mode"},
		{"negative amount", func(r *models.SwapRequest) { r.InputAmount = "-5" }, "inputAmount"},
		{"decimal amount", func(r *models.SwapRequest) { r.InputAmount = "1.5" }, "inputAmount"},
		{"fixed output without target", func(r *models.SwapRequest) { r.Mode = "fixed-output" }, "outputAmount"},
		{"short route", func(r *models.SwapRequest) { r.Route = []uint64{10}; r.Pools = nil }, "route"},
		{"pool count", func(r *models.SwapRequest) { r.Pools = r.Pools[:1] }, "pools"},
		{"bad pool", func(r *models.SwapRequest) { r.Pools[0] = "xyz" }, "pools[0]"},
		{"slippage", func(r *models.SwapRequest) { bps := uint32(10_001); r.SlippageBps = &bps }, "slippageBps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)
			_, err := r.ToProtocol(nil)
			assert.Error(t, err)
			assert.True(t, models.IsValidationError(err))
			assert.True(t, strings.Contains(err.Error(), tt.field+":"))
		})
	}
}

func TestToProtocolReportsEveryField(t *testing.T) {
	r := validRequest()
	r.Sender = ""
	r.InputAmount = "abc"
	_, err := r.ToProtocol(nil)

	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *models.ValidationError
		if errors.As(e, &ve) {
			fields = append(fields, ve.Field)
		}
	}
	assert.DeepEqual(t, fields, []string{"sender", "inputAmount"})
}

func TestFixedOutputInputDerivedFromSlippage(t *testing.T) {
	r := validRequest()
	r.Mode = "fixed-output"
	r.InputAmount = ""
	r.MinimumOutput = ""
	r.OutputAmount = "9915"
	bps := uint32(50)
	r.SlippageBps = &bps

	req, err := r.ToProtocol(nil)
	assert.NoError(t, err)
	assert.Equal(t, req.OutputAmount, uint64(9915))
	assert.Equal(t, req.InputAmount, uint64(0))
}

func TestFromOperations(t *testing.T) {
	ops := []router.Operation{
		{Kind: router.OpTransfer, Role: router.RoleFunding, Sender: protocol.AppAddress(1), Receiver: protocol.AppAddress(500), AssetID: 10, Amount: 1000},
		{Kind: router.OpCall, Role: router.RolePrimary, Sender: protocol.AppAddress(1), Fee: 9000, AppID: 500, Args: [][]byte{[]byte(protocol.MethodNoop)}},
	}
	out := models.FromOperations(ops)
	assert.Equal(t, out[0].Kind, "transfer")
	assert.Equal(t, out[0].Role, "funding")
	assert.Equal(t, out[0].Amount, "1000")
	assert.Equal(t, out[0].Receiver, protocol.AppAddress(500).String())

	assert.Equal(t, out[1].Kind, "call")
	assert.Equal(t, out[1].Fee, "9000")
	assert.Equal(t, out[1].Receiver, "")
	arg, err := base64.StdEncoding.DecodeString(out[1].Args[0])
	assert.NoError(t, err)
	assert.Equal(t, string(arg), protocol.MethodNoop)
}

func TestFromQuote(t *testing.T) {
	q := router.Quote{Mode: protocol.FixedInput, AmountIn: 1000, AmountOut: 9915, Amounts: []uint64{1000, 1992, 9915}}
	out := models.FromQuote(q, 9865, decimal.NewFromInt(10))
	assert.Equal(t, out.AmountOut, "9915")
	assert.DeepEqual(t, out.Amounts, []string{"1000", "1992", "9915"})
	assert.Equal(t, out.MinimumOutput, "9865")
	assert.Equal(t, out.MaximumInput, "")
	assert.Equal(t, out.SpotPrice, "10")
	assert.Equal(t, out.PriceImpact, "0.008500")
}

func TestFromFeeBudget(t *testing.T) {
	b := router.ComputeFeeBudget(2, 2, 0, protocol.FixedInput, 1000, router.DefaultFeeSchedule())
	out := models.FromFeeBudget(b)
	assert.Equal(t, out.Total, "9000")
	assert.Equal(t, out.Display, "0.009")
	assert.Equal(t, out.Additional, uint64(7))
}
