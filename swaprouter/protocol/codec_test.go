package protocol_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/zeebo/assert"
)

func addr(b byte) protocol.Address {
	var a protocol.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestRoutePoolRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		route protocol.Route
		pools protocol.PoolList
	}{
		{"single hop", protocol.Route{10, 7}, protocol.PoolList{addr(1)}},
		{"native in the middle", protocol.Route{10, 0, 5}, protocol.PoolList{addr(1), addr(2)}},
		{"seven hops fill the route array", protocol.Route{1, 2, 3, 4, 5, 6, 7, 8}, protocol.PoolList{addr(1), addr(2), addr(3), addr(4), addr(5), addr(6), addr(7)}},
		{"eight hops", protocol.Route{1, 2, 3, 4, 5, 6, 7, 8, 9}, protocol.PoolList{addr(1), addr(2), addr(3), addr(4), addr(5), addr(6), addr(7), addr(8)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := protocol.SwapInstruction{
				InputAmount: 1000,
				Limit:       10,
				Mode:        protocol.FixedInput,
				Route:       tt.route,
				Pools:       tt.pools,
			}
			args, err := ins.Args()
			assert.NoError(t, err)
			assert.Equal(t, len(args[4]), 64)
			assert.Equal(t, len(args[5]), 256)

			decoded, err := protocol.DecodeSwapInstruction(args)
			assert.NoError(t, err)
			assert.DeepEqual(t, decoded.Route, tt.route)
			assert.DeepEqual(t, decoded.Pools, tt.pools)
			assert.Equal(t, decoded.InputAmount, uint64(1000))
			assert.Equal(t, decoded.Limit, uint64(10))
			assert.Equal(t, decoded.Swaps(), len(tt.pools))
		})
	}
}

func TestArraysKeepZeroPadding(t *testing.T) {
	routeArg, err := protocol.EncodeRoute(protocol.Route{10, 7, 5})
	assert.NoError(t, err)
	slots, err := protocol.DecodeUint64Array(routeArg)
	assert.NoError(t, err)
	assert.DeepEqual(t, slots, [8]uint64{10, 7, 5, 0, 0, 0, 0, 0})

	poolArg, err := protocol.EncodePools(protocol.PoolList{addr(1), addr(2)})
	assert.NoError(t, err)
	pools, err := protocol.DecodePools(poolArg)
	assert.NoError(t, err)
	assert.Equal(t, pools[0], addr(1))
	assert.Equal(t, pools[1], addr(2))
	for i := 2; i < protocol.ArrayWidth; i++ {
		assert.True(t, pools[i].IsZero())
	}

	_, err = protocol.EncodePools(make(protocol.PoolList, 9))
	assert.True(t, errors.Is(err, protocol.ErrInvalidRoute))
}

func TestDecodeSwapInstructionRejectsDirtyPadding(t *testing.T) {
	ins := protocol.SwapInstruction{
		InputAmount: 5,
		Limit:       1,
		Route:       protocol.Route{10, 7},
		Pools:       protocol.PoolList{addr(1)},
	}
	args, err := ins.Args()
	assert.NoError(t, err)

	dirty := bytes.Clone(args[5])
	dirty[protocol.AddressLength] = 1 // first byte of pool slot 1
	_, err = protocol.DecodeSwapInstruction([][]byte{args[0], args[1], args[2], args[3], args[4], dirty, args[6]})
	assert.True(t, errors.Is(err, protocol.ErrInvalidRoute))

	_, err = protocol.DecodeSwapInstruction(append(args, protocol.EncodeUint64(3)))
	assert.True(t, errors.Is(err, protocol.ErrMalformedArgs))
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name  string
		route protocol.Route
		pools protocol.PoolList
	}{
		{"no pools", protocol.Route{1}, nil},
		{"nine pools", make(protocol.Route, 10), protocol.PoolList{addr(1), addr(1), addr(1), addr(1), addr(1), addr(1), addr(1), addr(1), addr(1)}},
		{"route too short", protocol.Route{1, 2}, protocol.PoolList{addr(1), addr(2)}},
		{"zero pool", protocol.Route{1, 2}, protocol.PoolList{protocol.ZeroAddress}},
		{"self swap", protocol.Route{1, 1}, protocol.PoolList{addr(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := protocol.ValidateShape(tt.route, tt.pools)
			assert.True(t, errors.Is(err, protocol.ErrInvalidRoute))
			assert.Equal(t, protocol.KindOf(err), protocol.KindInvalidRoute)
		})
	}
}

func TestResolveHopsTagsWrapHops(t *testing.T) {
	wrapped := protocol.AppAddress(200)
	hops, err := protocol.ResolveHops(
		protocol.Route{10, 300, 0, 7},
		protocol.PoolList{addr(1), wrapped, addr(2)},
		wrapped,
	)
	assert.NoError(t, err)
	assert.Equal(t, hops[0].Kind, protocol.AmmHop)
	assert.Equal(t, hops[1].Kind, protocol.WrapHop)
	assert.False(t, hops[1].Wraps())
	assert.Equal(t, hops[2].Kind, protocol.AmmHop)
	assert.Equal(t, hops[2].AssetIn, protocol.NativeAsset)

	hops, err = protocol.ResolveHops(protocol.Route{10, 300}, protocol.PoolList{wrapped}, protocol.ZeroAddress)
	assert.NoError(t, err)
	assert.Equal(t, hops[0].Kind, protocol.AmmHop)
}

func TestSettlementEventLog(t *testing.T) {
	ev := protocol.SettlementEvent{InputAssetID: 10, OutputAssetID: 5, InputAmount: 1000, OutputAmount: 9915}
	log := ev.Encode()
	assert.Equal(t, len(log), 36)
	assert.True(t, bytes.Equal(log[:4], protocol.SettlementSelector[:]))
	assert.True(t, protocol.IsSettlementLog(log))

	decoded, err := protocol.DecodeSettlementEvent(log)
	assert.NoError(t, err)
	assert.Equal(t, decoded, ev)

	_, err = protocol.DecodeSettlementEvent(log[:35])
	assert.Error(t, err)
}

func TestAddressText(t *testing.T) {
	assert.Equal(t, protocol.ZeroAddress.String(), "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ")

	a := protocol.AppAddress(1000)
	parsed, err := protocol.ParseAddress(a.String())
	assert.NoError(t, err)
	assert.Equal(t, parsed, a)

	s := []byte(a.String())
	if s[0] == 'A' {
		s[0] = 'B'
	} else {
		s[0] = 'A'
	}
	_, err = protocol.ParseAddress(string(s))
	assert.Error(t, err)
}

func TestModeText(t *testing.T) {
	m, err := protocol.ParseMode("fixed-output")
	assert.NoError(t, err)
	assert.Equal(t, m, protocol.FixedOutput)

	_, err = protocol.ParseMode("exact")
	assert.True(t, errors.Is(err, protocol.ErrMalformedArgs))
}
