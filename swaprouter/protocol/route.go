package protocol

import (
	"fmt"
	"strings"
)

const (
	// NativeAsset is the chain's native asset id.
	NativeAsset uint64 = 0

	// MaxHops is the largest number of pools one swap instruction may traverse.
	MaxHops = 8
)

// Mode selects how amounts flow through the route.
type Mode uint8

const (
	// FixedInput spends the whole input and enforces a minimum output at the end.
	FixedInput Mode = iota
	// FixedOutput delivers an exact output and refunds unspent input as change.
	FixedOutput
)

func (m Mode) String() string {
	if m == FixedOutput {
		return "fixed-output"
	}
	return "fixed-input"
}

// ParseMode accepts the wire names of the swap modes.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed-input", "":
		return FixedInput, nil
	case "fixed-output":
		return FixedOutput, nil
	}
	return FixedInput, fmt.Errorf("%w: unknown swap mode %q", ErrMalformedArgs, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// HopKind tags a hop with the collaborator that executes it.
type HopKind uint8

const (
	AmmHop HopKind = iota
	WrapHop
)

func (k HopKind) String() string {
	if k == WrapHop {
		return "wrap"
	}
	return "amm"
}

// Hop is one pool traversal converting AssetIn to AssetOut.
type Hop struct {
	Index    int
	Kind     HopKind
	Pool     Address
	AssetIn  uint64
	AssetOut uint64
}

// Wraps reports whether a wrap hop converts native into the wrapped asset.
func (h Hop) Wraps() bool {
	return h.Kind == WrapHop && h.AssetIn == NativeAsset
}

// Route is the ordered list of asset ids a swap walks through.
type Route []uint64

// Input returns the asset the swap starts from.
func (r Route) Input() uint64 {
	if len(r) == 0 {
		return NativeAsset
	}
	return r[0]
}

// Output returns the asset the swap ends with.
func (r Route) Output() uint64 {
	if len(r) == 0 {
		return NativeAsset
	}
	return r[len(r)-1]
}

// PoolList holds one pool address per hop.
type PoolList []Address

// Contains reports whether addr is one of the pools.
func (p PoolList) Contains(addr Address) bool {
	for _, pool := range p {
		if pool == addr {
			return true
		}
	}
	return false
}

// ValidateShape checks the hop count and the route length.
func ValidateShape(route Route, pools PoolList) error {
	swaps := len(pools)
	if swaps == 0 {
		return fmt.Errorf("%w: no pools", ErrInvalidRoute)
	}
	if swaps > MaxHops {
		return fmt.Errorf("%w: %d pools exceed the %d hop limit", ErrInvalidRoute, swaps, MaxHops)
	}
	if len(route) != swaps+1 {
		return fmt.Errorf("%w: route has %d assets for %d pools", ErrInvalidRoute, len(route), swaps)
	}
	for i, pool := range pools {
		if pool.IsZero() {
			return fmt.Errorf("%w: pool %d is the zero address", ErrInvalidRoute, i)
		}
		if route[i] == route[i+1] {
			return fmt.Errorf("%w: hop %d swaps asset %d into itself", ErrInvalidRoute, i, route[i])
		}
	}
	return nil
}

// RequireDistinctPools rejects hops that trade through the same AMM pool more
// than once. Fixed-output plans quote every hop against the reserves before the
// first hop runs, which only holds when no pool is visited twice. Wrap hops
// convert at a fixed rate and may repeat.
func RequireDistinctPools(hops []Hop) error {
	seen := make(map[Address]int, len(hops))
	for _, hop := range hops {
		if hop.Kind != AmmHop {
			continue
		}
		if first, ok := seen[hop.Pool]; ok {
			return fmt.Errorf("%w: hops %d and %d use pool %s, fixed-output routes visit each pool once",
				ErrInvalidRoute, first, hop.Index, hop.Pool)
		}
		seen[hop.Pool] = hop.Index
	}
	return nil
}

// ResolveHops validates the route and tags every hop once. A pool equal to
// wrappedApp becomes a WrapHop; a zero wrappedApp disables wrap hops.
func ResolveHops(route Route, pools PoolList, wrappedApp Address) ([]Hop, error) {
	if err := ValidateShape(route, pools); err != nil {
		return nil, err
	}
	hops := make([]Hop, len(pools))
	for i, pool := range pools {
		kind := AmmHop
		if !wrappedApp.IsZero() && pool == wrappedApp {
			kind = WrapHop
		}
		hops[i] = Hop{
			Index:    i,
			Kind:     kind,
			Pool:     pool,
			AssetIn:  route[i],
			AssetOut: route[i+1],
		}
	}
	return hops, nil
}
