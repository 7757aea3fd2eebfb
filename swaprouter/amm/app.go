package amm

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// Method names understood by the AMM and wrapped-asset applications.
const (
	MethodSwap   = "swap"
	MethodQuote  = "quote"
	MethodWrap   = "wrap"
	MethodUnwrap = "unwrap"
)

// App is the AMM application. Every pool is an account it controls.
type App struct {
	id uint64
}

// NewApp returns the AMM code for installation under appID.
func NewApp(appID uint64) *App {
	return &App{id: appID}
}

// SwapArgs builds the argument list of an AMM swap call. In fixed-input mode
// amount is the minimum output, in fixed-output mode the exact output.
func SwapArgs(mode protocol.Mode, amount uint64) [][]byte {
	return [][]byte{[]byte(MethodSwap), []byte(mode.String()), protocol.EncodeUint64(amount)}
}

// QuoteArgs builds the argument list of a read-only quote. In fixed-input mode
// the answer is the output for amount, in fixed-output mode the input needed.
func QuoteArgs(mode protocol.Mode, amount uint64, pool protocol.Address, assetIn, assetOut uint64) [][]byte {
	return [][]byte{
		[]byte(MethodQuote),
		[]byte(mode.String()),
		protocol.EncodeUint64(amount),
		pool[:],
		protocol.EncodeUint64(assetIn),
		protocol.EncodeUint64(assetOut),
	}
}

func (a *App) Call(ctx *chain.CallContext) error {
	switch ctx.Txn.Method() {
	case MethodSwap:
		return a.swap(ctx)
	default:
		return fmt.Errorf("%w: amm has no method %q", protocol.ErrUnknownMethod, ctx.Txn.Method())
	}
}

// swap expects the previous txn of its group to pay the input into the pool
// named by the first account reference. Output and any unused input go back to
// the caller from the pool account.
func (a *App) swap(ctx *chain.CallContext) error {
	args := ctx.Args()
	if len(args) != 3 {
		return fmt.Errorf("%w: amm swap takes 3 arguments, got %d", protocol.ErrMalformedArgs, len(args))
	}
	mode, err := protocol.ParseMode(string(args[1]))
	if err != nil {
		return err
	}
	amount, err := protocol.DecodeUint64(args[2])
	if err != nil {
		return err
	}
	if len(ctx.Txn.Accounts) == 0 {
		return fmt.Errorf("%w: amm swap needs the pool account", protocol.ErrMalformedArgs)
	}
	pool, err := LoadPool(ctx.View(), a.id, ctx.Txn.Accounts[0])
	if err != nil {
		return err
	}

	payment, ok := ctx.GroupTxn(ctx.Index() - 1)
	if !ok || !payment.IsTransfer() || payment.Receiver != pool.Address || payment.Sender != ctx.Sender() {
		return fmt.Errorf("%w: amm swap must follow a transfer into pool %s", protocol.ErrBadFunding, pool.Address)
	}
	assetIn := payment.Asset()
	if !pool.Has(assetIn) {
		return fmt.Errorf("%w: pool %s does not hold asset %d", protocol.ErrInvalidRoute, pool.Address, assetIn)
	}
	assetOut := pool.Asset1ID
	if assetIn == pool.Asset1ID {
		assetOut = pool.Asset2ID
	}

	var amountOut, used, change uint64
	switch mode {
	case protocol.FixedInput:
		amountOut, err = pool.QuoteFixedInput(assetIn, assetOut, payment.Amount)
		if err != nil {
			return err
		}
		if amountOut == 0 || amountOut < amount {
			return fmt.Errorf("%w: pool returns %d, minimum %d", protocol.ErrSlippageExceeded, amountOut, amount)
		}
		used = payment.Amount
	case protocol.FixedOutput:
		need, err := pool.QuoteFixedOutput(assetIn, assetOut, amount)
		if err != nil {
			return err
		}
		if payment.Amount < need {
			return fmt.Errorf("%w: pool needs %d, received %d", protocol.ErrSlippageExceeded, need, payment.Amount)
		}
		amountOut, used, change = amount, need, payment.Amount-need
	}

	pool.apply(assetIn, used, amountOut)
	ctx.PutLocal(pool.Address, KeyAsset1Reserves, chain.Uint(pool.Asset1Reserves))
	ctx.PutLocal(pool.Address, KeyAsset2Reserves, chain.Uint(pool.Asset2Reserves))

	if _, err := ctx.Submit(chain.Transfer(pool.Address, ctx.Sender(), assetOut, amountOut)); err != nil {
		return err
	}
	if change > 0 {
		if _, err := ctx.Submit(chain.Transfer(pool.Address, ctx.Sender(), assetIn, change)); err != nil {
			return err
		}
	}
	return nil
}

// Query answers read-only quotes, see QuoteArgs.
func (a *App) Query(view chain.View, args [][]byte) ([]byte, error) {
	if len(args) != 6 || string(args[0]) != MethodQuote {
		return nil, fmt.Errorf("%w: malformed amm quote", protocol.ErrMalformedArgs)
	}
	mode, err := protocol.ParseMode(string(args[1]))
	if err != nil {
		return nil, err
	}
	amount, err := protocol.DecodeUint64(args[2])
	if err != nil {
		return nil, err
	}
	addr, err := protocol.AddressFromBytes(args[3])
	if err != nil {
		return nil, err
	}
	assetIn, err := protocol.DecodeUint64(args[4])
	if err != nil {
		return nil, err
	}
	assetOut, err := protocol.DecodeUint64(args[5])
	if err != nil {
		return nil, err
	}
	pool, err := LoadPool(view, a.id, addr)
	if err != nil {
		return nil, err
	}

	var v uint64
	if mode == protocol.FixedOutput {
		v, err = pool.QuoteFixedOutput(assetIn, assetOut, amount)
	} else {
		v, err = pool.QuoteFixedInput(assetIn, assetOut, amount)
	}
	if err != nil {
		return nil, err
	}
	return protocol.EncodeUint64(v), nil
}
