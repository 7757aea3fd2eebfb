package rpc

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
)

// connectError maps a router failure onto a connect status code.
func connectError(err error) *connect.Error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	return connect.NewError(codeOf(err), err)
}

func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case models.IsValidationError(err), errors.Is(err, storage.ErrInvalidInput):
		return connect.CodeInvalidArgument
	case errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, protocol.ErrCapabilityUnavailable):
		return connect.CodeUnimplemented
	}

	switch protocol.KindOf(err) {
	case protocol.KindInvalidRoute, protocol.KindReference:
		return connect.CodeInvalidArgument
	case protocol.KindFunding, protocol.KindSlippage, protocol.KindInsufficientFee, protocol.KindConfiguration:
		return connect.CodeFailedPrecondition
	case protocol.KindUnauthorized:
		return connect.CodePermissionDenied
	case protocol.KindUpstream:
		return connect.CodeAborted
	default:
		return connect.CodeInternal
	}
}

// failedTxn returns the group index of the txn the ledger rejected, if any.
func failedTxn(err error) *int {
	var te *chain.TxnError
	if !errors.As(err, &te) {
		return nil
	}
	idx := te.GroupIndex()
	return &idx
}

// kindLabel names the failure class of err for metrics and responses.
func kindLabel(err error) string {
	if models.IsValidationError(err) {
		return "ValidationError"
	}
	return protocol.KindOf(err).String()
}
