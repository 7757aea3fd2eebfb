package rpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
	"github.com/zeebo/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		code connect.Code
	}{
		{context.Canceled, connect.CodeCanceled},
		{fmt.Errorf("quote: %w", context.DeadlineExceeded), connect.CodeDeadlineExceeded},
		{&models.ValidationError{Field: "route", Message: "is required"}, connect.CodeInvalidArgument},
		{storage.ErrInvalidInput, connect.CodeInvalidArgument},
		{storage.ErrNotFound, connect.CodeNotFound},
		{protocol.ErrCapabilityUnavailable, connect.CodeUnimplemented},
		{protocol.ErrInvalidRoute, connect.CodeInvalidArgument},
		{fmt.Errorf("hop 1: %w", protocol.ErrSlippageExceeded), connect.CodeFailedPrecondition},
		{protocol.ErrBadFunding, connect.CodeFailedPrecondition},
		{protocol.ErrInsufficientFee, connect.CodeFailedPrecondition},
		{protocol.ErrUnauthorized, connect.CodePermissionDenied},
		{errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, codeOf(tt.err), tt.code)
	}
}

func TestConnectErrorKeepsConnectCodes(t *testing.T) {
	in := connect.NewError(connect.CodeUnavailable, errors.New("down"))
	assert.Equal(t, connectError(in).Code(), connect.CodeUnavailable)
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, kindLabel(errors.Join(&models.ValidationError{Field: "sender", Message: "is required"})), "ValidationError")
	assert.Equal(t, kindLabel(protocol.ErrSlippageExceeded), "SlippageExceeded")
	assert.Equal(t, resultLabel(nil), "ok")
	assert.Nil(t, failedTxn(errors.New("not a ledger error")))
}
