package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
)

// ValidationError contains details about a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err carries at least one ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AddressResolver turns a sender or pool string into an address. Callers that
// know named accounts accept names as well as base32 addresses.
type AddressResolver func(s string) (protocol.Address, error)

// ParseAddress is the AddressResolver accepting base32 addresses only.
func ParseAddress(s string) (protocol.Address, error) {
	return protocol.ParseAddress(s)
}

// ParseAmount parses a base-unit amount.
func ParseAmount(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &ValidationError{field, fmt.Sprintf("%q is not a base-unit amount", s)}
	}
	return v, nil
}

// ToProtocol validates the request shape and converts it. Every field error is
// reported, joined.
func (r *SwapRequest) ToProtocol(resolve AddressResolver) (protocol.SwapRequest, error) {
	if resolve == nil {
		resolve = ParseAddress
	}
	var (
		req  protocol.SwapRequest
		errs []error
		err  error
	)

	if r.Sender == "" {
		errs = append(errs, &ValidationError{"sender", "is required"})
	} else if req.Sender, err = resolve(r.Sender); err != nil {
		errs = append(errs, &ValidationError{"sender", err.Error()})
	}

	if req.Mode, err = protocol.ParseMode(r.Mode); err != nil {
		errs = append(errs, &ValidationError{"mode", "must be fixed-input or fixed-output"})
	}

	if r.InputAmount == "" {
		if req.Mode == protocol.FixedInput || r.SlippageBps == nil {
			errs = append(errs, &ValidationError{"inputAmount", "is required"})
		}
	} else if req.InputAmount, err = ParseAmount("inputAmount", r.InputAmount); err != nil {
		errs = append(errs, err)
	}

	if r.MinimumOutput != "" {
		if req.MinimumOutput, err = ParseAmount("minimumOutput", r.MinimumOutput); err != nil {
			errs = append(errs, err)
		}
	}
	if req.Mode == protocol.FixedOutput {
		if r.OutputAmount == "" {
			errs = append(errs, &ValidationError{"outputAmount", "is required in fixed-output mode"})
		} else if req.OutputAmount, err = ParseAmount("outputAmount", r.OutputAmount); err != nil {
			errs = append(errs, err)
		}
	}

	if r.SlippageBps != nil && *r.SlippageBps > router.MaxSlippageBps {
		errs = append(errs, &ValidationError{"slippageBps", fmt.Sprintf("must be at most %d", router.MaxSlippageBps)})
	}

	if len(r.Route) < 2 {
		errs = append(errs, &ValidationError{"route", "needs at least two assets"})
	}
	req.Route = protocol.Route(r.Route)
	if len(r.Pools) != max(len(r.Route)-1, 0) {
		errs = append(errs, &ValidationError{"pools", fmt.Sprintf("needs one pool per hop, got %d for %d assets", len(r.Pools), len(r.Route))})
	}
	for i, p := range r.Pools {
		addr, err := resolve(p)
		if err != nil {
			errs = append(errs, &ValidationError{fmt.Sprintf("pools[%d]", i), err.Error()})
			continue
		}
		req.Pools = append(req.Pools, addr)
	}

	if len(errs) > 0 {
		return req, errors.Join(errs...)
	}
	return req, nil
}

// Validate checks the listing filter; the sender is resolved by the service.
func (r *ListSettlementsRequest) Validate() error {
	if r.Limit < 0 {
		return &ValidationError{"limit", "must not be negative"}
	}
	return nil
}
