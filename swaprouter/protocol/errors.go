package protocol

import "errors"

// Kind classifies router failures. Every failure aborts the whole group, the kind
// only tells the caller what to re-derive before resubmitting.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidRoute
	KindConfiguration
	KindReference
	KindFunding
	KindSlippage
	KindInsufficientFee
	KindUnauthorized
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRoute:
		return "InvalidRoute"
	case KindConfiguration:
		return "ConfigurationError"
	case KindReference:
		return "ReferenceError"
	case KindFunding:
		return "FundingMismatch"
	case KindSlippage:
		return "SlippageExceeded"
	case KindInsufficientFee:
		return "InsufficientFee"
	case KindUnauthorized:
		return "Unauthorized"
	case KindUpstream:
		return "UpstreamRejection"
	default:
		return "Unknown"
	}
}

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

var (
	// ErrInvalidRoute is returned for routes with a bad shape (hop count, length,
	// empty pools, repeated assets).
	ErrInvalidRoute = newError(KindInvalidRoute, "invalid route")

	// Configuration errors
	ErrNotCreated            = newError(KindConfiguration, "router not created")
	ErrAlreadyCreated        = newError(KindConfiguration, "router already created")
	ErrInvalidConfig         = newError(KindConfiguration, "invalid router configuration")
	ErrCapabilityUnavailable = newError(KindConfiguration, "capability unavailable")
	ErrUnknownApp            = newError(KindConfiguration, "unknown application")
	ErrUnknownAsset          = newError(KindConfiguration, "unknown asset")
	ErrNotOptedIn            = newError(KindConfiguration, "account not opted in to asset")
	ErrUnknownMethod         = newError(KindConfiguration, "unknown method")

	// Reference errors
	ErrReferenceOverflow    = newError(KindReference, "reference overflow")
	ErrReferenceUnavailable = newError(KindReference, "reference not available in group")
	ErrMalformedGroup       = newError(KindReference, "malformed group")
	ErrMalformedArgs        = newError(KindReference, "malformed arguments")

	// Funding errors
	ErrBadFunding          = newError(KindFunding, "funding transfer does not match instruction")
	ErrInsufficientBalance = newError(KindFunding, "insufficient balance")
	ErrBelowMinBalance     = newError(KindFunding, "balance below minimum")

	ErrSlippageExceeded = newError(KindSlippage, "slippage exceeded")
	ErrInsufficientFee  = newError(KindInsufficientFee, "insufficient fee")
	ErrUnauthorized     = newError(KindUnauthorized, "unauthorized")
	ErrUpstreamRejected = newError(KindUpstream, "upstream rejected")
)
