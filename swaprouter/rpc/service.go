package rpc

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/settlement"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is the fully-qualified name of the router service.
const ServiceName = "swaprouter.v1.RouterService"

// Procedure paths of the router service.
const (
	CompileSwapProcedure     = "/" + ServiceName + "/CompileSwap"
	QuoteSwapProcedure       = "/" + ServiceName + "/QuoteSwap"
	SimulateSwapProcedure    = "/" + ServiceName + "/SimulateSwap"
	SubmitSwapProcedure      = "/" + ServiceName + "/SubmitSwap"
	ListSettlementsProcedure = "/" + ServiceName + "/ListSettlements"
	GetRouterConfigProcedure = "/" + ServiceName + "/GetRouterConfig"
)

var tracer = otel.Tracer("github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/rpc")

// Network is the execution environment the service compiles for and submits to.
type Network interface {
	router.Quoter
	Deployment() router.Deployment
	Account(name string) (protocol.Address, bool)
	MissingOptIns(route protocol.Route) []uint64
	RouterAssets() []uint64
	RouterConfig() (protocol.RouterConfig, error)
	SpotPrice(ctx context.Context, hops []protocol.Hop) (decimal.Decimal, error)
	Simulate(ctx context.Context, ops []router.Operation) (*localnet.Receipt, error)
	Submit(ctx context.Context, ops []router.Operation) (*localnet.Receipt, error)
}

var _ Network = (*localnet.Network)(nil)

// RouterService implements the swap router procedures.
type RouterService struct {
	network  Network
	compiler *router.Compiler
	indexer  *settlement.Indexer
}

func NewRouterService(network Network, indexer *settlement.Indexer) (*RouterService, error) {
	compiler, err := router.NewCompiler(network.Deployment())
	if err != nil {
		return nil, err
	}
	return &RouterService{network: network, compiler: compiler, indexer: indexer}, nil
}

// Handler mounts every procedure under the service path.
func (s *RouterService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(CompileSwapProcedure, connect.NewUnaryHandler(CompileSwapProcedure, s.CompileSwap, opts...))
	mux.Handle(QuoteSwapProcedure, connect.NewUnaryHandler(QuoteSwapProcedure, s.QuoteSwap, opts...))
	mux.Handle(SimulateSwapProcedure, connect.NewUnaryHandler(SimulateSwapProcedure, s.SimulateSwap, opts...))
	mux.Handle(SubmitSwapProcedure, connect.NewUnaryHandler(SubmitSwapProcedure, s.SubmitSwap, opts...))
	mux.Handle(ListSettlementsProcedure, connect.NewUnaryHandler(ListSettlementsProcedure, s.ListSettlements, opts...))
	mux.Handle(GetRouterConfigProcedure, connect.NewUnaryHandler(GetRouterConfigProcedure, s.GetRouterConfig, opts...))
	return "/" + ServiceName + "/", mux
}

// resolve accepts base32 addresses and the network's account names.
func (s *RouterService) resolve(str string) (protocol.Address, error) {
	if addr, ok := s.network.Account(str); ok {
		return addr, nil
	}
	return protocol.ParseAddress(str)
}

// compiled is a group together with the quote it was planned from.
type compiled struct {
	group *router.CompiledGroup
	quote *models.Quote
}

// compile turns an API request into a group. With a slippage tolerance the
// bound is derived from a live quote.
func (s *RouterService) compile(ctx context.Context, in *models.SwapRequest) (*compiled, error) {
	ctx, span := tracer.Start(ctx, "compile")
	defer span.End()

	req, err := in.ToProtocol(s.resolve)
	if err != nil {
		compileErrors.WithLabelValues(kindLabel(err)).Inc()
		return nil, err
	}
	span.SetAttributes(
		attribute.String("swap.mode", req.Mode.String()),
		attribute.Int("swap.hops", len(req.Route)-1),
	)
	if in.AutoOptIn {
		req.OptIn = s.network.MissingOptIns(req.Route)
	}

	out := &compiled{}
	if in.SlippageBps != nil {
		planned, quote, err := s.compiler.Plan(ctx, s.network, req, *in.SlippageBps)
		if err != nil {
			return nil, s.compileFailed(span, err)
		}
		hops, err := protocol.ResolveHops(req.Route, req.Pools, s.compiler.Deployment().WrappedAppAddress())
		if err != nil {
			return nil, s.compileFailed(span, err)
		}
		spot, err := s.network.SpotPrice(ctx, hops)
		if err != nil {
			return nil, s.compileFailed(span, err)
		}
		bound := planned.MinimumOutput
		if planned.Mode == protocol.FixedOutput {
			bound = planned.InputAmount
		}
		out.quote = models.FromQuote(quote, bound, spot)
		req = planned
	}

	group, err := s.compiler.Compile(req)
	if err != nil {
		return nil, s.compileFailed(span, err)
	}
	out.group = group

	groupsCompiled.WithLabelValues(req.Mode.String()).Inc()
	groupHops.Observe(float64(len(group.Hops)))
	span.SetAttributes(attribute.Int64("swap.fee", int64(group.TotalFee())))
	return out, nil
}

func (s *RouterService) compileFailed(span trace.Span, err error) error {
	compileErrors.WithLabelValues(kindLabel(err)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// CompileSwap lays a swap out as a budget-legal group.
func (s *RouterService) CompileSwap(
	ctx context.Context,
	req *connect.Request[models.SwapRequest],
) (*connect.Response[models.CompileSwapResponse], error) {
	c, err := s.compile(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	resp := models.FromCompiledGroup(c.group)
	resp.Quote = c.quote
	return connect.NewResponse(resp), nil
}

// QuoteSwap prices the route without compiling it.
func (s *RouterService) QuoteSwap(
	ctx context.Context,
	req *connect.Request[models.SwapRequest],
) (*connect.Response[models.Quote], error) {
	ctx, span := tracer.Start(ctx, "quote")
	defer span.End()

	in, err := req.Msg.ToProtocol(s.resolve)
	if err != nil {
		return nil, connectError(err)
	}
	d := s.compiler.Deployment()
	if in.Mode == protocol.FixedOutput && !d.FixedOutput {
		return nil, connectError(protocol.ErrCapabilityUnavailable)
	}
	hops, err := protocol.ResolveHops(in.Route, in.Pools, d.WrappedAppAddress())
	if err != nil {
		return nil, connectError(err)
	}

	amount := in.InputAmount
	if in.Mode == protocol.FixedOutput {
		amount = in.OutputAmount
	}
	quote, err := router.QuoteRoute(ctx, s.network, hops, in.Mode, amount)
	if err != nil {
		return nil, connectError(err)
	}

	var bound uint64
	if bps := req.Msg.SlippageBps; bps != nil {
		if in.Mode == protocol.FixedOutput {
			bound, err = router.MaximumInput(quote.AmountIn, *bps)
		} else {
			bound, err = router.MinimumOutput(quote.AmountOut, *bps)
		}
		if err != nil {
			return nil, connectError(err)
		}
	}
	spot, err := s.network.SpotPrice(ctx, hops)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(models.FromQuote(quote, bound, spot)), nil
}

// SimulateSwap compiles and dry-runs the group. A group the ledger rejects is
// reported in the response, not as an RPC error.
func (s *RouterService) SimulateSwap(
	ctx context.Context,
	req *connect.Request[models.SwapRequest],
) (*connect.Response[models.ExecutionResponse], error) {
	c, err := s.compile(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}

	ctx, span := tracer.Start(ctx, "simulate")
	defer span.End()

	fee := models.FromFeeBudget(c.group.Budget)
	receipt, err := s.network.Simulate(ctx, c.group.Operations)
	executions.WithLabelValues("simulate", resultLabel(err)).Inc()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, connectError(err)
		}
		span.RecordError(err)
		return connect.NewResponse(&models.ExecutionResponse{
			ErrorKind:    kindLabel(err),
			ErrorMessage: err.Error(),
			FailedTxn:    failedTxn(err),
			Fee:          &fee,
		}), nil
	}

	resp := models.FromReceipt(receipt)
	resp.Fee = &fee
	return connect.NewResponse(resp), nil
}

// SubmitSwap compiles the group, executes it on the local network on behalf
// of the sender and records the settlement.
func (s *RouterService) SubmitSwap(
	ctx context.Context,
	req *connect.Request[models.SwapRequest],
) (*connect.Response[models.ExecutionResponse], error) {
	c, err := s.compile(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}

	ctx, span := tracer.Start(ctx, "submit")
	defer span.End()

	receipt, err := s.network.Submit(ctx, c.group.Operations)
	executions.WithLabelValues("submit", resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, connectError(err)
	}

	resp := models.FromReceipt(receipt)
	fee := models.FromFeeBudget(c.group.Budget)
	resp.Fee = &fee
	if s.indexer != nil {
		st, err := s.indexer.Record(ctx, receipt, c.group)
		if err != nil {
			// the group is committed either way
			Logger.Error().Err(err).Str("group", receipt.GroupID).Msg("failed to record settlement")
		} else {
			recorded := models.FromSettlement(st)
			resp.Settlement = &recorded
		}
	}
	return connect.NewResponse(resp), nil
}

// ListSettlements returns recorded settlements, newest first.
func (s *RouterService) ListSettlements(
	ctx context.Context,
	req *connect.Request[models.ListSettlementsRequest],
) (*connect.Response[models.ListSettlementsResponse], error) {
	if s.indexer == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errors.New("settlement indexing is disabled"))
	}
	store := s.indexer.Store()

	if req.Msg.Sender == "" {
		list, err := store.ListRecent(ctx, req.Msg.Limit)
		if err != nil {
			return nil, connectError(err)
		}
		return connect.NewResponse(&models.ListSettlementsResponse{Settlements: models.FromSettlements(list)}), nil
	}

	sender, err := s.resolve(req.Msg.Sender)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, &models.ValidationError{Field: "sender", Message: err.Error()})
	}
	list, err := store.ListBySender(ctx, sender, req.Msg.Limit)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&models.ListSettlementsResponse{Settlements: models.FromSettlements(list)}), nil
}

// GetRouterConfig reads the router's persisted configuration.
func (s *RouterService) GetRouterConfig(
	ctx context.Context,
	req *connect.Request[models.GetRouterConfigRequest],
) (*connect.Response[models.RouterConfig], error) {
	cfg, err := s.network.RouterConfig()
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(models.FromRouterConfig(cfg, s.compiler.Deployment(), s.network.RouterAssets())), nil
}
