package rpc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/rpc"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/settlement"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage/memory"
	"github.com/zeebo/assert"
)

type testEnv struct {
	net    *localnet.Network
	hub    *settlement.Hub
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	n, err := localnet.New(localnet.DefaultConfig())
	assert.NoError(t, err)

	hub := settlement.NewHub(settlement.DefaultSubscriberBuffer)
	svc, err := rpc.NewRouterService(n, settlement.NewIndexer(memory.NewSettlementStore(), hub))
	assert.NoError(t, err)

	srv, err := rpc.NewServer(context.Background(), &rpc.ServerConfig{
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
	}, svc, hub)
	assert.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return &testEnv{net: n, hub: hub, server: ts}
}

func client[Req, Res any](env *testEnv, procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](http.DefaultClient, env.server.URL+procedure, rpc.WithJSONCodec())
}

func (env *testEnv) twoHop() *models.SwapRequest {
	return &models.SwapRequest{
		Sender:        "alice",
		Mode:          "fixed-input",
		InputAmount:   "1000",
		MinimumOutput: "9915",
		Route:         []uint64{10, 7, 5},
		Pools: []string{
			env.net.PoolAddress(10, 7).String(),
			env.net.PoolAddress(7, 5).String(),
		},
	}
}

func TestCompileSwap(t *testing.T) {
	env := newTestEnv(t)
	c := client[models.SwapRequest, models.CompileSwapResponse](env, rpc.CompileSwapProcedure)

	resp, err := c.CallUnary(context.Background(), connect.NewRequest(env.twoHop()))
	assert.NoError(t, err)
	assert.Equal(t, len(resp.Msg.Hops), 2)
	assert.Equal(t, resp.Msg.Fee.Additional, uint64(7))
	assert.Equal(t, resp.Msg.Fee.Total, "9000")
	assert.Nil(t, resp.Msg.Quote)
	assert.Equal(t, resp.Header().Get("Cache-Control"), "no-store, no-cache, must-revalidate")

	// the funding transfer leads the group and carries the input
	assert.Equal(t, resp.Msg.Operations[0].Kind, "transfer")
	assert.Equal(t, resp.Msg.Operations[0].Amount, "1000")
}

func TestCompileSwapWithSlippage(t *testing.T) {
	env := newTestEnv(t)
	c := client[models.SwapRequest, models.CompileSwapResponse](env, rpc.CompileSwapProcedure)

	req := env.twoHop()
	req.MinimumOutput = ""
	bps := uint32(50)
	req.SlippageBps = &bps

	resp, err := c.CallUnary(context.Background(), connect.NewRequest(req))
	assert.NoError(t, err)
	assert.NotNil(t, resp.Msg.Quote)
	assert.Equal(t, resp.Msg.Quote.AmountOut, "9915")
	assert.Equal(t, resp.Msg.Quote.MinimumOutput, "9865")
	assert.Equal(t, resp.Msg.Quote.SpotPrice, "10")
	assert.Equal(t, resp.Msg.Quote.PriceImpact, "0.008500")
}

func TestCompileSwapInvalidArgument(t *testing.T) {
	env := newTestEnv(t)
	c := client[models.SwapRequest, models.CompileSwapResponse](env, rpc.CompileSwapProcedure)

	_, err := c.CallUnary(context.Background(), connect.NewRequest(&models.SwapRequest{
		Sender:      "alice",
		InputAmount: "lots",
		Route:       []uint64{10},
	}))
	assert.Error(t, err)
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestCompileSwapSelfHop(t *testing.T) {
	env := newTestEnv(t)
	c := client[models.SwapRequest, models.CompileSwapResponse](env, rpc.CompileSwapProcedure)

	req := env.twoHop()
	req.Route = []uint64{10, 10, 5}
	_, err := c.CallUnary(context.Background(), connect.NewRequest(req))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestQuoteSwap(t *testing.T) {
	env := newTestEnv(t)
	c := client[models.SwapRequest, models.Quote](env, rpc.QuoteSwapProcedure)

	resp, err := c.CallUnary(context.Background(), connect.NewRequest(env.twoHop()))
	assert.NoError(t, err)
	assert.DeepEqual(t, resp.Msg.Amounts, []string{"1000", "1992", "9915"})
	assert.Equal(t, resp.Msg.AmountOut, "9915")
	assert.Equal(t, resp.Msg.SpotPrice, "10")
	assert.Equal(t, resp.Msg.MinimumOutput, "")

	// fixed-output prices backwards from the target
	req := env.twoHop()
	req.Mode = "fixed-output"
	req.OutputAmount = "9915"
	resp, err = c.CallUnary(context.Background(), connect.NewRequest(req))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.AmountIn, "1000")
}

func TestSimulateSwap(t *testing.T) {
	env := newTestEnv(t)
	c := client[models.SwapRequest, models.ExecutionResponse](env, rpc.SimulateSwapProcedure)

	resp, err := c.CallUnary(context.Background(), connect.NewRequest(env.twoHop()))
	assert.NoError(t, err)
	assert.True(t, resp.Msg.Success)
	assert.False(t, resp.Msg.Committed)
	assert.Equal(t, resp.Msg.InnerTxns, 7)
	assert.NotNil(t, resp.Msg.Settlement)
	assert.Equal(t, resp.Msg.Settlement.OutputAmount, "9915")

	// nothing moved
	alice, _ := env.net.Account("alice")
	assert.Equal(t, env.net.Balance(alice, 5), uint64(0))
}

func TestSimulateSwapReportsFailure(t *testing.T) {
	env := newTestEnv(t)
	c := client[models.SwapRequest, models.ExecutionResponse](env, rpc.SimulateSwapProcedure)

	req := env.twoHop()
	req.MinimumOutput = "9916"
	resp, err := c.CallUnary(context.Background(), connect.NewRequest(req))
	assert.NoError(t, err)
	assert.False(t, resp.Msg.Success)
	assert.Equal(t, resp.Msg.ErrorKind, "SlippageExceeded")
	assert.NotNil(t, resp.Msg.FailedTxn)
	assert.NotNil(t, resp.Msg.Fee)
}

func TestSubmitAndListSettlements(t *testing.T) {
	env := newTestEnv(t)
	submit := client[models.SwapRequest, models.ExecutionResponse](env, rpc.SubmitSwapProcedure)
	list := client[models.ListSettlementsRequest, models.ListSettlementsResponse](env, rpc.ListSettlementsProcedure)
	ctx := context.Background()

	resp, err := submit.CallUnary(ctx, connect.NewRequest(env.twoHop()))
	assert.NoError(t, err)
	assert.True(t, resp.Msg.Success)
	assert.True(t, resp.Msg.Committed)
	assert.NotNil(t, resp.Msg.Settlement)
	assert.Equal(t, resp.Msg.Settlement.Hops, 2)
	assert.Equal(t, resp.Msg.Settlement.Mode, "fixed-input")

	alice, _ := env.net.Account("alice")
	assert.Equal(t, env.net.Balance(alice, 5), uint64(9915))

	listed, err := list.CallUnary(ctx, connect.NewRequest(&models.ListSettlementsRequest{}))
	assert.NoError(t, err)
	assert.Equal(t, len(listed.Msg.Settlements), 1)
	assert.Equal(t, listed.Msg.Settlements[0].GroupID, resp.Msg.GroupID)
	assert.Equal(t, listed.Msg.Settlements[0].Sender, alice.String())

	listed, err = list.CallUnary(ctx, connect.NewRequest(&models.ListSettlementsRequest{Sender: "deployer"}))
	assert.NoError(t, err)
	assert.Equal(t, len(listed.Msg.Settlements), 0)

	_, err = list.CallUnary(ctx, connect.NewRequest(&models.ListSettlementsRequest{Limit: -1}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestSubmitSwapSlippage(t *testing.T) {
	env := newTestEnv(t)
	submit := client[models.SwapRequest, models.ExecutionResponse](env, rpc.SubmitSwapProcedure)

	req := env.twoHop()
	req.MinimumOutput = "9916"
	_, err := submit.CallUnary(context.Background(), connect.NewRequest(req))
	assert.Equal(t, connect.CodeOf(err), connect.CodeFailedPrecondition)
}

func TestGetRouterConfig(t *testing.T) {
	env := newTestEnv(t)
	c := client[models.GetRouterConfigRequest, models.RouterConfig](env, rpc.GetRouterConfigProcedure)

	resp, err := c.CallUnary(context.Background(), connect.NewRequest(&models.GetRouterConfigRequest{}))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.RouterAppID, uint64(500))
	assert.Equal(t, resp.Msg.AMMAppID, uint64(100))
	assert.Equal(t, resp.Msg.WrappedAppID, uint64(200))
	assert.Equal(t, resp.Msg.Manager, localnet.NamedAddress("deployer").String())
	assert.Equal(t, resp.Msg.PendingManager, "")
	assert.True(t, resp.Msg.FixedOutput)
	assert.Equal(t, resp.Msg.InnerCallsPerHop, uint64(3))
}

func TestListSettlementsWithoutIndexer(t *testing.T) {
	n, err := localnet.New(localnet.DefaultConfig())
	assert.NoError(t, err)
	svc, err := rpc.NewRouterService(n, nil)
	assert.NoError(t, err)

	path, handler := svc.Handler()
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := connect.NewClient[models.ListSettlementsRequest, models.ListSettlementsResponse](
		http.DefaultClient, ts.URL+rpc.ListSettlementsProcedure, rpc.WithJSONCodec())
	_, err = c.CallUnary(context.Background(), connect.NewRequest(&models.ListSettlementsRequest{}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeUnimplemented)
}
