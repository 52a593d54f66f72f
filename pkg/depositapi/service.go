// Package depositapi is the Connect RPC surface of the deposit escrow: the
// tenancy.v1.DepositService procedures, their messages, a typed client and a
// handler constructor, laid out like protoc-gen-connect-go output.
package depositapi

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// DepositServiceName is the fully-qualified name of the DepositService service.
const DepositServiceName = "tenancy.v1.DepositService"

// ReasonHeader carries the ledger's stable error tag on failed calls.
const ReasonHeader = "Ledger-Error"

// Procedure paths, suitable for use in interceptors that switch on Spec().Procedure.
const (
	CreateDepositAgreementProcedure = "/tenancy.v1.DepositService/CreateDepositAgreement"
	PayDepositProcedure             = "/tenancy.v1.DepositService/PayDeposit"
	ApproveDepositReturnProcedure   = "/tenancy.v1.DepositService/ApproveDepositReturn"
	WithdrawDepositProcedure        = "/tenancy.v1.DepositService/WithdrawDeposit"
	GetDepositProcedure             = "/tenancy.v1.DepositService/GetDeposit"
	GetPropertyIdsProcedure         = "/tenancy.v1.DepositService/GetPropertyIds"
	DepositBalancesProcedure        = "/tenancy.v1.DepositService/DepositBalances"
	GetLandlordProcedure            = "/tenancy.v1.DepositService/GetLandlord"
	ListEventsProcedure             = "/tenancy.v1.DepositService/ListEvents"
	GetAccountBalanceProcedure      = "/tenancy.v1.DepositService/GetAccountBalance"
)

// Procedures lists every procedure of the service.
var Procedures = []string{
	CreateDepositAgreementProcedure,
	PayDepositProcedure,
	ApproveDepositReturnProcedure,
	WithdrawDepositProcedure,
	GetDepositProcedure,
	GetPropertyIdsProcedure,
	DepositBalancesProcedure,
	GetLandlordProcedure,
	ListEventsProcedure,
	GetAccountBalanceProcedure,
}

// DepositServiceClient is a client for the tenancy.v1.DepositService service.
type DepositServiceClient interface {
	CreateDepositAgreement(context.Context, *connect.Request[CreateDepositAgreementRequest]) (*connect.Response[CreateDepositAgreementResponse], error)
	PayDeposit(context.Context, *connect.Request[PayDepositRequest]) (*connect.Response[PayDepositResponse], error)
	ApproveDepositReturn(context.Context, *connect.Request[ApproveDepositReturnRequest]) (*connect.Response[ApproveDepositReturnResponse], error)
	WithdrawDeposit(context.Context, *connect.Request[WithdrawDepositRequest]) (*connect.Response[WithdrawDepositResponse], error)
	GetDeposit(context.Context, *connect.Request[GetDepositRequest]) (*connect.Response[GetDepositResponse], error)
	GetPropertyIds(context.Context, *connect.Request[GetPropertyIdsRequest]) (*connect.Response[GetPropertyIdsResponse], error)
	DepositBalances(context.Context, *connect.Request[DepositBalancesRequest]) (*connect.Response[DepositBalancesResponse], error)
	GetLandlord(context.Context, *connect.Request[GetLandlordRequest]) (*connect.Response[GetLandlordResponse], error)
	ListEvents(context.Context, *connect.Request[ListEventsRequest]) (*connect.Response[ListEventsResponse], error)
	GetAccountBalance(context.Context, *connect.Request[GetAccountBalanceRequest]) (*connect.Response[GetAccountBalanceResponse], error)
}

// NewDepositServiceClient constructs a client for the tenancy.v1.DepositService
// service. baseURL is the server root, e.g. http://localhost:8080.
func NewDepositServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) DepositServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec())}, opts...)
	return &depositServiceClient{
		createDepositAgreement: connect.NewClient[CreateDepositAgreementRequest, CreateDepositAgreementResponse](httpClient, baseURL+CreateDepositAgreementProcedure, opts...),
		payDeposit:             connect.NewClient[PayDepositRequest, PayDepositResponse](httpClient, baseURL+PayDepositProcedure, opts...),
		approveDepositReturn:   connect.NewClient[ApproveDepositReturnRequest, ApproveDepositReturnResponse](httpClient, baseURL+ApproveDepositReturnProcedure, opts...),
		withdrawDeposit:        connect.NewClient[WithdrawDepositRequest, WithdrawDepositResponse](httpClient, baseURL+WithdrawDepositProcedure, opts...),
		getDeposit:             connect.NewClient[GetDepositRequest, GetDepositResponse](httpClient, baseURL+GetDepositProcedure, opts...),
		getPropertyIds:         connect.NewClient[GetPropertyIdsRequest, GetPropertyIdsResponse](httpClient, baseURL+GetPropertyIdsProcedure, opts...),
		depositBalances:        connect.NewClient[DepositBalancesRequest, DepositBalancesResponse](httpClient, baseURL+DepositBalancesProcedure, opts...),
		getLandlord:            connect.NewClient[GetLandlordRequest, GetLandlordResponse](httpClient, baseURL+GetLandlordProcedure, opts...),
		listEvents:             connect.NewClient[ListEventsRequest, ListEventsResponse](httpClient, baseURL+ListEventsProcedure, opts...),
		getAccountBalance:      connect.NewClient[GetAccountBalanceRequest, GetAccountBalanceResponse](httpClient, baseURL+GetAccountBalanceProcedure, opts...),
	}
}

type depositServiceClient struct {
	createDepositAgreement *connect.Client[CreateDepositAgreementRequest, CreateDepositAgreementResponse]
	payDeposit             *connect.Client[PayDepositRequest, PayDepositResponse]
	approveDepositReturn   *connect.Client[ApproveDepositReturnRequest, ApproveDepositReturnResponse]
	withdrawDeposit        *connect.Client[WithdrawDepositRequest, WithdrawDepositResponse]
	getDeposit             *connect.Client[GetDepositRequest, GetDepositResponse]
	getPropertyIds         *connect.Client[GetPropertyIdsRequest, GetPropertyIdsResponse]
	depositBalances        *connect.Client[DepositBalancesRequest, DepositBalancesResponse]
	getLandlord            *connect.Client[GetLandlordRequest, GetLandlordResponse]
	listEvents             *connect.Client[ListEventsRequest, ListEventsResponse]
	getAccountBalance      *connect.Client[GetAccountBalanceRequest, GetAccountBalanceResponse]
}

func (c *depositServiceClient) CreateDepositAgreement(ctx context.Context, req *connect.Request[CreateDepositAgreementRequest]) (*connect.Response[CreateDepositAgreementResponse], error) {
	return c.createDepositAgreement.CallUnary(ctx, req)
}

func (c *depositServiceClient) PayDeposit(ctx context.Context, req *connect.Request[PayDepositRequest]) (*connect.Response[PayDepositResponse], error) {
	return c.payDeposit.CallUnary(ctx, req)
}

func (c *depositServiceClient) ApproveDepositReturn(ctx context.Context, req *connect.Request[ApproveDepositReturnRequest]) (*connect.Response[ApproveDepositReturnResponse], error) {
	return c.approveDepositReturn.CallUnary(ctx, req)
}

func (c *depositServiceClient) WithdrawDeposit(ctx context.Context, req *connect.Request[WithdrawDepositRequest]) (*connect.Response[WithdrawDepositResponse], error) {
	return c.withdrawDeposit.CallUnary(ctx, req)
}

func (c *depositServiceClient) GetDeposit(ctx context.Context, req *connect.Request[GetDepositRequest]) (*connect.Response[GetDepositResponse], error) {
	return c.getDeposit.CallUnary(ctx, req)
}

func (c *depositServiceClient) GetPropertyIds(ctx context.Context, req *connect.Request[GetPropertyIdsRequest]) (*connect.Response[GetPropertyIdsResponse], error) {
	return c.getPropertyIds.CallUnary(ctx, req)
}

func (c *depositServiceClient) DepositBalances(ctx context.Context, req *connect.Request[DepositBalancesRequest]) (*connect.Response[DepositBalancesResponse], error) {
	return c.depositBalances.CallUnary(ctx, req)
}

func (c *depositServiceClient) GetLandlord(ctx context.Context, req *connect.Request[GetLandlordRequest]) (*connect.Response[GetLandlordResponse], error) {
	return c.getLandlord.CallUnary(ctx, req)
}

func (c *depositServiceClient) ListEvents(ctx context.Context, req *connect.Request[ListEventsRequest]) (*connect.Response[ListEventsResponse], error) {
	return c.listEvents.CallUnary(ctx, req)
}

func (c *depositServiceClient) GetAccountBalance(ctx context.Context, req *connect.Request[GetAccountBalanceRequest]) (*connect.Response[GetAccountBalanceResponse], error) {
	return c.getAccountBalance.CallUnary(ctx, req)
}

// DepositServiceHandler is an implementation of the tenancy.v1.DepositService service.
type DepositServiceHandler interface {
	CreateDepositAgreement(context.Context, *connect.Request[CreateDepositAgreementRequest]) (*connect.Response[CreateDepositAgreementResponse], error)
	PayDeposit(context.Context, *connect.Request[PayDepositRequest]) (*connect.Response[PayDepositResponse], error)
	ApproveDepositReturn(context.Context, *connect.Request[ApproveDepositReturnRequest]) (*connect.Response[ApproveDepositReturnResponse], error)
	WithdrawDeposit(context.Context, *connect.Request[WithdrawDepositRequest]) (*connect.Response[WithdrawDepositResponse], error)
	GetDeposit(context.Context, *connect.Request[GetDepositRequest]) (*connect.Response[GetDepositResponse], error)
	GetPropertyIds(context.Context, *connect.Request[GetPropertyIdsRequest]) (*connect.Response[GetPropertyIdsResponse], error)
	DepositBalances(context.Context, *connect.Request[DepositBalancesRequest]) (*connect.Response[DepositBalancesResponse], error)
	GetLandlord(context.Context, *connect.Request[GetLandlordRequest]) (*connect.Response[GetLandlordResponse], error)
	ListEvents(context.Context, *connect.Request[ListEventsRequest]) (*connect.Response[ListEventsResponse], error)
	GetAccountBalance(context.Context, *connect.Request[GetAccountBalanceRequest]) (*connect.Response[GetAccountBalanceResponse], error)
}

// NewDepositServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewDepositServiceHandler(svc DepositServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec())}, opts...)
	readOpts := append([]connect.HandlerOption{connect.WithIdempotency(connect.IdempotencyNoSideEffects)}, opts...)

	handlers := map[string]http.Handler{
		CreateDepositAgreementProcedure: connect.NewUnaryHandler(CreateDepositAgreementProcedure, svc.CreateDepositAgreement, opts...),
		PayDepositProcedure:             connect.NewUnaryHandler(PayDepositProcedure, svc.PayDeposit, opts...),
		ApproveDepositReturnProcedure:   connect.NewUnaryHandler(ApproveDepositReturnProcedure, svc.ApproveDepositReturn, opts...),
		WithdrawDepositProcedure:        connect.NewUnaryHandler(WithdrawDepositProcedure, svc.WithdrawDeposit, opts...),
		GetDepositProcedure:             connect.NewUnaryHandler(GetDepositProcedure, svc.GetDeposit, readOpts...),
		GetPropertyIdsProcedure:         connect.NewUnaryHandler(GetPropertyIdsProcedure, svc.GetPropertyIds, readOpts...),
		DepositBalancesProcedure:        connect.NewUnaryHandler(DepositBalancesProcedure, svc.DepositBalances, readOpts...),
		GetLandlordProcedure:            connect.NewUnaryHandler(GetLandlordProcedure, svc.GetLandlord, readOpts...),
		ListEventsProcedure:             connect.NewUnaryHandler(ListEventsProcedure, svc.ListEvents, readOpts...),
		GetAccountBalanceProcedure:      connect.NewUnaryHandler(GetAccountBalanceProcedure, svc.GetAccountBalance, readOpts...),
	}

	return "/" + DepositServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
