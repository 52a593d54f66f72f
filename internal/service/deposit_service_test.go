package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/mmynk/tenancydeposit/internal/auth"
	"github.com/mmynk/tenancydeposit/internal/ledger"
	"github.com/mmynk/tenancydeposit/internal/middleware"
	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/payout"
	"github.com/mmynk/tenancydeposit/internal/storage/sqlite"
	"github.com/mmynk/tenancydeposit/pkg/depositapi"
)

const (
	landlord models.Address = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	tenant   models.Address = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	stranger models.Address = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"

	halfEther  = "500000000000000000"
	sixTenths  = "600000000000000000"
	oneTenth   = "100000000000000000"
	fourTenths = "400000000000000000"
)

type testEnv struct {
	client depositapi.DepositServiceClient
	jwt    *auth.JWTManager
	book   *payout.Book
}

// setupDepositTestServer serves a DepositService over a temp SQLite database.
func setupDepositTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	book := payout.NewBook()
	l, err := ledger.New(store, ledger.Config{Landlord: landlord}, ledger.WithDisburser(book))
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	path, handler := depositapi.NewDepositServiceHandler(
		NewDepositService(l),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor()),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		client: depositapi.NewDepositServiceClient(http.DefaultClient, server.URL),
		jwt:    jwtManager,
		book:   book,
	}
}

// as returns a request authenticated as who.
func as[T any](t *testing.T, env *testEnv, who models.Address, msg *T) *connect.Request[T] {
	t.Helper()
	req := connect.NewRequest(msg)
	if who.IsZero() {
		return req
	}
	token, err := env.jwt.Generate(who)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func assertCode(t *testing.T, err error, code connect.Code, reason string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error, got %T: %v", err, err)
	}
	if connectErr.Code() != code {
		t.Errorf("code: expected %v, got %v (%v)", code, connectErr.Code(), err)
	}
	if got := connectErr.Meta().Get(depositapi.ReasonHeader); got != reason {
		t.Errorf("reason: expected %q, got %q", reason, got)
	}
}

func TestDepositLifecycle(t *testing.T) {
	env := setupDepositTestServer(t)
	ctx := context.Background()

	createResp, err := env.client.CreateDepositAgreement(ctx, as(t, env, landlord, &depositapi.CreateDepositAgreementRequest{
		PropertyId:      "12 Oak Lane",
		DepositRequired: halfEther,
	}))
	if err != nil {
		t.Fatalf("CreateDepositAgreement failed: %v", err)
	}
	if createResp.Msg.Agreement.State != "Created" {
		t.Errorf("state: expected Created, got %s", createResp.Msg.Agreement.State)
	}
	if createResp.Msg.Agreement.Landlord != landlord.String() {
		t.Errorf("landlord: expected %s, got %s", landlord, createResp.Msg.Agreement.Landlord)
	}

	payResp, err := env.client.PayDeposit(ctx, as(t, env, tenant, &depositapi.PayDepositRequest{
		PropertyId: "12 Oak Lane",
		Amount:     sixTenths,
	}))
	if err != nil {
		t.Fatalf("PayDeposit failed: %v", err)
	}
	if payResp.Msg.Refunded != oneTenth {
		t.Errorf("refunded: expected %s, got %s", oneTenth, payResp.Msg.Refunded)
	}
	if payResp.Msg.Agreement.Tenant != tenant.String() {
		t.Errorf("tenant: expected %s, got %s", tenant, payResp.Msg.Agreement.Tenant)
	}
	if payResp.Msg.Agreement.StateDescription != "Active - Deposit paid" {
		t.Errorf("description: got %q", payResp.Msg.Agreement.StateDescription)
	}

	balResp, err := env.client.DepositBalances(ctx, as(t, env, landlord, &depositapi.DepositBalancesRequest{}))
	if err != nil {
		t.Fatalf("DepositBalances failed: %v", err)
	}
	if balResp.Msg.Balance != halfEther {
		t.Errorf("custody: expected %s, got %s", halfEther, balResp.Msg.Balance)
	}

	approveResp, err := env.client.ApproveDepositReturn(ctx, as(t, env, landlord, &depositapi.ApproveDepositReturnRequest{
		PropertyId: "12 Oak Lane",
		Deductions: oneTenth,
	}))
	if err != nil {
		t.Fatalf("ApproveDepositReturn failed: %v", err)
	}
	if approveResp.Msg.Agreement.ReturnAmount != fourTenths {
		t.Errorf("return amount: expected %s, got %s", fourTenths, approveResp.Msg.Agreement.ReturnAmount)
	}

	withdrawResp, err := env.client.WithdrawDeposit(ctx, as(t, env, tenant, &depositapi.WithdrawDepositRequest{
		PropertyId: "12 Oak Lane",
	}))
	if err != nil {
		t.Fatalf("WithdrawDeposit failed: %v", err)
	}
	if withdrawResp.Msg.Agreement.State != "Ended" {
		t.Errorf("state: expected Ended, got %s", withdrawResp.Msg.Agreement.State)
	}

	acctResp, err := env.client.GetAccountBalance(ctx, as(t, env, tenant, &depositapi.GetAccountBalanceRequest{}))
	if err != nil {
		t.Fatalf("GetAccountBalance failed: %v", err)
	}
	if acctResp.Msg.Address != tenant.String() || acctResp.Msg.Balance != halfEther {
		t.Errorf("tenant account: got %s = %s", acctResp.Msg.Address, acctResp.Msg.Balance)
	}

	eventsResp, err := env.client.ListEvents(ctx, connect.NewRequest(&depositapi.ListEventsRequest{PropertyId: "12 Oak Lane"}))
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	wantTypes := []string{"AgreementCreated", "DepositPaid", "DepositReleased", "DepositWithdrawn"}
	if len(eventsResp.Msg.Events) != len(wantTypes) {
		t.Fatalf("events: expected %d, got %d", len(wantTypes), len(eventsResp.Msg.Events))
	}
	for i, e := range eventsResp.Msg.Events {
		if e.Type != wantTypes[i] {
			t.Errorf("event %d: expected %s, got %s", i, wantTypes[i], e.Type)
		}
	}
	if eventsResp.Msg.Events[1].Refunded != oneTenth {
		t.Errorf("paid event refunded: got %q", eventsResp.Msg.Events[1].Refunded)
	}
}

func TestPublicReads(t *testing.T) {
	env := setupDepositTestServer(t)
	ctx := context.Background()

	landlordResp, err := env.client.GetLandlord(ctx, connect.NewRequest(&depositapi.GetLandlordRequest{}))
	if err != nil {
		t.Fatalf("GetLandlord failed: %v", err)
	}
	if landlordResp.Msg.Landlord != landlord.String() {
		t.Errorf("landlord: expected %s, got %s", landlord, landlordResp.Msg.Landlord)
	}

	for _, id := range []string{"b-flat", "a-flat"} {
		if _, err := env.client.CreateDepositAgreement(ctx, as(t, env, landlord, &depositapi.CreateDepositAgreementRequest{
			PropertyId: id, DepositRequired: halfEther,
		})); err != nil {
			t.Fatalf("CreateDepositAgreement(%s) failed: %v", id, err)
		}
	}

	idsResp, err := env.client.GetPropertyIds(ctx, connect.NewRequest(&depositapi.GetPropertyIdsRequest{}))
	if err != nil {
		t.Fatalf("GetPropertyIds failed: %v", err)
	}
	if len(idsResp.Msg.PropertyIds) != 2 || idsResp.Msg.PropertyIds[0] != "a-flat" {
		t.Errorf("property ids: got %v", idsResp.Msg.PropertyIds)
	}

	getResp, err := env.client.GetDeposit(ctx, connect.NewRequest(&depositapi.GetDepositRequest{PropertyId: "a-flat"}))
	if err != nil {
		t.Fatalf("GetDeposit failed: %v", err)
	}
	if getResp.Msg.Agreement.DepositRequired != halfEther {
		t.Errorf("deposit required: got %s", getResp.Msg.Agreement.DepositRequired)
	}
}

func TestErrorMapping(t *testing.T) {
	env := setupDepositTestServer(t)
	ctx := context.Background()

	if _, err := env.client.CreateDepositAgreement(ctx, as(t, env, landlord, &depositapi.CreateDepositAgreementRequest{
		PropertyId: "p", DepositRequired: halfEther,
	})); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tests := []struct {
		name   string
		call   func() error
		code   connect.Code
		reason string
	}{
		{"anonymous write", func() error {
			_, err := env.client.PayDeposit(ctx, as(t, env, models.NoAddress, &depositapi.PayDepositRequest{PropertyId: "p", Amount: halfEther}))
			return err
		}, connect.CodeUnauthenticated, "UNAUTHORIZED"},
		{"tenant creates", func() error {
			_, err := env.client.CreateDepositAgreement(ctx, as(t, env, tenant, &depositapi.CreateDepositAgreementRequest{PropertyId: "q", DepositRequired: halfEther}))
			return err
		}, connect.CodePermissionDenied, "UNAUTHORIZED"},
		{"stranger reads custody", func() error {
			_, err := env.client.DepositBalances(ctx, as(t, env, stranger, &depositapi.DepositBalancesRequest{}))
			return err
		}, connect.CodePermissionDenied, "UNAUTHORIZED"},
		{"missing property", func() error {
			_, err := env.client.GetDeposit(ctx, connect.NewRequest(&depositapi.GetDepositRequest{PropertyId: "nowhere"}))
			return err
		}, connect.CodeNotFound, "NOT_FOUND"},
		{"duplicate create", func() error {
			_, err := env.client.CreateDepositAgreement(ctx, as(t, env, landlord, &depositapi.CreateDepositAgreementRequest{PropertyId: "p", DepositRequired: halfEther}))
			return err
		}, connect.CodeAlreadyExists, "ALREADY_EXISTS"},
		{"underpayment", func() error {
			_, err := env.client.PayDeposit(ctx, as(t, env, tenant, &depositapi.PayDepositRequest{PropertyId: "p", Amount: oneTenth}))
			return err
		}, connect.CodeFailedPrecondition, "INSUFFICIENT_FUNDS"},
		{"approve before payment", func() error {
			_, err := env.client.ApproveDepositReturn(ctx, as(t, env, landlord, &depositapi.ApproveDepositReturnRequest{PropertyId: "p"}))
			return err
		}, connect.CodeFailedPrecondition, "INVALID_STATE"},
		{"zero deposit", func() error {
			_, err := env.client.CreateDepositAgreement(ctx, as(t, env, landlord, &depositapi.CreateDepositAgreementRequest{PropertyId: "q", DepositRequired: "0"}))
			return err
		}, connect.CodeInvalidArgument, "INVALID_AMOUNT"},
		{"malformed amount", func() error {
			_, err := env.client.PayDeposit(ctx, as(t, env, tenant, &depositapi.PayDepositRequest{PropertyId: "p", Amount: "lots"}))
			return err
		}, connect.CodeInvalidArgument, "INVALID_ARGUMENT"},
		{"blank property", func() error {
			_, err := env.client.CreateDepositAgreement(ctx, as(t, env, landlord, &depositapi.CreateDepositAgreementRequest{PropertyId: " ", DepositRequired: halfEther}))
			return err
		}, connect.CodeInvalidArgument, "INVALID_PROPERTY_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.call(), tt.code, tt.reason)
		})
	}
}

func TestPayoutRejectionIsAborted(t *testing.T) {
	env := setupDepositTestServer(t)
	ctx := context.Background()

	if _, err := env.client.CreateDepositAgreement(ctx, as(t, env, landlord, &depositapi.CreateDepositAgreementRequest{
		PropertyId: "p", DepositRequired: halfEther,
	})); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	env.book.Block(tenant)
	_, err := env.client.PayDeposit(ctx, as(t, env, tenant, &depositapi.PayDepositRequest{PropertyId: "p", Amount: sixTenths}))
	assertCode(t, err, connect.CodeAborted, "PAYOUT_FAILED")

	getResp, err := env.client.GetDeposit(ctx, connect.NewRequest(&depositapi.GetDepositRequest{PropertyId: "p"}))
	if err != nil {
		t.Fatalf("GetDeposit failed: %v", err)
	}
	if getResp.Msg.Agreement.State != "Created" || getResp.Msg.Agreement.Tenant != "" {
		t.Errorf("agreement changed by a rejected payment: %+v", getResp.Msg.Agreement)
	}
}
