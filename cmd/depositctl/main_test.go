package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/mmynk/tenancydeposit/internal/auth"
	"github.com/mmynk/tenancydeposit/internal/ledger"
	"github.com/mmynk/tenancydeposit/internal/middleware"
	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/service"
	"github.com/mmynk/tenancydeposit/internal/storage/memory"
	"github.com/mmynk/tenancydeposit/pkg/depositapi"
)

const (
	secret   = "cli-secret"
	landlord = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	tenant   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func startServer(t *testing.T) string {
	t.Helper()
	l, err := ledger.New(memory.New(), ledger.Config{Landlord: models.Address(landlord)})
	if err != nil {
		t.Fatal(err)
	}
	path, handler := depositapi.NewDepositServiceHandler(
		service.NewDepositService(l),
		connect.WithInterceptors(middleware.OptionalAuth(auth.NewJWTManager(secret, time.Hour))),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

// run executes depositctl with args and returns its output.
func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(http.DefaultClient)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", url, "--secret", secret, "--token", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, url string, args ...string) string {
	t.Helper()
	out, err := run(t, url, args...)
	if err != nil {
		t.Fatalf("depositctl %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestLifecycleCommands(t *testing.T) {
	url := startServer(t)

	out := mustRun(t, url, "--as", landlord, "create", "flat-1", "0.5")
	if !strings.Contains(out, "Created - Pending deposit payment") {
		t.Errorf("create output:\n%s", out)
	}

	out = mustRun(t, url, "--as", tenant, "pay", "flat-1", "0.6")
	if !strings.Contains(out, "Refunded:") || !strings.Contains(out, "0.1 ETH") {
		t.Errorf("pay output should report the refund:\n%s", out)
	}

	out = mustRun(t, url, "--as", landlord, "balances")
	if strings.TrimSpace(out) != "0.5 ETH" {
		t.Errorf("balances: got %q", out)
	}

	mustRun(t, url, "--as", landlord, "approve", "flat-1", "0.1")
	out = mustRun(t, url, "--as", tenant, "withdraw", "flat-1")
	if !strings.Contains(out, "Ended - Deposit withdrawn") {
		t.Errorf("withdraw output:\n%s", out)
	}

	out = mustRun(t, url, "--as", tenant, "account")
	if !strings.Contains(out, tenant) || !strings.Contains(out, "0.5 ETH") {
		t.Errorf("account output:\n%s", out)
	}

	out = mustRun(t, url, "events", "flat-1")
	for _, typ := range []string{"AgreementCreated", "DepositPaid", "DepositReleased", "DepositWithdrawn"} {
		if !strings.Contains(out, typ) {
			t.Errorf("events output missing %s:\n%s", typ, out)
		}
	}

	out = mustRun(t, url, "list", "--ids")
	if strings.TrimSpace(out) != "flat-1" {
		t.Errorf("list --ids: got %q", out)
	}

	out = mustRun(t, url, "landlord")
	if strings.TrimSpace(out) != landlord {
		t.Errorf("landlord: got %q", out)
	}
}

func TestErrorsCarryReason(t *testing.T) {
	url := startServer(t)

	_, err := run(t, url, "--as", tenant, "create", "flat-1", "0.5")
	if err == nil || !strings.HasPrefix(err.Error(), "UNAUTHORIZED") {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}

	_, err = run(t, url, "get", "missing")
	if err == nil || !strings.HasPrefix(err.Error(), "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	_, err = run(t, url, "--as", landlord, "create", "flat-1", "half")
	if err == nil || !strings.Contains(err.Error(), "deposit") {
		t.Errorf("expected a local parse error, got %v", err)
	}
}

func TestTokenCommand(t *testing.T) {
	out := mustRun(t, "http://unused", "token", tenant)

	claims, err := auth.NewJWTManager(secret, time.Hour).Validate(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token is invalid: %v", err)
	}
	if claims.Address() != models.Address(tenant) {
		t.Errorf("subject: got %s", claims.Address())
	}
}
