package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
	"github.com/mmynk/tenancydeposit/internal/storage/storagetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newTestStore(t) })
}

func TestReopenKeepsState(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "tenancydeposit-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "deposits.db")
	ctx := context.Background()

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	err = store.Atomic(ctx, func(tx storage.Tx) error {
		if err := tx.InsertAgreement(ctx, &models.Agreement{
			PropertyID:      "1 High Street",
			Landlord:        "landlord",
			DepositRequired: models.MustParseAmount("500000000000000000"),
			State:           models.StateCreated,
		}); err != nil {
			return err
		}
		return tx.CreditAccount(ctx, "tenant", models.MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935"))
	})
	if err != nil {
		t.Fatalf("Atomic failed: %v", err)
	}
	store.Close()

	// Migrations are idempotent and data survives a restart.
	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	a, err := reopened.GetAgreement(ctx, "1 High Street")
	if err != nil {
		t.Fatalf("GetAgreement failed: %v", err)
	}
	if a.State != models.StateCreated || a.DepositRequired.String() != "500000000000000000" {
		t.Errorf("unexpected record after reopen: %+v", a)
	}

	// Amounts beyond int64 survive as TEXT.
	balance, err := reopened.AccountBalance(ctx, "tenant")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if balance.String() != "115792089237316195423570985008687907853269984665640564039457584007913129639935" {
		t.Errorf("balance truncated: %s", balance)
	}
}
