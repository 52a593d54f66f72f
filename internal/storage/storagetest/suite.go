// Package storagetest is a conformance suite that every storage.Store
// backend runs from its own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

// Factory returns an empty store. The suite closes it when the subtest ends.
type Factory func(t *testing.T) storage.Store

var errBoom = errors.New("boom")

// Run exercises the storage.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"GetAgreement returns ErrNotFound", testGetMissing},
		{"InsertAgreement persists every field", testInsertRoundTrip},
		{"InsertAgreement rejects a live record", testInsertLive},
		{"InsertAgreement replaces an ended record", testInsertOverEnded},
		{"UpdateAgreement requires an existing record", testUpdateMissing},
		{"Update applies the mutator", testUpdateHelper},
		{"Update writes nothing when the mutator fails", testUpdateMutatorError},
		{"Atomic discards every write on error", testAtomicRollback},
		{"ListAgreements orders by property id", testListOrdering},
		{"CreditAccount accumulates", testCreditAccount},
		{"events are sequenced and filterable", testEvents},
		{"MarkDelivered clears pending events", testMarkDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func sample(propertyID string, state models.State) *models.Agreement {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &models.Agreement{
		PropertyID:      propertyID,
		Landlord:        "landlord",
		DepositRequired: models.MustParseAmount("500000000000000000"),
		State:           state,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if state >= models.StateActive {
		a.Tenant = "tenant"
		a.DepositAmount = models.MustParseAmount("500000000000000000")
	}
	return a
}

func insert(t *testing.T, s storage.Store, a *models.Agreement) {
	t.Helper()
	err := s.Atomic(context.Background(), func(tx storage.Tx) error {
		return tx.InsertAgreement(context.Background(), a)
	})
	if err != nil {
		t.Fatalf("InsertAgreement(%s) failed: %v", a.PropertyID, err)
	}
}

func testGetMissing(t *testing.T, s storage.Store) {
	_, err := s.GetAgreement(context.Background(), "nowhere")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testInsertRoundTrip(t *testing.T, s storage.Store) {
	want := sample("12 Oak Lane", models.StateReleased)
	want.Deductions = models.MustParseAmount("100000000000000000")
	want.ReturnAmount = models.MustParseAmount("400000000000000000")
	insert(t, s, want)

	got, err := s.GetAgreement(context.Background(), want.PropertyID)
	if err != nil {
		t.Fatalf("GetAgreement failed: %v", err)
	}
	if got.PropertyID != want.PropertyID || got.Landlord != want.Landlord || got.Tenant != want.Tenant {
		t.Errorf("identity mismatch: got %+v", got)
	}
	if !got.DepositRequired.Equal(want.DepositRequired) || !got.DepositAmount.Equal(want.DepositAmount) {
		t.Errorf("deposit mismatch: got required=%s amount=%s", got.DepositRequired, got.DepositAmount)
	}
	if !got.Deductions.Equal(want.Deductions) || !got.ReturnAmount.Equal(want.ReturnAmount) {
		t.Errorf("release mismatch: got deductions=%s return=%s", got.Deductions, got.ReturnAmount)
	}
	if got.State != want.State {
		t.Errorf("state mismatch: got %s, want %s", got.State, want.State)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, want.CreatedAt)
	}

	// Returned records are copies.
	got.State = models.StateEnded
	again, err := s.GetAgreement(context.Background(), want.PropertyID)
	if err != nil {
		t.Fatalf("GetAgreement failed: %v", err)
	}
	if again.State != models.StateReleased {
		t.Errorf("mutating a returned record leaked into the store: %s", again.State)
	}
}

func testInsertLive(t *testing.T, s storage.Store) {
	for _, state := range []models.State{models.StateCreated, models.StateActive, models.StateReleased} {
		id := "live-" + state.String()
		insert(t, s, sample(id, state))

		err := s.Atomic(context.Background(), func(tx storage.Tx) error {
			return tx.InsertAgreement(context.Background(), sample(id, models.StateCreated))
		})
		if !errors.Is(err, storage.ErrAlreadyExists) {
			t.Errorf("%s: expected ErrAlreadyExists, got %v", state, err)
		}
	}
}

func testInsertOverEnded(t *testing.T, s storage.Store) {
	insert(t, s, sample("reused", models.StateEnded))
	fresh := sample("reused", models.StateCreated)
	fresh.DepositRequired = models.NewAmount(42)
	insert(t, s, fresh)

	got, err := s.GetAgreement(context.Background(), "reused")
	if err != nil {
		t.Fatalf("GetAgreement failed: %v", err)
	}
	if got.State != models.StateCreated || !got.Tenant.IsZero() || got.DepositRequired.String() != "42" {
		t.Errorf("expected a fresh Created record, got %+v", got)
	}
}

func testUpdateMissing(t *testing.T, s storage.Store) {
	err := s.Atomic(context.Background(), func(tx storage.Tx) error {
		return tx.UpdateAgreement(context.Background(), sample("ghost", models.StateActive))
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testUpdateHelper(t *testing.T, s storage.Store) {
	insert(t, s, sample("flat 3", models.StateCreated))

	var updated *models.Agreement
	err := s.Atomic(context.Background(), func(tx storage.Tx) error {
		var err error
		updated, err = storage.Update(context.Background(), tx, "flat 3", func(a *models.Agreement) error {
			a.Tenant = "tenant"
			a.DepositAmount = a.DepositRequired
			a.State = models.StateActive
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.State != models.StateActive {
		t.Errorf("expected Active from Update, got %s", updated.State)
	}

	got, err := s.GetAgreement(context.Background(), "flat 3")
	if err != nil {
		t.Fatalf("GetAgreement failed: %v", err)
	}
	if got.State != models.StateActive || got.Tenant != "tenant" || !got.DepositAmount.Equal(got.DepositRequired) {
		t.Errorf("update not persisted: %+v", got)
	}

	err = s.Atomic(context.Background(), func(tx storage.Tx) error {
		_, err := storage.Update(context.Background(), tx, "flat 3", func(a *models.Agreement) error {
			a.PropertyID = "flat 4"
			return nil
		})
		return err
	})
	if err == nil {
		t.Error("expected error when the mutator changes the key")
	}
}

func testUpdateMutatorError(t *testing.T, s storage.Store) {
	insert(t, s, sample("flat 9", models.StateCreated))

	err := s.Atomic(context.Background(), func(tx storage.Tx) error {
		_, err := storage.Update(context.Background(), tx, "flat 9", func(a *models.Agreement) error {
			a.State = models.StateEnded
			return errBoom
		})
		return err
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected mutator error, got %v", err)
	}

	got, err := s.GetAgreement(context.Background(), "flat 9")
	if err != nil {
		t.Fatalf("GetAgreement failed: %v", err)
	}
	if got.State != models.StateCreated {
		t.Errorf("failed mutation was persisted: %s", got.State)
	}
}

func testAtomicRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	insert(t, s, sample("kept", models.StateCreated))

	err := s.Atomic(ctx, func(tx storage.Tx) error {
		if err := tx.InsertAgreement(ctx, sample("dropped", models.StateCreated)); err != nil {
			return err
		}
		if _, err := storage.Update(ctx, tx, "kept", func(a *models.Agreement) error {
			a.State = models.StateActive
			a.Tenant = "tenant"
			return nil
		}); err != nil {
			return err
		}
		if err := tx.CreditAccount(ctx, "tenant", models.NewAmount(10)); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, &models.Event{Type: models.EventDepositPaid, PropertyID: "kept", Landlord: "landlord"}); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		staged, err := tx.GetAgreement(ctx, "dropped")
		if err != nil || staged.State != models.StateCreated {
			t.Errorf("staged insert not visible inside tx: %v", err)
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	if _, err := s.GetAgreement(ctx, "dropped"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("rolled back insert is visible: %v", err)
	}
	kept, err := s.GetAgreement(ctx, "kept")
	if err != nil {
		t.Fatalf("GetAgreement failed: %v", err)
	}
	if kept.State != models.StateCreated {
		t.Errorf("rolled back update is visible: %s", kept.State)
	}
	balance, err := s.AccountBalance(ctx, "tenant")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("rolled back credit is visible: %s", balance)
	}
	events, err := s.ListEvents(ctx, "")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("rolled back event is visible: %d events", len(events))
	}
}

func testListOrdering(t *testing.T, s storage.Store) {
	for _, id := range []string{"c", "a", "b"} {
		insert(t, s, sample(id, models.StateCreated))
	}
	all, err := s.ListAgreements(context.Background())
	if err != nil {
		t.Fatalf("ListAgreements failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 agreements, got %d", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].PropertyID != want {
			t.Errorf("position %d: got %s, want %s", i, all[i].PropertyID, want)
		}
	}
}

func testCreditAccount(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, n := range []uint64{3, 4} {
		err := s.Atomic(ctx, func(tx storage.Tx) error {
			return tx.CreditAccount(ctx, "tenant", models.NewAmount(n))
		})
		if err != nil {
			t.Fatalf("CreditAccount failed: %v", err)
		}
	}
	balance, err := s.AccountBalance(ctx, "tenant")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if balance.String() != "7" {
		t.Errorf("expected balance 7, got %s", balance)
	}
	unknown, err := s.AccountBalance(ctx, "stranger")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !unknown.IsZero() {
		t.Errorf("expected zero for unknown account, got %s", unknown)
	}
}

func appendEvents(t *testing.T, s storage.Store, evts ...*models.Event) {
	t.Helper()
	err := s.Atomic(context.Background(), func(tx storage.Tx) error {
		for _, e := range evts {
			if err := tx.AppendEvent(context.Background(), e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
}

func testEvents(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first := &models.Event{Type: models.EventAgreementCreated, PropertyID: "p1", Landlord: "landlord", Amount: models.NewAmount(5)}
	second := &models.Event{Type: models.EventAgreementCreated, PropertyID: "p2", Landlord: "landlord", Amount: models.NewAmount(6)}
	third := &models.Event{Type: models.EventDepositPaid, PropertyID: "p1", Landlord: "landlord", Tenant: "tenant",
		Amount: models.NewAmount(5), Refunded: models.NewAmount(1)}
	appendEvents(t, s, first, second)
	appendEvents(t, s, third)

	if first.ID == "" || first.Seq == 0 {
		t.Errorf("expected ID and Seq to be assigned, got %q/%d", first.ID, first.Seq)
	}
	if !(first.Seq < second.Seq && second.Seq < third.Seq) {
		t.Errorf("sequence not increasing: %d %d %d", first.Seq, second.Seq, third.Seq)
	}

	all, err := s.ListEvents(ctx, "")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	p1, err := s.ListEvents(ctx, "p1")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(p1) != 2 || p1[0].ID != first.ID || p1[1].ID != third.ID {
		t.Fatalf("unexpected events for p1: %+v", p1)
	}
	if p1[1].Tenant != "tenant" || p1[1].Refunded.String() != "1" || p1[1].Type != models.EventDepositPaid {
		t.Errorf("event fields not persisted: %+v", p1[1])
	}
	if !p1[1].Pending() {
		t.Error("new events should be pending")
	}

	pending, err := s.PendingEvents(ctx, 2)
	if err != nil {
		t.Fatalf("PendingEvents failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID {
		t.Errorf("expected the 2 oldest pending events, got %d", len(pending))
	}
}

func testMarkDelivered(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := &models.Event{Type: models.EventAgreementCreated, PropertyID: "p1", Landlord: "landlord"}
	b := &models.Event{Type: models.EventAgreementCreated, PropertyID: "p2", Landlord: "landlord"}
	appendEvents(t, s, a, b)

	if err := s.MarkDelivered(ctx, []string{a.ID, "unknown"}); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if err := s.MarkDelivered(ctx, nil); err != nil {
		t.Fatalf("MarkDelivered(nil) failed: %v", err)
	}

	pending, err := s.PendingEvents(ctx, 0)
	if err != nil {
		t.Fatalf("PendingEvents failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Errorf("expected only %s pending, got %+v", b.ID, pending)
	}

	all, err := s.ListEvents(ctx, "p1")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(all) != 1 || all[0].Pending() {
		t.Errorf("delivered event should stay listed and be stamped: %+v", all)
	}
}
