package payout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
	"github.com/mmynk/tenancydeposit/internal/storage/memory"
)

func disburse(t *testing.T, s storage.Store, d Disburser, batch ...Payout) error {
	t.Helper()
	return s.Atomic(context.Background(), func(tx storage.Tx) error {
		return d.Disburse(context.Background(), tx, batch)
	})
}

func balance(t *testing.T, s storage.Store, addr models.Address) string {
	t.Helper()
	b, err := s.AccountBalance(context.Background(), addr)
	require.NoError(t, err)
	return b.String()
}

func TestBookCreditsRecipients(t *testing.T) {
	s := memory.New()
	book := NewBook()

	err := disburse(t, s, book,
		Payout{PropertyID: "p1", To: "tenant", Amount: models.NewAmount(400), Reason: ReasonReturn},
		Payout{PropertyID: "p1", To: "landlord", Amount: models.NewAmount(100), Reason: ReasonDeduction},
		Payout{PropertyID: "p1", To: "landlord", Amount: models.Amount{}, Reason: ReasonDeduction},
	)
	require.NoError(t, err)

	assert.Equal(t, "400", balance(t, s, "tenant"))
	assert.Equal(t, "100", balance(t, s, "landlord"))
}

func TestBookRejectsWholeBatch(t *testing.T) {
	s := memory.New()
	book := NewBook("landlord")

	err := disburse(t, s, book,
		Payout{PropertyID: "p1", To: "tenant", Amount: models.NewAmount(400), Reason: ReasonReturn},
		Payout{PropertyID: "p1", To: "landlord", Amount: models.NewAmount(100), Reason: ReasonDeduction},
	)
	require.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "0", balance(t, s, "tenant"), "no partial transfer")

	book.Unblock("landlord")
	require.NoError(t, disburse(t, s, book,
		Payout{PropertyID: "p1", To: "landlord", Amount: models.NewAmount(100), Reason: ReasonDeduction},
	))
	assert.Equal(t, "100", balance(t, s, "landlord"))

	book.Block("tenant")
	require.ErrorIs(t, disburse(t, s, book,
		Payout{PropertyID: "p1", To: "tenant", Amount: models.NewAmount(1), Reason: ReasonRefund},
	), ErrRejected)
}

func TestBookSkipsZeroAmounts(t *testing.T) {
	s := memory.New()
	book := NewBook("tenant")

	// A zero transfer never reaches the recipient, so a blocked or missing
	// recipient does not matter.
	require.NoError(t, disburse(t, s, book,
		Payout{PropertyID: "p1", To: "tenant", Reason: ReasonReturn},
		Payout{PropertyID: "p1", Reason: ReasonRefund},
	))

	require.ErrorIs(t, disburse(t, s, book,
		Payout{PropertyID: "p1", Amount: models.NewAmount(1), Reason: ReasonRefund},
	), ErrRejected)
}

func TestDisburserFunc(t *testing.T) {
	var seen []Payout
	d := DisburserFunc(func(ctx context.Context, tx storage.Tx, batch []Payout) error {
		seen = append(seen, batch...)
		return nil
	})
	require.NoError(t, disburse(t, memory.New(), d, Payout{To: "x", Amount: models.NewAmount(1), Reason: ReasonRefund}))
	require.Len(t, seen, 1)
	assert.Equal(t, "refund 1 wei to x for ", seen[0].String())
}
