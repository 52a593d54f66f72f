package events

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
	"github.com/mmynk/tenancydeposit/internal/storage/memory"
)

func seed(t *testing.T, s storage.Store, n int) []*models.Event {
	t.Helper()
	var out []*models.Event
	err := s.Atomic(context.Background(), func(tx storage.Tx) error {
		for i := 0; i < n; i++ {
			e := &models.Event{
				Type:       models.EventAgreementCreated,
				PropertyID: fmt.Sprintf("p%d", i),
				Landlord:   "landlord",
				Amount:     models.NewAmount(uint64(i + 1)),
			}
			if err := tx.AppendEvent(context.Background(), e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestDrainDeliversInOrder(t *testing.T) {
	s := memory.New()
	seeded := seed(t, s, 5)

	rec := NewRecorder()
	d := NewDispatcher(s, WithBatchSize(2), WithLogger(quietLogger()))
	d.Subscribe(rec)

	n, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got := rec.Events()
	require.Len(t, got, 5)
	for i, e := range got {
		assert.Equal(t, seeded[i].ID, e.ID)
	}

	pending, err := s.PendingEvents(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = d.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing left to deliver")
}

func TestDrainRetriesFailedObserver(t *testing.T) {
	s := memory.New()
	seeded := seed(t, s, 3)

	rec := NewRecorder()
	var calls atomic.Int32
	flaky := ObserverFunc(func(ctx context.Context, e *models.Event) error {
		// Fail the second event on its first attempt only.
		if e.ID == seeded[1].ID && calls.Add(1) == 1 {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	d := NewDispatcher(s, WithLogger(quietLogger()))
	d.Subscribe(rec)
	d.Subscribe(flaky)

	n, err := d.Drain(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n, "only the event before the failure is acknowledged")

	pending, err := s.PendingEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, seeded[1].ID, pending[0].ID)

	n, err = d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The recorder saw the retried event twice but keeps it once.
	assert.Len(t, rec.Events(), 3)
}

func TestRunDrainsOnEmit(t *testing.T) {
	s := memory.New()
	rec := NewRecorder()
	d := NewDispatcher(s, WithLogger(quietLogger()))
	d.Subscribe(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, time.Hour) }()

	seeded := seed(t, s, 2)
	d.Emit(seeded[1])

	require.Eventually(t, func() bool { return len(rec.Events()) == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestEmitNeverBlocks(t *testing.T) {
	d := NewDispatcher(memory.New())
	for i := 0; i < 10; i++ {
		d.Emit(nil)
	}
	NoopEmitter{}.Emit(nil)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	o := LogObserver{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	err := o.Observe(context.Background(), &models.Event{
		ID:         "e1",
		Type:       models.EventDepositPaid,
		PropertyID: "p1",
		Landlord:   "landlord",
		Tenant:     "tenant",
		Amount:     models.NewAmount(5),
		Refunded:   models.NewAmount(1),
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "DepositPaid")
	assert.Contains(t, out, "tenant=tenant")
	assert.Contains(t, out, "refunded_wei=1")
	assert.NotContains(t, out, "deductions_wei")
}
