package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tenancydeposit/internal/models"
)

func TestInterceptorCountsByCode(t *testing.T) {
	m := New()
	ok := m.Interceptor().WrapUnary(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&struct{}{}), nil
	})
	denied := m.Interceptor().WrapUnary(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("no"))
	})

	req := connect.NewRequest(&struct{}{})
	_, err := ok(context.Background(), req)
	require.NoError(t, err)
	_, err = ok(context.Background(), req)
	require.NoError(t, err)
	_, err = denied(context.Background(), req)
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("unknown", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unknown", "permission_denied")))
}

func TestEventObserverUpdatesCustody(t *testing.T) {
	m := New()
	held := models.MustParseAmount("1500000000000000000")
	obs := m.EventObserver(func(context.Context) (models.Amount, error) { return held, nil })

	require.NoError(t, obs.Observe(context.Background(), &models.Event{Type: models.EventDepositPaid}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("DepositPaid")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.custody))
}

func TestEventObserverFailureIsNotCounted(t *testing.T) {
	m := New()
	obs := m.EventObserver(func(context.Context) (models.Amount, error) {
		return models.Amount{}, errors.New("store down")
	})

	require.Error(t, obs.Observe(context.Background(), &models.Event{Type: models.EventDepositPaid}))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.events.WithLabelValues("DepositPaid")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	require.NoError(t, m.SetCustody(models.NewAmount(0)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "tenancydeposit_ledger_custody_ether"))
}
