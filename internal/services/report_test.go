package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

// holdingGateway parks transaction fetches until their context ends while
// hold is set.
type holdingGateway struct {
	gateway.Gateway
	hold    atomic.Bool
	started chan struct{}
	once    sync.Once
}

func (g *holdingGateway) FetchTransactions(ctx context.Context, q gateway.TransactionQuery) ([]models.Transaction, error) {
	if g.hold.Load() {
		g.once.Do(func() { close(g.started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.Gateway.FetchTransactions(ctx, q)
}

func newTestReportService(t *testing.T, gw gateway.Gateway, now time.Time) (*ReportService, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	svc := NewReportService(gw, time.UTC, 5, metrics, discardLogger())
	svc.now = func() time.Time { return now }
	return svc, metrics
}

func reportFixture(now time.Time) *gateway.MemoryGateway {
	txs := []models.Transaction{
		bill(now.Add(-2*time.Hour), item("P1", "Phone", 1, 500, 350)),
		bill(now.AddDate(0, 0, -3), item("P2", "Cable", 4, 10, 3)),
		bill(now.AddDate(0, -2, 0), item("P1", "Phone", 2, 500, 350)),
		bill(now.AddDate(-2, 0, 0), item("P3", "Charger", 1, 30, 20)),
	}
	return gateway.NewMemoryGateway(testTables, txs, nil)
}

func TestReportService_Build(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	svc, _ := newTestReportService(t, reportFixture(now), now)

	vm, err := svc.Build(context.Background(), svc.DefaultRange())
	require.NoError(t, err)

	assert.Len(t, vm.Daily, 30)
	assert.Len(t, vm.Weekly, 12)
	assert.Len(t, vm.Monthly, 12)
	assert.Len(t, vm.Yearly, 5)

	assert.Equal(t, "540", sumBuckets(vm.Daily).String())
	assert.Equal(t, "1540", sumBuckets(vm.Monthly).String())
	assert.Equal(t, "1570", sumBuckets(vm.Yearly).String())

	// Only the last 30 days are in the detail set.
	require.Len(t, vm.Products, 2)
	assert.Equal(t, "P1", vm.TopByProfit.ProductID)
	assert.Equal(t, "P2", vm.TopByQuantity.ProductID)
	assert.Equal(t, 2, vm.Totals.Transactions)
	assert.Equal(t, now, vm.GeneratedAt)
}

func TestReportService_BuildFailsAsAWhole(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	gw := reportFixture(now)
	gw.SetFailure("bills", errors.New("JWT expired"))
	svc, _ := newTestReportService(t, gw, now)

	vm, err := svc.Build(context.Background(), svc.DefaultRange())
	assert.Nil(t, vm)
	var qe *gateway.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "JWT expired", qe.Message)
}

func TestReportView_NewestRefreshWins(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	gw := &holdingGateway{Gateway: reportFixture(now), started: make(chan struct{})}
	svc, metrics := newTestReportService(t, gw, now)
	view := NewReportView(svc)

	older := models.DateRange{From: now.AddDate(0, 0, -90), To: now}
	newer := models.DateRange{From: now.AddDate(0, 0, -7), To: now}

	gw.hold.Store(true)
	type result struct {
		vm  *models.ReportViewModel
		err error
	}
	first := make(chan result, 1)
	go func() {
		vm, err := view.Refresh(context.Background(), older)
		first <- result{vm, err}
	}()

	select {
	case <-gw.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh never reached the gateway")
	}

	gw.hold.Store(false)
	vm, err := view.Refresh(context.Background(), newer)
	require.NoError(t, err)
	assert.Equal(t, newer, vm.Range)

	select {
	case r := <-first:
		assert.Nil(t, r.vm)
		assert.ErrorIs(t, r.err, ErrSuperseded)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded refresh did not return")
	}

	assert.Same(t, vm, view.Current())
	assert.Equal(t, uint64(2), view.Generation())
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.Registry(), "retail_report_refreshes_total"))
}

func TestReportView_FailureKeepsLastGoodModel(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	gw := reportFixture(now)
	svc, _ := newTestReportService(t, gw, now)
	view := NewReportView(svc)

	good, err := view.Refresh(context.Background(), svc.DefaultRange())
	require.NoError(t, err)

	gw.SetFailure("bills", errors.New("connection refused"))
	_, err = view.Refresh(context.Background(), svc.DefaultRange())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSuperseded)
	assert.Same(t, good, view.Current())
}

func TestReportViews(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	svc, _ := newTestReportService(t, reportFixture(now), now)

	views := NewReportViews(svc, time.Minute)
	t.Cleanup(func() { views.Close() })

	a := views.Get("session-a")
	assert.Same(t, a, views.Get("session-a"))
	assert.NotSame(t, a, views.Get("session-b"))
	assert.Equal(t, 2, views.Len())

	clock := now.Add(2 * time.Minute)
	svc.now = func() time.Time { return clock }
	views.Get("session-b")

	assert.Equal(t, 1, views.Sweep())
	assert.Equal(t, 1, views.Len())
	assert.NotSame(t, a, views.Get("session-a"))
}
