package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

// ErrSuperseded is returned by ReportView.Refresh when a newer refresh was
// started before this one finished. Its result was discarded.
var ErrSuperseded = errors.New("report refresh superseded by a newer request")

var bucketColumns = []string{"id", "created_at", "total_amount"}

type ReportService struct {
	gw          gateway.Gateway
	loc         *time.Location
	topProducts int
	now         func() time.Time
	metrics     *observability.Metrics
	logger      *slog.Logger
}

func NewReportService(gw gateway.Gateway, loc *time.Location, topProducts int, metrics *observability.Metrics, logger *slog.Logger) *ReportService {
	return &ReportService{
		gw:          gw,
		loc:         loc,
		topProducts: topProducts,
		now:         time.Now,
		metrics:     metrics,
		logger:      logger,
	}
}

// Location is the zone report dates are interpreted in.
func (s *ReportService) Location() *time.Location {
	return s.loc
}

// Build runs the four time-bucket fetches and the detail fetch for r
// concurrently. If any fetch fails the rest are cancelled and nothing is
// returned but the error.
func (s *ReportService) Build(ctx context.Context, r models.DateRange) (_ *models.ReportViewModel, err error) {
	ctx, span := observability.StartSpan(ctx, "report.build",
		attribute.String("from", r.From.Format(time.DateOnly)),
		attribute.String("to", r.To.Format(time.DateOnly)),
	)
	defer func() { observability.EndSpan(span, err) }()

	now := s.now().In(s.loc)
	windows := [4]BucketWindow{DailyWindow, WeeklyWindow, MonthlyWindow, YearlyWindow}

	var (
		series [4][]models.Transaction
		detail []models.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		g.Go(func() error {
			rows, err := s.gw.FetchTransactions(gctx, gateway.TransactionQuery{
				Status:  models.StatusCompleted,
				From:    WindowStart(w, now),
				Columns: bucketColumns,
			})
			if err != nil {
				return fmt.Errorf("fetch %s series: %w", w.Granularity, err)
			}
			series[i] = rows
			return nil
		})
	}
	g.Go(func() error {
		rows, err := s.gw.FetchTransactions(gctx, gateway.TransactionQuery{
			Status:    models.StatusCompleted,
			From:      r.Start(),
			To:        r.End(),
			WithItems: true,
		})
		if err != nil {
			return fmt.Errorf("fetch report detail: %w", err)
		}
		detail = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	products := SummarizeProducts(detail, r)
	return &models.ReportViewModel{
		Range:         r,
		Daily:         AggregateBuckets(series[0], windows[0], now),
		Weekly:        AggregateBuckets(series[1], windows[1], now),
		Monthly:       AggregateBuckets(series[2], windows[2], now),
		Yearly:        AggregateBuckets(series[3], windows[3], now),
		Products:      nonNil(products.Products),
		TopByQuantity: products.TopByQuantity,
		TopByProfit:   products.TopByProfit,
		Categories:    products.CategoryDistribution(),
		TopProducts:   products.TopProducts(s.topProducts),
		Totals:        products.Totals(),
		GeneratedAt:   now,
	}, nil
}

// DefaultRange is the last 30 days including today.
func (s *ReportService) DefaultRange() models.DateRange {
	today := models.StartOfDay(s.now().In(s.loc))
	return models.DateRange{From: today.AddDate(0, 0, -29), To: today}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ReportView is one browser session's report. Every Refresh starts a new
// generation and cancels the batch before it; only the newest generation's
// result is ever stored.
type ReportView struct {
	svc *ReportService

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	current  *models.ReportViewModel
	lastUsed time.Time
}

func NewReportView(svc *ReportService) *ReportView {
	return &ReportView{svc: svc, lastUsed: svc.now()}
}

// Refresh builds the report for r. It returns ErrSuperseded when another
// Refresh started while this one was running.
func (v *ReportView) Refresh(ctx context.Context, r models.DateRange) (*models.ReportViewModel, error) {
	batchCtx, cancel := context.WithCancel(ctx)

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	gen := v.gen
	v.cancel = cancel
	v.lastUsed = v.svc.now()
	v.mu.Unlock()

	vm, err := v.svc.Build(batchCtx, r)
	cancel()

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.gen {
		v.svc.metrics.ReportRefresh("stale")
		return nil, ErrSuperseded
	}
	v.cancel = nil

	if err != nil {
		v.svc.metrics.ReportRefresh("failed")
		observability.LoggerFrom(ctx, v.svc.logger).Error("report refresh failed",
			"generation", gen,
			"error", err,
		)
		return nil, err
	}

	v.current = vm
	v.svc.metrics.ReportRefresh("applied")
	return vm, nil
}

// Current is the last applied view-model, nil before the first success.
func (v *ReportView) Current() *models.ReportViewModel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

func (v *ReportView) Generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen
}

func (v *ReportView) touch() {
	v.mu.Lock()
	v.lastUsed = v.svc.now()
	v.mu.Unlock()
}

func (v *ReportView) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastUsed)
}

func (v *ReportView) stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// ReportViews holds a ReportView per session and drops views idle for longer
// than the configured timeout.
type ReportViews struct {
	svc         *ReportService
	idleTimeout time.Duration

	mu    sync.Mutex
	views map[string]*ReportView

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewReportViews(svc *ReportService, idleTimeout time.Duration) *ReportViews {
	rv := &ReportViews{
		svc:         svc,
		idleTimeout: idleTimeout,
		views:       make(map[string]*ReportView),
		stopCh:      make(chan struct{}),
	}
	if idleTimeout > 0 {
		go rv.janitor()
	}
	return rv
}

func (rv *ReportViews) Get(sessionID string) *ReportView {
	rv.mu.Lock()
	defer rv.mu.Unlock()

	v, ok := rv.views[sessionID]
	if !ok {
		v = NewReportView(rv.svc)
		rv.views[sessionID] = v
	} else {
		v.touch()
	}
	return v
}

func (rv *ReportViews) Len() int {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return len(rv.views)
}

// Sweep removes idle views and cancels anything they still have in flight.
func (rv *ReportViews) Sweep() int {
	now := rv.svc.now()

	rv.mu.Lock()
	defer rv.mu.Unlock()

	removed := 0
	for id, v := range rv.views {
		if v.idleSince(now) > rv.idleTimeout {
			v.stop()
			delete(rv.views, id)
			removed++
		}
	}
	return removed
}

func (rv *ReportViews) janitor() {
	ticker := time.NewTicker(max(rv.idleTimeout/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rv.Sweep(); n > 0 {
				rv.svc.logger.Debug("dropped idle report views", "count", n)
			}
		case <-rv.stopCh:
			return
		}
	}
}

func (rv *ReportViews) Close() error {
	rv.stopOnce.Do(func() {
		close(rv.stopCh)
		rv.mu.Lock()
		for _, v := range rv.views {
			v.stop()
		}
		rv.mu.Unlock()
	})
	return nil
}
