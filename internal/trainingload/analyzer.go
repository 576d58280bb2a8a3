package trainingload

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2beens/trainingboard/internal/telemetry/metrics"
	"github.com/2beens/trainingboard/internal/telemetry/tracing"
	"github.com/2beens/trainingboard/internal/workouts"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=$GOFILE -destination=trainingload_mocks_test.go -package=trainingload_test

type workoutsStore interface {
	ListByDateRange(ctx context.Context, params workouts.RangeParams) ([]workouts.Workout, error)
	DateExtent(ctx context.Context, includeHidden bool) (*workouts.DateExtent, error)
}

const (
	viewRolling   = "rolling"
	viewRunMix    = "runmix"
	viewWeekly    = "weekly"
	viewDashboard = "dashboard"
)

type Dashboard struct {
	Range        DateRange            `json:"range"`
	Extent       *workouts.DateExtent `json:"extent"`
	RollingLoad  []TrainingLoadRow    `json:"rollingLoad"`
	RunVolumeMix []RunVolumeRow       `json:"runVolumeMix"`
	WeeklyTotals []WeeklyTotalsRow    `json:"weeklyTotals"`
}

// Analyzer serves the weekly aggregate views over the workouts store.
type Analyzer struct {
	store          workoutsStore
	config         Config
	resolver       *Resolver
	cache          *freecache.Cache
	metricsManager *metrics.Manager
	now            func() time.Time

	// bumped on every Invalidate, results computed under an older
	// generation are not cached
	generation atomic.Uint64
	cacheMu    sync.Mutex
}

func NewAnalyzer(store workoutsStore, config Config, metricsManager *metrics.Manager) *Analyzer {
	a := &Analyzer{
		store:          store,
		config:         config,
		resolver:       NewResolver(config.DefaultWindowWeeks),
		metricsManager: metricsManager,
		now:            time.Now,
	}

	if config.CacheSizeMB > 0 {
		sizeMB := max(config.CacheSizeMB, minAggregatesCacheSizeMB)
		a.cache = freecache.NewCache(sizeMB * aggregatesCacheMegabyte)
	}

	return a
}

// SetNowFunc replaces the clock used to resolve the default window.
func (a *Analyzer) SetNowFunc(now func() time.Time) {
	a.now = now
}

// ResolveRange applies the default window to the given bounds.
func (a *Analyzer) ResolveRange(from, to string) DateRange {
	return a.resolver.Resolve(from, to, a.now())
}

func (a *Analyzer) RollingLoad(ctx context.Context, from, to string, includeHidden bool) (_ []TrainingLoadRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.trainingload.rolling")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Bool("include-hidden", includeHidden))

	return cachedView(ctx, a, viewRolling, a.ResolveRange(from, to), includeHidden, func(records []workouts.Workout) []TrainingLoadRow {
		return RollingLoad(records)
	})
}

func (a *Analyzer) RunVolumeMix(ctx context.Context, from, to string, includeHidden bool) (_ []RunVolumeRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.trainingload.runmix")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Bool("include-hidden", includeHidden))

	return cachedView(ctx, a, viewRunMix, a.ResolveRange(from, to), includeHidden, func(records []workouts.Workout) []RunVolumeRow {
		rows := RunVolumeMix(records, a.config.ClampNegativeResidual)
		a.countNegativeResiduals(countRunMixWarnings(rows))
		return rows
	})
}

func (a *Analyzer) WeeklyTotals(ctx context.Context, from, to string, includeHidden bool) (_ []WeeklyTotalsRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.trainingload.weekly")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Bool("include-hidden", includeHidden))

	return cachedView(ctx, a, viewWeekly, a.ResolveRange(from, to), includeHidden, func(records []workouts.Workout) []WeeklyTotalsRow {
		rows := WeeklyTotals(records, a.config.ClampNegativeResidual)
		a.countNegativeResiduals(countWeeklyWarnings(rows))
		return rows
	})
}

// Dashboard computes all three views from one snapshot, loading the records
// and the date extent concurrently.
func (a *Analyzer) Dashboard(ctx context.Context, from, to string, includeHidden bool) (_ *Dashboard, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.trainingload.dashboard")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	dr := a.ResolveRange(from, to)
	span.SetAttributes(attribute.String("from", dr.From))
	span.SetAttributes(attribute.String("to", dr.To))
	span.SetAttributes(attribute.Bool("include-hidden", includeHidden))

	key := cacheKey(viewDashboard, dr, includeHidden)
	if d, ok := a.cacheGet(key, &Dashboard{}); ok {
		return d.(*Dashboard), nil
	}
	generation := a.generation.Load()

	var (
		records []workouts.Workout
		extent  *workouts.DateExtent
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = a.records(gCtx, dr, includeHidden)
		return err
	})
	g.Go(func() error {
		var err error
		extent, err = a.store.DateExtent(gCtx, includeHidden)
		if err != nil {
			return fmt.Errorf("get date extent: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.countAggregation(viewDashboard, len(records))
	runMix := RunVolumeMix(records, a.config.ClampNegativeResidual)
	weekly := WeeklyTotals(records, a.config.ClampNegativeResidual)
	// run mix and weekly totals flag the same weeks, count each week once
	a.countNegativeResiduals(countWeeklyWarnings(weekly))

	d := &Dashboard{
		Range:        dr,
		Extent:       extent,
		RollingLoad:  RollingLoad(records),
		RunVolumeMix: runMix,
		WeeklyTotals: weekly,
	}
	a.cacheSet(key, d, generation)

	return d, nil
}

// Invalidate drops every cached aggregate, called after each workout write.
func (a *Analyzer) Invalidate() {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()

	a.generation.Add(1)
	if a.cache == nil {
		return
	}
	a.cache.Clear()
	log.Trace("trainingload aggregates cache cleared")
}

func (a *Analyzer) records(ctx context.Context, dr DateRange, includeHidden bool) ([]workouts.Workout, error) {
	records, err := a.store.ListByDateRange(ctx, workouts.RangeParams{
		From:          dr.From,
		To:            dr.To,
		IncludeHidden: includeHidden,
	})
	if err != nil {
		return nil, fmt.Errorf("list workouts by date range: %w", err)
	}

	return FilterRange(FilterVisible(records, includeHidden), dr), nil
}

func cachedView[T any](
	ctx context.Context,
	a *Analyzer,
	view string,
	dr DateRange,
	includeHidden bool,
	compute func([]workouts.Workout) []T,
) ([]T, error) {
	key := cacheKey(view, dr, includeHidden)
	if rows, ok := a.cacheGet(key, &[]T{}); ok {
		return *rows.(*[]T), nil
	}
	generation := a.generation.Load()

	records, err := a.records(ctx, dr, includeHidden)
	if err != nil {
		return nil, err
	}

	a.countAggregation(view, len(records))
	rows := compute(records)
	a.cacheSet(key, rows, generation)

	return rows, nil
}

func cacheKey(view string, dr DateRange, includeHidden bool) string {
	return fmt.Sprintf("%s::%s::%s::%t", view, dr.From, dr.To, includeHidden)
}

// cacheGet unmarshals the cached value into dst and returns it.
func (a *Analyzer) cacheGet(key string, dst any) (any, bool) {
	if a.cache == nil {
		return nil, false
	}

	cached, err := a.cache.Get([]byte(key))
	if err != nil {
		a.countCache("miss")
		return nil, false
	}

	if err := json.Unmarshal(cached, dst); err != nil {
		log.Errorf("failed to unmarshal cached aggregate %s: %s", key, err)
		a.countCache("miss")
		return nil, false
	}

	a.countCache("hit")
	return dst, true
}

// cacheSet stores value unless the cache was invalidated after generation was read.
func (a *Analyzer) cacheSet(key string, value any, generation uint64) {
	if a.cache == nil {
		return
	}

	valueBytes, err := json.Marshal(value)
	if err != nil {
		log.Errorf("failed to marshal aggregate %s for cache: %s", key, err)
		return
	}

	ttl := int(a.config.CacheTTL.Seconds())
	if ttl <= 0 {
		ttl = int(defaultCacheTTL.Seconds())
	}

	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if a.generation.Load() != generation {
		log.Tracef("skip caching %s, invalidated during the read", key)
		return
	}
	if err := a.cache.Set([]byte(key), valueBytes, ttl); err != nil {
		log.Errorf("failed to write aggregates cache for %s: %s", key, err)
	}
}

func (a *Analyzer) countAggregation(view string, records int) {
	if a.metricsManager == nil {
		return
	}
	a.metricsManager.CounterAggregations.WithLabelValues(view).Inc()
	a.metricsManager.HistogramAggregatedWorkouts.Observe(float64(records))
}

func (a *Analyzer) countCache(result string) {
	if a.metricsManager == nil {
		return
	}
	a.metricsManager.CounterAggregatesCache.WithLabelValues(result).Inc()
}

func (a *Analyzer) countNegativeResiduals(n int) {
	if a.metricsManager == nil || n == 0 {
		return
	}
	a.metricsManager.CounterNegativeResiduals.Add(float64(n))
}

func countRunMixWarnings(rows []RunVolumeRow) int {
	n := 0
	for _, r := range rows {
		if len(r.Warnings) > 0 {
			n++
		}
	}
	return n
}

func countWeeklyWarnings(rows []WeeklyTotalsRow) int {
	n := 0
	for _, r := range rows {
		if len(r.Warnings) > 0 {
			n++
		}
	}
	return n
}
