package engine

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Feed is market data in dispatch order: ascending timestamp, then symbol.
// Points with the same timestamp and symbol keep the order they were given in.
type Feed struct {
	points []types.MarketDataPoint
}

// NewFeed orders a flat sequence of points. The input slice is not modified.
func NewFeed(points []types.MarketDataPoint) *Feed {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, compareTicks)

	return &Feed{points: sorted}
}

// NewFeedBySymbol orders points grouped by symbol. Every point must carry its key's symbol.
func NewFeedBySymbol(bySymbol map[string][]types.MarketDataPoint) (*Feed, error) {
	var points []types.MarketDataPoint

	for _, symbol := range slices.Sorted(maps.Keys(bySymbol)) {
		for _, point := range bySymbol[symbol] {
			if point.Symbol() != symbol {
				return nil, errors.Newf(errors.ErrCodeInvalidMarketData,
					"point %s filed under symbol %s", point, symbol)
			}

			points = append(points, point)
		}
	}

	return NewFeed(points), nil
}

// NewFeedByTimestamp orders points grouped by timestamp. Every point must carry its key's time.
func NewFeedByTimestamp(byTimestamp map[time.Time][]types.MarketDataPoint) (*Feed, error) {
	keys := slices.SortedFunc(maps.Keys(byTimestamp), func(a, b time.Time) int {
		return a.Compare(b)
	})

	var points []types.MarketDataPoint

	for _, ts := range keys {
		for _, point := range byTimestamp[ts] {
			if !point.Timestamp().Equal(ts) {
				return nil, errors.Newf(errors.ErrCodeInvalidMarketData,
					"point %s filed under timestamp %s", point, ts.Format(time.RFC3339))
			}

			points = append(points, point)
		}
	}

	return NewFeed(points), nil
}

// FeedFromDataSource reads every point between start and end.
func FeedFromDataSource(ds datasource.DataSource, start, end optional.Option[time.Time]) (*Feed, error) {
	var points []types.MarketDataPoint

	for point, err := range ds.ReadAll(start, end) {
		if err != nil {
			return nil, err
		}

		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, errors.New(errors.ErrCodeNoDataFound, "data source returned no market data")
	}

	return NewFeed(points), nil
}

func compareTicks(a, b types.MarketDataPoint) int {
	if c := a.Timestamp().Compare(b.Timestamp()); c != 0 {
		return c
	}

	return cmp.Compare(a.Symbol(), b.Symbol())
}

// Points returns a copy of the ordered points.
func (f *Feed) Points() []types.MarketDataPoint {
	return slices.Clone(f.points)
}

func (f *Feed) Len() int {
	return len(f.points)
}

// Symbols returns the distinct symbols, sorted.
func (f *Feed) Symbols() []string {
	seen := make(map[string]struct{})
	for _, point := range f.points {
		seen[point.Symbol()] = struct{}{}
	}

	return slices.Sorted(maps.Keys(seen))
}

// Timestamps returns the distinct timestamps in ascending order.
func (f *Feed) Timestamps() []time.Time {
	var timestamps []time.Time

	for _, point := range f.points {
		if n := len(timestamps); n > 0 && timestamps[n-1].Equal(point.Timestamp()) {
			continue
		}

		timestamps = append(timestamps, point.Timestamp())
	}

	return timestamps
}

// Between returns the points inside the inclusive [start, end] range. A None bound is open.
func (f *Feed) Between(start, end optional.Option[time.Time]) []types.MarketDataPoint {
	lo, hi := 0, len(f.points)

	if start.IsSome() {
		s := start.Unwrap()
		lo, _ = slices.BinarySearchFunc(f.points, s, func(p types.MarketDataPoint, t time.Time) int {
			return p.Timestamp().Compare(t)
		})
	}

	if end.IsSome() {
		e := end.Unwrap()
		hi = lo + firstAfter(f.points[lo:], e)
	}

	return slices.Clone(f.points[lo:hi])
}

// firstAfter returns the index of the first point later than end.
func firstAfter(points []types.MarketDataPoint, end time.Time) int {
	idx, _ := slices.BinarySearchFunc(points, end, func(p types.MarketDataPoint, t time.Time) int {
		if p.Timestamp().After(t) {
			return 1
		}

		return -1
	})

	return idx
}

// LatestBySymbol returns the last point of every symbol.
func (f *Feed) LatestBySymbol() map[string]types.MarketDataPoint {
	latest := make(map[string]types.MarketDataPoint)
	for _, point := range f.points {
		latest[point.Symbol()] = point
	}

	return latest
}
