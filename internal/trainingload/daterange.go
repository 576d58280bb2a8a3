package trainingload

import (
	"time"
)

const (
	DateLayout               = "2006-01-02"
	DefaultWindowWeeks       = 18
	defaultCacheTTL          = time.Minute
	minAggregatesCacheSizeMB = 1
	aggregatesCacheMegabyte  = 1024 * 1024
)

type Config struct {
	// DefaultWindowWeeks is how many weeks before the current Monday an
	// omitted "from" bound reaches back.
	DefaultWindowWeeks    int
	ClampNegativeResidual bool
	// CacheSizeMB of 0 disables the aggregates cache.
	CacheSizeMB int
	CacheTTL    time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultWindowWeeks:    DefaultWindowWeeks,
		ClampNegativeResidual: true,
		CacheSizeMB:           32,
		CacheTTL:              defaultCacheTTL,
	}
}

// DateRange holds yyyy-MM-dd bounds. An empty To is open ended.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

// Contains compares lexically, which is chronological for the fixed width date format.
func (dr DateRange) Contains(date string) bool {
	if dr.From != "" && date < dr.From {
		return false
	}
	if dr.To != "" && date > dr.To {
		return false
	}
	return true
}

type Resolver struct {
	windowWeeks int
}

func NewResolver(windowWeeks int) *Resolver {
	if windowWeeks <= 0 {
		windowWeeks = DefaultWindowWeeks
	}
	return &Resolver{
		windowWeeks: windowWeeks,
	}
}

// Resolve fills in the default lower bound. Bounds are passed through as given,
// malformed ones included.
func (r *Resolver) Resolve(from, to string, now time.Time) DateRange {
	if from == "" {
		from = WeekStart(now).AddDate(0, 0, -7*r.windowWeeks).Format(DateLayout)
	}
	return DateRange{
		From: from,
		To:   to,
	}
}

// WeekStart returns midnight of the Monday of the week t falls in.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
