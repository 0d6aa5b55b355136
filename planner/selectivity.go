package planner

import (
	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/types"
)

// Estimator derives the fraction of a table's rows matching a predicate
// from catalog statistics. Estimates degrade to defaultSelectivity when
// statistics are missing or the predicate defeats precise reasoning (for
// example by wrapping a column in a function with no expression-level
// statistics).
type Estimator struct {
	catalog            catalog.Catalog
	defaultSelectivity float64
}

// NewEstimator creates an estimator over a catalog snapshot.
func NewEstimator(cat catalog.Catalog, defaultSelectivity float64) *Estimator {
	return &Estimator{
		catalog:            cat,
		defaultSelectivity: defaultSelectivity,
	}
}

// Estimate returns the estimated selectivity of the predicate over the
// table, in [0,1]. A nil predicate selects everything.
func (e *Estimator) Estimate(table string, pred types.Predicate) float64 {
	if pred == nil {
		return 1.0
	}

	switch p := pred.(type) {
	case types.Equality:
		return e.equalitySelectivity(table, p)
	case types.Range:
		return e.rangeSelectivity(table, p)
	case types.Like:
		return e.likeSelectivity(table, p)
	case types.And:
		return e.andSelectivity(table, p)
	case types.Or:
		return e.orSelectivity(table, p)
	case types.NullTest:
		return e.nullSelectivity(table, p)
	default:
		return e.defaultSelectivity
	}
}

func (e *Estimator) equalitySelectivity(table string, p types.Equality) float64 {
	stats, ok := e.statsFor(table, p.Expr)
	if !ok {
		return e.defaultSelectivity
	}
	if freq, found := stats.MCVFreq(p.Value); found {
		return clamp01(freq)
	}
	if stats.NDistinct > 0 {
		return clamp01(1.0 / float64(stats.NDistinct))
	}
	return e.defaultSelectivity
}

func (e *Estimator) rangeSelectivity(table string, p types.Range) float64 {
	stats, ok := e.statsFor(table, p.Expr)
	if !ok {
		return e.defaultSelectivity
	}
	min, minOK := toScalar(stats.Min)
	max, maxOK := toScalar(stats.Max)
	if !minOK || !maxOK || max <= min {
		return e.defaultSelectivity
	}

	lo := min
	if p.Low != nil {
		v, ok := toScalar(p.Low)
		if !ok {
			return e.defaultSelectivity
		}
		lo = v
	}
	hi := max
	if p.High != nil {
		v, ok := toScalar(p.High)
		if !ok {
			return e.defaultSelectivity
		}
		hi = v
	}
	if hi < lo {
		return 0
	}

	// Linear interpolation between the stored bounds. Inclusive flags are
	// deliberately ignored: a single point contributes nothing under a
	// continuous approximation.
	frac := (clampRange(hi, min, max) - clampRange(lo, min, max)) / (max - min)
	return clamp01(frac)
}

func (e *Estimator) likeSelectivity(table string, p types.Like) float64 {
	prefix, ok := types.LikePrefix(p.Pattern)
	if !ok {
		return e.defaultSelectivity
	}
	upper, ok := types.PrefixUpperBound(prefix)
	if !ok {
		return e.defaultSelectivity
	}
	return e.rangeSelectivity(table, types.Range{
		Expr:   p.Expr,
		Low:    prefix,
		High:   upper,
		IncLow: true,
	})
}

// andSelectivity multiplies child selectivities under an independence
// assumption, clamped to never exceed the most selective child. The
// multiplication underestimates on correlated columns; that is an
// accepted approximation, not an attempt at real correlation modelling.
func (e *Estimator) andSelectivity(table string, p types.And) float64 {
	if len(p.Children) == 0 {
		return 1.0
	}
	product := 1.0
	lowest := 1.0
	for _, c := range p.Children {
		s := e.Estimate(table, c)
		product *= s
		if s < lowest {
			lowest = s
		}
	}
	if product > lowest {
		product = lowest
	}
	return clamp01(product)
}

func (e *Estimator) orSelectivity(table string, p types.Or) float64 {
	noneMatch := 1.0
	for _, c := range p.Children {
		noneMatch *= 1.0 - e.Estimate(table, c)
	}
	return clamp01(1.0 - noneMatch)
}

func (e *Estimator) nullSelectivity(table string, p types.NullTest) float64 {
	stats, ok := e.statsFor(table, p.Expr)
	if !ok {
		return e.defaultSelectivity
	}
	if p.Negated {
		return clamp01(1.0 - stats.NullFrac)
	}
	return clamp01(stats.NullFrac)
}

// statsFor looks up statistics for the expression, refusing to reason
// about non-deterministic expressions at all.
func (e *Estimator) statsFor(table string, expr types.Expr) (*catalog.ColumnStatistics, bool) {
	if !types.Deterministic(expr) {
		return nil, false
	}
	return e.catalog.StatsFor(table, expr)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
