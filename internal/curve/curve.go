// Package curve holds the lift response curves that map an angle of attack in
// degrees to a dimensionless lift coefficient.
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrEmptyCurve   = errors.New("curve: no keys")
	ErrDuplicateKey = errors.New("curve: duplicate key angle")
	ErrNonFinite    = errors.New("curve: non-finite key")
)

// Curve evaluates a lift coefficient for an angle of attack given in degrees.
// Implementations must not be mutated by callers of Evaluate.
type Curve interface {
	Evaluate(deg float64) float64
}

// Func adapts an ordinary function to the Curve interface.
type Func func(deg float64) float64

func (f Func) Evaluate(deg float64) float64 { return f(deg) }

// Constant returns a curve that yields c at every angle.
func Constant(c float64) Curve {
	return Func(func(float64) float64 { return c })
}

// Key is one control point of a Table.
type Key struct {
	Deg         float64 `json:"deg" mapstructure:"deg"`
	Coefficient float64 `json:"coefficient" mapstructure:"coefficient"`
}

// Table is a piecewise-linear curve through a set of keys. Angles outside the
// keyed range clamp to the first or last coefficient.
type Table struct {
	keys []Key
}

// NewTable builds a Table from keys given in any order. Keys are copied, so the
// caller may reuse the slice.
func NewTable(keys []Key) (*Table, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyCurve
	}

	sorted := make([]Key, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Deg < sorted[j].Deg })

	for i, k := range sorted {
		if math.IsNaN(k.Deg) || math.IsInf(k.Deg, 0) || math.IsNaN(k.Coefficient) || math.IsInf(k.Coefficient, 0) {
			return nil, fmt.Errorf("key %d (%v, %v): %w", i, k.Deg, k.Coefficient, ErrNonFinite)
		}
		if i > 0 && sorted[i-1].Deg == k.Deg {
			return nil, fmt.Errorf("angle %v: %w", k.Deg, ErrDuplicateKey)
		}
	}

	return &Table{keys: sorted}, nil
}

// MustTable is NewTable for static key sets; it panics on invalid input.
func MustTable(keys []Key) *Table {
	t, err := NewTable(keys)
	if err != nil {
		panic(err)
	}
	return t
}

// Keys returns a copy of the table's keys in ascending angle order.
func (t *Table) Keys() []Key {
	out := make([]Key, len(t.keys))
	copy(out, t.keys)
	return out
}

// Evaluate linearly interpolates between the two keys bracketing deg.
func (t *Table) Evaluate(deg float64) float64 {
	first, last := t.keys[0], t.keys[len(t.keys)-1]
	if deg <= first.Deg {
		return first.Coefficient
	}
	if deg >= last.Deg {
		return last.Coefficient
	}

	// first index whose angle is >= deg; guaranteed in (0, len-1] here
	i := sort.Search(len(t.keys), func(i int) bool { return t.keys[i].Deg >= deg })
	lo, hi := t.keys[i-1], t.keys[i]
	frac := (deg - lo.Deg) / (hi.Deg - lo.Deg)
	return lo.Coefficient + frac*(hi.Coefficient-lo.Coefficient)
}

// DefaultLiftKeys is a stall-shaped response: lift grows roughly linearly up to
// about 15 degrees, collapses past the stall and reverses for negative angles.
// Coefficients are scaled for the default airframe's lift power.
var DefaultLiftKeys = []Key{
	{Deg: -90, Coefficient: 0},
	{Deg: -20, Coefficient: -0.03},
	{Deg: -15, Coefficient: -0.06},
	{Deg: 0, Coefficient: 0.01},
	{Deg: 15, Coefficient: 0.09},
	{Deg: 20, Coefficient: 0.05},
	{Deg: 90, Coefficient: 0},
}

// DefaultLift returns a Table over DefaultLiftKeys.
func DefaultLift() *Table {
	return MustTable(DefaultLiftKeys)
}
