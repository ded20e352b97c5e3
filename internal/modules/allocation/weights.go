// Package allocation distributes targets across departments, competition programs and
// employees through percentage weight sets that always sum to 100.
package allocation

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// TotalPct is the sum every non-empty WeightSet is kept at.
const TotalPct = 100.0

// minRedistributable is the smallest combined weight of the other shares for which a
// change is redistributed proportionally. Below it, the others share the change evenly.
const minRedistributable = 0.1

// ErrUnknownShare is returned when a weight is set for a share the set does not hold.
var ErrUnknownShare = errors.New("unknown share")

// WeightSet maps share names (departments or competition programs) to percentages.
type WeightSet map[string]float64

// Names returns the share names in sorted order.
func (w WeightSet) Names() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the set holds share k.
func (w WeightSet) Has(k string) bool {
	_, ok := w[k]
	return ok
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	return floats.Sum(w.values(w.Names()))
}

// Clone returns an independent copy of the set.
func (w WeightSet) Clone() WeightSet {
	out := make(WeightSet, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Update sets share k to vNew and moves the difference onto the other shares in
// proportion to their current weights, so the set keeps summing to 100:
//
//  1. delta = vNew - old[k]
//  2. stake_j = old[j] / sum(old others), or an even split when the others hold almost
//     nothing
//  3. new[j] = max(0, old[j] - delta x stake_j)
//  4. renormalize everything to 100
//
// vNew is clamped to [0, 100]. A set with a single share always holds {k: 100}. Updating
// an unknown share returns an unchanged copy.
func (w WeightSet) Update(k string, vNew float64) WeightSet {
	if !w.Has(k) {
		return w.Clone()
	}
	vNew = clamp(vNew, 0, TotalPct)
	if len(w) == 1 {
		return WeightSet{k: TotalPct}
	}

	others := make([]string, 0, len(w)-1)
	for _, name := range w.Names() {
		if name != k {
			others = append(others, name)
		}
	}

	delta := vNew - w[k]
	sumOthers := floats.Sum(w.values(others))

	out := make(WeightSet, len(w))
	out[k] = vNew
	for _, name := range others {
		stake := 1 / float64(len(others))
		if sumOthers > minRedistributable {
			stake = w[name] / sumOthers
		}
		out[name] = math.Max(0, w[name]-delta*stake)
	}
	return out.normalized()
}

// normalized scales the set to sum to 100. A set whose weights are all zero becomes an
// even split.
func (w WeightSet) normalized() WeightSet {
	if len(w) == 0 {
		return WeightSet{}
	}
	names := w.Names()
	vals := w.values(names)
	total := floats.Sum(vals)

	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return evenSplit(names)
	}
	floats.Scale(TotalPct/total, vals)

	out := make(WeightSet, len(names))
	for i, name := range names {
		out[name] = vals[i]
	}
	return out
}

// Reconcile aligns a persisted set with the shares currently observed. Known shares keep
// their weight, vanished shares are dropped, and new shares split the remaining headroom
// (100 minus what the known shares hold) evenly. The result is renormalized. changed
// reports whether the result differs from prior and should be persisted.
func Reconcile(prior WeightSet, names []string) (WeightSet, bool) {
	names = dedupe(names)
	if len(names) == 0 {
		return WeightSet{}, len(prior) > 0
	}

	out := make(WeightSet, len(names))
	var fresh []string
	assigned := 0.0
	for _, name := range names {
		if v, ok := prior[name]; ok {
			out[name] = v
			assigned += v
			continue
		}
		fresh = append(fresh, name)
	}

	if len(fresh) > 0 {
		share := math.Max(0, TotalPct-assigned) / float64(len(fresh))
		for _, name := range fresh {
			out[name] = share
		}
	}

	out = out.normalized()
	return out, !out.Equal(prior)
}

// Equal reports whether both sets hold the same shares with weights within 1e-9.
func (w WeightSet) Equal(other WeightSet) bool {
	if len(w) != len(other) {
		return false
	}
	for k, v := range w {
		o, ok := other[k]
		if !ok || math.Abs(v-o) > 1e-9 {
			return false
		}
	}
	return true
}

func (w WeightSet) values(names []string) []float64 {
	vals := make([]float64, len(names))
	for i, name := range names {
		vals[i] = w[name]
	}
	return vals
}

func evenSplit(names []string) WeightSet {
	out := make(WeightSet, len(names))
	for _, name := range names {
		out[name] = TotalPct / float64(len(names))
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
