package projections

import (
	"encoding/json"
	"fmt"
	"math"
)

// Average is a mean over Count values.
// INVARIANT: Value is NaN exactly when Count is 0
type Average struct {
	Value float64
	Count int
}

// Available reports whether the average has any member.
func (a Average) Available() bool {
	return a.Count > 0
}

// String renders the average with two decimals, or "N/A" when unavailable.
func (a Average) String() string {
	if !a.Available() {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", a.Value)
}

// MarshalJSON writes the value, or null when unavailable.
func (a Average) MarshalJSON() ([]byte, error) {
	if !a.Available() {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// Percent returns the average as a share of scale, clamped to [0, 100]; 0 when unavailable.
func (a Average) Percent(scale float64) int {
	if !a.Available() || scale <= 0 {
		return 0
	}
	p := int(math.Round(a.Value / scale * 100))
	return min(max(p, 0), 100)
}

// Mean averages values.
// POST: an empty input gives an unavailable Average, never 0
func Mean(values []float64) Average {
	if len(values) == 0 {
		return Average{Value: math.NaN()}
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return Average{Value: sum / float64(len(values)), Count: len(values)}
}

// CountBy counts items per key.
func CountBy[T any, K comparable](items []T, key func(T) K) map[K]int {
	out := make(map[K]int)
	for _, it := range items {
		out[key(it)]++
	}
	return out
}

// MeanBy averages value(item) per key, for exactly the given keys.
// POST: every key is present; a key with no items maps to an unavailable Average
func MeanBy[T any, K comparable](items []T, keys []K, key func(T) K, value func(T) float64) map[K]Average {
	groups := make(map[K][]float64, len(keys))
	for _, k := range keys {
		groups[k] = nil
	}
	for _, it := range items {
		k := key(it)
		if _, ok := groups[k]; ok {
			groups[k] = append(groups[k], value(it))
		}
	}
	out := make(map[K]Average, len(keys))
	for k, vs := range groups {
		out[k] = Mean(vs)
	}
	return out
}
