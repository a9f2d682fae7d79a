/*
Copyright 2024 The Holpaca Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package control

import (
	"math"
	"math/rand/v2"

	"github.com/dsrhaslab/Holpaca/pkg/anneal"
	"github.com/dsrhaslab/Holpaca/pkg/curve"
)

// PoolConfig is one pool's tick-local optimization state: its current
// candidate size, the bounds annealing may move it within, and the
// utility curve its energy contribution is read from.
type PoolConfig struct {
	OptimalSize float64
	Lower       float64
	Upper       float64
	Curve       *curve.Curve
}

// contextState is the set of (cache,pool) pairs eligible for annealing this
// tick: those with a usable MRC and therefore a fitted utility curve.
type contextState struct {
	keys    []poolKey
	sizes   []float64
	configs map[poolKey]*PoolConfig
}

func newContextState(keys []poolKey, configs map[poolKey]*PoolConfig) *contextState {
	sizes := make([]float64, len(keys))
	for i, k := range keys {
		sizes[i] = configs[k].OptimalSize
	}
	return &contextState{keys: keys, sizes: sizes, configs: configs}
}

func (c *contextState) clone() *contextState {
	sizes := make([]float64, len(c.sizes))
	copy(sizes, c.sizes)
	return &contextState{keys: c.keys, sizes: sizes, configs: c.configs}
}

// Step picks two distinct pools uniformly at random and transfers a
// uniformly sampled amount, bounded by both pools' remaining slack, from
// one to the other. Total allocated memory across the context never
// changes.
func (c *contextState) Step(rng *rand.Rand) anneal.Optimizable {
	if len(c.keys) < 2 {
		return c
	}
	i := rng.IntN(len(c.keys))
	j := i
	for j == i {
		j = rng.IntN(len(c.keys))
	}

	cfg1, cfg2 := c.configs[c.keys[i]], c.configs[c.keys[j]]
	maxDelta := math.Min(c.sizes[i]-cfg1.Lower, cfg2.Upper-c.sizes[j])

	next := c.clone()
	if maxDelta > 0 {
		delta := rng.Float64() * maxDelta
		next.sizes[i] -= delta
		next.sizes[j] += delta
	}
	return next
}

// Energy is the sum of each pool's utility at its current candidate size;
// annealing minimizes this, so utility curves are signed such that a lower
// sum corresponds to higher aggregate performance.
func (c *contextState) Energy() float64 {
	var e float64
	for i, k := range c.keys {
		e += c.configs[k].Curve.Value(c.sizes[i])
	}
	return e
}

// Distance is the total absolute movement between two contexts' sizes.
func (c *contextState) Distance(other anneal.Optimizable) float64 {
	o, ok := other.(*contextState)
	if !ok {
		return math.Inf(1)
	}
	var d float64
	for i := range c.sizes {
		d += math.Abs(c.sizes[i] - o.sizes[i])
	}
	return d
}

// Skip reports whether there is nothing to optimize.
func (c *contextState) Skip() bool {
	return len(c.keys) == 0
}
