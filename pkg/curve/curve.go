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

// Package curve builds the per-pool utility curve the PerformanceMaximization
// controller anneals over: a monotone cubic interpolation of estimated
// utility (negative disk I/O per miss) against candidate pool size.
package curve

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// MinPoints is the fewest distinct MRC samples a curve can be fit from.
const MinPoints = 3

// Curve is a fitted, shifted utility curve for one pool: Value(size) is the
// pool's energy term at that size. It falls as the sampled miss ratio falls,
// so a lower value means fewer predicted misses.
type Curve struct {
	fit        interp.FritschButland
	xs, ys     []float64
	lo, hi     float64
}

// Build fits a utility curve from a pool's byte MRC. points must be sorted
// ascending by size, as pkg/mrc.Estimator.ByteMRC produces them.
//
// Utility at each MRC sample is -avgDiskIOPS/missRatio (points with a zero
// miss ratio are excluded, since they carry no information about the cost
// of a miss). The fitted curve is then shifted by prelim(usedSize) +
// avgThroughput, anchoring the annealer's energy function to the pool's
// currently observed operating point, and refit through the shifted
// samples.
func Build(points []Point, usedSize float64, avgDiskIOPS, avgThroughput float64) (*Curve, error) {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if p.MissRatio <= 0 {
			continue
		}
		xs = append(xs, p.Size)
		ys = append(ys, -avgDiskIOPS/float64(p.MissRatio))
	}
	if len(xs) < MinPoints {
		return nil, fmt.Errorf("curve: need at least %d usable MRC points, got %d", MinPoints, len(xs))
	}

	var prelim interp.FritschButland
	if err := prelim.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("curve: preliminary fit: %w", err)
	}

	shift := prelim.Predict(clamp(usedSize, xs[0], xs[len(xs)-1])) + avgThroughput
	shifted := make([]float64, len(ys))
	for i, y := range ys {
		shifted[i] = y + shift
	}

	var final interp.FritschButland
	if err := final.Fit(xs, shifted); err != nil {
		return nil, fmt.Errorf("curve: final fit: %w", err)
	}

	return &Curve{fit: final, xs: xs, ys: shifted, lo: xs[0], hi: xs[len(xs)-1]}, nil
}

// Point is one (size, miss-ratio) MRC sample; matches pkg/mrc.Point but
// keeps this package free of a dependency on pkg/mrc's internal type.
type Point struct {
	Size      float64
	MissRatio float32
}

// Value returns the estimated utility at the given pool size, clamped to
// the fitted domain: sizes outside [min(MRC size), max(MRC size)] return
// the boundary value rather than extrapolating.
func (c *Curve) Value(size float64) float64 {
	return c.fit.Predict(clamp(size, c.lo, c.hi))
}

// Domain returns the smallest and largest size the curve was fit over.
func (c *Curve) Domain() (lo, hi float64) { return c.lo, c.hi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
