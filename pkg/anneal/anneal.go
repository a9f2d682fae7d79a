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

// Package anneal implements a Metropolis simulated-annealing solver in the
// shape of GSL's gsl_siman_solve: at each of iters_per_T iterations at a
// given temperature, n_tries neighboring candidates are generated and the
// best of them is offered to the Metropolis acceptance test, after which
// the temperature is cooled by dividing by mu_t until t_min is reached.
//
// Unlike the CRTP-templated C++ original, the state under optimization is
// any type implementing Optimizable. The caller supplies the pseudo-random
// source to Solve, which passes it on to every Optimizable.Step call; Solve
// does not create or seed a source of its own.
package anneal

import (
	"math"
	"math/rand/v2"
)

// Optimizable is a point in a simulated-annealing search space.
type Optimizable interface {
	// Step returns a neighboring candidate reached by one random
	// perturbation of the receiver; the receiver itself is left unmodified.
	Step(rng *rand.Rand) Optimizable
	// Energy is the objective being minimized.
	Energy() float64
	// Distance reports how far apart two states are.
	Distance(other Optimizable) float64
	// Skip reports whether annealing should be skipped entirely, e.g.
	// because there is nothing to optimize over.
	Skip() bool
}

// Params mirrors the tunables of gsl_siman_solve.
type Params struct {
	// NTries is the number of candidate neighbors generated per iteration;
	// the lowest-energy candidate is offered to the acceptance test.
	NTries int
	// ItersPerT is the number of iterations performed at each temperature.
	ItersPerT int
	// TInitial is the starting temperature.
	TInitial float64
	// TMin is the temperature at which annealing stops.
	TMin float64
	// MuT is the cooling rate: temperature is divided by MuT after each
	// full pass of ItersPerT iterations.
	MuT float64
	// K is a normalizing factor in the Metropolis acceptance exponent,
	// exp(-(Enew-E)/(K*T)); GSL callers typically pass the average energy
	// of the search space so the exponent is scale-free.
	K float64
}

// Solve runs simulated annealing starting from start and returns the
// lowest-energy state observed. If start.Skip() is true, start is returned
// unchanged without consuming any randomness.
func Solve(rng *rand.Rand, start Optimizable, p Params) Optimizable {
	if start.Skip() {
		return start
	}

	current := start
	currentEnergy := start.Energy()
	best := start
	bestEnergy := currentEnergy

	for T := p.TInitial; T > p.TMin; T /= p.MuT {
		for i := 0; i < p.ItersPerT; i++ {
			candidate, candidateEnergy := bestOfNTries(rng, current, p.NTries)

			if candidateEnergy < currentEnergy || acceptWorse(rng, currentEnergy, candidateEnergy, p.K, T) {
				current = candidate
				currentEnergy = candidateEnergy
			}
			if currentEnergy < bestEnergy {
				best = current
				bestEnergy = currentEnergy
			}
		}
	}
	return best
}

func bestOfNTries(rng *rand.Rand, current Optimizable, nTries int) (Optimizable, float64) {
	if nTries < 1 {
		nTries = 1
	}
	var bestCandidate Optimizable
	bestEnergy := 0.0
	for j := 0; j < nTries; j++ {
		candidate := current.Step(rng)
		energy := candidate.Energy()
		if bestCandidate == nil || energy < bestEnergy {
			bestCandidate = candidate
			bestEnergy = energy
		}
	}
	return bestCandidate, bestEnergy
}

// acceptWorse applies the Metropolis criterion for a candidate that did not
// improve on the current energy.
func acceptWorse(rng *rand.Rand, currentEnergy, candidateEnergy, k, t float64) bool {
	if k <= 0 || t <= 0 {
		return false
	}
	p := math.Exp(-(candidateEnergy - currentEnergy) / (k * t))
	return rng.Float64() < p
}
