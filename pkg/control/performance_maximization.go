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
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/dsrhaslab/Holpaca/pkg/anneal"
	"github.com/dsrhaslab/Holpaca/pkg/curve"
	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/log"
	"github.com/dsrhaslab/Holpaca/pkg/metrics"
)

const (
	// historyWeight is alpha in the EWMA avg <- avg*alpha + new*(1-alpha).
	historyWeight = 0.3
	// boundFraction is Delta in lower/upper = prelim -+ T*Delta.
	boundFraction = 0.05
	// qosMargin is the 10% slack a pool's QoS floor is allowed before its
	// lower bound is clamped to forbid further shrinking.
	qosMargin = 0.10

	annealNTries    = 2000
	annealItersPerT = 250
	annealTInitial  = 90
	annealTMin      = 0.1
	annealMuT       = 1.003
)

// PoolAvgMetrics is the EWMA of one pool's observed metrics, carried across
// ticks.
type PoolAvgMetrics struct {
	DiskIOPS   float64
	MissRatio  float64
	Throughput float64
}

// PerformanceMaximization minimizes aggregate predicted misses each tick by
// annealing per-pool sizes over utility curves fit from their MRCs,
// subject to bounds derived from a proportional preliminary sizing pass
// and per-pool QoS floors.
type PerformanceMaximization struct {
	log log.Logger

	mu  sync.Mutex
	avg map[poolKey]*PoolAvgMetrics

	// fakeEnforce, when set, computes the full tick but enforces the
	// pools' originally observed sizes instead of the optimized ones; used
	// only to measure the controller's own overhead.
	fakeEnforce bool
}

// NewPerformanceMaximization creates a PerformanceMaximization controller.
func NewPerformanceMaximization(fakeEnforce bool) *PerformanceMaximization {
	return &PerformanceMaximization{
		log:         log.NewLogger("performance-maximization"),
		avg:         make(map[poolKey]*PoolAvgMetrics),
		fakeEnforce: fakeEnforce,
	}
}

// Tick implements Algorithm.
func (c *PerformanceMaximization) Tick(ctx context.Context, pm ProxyManager) {
	collectStart := time.Now()
	statuses := pm.CollectStatus(ctx)
	metrics.TickDuration.WithLabelValues("collect").Observe(time.Since(collectStart).Seconds())
	if len(statuses) == 0 {
		return
	}

	computeStart := time.Now()
	c.updateAverages(statuses)

	var total float64
	for _, cs := range statuses {
		total += float64(cs.MaxSize)
	}

	type poolEntry struct {
		key    poolKey
		status holpaca.PoolStatus
		usable bool
	}

	var entries []poolEntry
	pools, newPools := 0, 0
	var usedSpace float64
	for name, cs := range statuses {
		for id, p := range cs.Pools {
			pools++
			usable := len(p.MRC) >= curve.MinPoints
			if usable {
				usedSpace += float64(p.UsedSize)
			} else {
				newPools++
			}
			entries = append(entries, poolEntry{key: poolKey{cache: name, pool: id}, status: p, usable: usable})
		}
	}
	if pools == 0 {
		return
	}

	newPoolShare := total * float64(newPools) / float64(pools)
	var factor, delta float64
	if usedSpace > 0 {
		factor = (total - newPoolShare) / usedSpace
	}
	if remaining := pools - newPools; remaining > 0 {
		delta = (total - newPoolShare - factor*usedSpace) / float64(remaining)
	}

	configs := make(map[poolKey]*PoolConfig, pools)
	for _, e := range entries {
		var prelim float64
		if !e.usable {
			prelim = total / float64(pools)
		} else {
			prelim = math.Max(0, float64(e.status.UsedSize)*factor+delta)
		}

		lower := math.Max(0, prelim-total*boundFraction)
		upper := prelim + total*boundFraction

		avg := c.snapshotAverage(e.key)
		if e.status.QoSLevel > 0 && e.status.QoSLevel*(1+qosMargin) > avg.Throughput {
			lower = prelim
		}

		cfg := &PoolConfig{OptimalSize: prelim, Lower: lower, Upper: upper}
		if e.usable {
			if fitted, err := curve.Build(mrcPoints(e.status.MRC), float64(e.status.UsedSize), avg.DiskIOPS, avg.Throughput); err == nil {
				cfg.Curve = fitted
			} else {
				c.log.Debugf("pool %v: utility curve fit failed, keeping preliminary size: %v", e.key, err)
			}
		}
		configs[e.key] = cfg
	}

	annealedKeys := make([]poolKey, 0, pools)
	for key, cfg := range configs {
		if cfg.Curve != nil {
			annealedKeys = append(annealedKeys, key)
		}
	}
	// Deterministic ordering keeps the annealing run reproducible for a
	// given RNG seed across identical ticks.
	sort.Slice(annealedKeys, func(i, j int) bool {
		if annealedKeys[i].cache != annealedKeys[j].cache {
			return annealedKeys[i].cache < annealedKeys[j].cache
		}
		return annealedKeys[i].pool < annealedKeys[j].pool
	})

	sizes := make(map[poolKey]float64, pools)
	for key, cfg := range configs {
		sizes[key] = cfg.OptimalSize
	}

	if len(annealedKeys) > 0 {
		start := newContextState(annealedKeys, configs)
		k := math.Abs(start.Energy()) / float64(annealedCaches(annealedKeys))
		if k == 0 {
			k = 1
		}
		rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		result := anneal.Solve(rng, start, anneal.Params{
			NTries:    annealNTries,
			ItersPerT: annealItersPerT,
			TInitial:  annealTInitial,
			TMin:      annealTMin,
			MuT:       annealMuT,
			K:         k,
		})
		if final, ok := result.(*contextState); ok {
			for i, key := range final.keys {
				sizes[key] = final.sizes[i]
			}
		}
	}

	plan := make([]holpaca.CacheResize, 0, len(statuses))
	for name, cs := range statuses {
		resize := holpaca.CacheResize{Name: name}
		for id, p := range cs.Pools {
			key := poolKey{cache: name, pool: id}
			target := p.MaxSize
			if !c.fakeEnforce {
				target = uint64(math.Max(0, sizes[key]))
			}
			resize.PoolResizes = append(resize.PoolResizes, holpaca.PoolResize{PoolId: id, Size: target})
		}
		plan = append(plan, resize)
	}
	metrics.TickDuration.WithLabelValues("compute").Observe(time.Since(computeStart).Seconds())

	enforceStart := time.Now()
	err := pm.Resize(ctx, plan)
	metrics.TickDuration.WithLabelValues("enforce").Observe(time.Since(enforceStart).Seconds())
	if err != nil {
		c.log.Warnf("resize failed: %v", err)
	}
}

func (c *PerformanceMaximization) updateAverages(statuses map[holpaca.CacheName]holpaca.CacheStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, cs := range statuses {
		for id, p := range cs.Pools {
			key := poolKey{cache: name, pool: id}
			avg, ok := c.avg[key]
			if !ok {
				c.avg[key] = &PoolAvgMetrics{
					DiskIOPS:   float64(p.DiskIOPS),
					MissRatio:  p.MissRatio,
					Throughput: float64(p.Throughput),
				}
				continue
			}
			avg.DiskIOPS = avg.DiskIOPS*historyWeight + float64(p.DiskIOPS)*(1-historyWeight)
			avg.MissRatio = avg.MissRatio*historyWeight + p.MissRatio*(1-historyWeight)
			avg.Throughput = avg.Throughput*historyWeight + float64(p.Throughput)*(1-historyWeight)
		}
	}
}

func (c *PerformanceMaximization) snapshotAverage(key poolKey) PoolAvgMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	if avg, ok := c.avg[key]; ok {
		return *avg
	}
	return PoolAvgMetrics{}
}

// annealedCaches counts the distinct caches represented in keys. The
// Metropolis normalizing factor k scales energy down to a temperature-sized
// quantity by the number of caches entering annealing, not the number of
// pools: a cache with many pools must not inflate k relative to a cache
// with one, matching the original implementation's avgMetrics normalization
// (aggregatedMetrics / cacheConfigs.size()).
func annealedCaches(keys []poolKey) int {
	seen := make(map[holpaca.CacheName]struct{}, len(keys))
	for _, k := range keys {
		seen[k.cache] = struct{}{}
	}
	return len(seen)
}

func mrcPoints(mrc map[holpaca.Size]float32) []curve.Point {
	points := make([]curve.Point, 0, len(mrc))
	for size, ratio := range mrc {
		points = append(points, curve.Point{Size: float64(size), MissRatio: ratio})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Size < points[j].Size })
	return points
}
