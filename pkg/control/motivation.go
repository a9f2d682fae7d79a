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
	"time"

	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/log"
	"github.com/dsrhaslab/Holpaca/pkg/metrics"
)

// Motivation splits total cache memory proportionally to declared
// cache.proportion x pool.proportion; a baseline against which
// PerformanceMaximization is compared.
type Motivation struct {
	log log.Logger
}

// NewMotivation creates a Motivation controller.
func NewMotivation() *Motivation {
	return &Motivation{log: log.NewLogger("motivation")}
}

// Tick implements Algorithm.
func (m *Motivation) Tick(ctx context.Context, pm ProxyManager) {
	collectStart := time.Now()
	statuses := pm.CollectStatus(ctx)
	metrics.TickDuration.WithLabelValues("collect").Observe(time.Since(collectStart).Seconds())
	if len(statuses) == 0 {
		return
	}

	computeStart := time.Now()
	var total, weight float64
	for _, cs := range statuses {
		total += float64(cs.MaxSize)
		for _, p := range cs.Pools {
			weight += cs.Proportion * p.Proportion
		}
	}
	if weight == 0 {
		return
	}

	plan := make([]holpaca.CacheResize, 0, len(statuses))
	for name, cs := range statuses {
		resize := holpaca.CacheResize{Name: name}
		for id, p := range cs.Pools {
			target := total * (cs.Proportion * p.Proportion) / weight
			resize.PoolResizes = append(resize.PoolResizes, holpaca.PoolResize{
				PoolId: id,
				Size:   uint64(target),
			})
		}
		plan = append(plan, resize)
	}
	metrics.TickDuration.WithLabelValues("compute").Observe(time.Since(computeStart).Seconds())

	enforceStart := time.Now()
	err := pm.Resize(ctx, plan)
	metrics.TickDuration.WithLabelValues("enforce").Observe(time.Since(enforceStart).Seconds())
	if err != nil {
		m.log.Warnf("resize failed: %v", err)
	}
}
