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

// Package agent implements the Cache Agent: it fronts a slab cache engine,
// tracks a per-pool sampled miss-ratio curve and the latest workload
// metrics, serves the GetStatus/Resize control RPCs, and registers itself
// with an orchestrator.
package agent

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/dsrhaslab/Holpaca/pkg/engine"
	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/log"
	"github.com/dsrhaslab/Holpaca/pkg/mrc"
)

const (
	estimatorAcceptanceRate = 0.001
	estimatorBucketSize     = 100
)

type poolInfo struct {
	name       string
	qosLevel   float64
	proportion float64
	active     bool

	estimator  *mrc.Estimator
	diskIOPS   uint32
	missRatio  float64
	throughput uint32
}

// Agent fronts one engine.Engine instance, serializing addPool/removePool/
// registerMetrics/Resize against each other and against GetStatus with a
// single per-agent lock, per the design contract that no pool topology
// change may overlap a Resize.
type Agent struct {
	log log.Logger

	ramSize     uint64
	virtualSize uint64
	proportion  float64

	mu    sync.RWMutex
	eng   *engine.Engine
	pools map[holpaca.PoolId]*poolInfo
}

// New creates an Agent fronting a cache instance with the given RAM budget.
// virtualSize lets the operator report a smaller ceiling to the orchestrator
// than the RAM actually backing the cache: GetStatus reports
// min(virtualSize, ramSize), so a virtualSize above ramSize has no effect.
// Pass 0 or ramSize to report ramSize. proportion is this cache's declared
// share for the Motivation controller.
func New(ramSize, virtualSize uint64, proportion float64) *Agent {
	if virtualSize == 0 {
		virtualSize = ramSize
	}
	return &Agent{
		log:         log.NewLogger("agent"),
		ramSize:     ramSize,
		virtualSize: virtualSize,
		proportion:  proportion,
		eng:         engine.New(ramSize),
		pools:       make(map[holpaca.PoolId]*poolInfo, 64),
	}
}

// AddPool creates a pool of the given size and QoS parameters. It returns
// holpaca.ErrPoolExists if an active pool already has the same name.
func (a *Agent) AddPool(name string, size uint64, qosLevel, proportion float64) (holpaca.PoolId, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, info := range a.pools {
		if info.active && info.name == name {
			return 0, errors.Wrapf(holpaca.ErrPoolExists, "add pool %q", name)
		}
	}
	id, err := a.eng.AddPool(size)
	if err != nil {
		return 0, errors.Wrapf(err, "add pool %q", name)
	}
	a.pools[id] = &poolInfo{
		name:       name,
		qosLevel:   qosLevel,
		proportion: proportion,
		active:     true,
		estimator: mrc.New(mrc.Config{
			AcceptanceRate: estimatorAcceptanceRate,
			BucketSize:     estimatorBucketSize,
			MaxSize:        a.ramSize,
		}),
	}
	return id, nil
}

// RemovePool marks a pool inactive and releases all memory it held.
func (a *Agent) RemovePool(id holpaca.PoolId) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	info, ok := a.pools[id]
	if !ok {
		return holpaca.ErrUnknownPool
	}
	maxSize, _, err := a.eng.GetPool(id)
	if err != nil {
		return errors.Wrapf(err, "remove pool %v", id)
	}
	if err := a.eng.ShrinkPool(id, maxSize); err != nil {
		return errors.Wrapf(err, "remove pool %v", id)
	}
	info.active = false
	return nil
}

// Find reports whether key is resident, recording the access against its
// owning pool's miss-ratio estimator on a hit.
func (a *Agent) Find(key string) (engine.Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.eng.Find(key)
	if !ok {
		return engine.Handle{}, false
	}
	if info, ok := a.pools[h.PoolId]; ok {
		info.estimator.Accessed(key, h.Size)
	}
	return h, true
}

// Insert makes handle's object resident, recording the access.
func (a *Agent) Insert(h engine.Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.eng.Insert(h) {
		return false
	}
	if info, ok := a.pools[h.PoolId]; ok {
		info.estimator.Accessed(h.Key, h.Size)
	}
	return true
}

// InsertOrReplace inserts handle, returning the handle it displaced, if
// any. The displaced key is dropped from its old pool's estimator tracking
// before the new access is recorded, preserving correctness across replaces
// that move a key between pools.
func (a *Agent) InsertOrReplace(h engine.Handle) (*engine.Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	old, hadOld := a.eng.InsertOrReplace(h)
	if hadOld {
		if info, ok := a.pools[old.PoolId]; ok {
			info.estimator.Remove(old.Key)
		}
	}
	if info, ok := a.pools[h.PoolId]; ok {
		info.estimator.Accessed(h.Key, h.Size)
	}
	return old, hadOld
}

// RegisterMetrics overwrites a pool's latest workload metrics.
func (a *Agent) RegisterMetrics(id holpaca.PoolId, diskIOPS uint32, missRatio float64, throughput uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	info, ok := a.pools[id]
	if !ok {
		return holpaca.ErrUnknownPool
	}
	info.diskIOPS = diskIOPS
	info.missRatio = missRatio
	info.throughput = throughput
	return nil
}

// GetStatus reports the cache instance's current status.
func (a *Agent) GetStatus() holpaca.CacheStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	maxSize := a.virtualSize
	if a.ramSize < maxSize {
		maxSize = a.ramSize
	}

	status := holpaca.CacheStatus{
		MaxSize:    maxSize,
		Proportion: a.proportion,
		Pools:      make(map[holpaca.PoolId]holpaca.PoolStatus, len(a.pools)),
	}
	for id, info := range a.pools {
		if !info.active {
			continue
		}
		poolMax, used, err := a.eng.GetPool(id)
		if err != nil {
			continue
		}
		points := info.estimator.ByteMRC()
		curve := make(map[holpaca.Size]float32, len(points))
		for _, p := range points {
			curve[p.Size] = p.MissRatio
		}
		status.Pools[id] = holpaca.PoolStatus{
			PoolId:     id,
			MaxSize:    poolMax,
			UsedSize:   used,
			DiskIOPS:   info.diskIOPS,
			MissRatio:  info.missRatio,
			Throughput: info.throughput,
			QoSLevel:   info.qosLevel,
			Proportion: info.proportion,
			MRC:        curve,
		}
	}
	return status
}

// Resize reshapes every named pool to its target size. Unknown pool ids in
// the plan are silently skipped. Per the essential ordering rule, shrinks
// are applied before grows: deltas are sorted ascending (most negative
// first) so the engine's sum(pool.maxSize) <= cache.maxSize invariant never
// transiently breaks.
func (a *Agent) Resize(targets map[holpaca.PoolId]uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	type step struct {
		id    holpaca.PoolId
		delta int64
	}
	var steps []step
	for id, target := range targets {
		maxSize, _, err := a.eng.GetPool(id)
		if err != nil {
			a.log.Warnf("resize: skipping unknown pool %v", id)
			continue
		}
		steps = append(steps, step{id: id, delta: int64(target) - int64(maxSize)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].delta < steps[j].delta })

	var firstErr error
	for _, s := range steps {
		var err error
		switch {
		case s.delta < 0:
			err = a.eng.ShrinkPool(s.id, uint64(-s.delta))
		case s.delta > 0:
			err = a.eng.GrowPool(s.id, uint64(s.delta))
		}
		if err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "resize pool %v", s.id)
		}
	}
	return firstErr
}
