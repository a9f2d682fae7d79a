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

// Package control holds the orchestrator's pluggable control algorithms:
// Motivation, a proportional baseline, and PerformanceMaximization, a
// simulated-annealing optimizer over per-pool utility curves. Both drive
// the same collect -> compute -> enforce tick against a ProxyManager.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/log"
)

// ProxyManager is the orchestrator behavior a controller drives: collecting
// agent status and dispatching resize plans.
type ProxyManager interface {
	CollectStatus(ctx context.Context) map[holpaca.CacheName]holpaca.CacheStatus
	Resize(ctx context.Context, plan []holpaca.CacheResize) error
}

// Algorithm computes and enforces one control tick.
type Algorithm interface {
	Tick(ctx context.Context, pm ProxyManager)
}

// poolKey identifies one pool within one cache, for controller-local state
// that must persist across ticks (PoolAvgMetrics) or be scoped to a single
// tick (PoolConfig/Context).
type poolKey struct {
	cache holpaca.CacheName
	pool  holpaca.PoolId
}

// Runner periodically drives an Algorithm's Tick until Stop is called. It
// replaces the original's background-thread-per-controller lifecycle:
// Start launches one goroutine, Stop cancels it and waits for the
// in-flight tick (if any) to finish.
type Runner struct {
	periodicity time.Duration
	algo        Algorithm
	pm          ProxyManager
	log         log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a Runner for algo, ticking every periodicity against pm.
func NewRunner(pm ProxyManager, algo Algorithm, periodicity time.Duration) *Runner {
	return &Runner{
		pm:          pm,
		algo:        algo,
		periodicity: periodicity,
		log:         log.NewLogger("controller"),
	}
}

// Start begins the tick loop in a new goroutine. Calling Start twice
// without an intervening Stop is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.periodicity)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tickSafely(ctx)
		}
	}
}

// tickSafely runs one Tick, converting a panic into a logged error so a
// single bad tick never kills the controller loop.
func (r *Runner) tickSafely(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf("controller tick panicked, skipping: %v", rec)
		}
	}()
	r.algo.Tick(ctx, r.pm)
}

// Stop cancels the tick loop and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
