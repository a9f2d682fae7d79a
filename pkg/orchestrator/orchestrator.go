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

// Package orchestrator implements the control plane: it keeps the live set
// of registered cache agents, fans out GetStatus/Resize to them on behalf
// of a controller, and exposes Connect/Disconnect over holpaca.Orchestrator
// for agents to register against.
package orchestrator

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dsrhaslab/Holpaca/pkg/control"
	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/log"
	"github.com/dsrhaslab/Holpaca/pkg/metrics"
	"github.com/dsrhaslab/Holpaca/pkg/rpc"
)

// proxy is the orchestrator's handle to one registered agent.
type proxy struct {
	address string
	conn    *grpc.ClientConn
	client  rpc.AgentClient
}

// dialFunc creates a proxy for a newly registered agent address; the
// production implementation dials over gRPC, tests substitute a fake.
type dialFunc func(address string) (rpc.AgentClient, *grpc.ClientConn, error)

// Orchestrator implements both rpc.OrchestratorServer (inbound
// Connect/Disconnect from agents) and control.ProxyManager (outbound
// CollectStatus/Resize driven by whatever controller is installed).
type Orchestrator struct {
	log log.Logger
	dial dialFunc

	mu      sync.RWMutex
	proxies map[holpaca.CacheName]*proxy

	runnerMu sync.Mutex
	runner   *control.Runner
}

var _ rpc.OrchestratorServer = (*Orchestrator)(nil)
var _ control.ProxyManager = (*Orchestrator)(nil)

// New creates an Orchestrator with no registered agents and no controller
// installed.
func New() *Orchestrator {
	return &Orchestrator{
		log:     log.RateLimit(log.NewLogger("orchestrator"), log.Interval(30*time.Second)),
		dial:    dialAgent,
		proxies: make(map[holpaca.CacheName]*proxy, 64),
	}
}

func dialAgent(address string) (rpc.AgentClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(address,
		append(rpc.DialOptions(), grpc.WithTransportCredentials(insecure.NewCredentials()))...)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dial agent %s", address)
	}
	return rpc.NewAgentClient(conn), conn, nil
}

// Connect implements rpc.OrchestratorServer. A second Connect for an
// address already registered replaces the existing proxy (P5: exactly one
// proxy survives per address).
func (o *Orchestrator) Connect(_ context.Context, req *rpc.ConnectRequest) (*rpc.ConnectReply, error) {
	client, conn, err := o.dial(req.Address)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	o.mu.Lock()
	if old, exists := o.proxies[holpaca.CacheName(req.Address)]; exists && old.conn != nil {
		old.conn.Close()
	}
	o.proxies[holpaca.CacheName(req.Address)] = &proxy{address: req.Address, conn: conn, client: client}
	o.mu.Unlock()

	o.log.Infof("agent connected: %s", req.Address)
	return &rpc.ConnectReply{}, nil
}

// Disconnect implements rpc.OrchestratorServer; idempotent on an address
// that was never (or no longer) registered.
func (o *Orchestrator) Disconnect(_ context.Context, req *rpc.DisconnectRequest) (*rpc.DisconnectReply, error) {
	o.mu.Lock()
	if p, exists := o.proxies[holpaca.CacheName(req.Address)]; exists {
		if p.conn != nil {
			p.conn.Close()
		}
		delete(o.proxies, holpaca.CacheName(req.Address))
	}
	o.mu.Unlock()

	o.log.Infof("agent disconnected: %s", req.Address)
	return &rpc.DisconnectReply{}, nil
}

func (o *Orchestrator) snapshotProxies() map[holpaca.CacheName]*proxy {
	o.mu.RLock()
	defer o.mu.RUnlock()
	snapshot := make(map[holpaca.CacheName]*proxy, len(o.proxies))
	for name, p := range o.proxies {
		snapshot[name] = p
	}
	return snapshot
}

// CollectStatus implements control.ProxyManager: it fans GetStatus out to
// every currently registered proxy concurrently. Proxies that fail are
// dropped from this round's result only; they remain registered and are
// retried on the next tick.
func (o *Orchestrator) CollectStatus(ctx context.Context) map[holpaca.CacheName]holpaca.CacheStatus {
	proxies := o.snapshotProxies()

	var mu sync.Mutex
	result := make(map[holpaca.CacheName]holpaca.CacheStatus, len(proxies))
	var failures *multierror.Error

	g, gctx := errgroup.WithContext(ctx)
	for name, p := range proxies {
		name, p := name, p
		g.Go(func() error {
			reply, err := p.client.GetStatus(gctx, &rpc.GetStatusRequest{})
			if err != nil {
				metrics.RPCErrorsTotal.WithLabelValues("GetStatus").Inc()
				mu.Lock()
				failures = multierror.Append(failures, errors.Wrapf(err, "GetStatus %s", name))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result[name] = reply.Status
			mu.Unlock()
			for id, pool := range reply.Status.Pools {
				poolLabel := strconv.FormatUint(uint64(id), 10)
				metrics.PoolMaxSize.WithLabelValues(string(name), poolLabel).Set(float64(pool.MaxSize))
				metrics.PoolUsedSize.WithLabelValues(string(name), poolLabel).Set(float64(pool.UsedSize))
				metrics.PoolMissRatio.WithLabelValues(string(name), poolLabel).Set(pool.MissRatio)
			}
			return nil
		})
	}
	// Errors are aggregated per-proxy above; Wait only guards concurrency.
	_ = g.Wait()

	// Proxies that failed stay registered for retry next tick; the
	// aggregated error is logged once rather than per proxy.
	if err := failures.ErrorOrNil(); err != nil {
		o.log.Warnf("CollectStatus: %v", err)
	}

	return result
}

// Resize implements control.ProxyManager. Per the essential plan-length
// invariant, the plan is applied only if it names exactly as many caches as
// are currently registered; otherwise it is discarded in full, since the
// proxy set may have changed between observe and act.
func (o *Orchestrator) Resize(ctx context.Context, plan []holpaca.CacheResize) error {
	proxies := o.snapshotProxies()
	if len(proxies) == 0 {
		return holpaca.ErrNoProxies
	}
	if len(plan) != len(proxies) {
		return holpaca.ErrPlanLengthMismatch
	}

	var mu sync.Mutex
	var failures *multierror.Error

	g, gctx := errgroup.WithContext(ctx)
	for _, resize := range plan {
		resize := resize
		p, ok := proxies[resize.Name]
		if !ok {
			continue
		}
		g.Go(func() error {
			_, err := p.client.Resize(gctx, &rpc.ResizeRequest{Resize: resize})
			outcome := "ok"
			if err != nil {
				metrics.RPCErrorsTotal.WithLabelValues("Resize").Inc()
				outcome = "error"
				mu.Lock()
				failures = multierror.Append(failures, errors.Wrapf(err, "Resize %s", resize.Name))
				mu.Unlock()
			}
			for _, poolResize := range resize.PoolResizes {
				poolLabel := strconv.FormatUint(uint64(poolResize.PoolId), 10)
				metrics.ResizesTotal.WithLabelValues(string(resize.Name), poolLabel, outcome).Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	return failures.ErrorOrNil()
}

// AddAlgorithm installs algo as the single active controller, ticking every
// periodicity. Replacing an already-installed controller tears down its
// background loop first.
func (o *Orchestrator) AddAlgorithm(algo control.Algorithm, periodicity time.Duration) {
	o.runnerMu.Lock()
	defer o.runnerMu.Unlock()

	if o.runner != nil {
		o.runner.Stop()
	}
	o.runner = control.NewRunner(o, algo, periodicity)
	o.runner.Start()
}

// Stop tears down the currently installed controller, if any.
func (o *Orchestrator) Stop() {
	o.runnerMu.Lock()
	defer o.runnerMu.Unlock()

	if o.runner != nil {
		o.runner.Stop()
		o.runner = nil
	}
}
