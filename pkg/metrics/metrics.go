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

// Package metrics holds the prometheus collectors exported by both the
// Cache Agent and the Orchestrator: pool sizes, resize activity, RPC
// errors, and controller tick latency broken down by phase.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is a pedantic prometheus registry holding every Holpaca
// collector; pedantic catches metric-naming and help-text mistakes early.
var Registry = prometheus.NewPedanticRegistry()

var factory = promauto.With(Registry)

var (
	// PoolMaxSize reports a pool's configured capacity in bytes.
	PoolMaxSize = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "holpaca",
		Subsystem: "pool",
		Name:      "max_size_bytes",
		Help:      "Configured maximum size of a pool, in bytes.",
	}, []string{"cache", "pool"})

	// PoolUsedSize reports a pool's currently occupied bytes.
	PoolUsedSize = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "holpaca",
		Subsystem: "pool",
		Name:      "used_size_bytes",
		Help:      "Currently used size of a pool, in bytes.",
	}, []string{"cache", "pool"})

	// PoolMissRatio reports a pool's current miss ratio at its configured size.
	PoolMissRatio = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "holpaca",
		Subsystem: "pool",
		Name:      "miss_ratio",
		Help:      "Pool miss ratio at its currently configured size.",
	}, []string{"cache", "pool"})

	// ResizesTotal counts every resize attempt made on a pool.
	ResizesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "holpaca",
		Subsystem: "controller",
		Name:      "resizes_total",
		Help:      "Number of resize operations applied to a pool, by outcome.",
	}, []string{"cache", "pool", "outcome"})

	// RPCErrorsTotal counts failed control-plane/data-plane RPCs.
	RPCErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "holpaca",
		Subsystem: "rpc",
		Name:      "errors_total",
		Help:      "Number of RPC calls that returned an error, by method.",
	}, []string{"method"})

	// TickDuration measures controller tick latency, broken down by phase
	// (collect status, compute plan, enforce plan), matching the
	// collect/compute/enforce breakdown of the original implementation.
	TickDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "holpaca",
		Subsystem: "controller",
		Name:      "tick_duration_seconds",
		Help:      "Controller tick duration in seconds, by phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})
)

// Handler returns the HTTP handler serving Registry in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
