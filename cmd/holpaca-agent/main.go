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

// Command holpaca-agent runs a standalone data-plane demo: a Cache Agent
// fronting one slab cache engine and one in-memory backing store. Every HTTP
// read is served from the store; the agent only accounts for it, so that
// the estimator and engine see the access pattern.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dsrhaslab/Holpaca/pkg/agent"
	"github.com/dsrhaslab/Holpaca/pkg/config"
	"github.com/dsrhaslab/Holpaca/pkg/engine"
	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/log"
	"github.com/dsrhaslab/Holpaca/pkg/metrics"
	"github.com/dsrhaslab/Holpaca/pkg/store"
)

var logger = log.NewLogger("holpaca-agent")

// cacheFront wires the agent to a backing store: every read fetches the
// value from the store, and a miss against the agent inserts the key, so
// the next read for the same key is accounted as a hit.
type cacheFront struct {
	agent  *agent.Agent
	store  *store.Store
	poolID holpaca.PoolId
}

// Get serves key from the backing store, the only place object bytes
// actually live in this demo; the engine and its estimator only model
// occupancy and reuse distance for the control plane's benefit. A Find hit
// records the access against the pool's MRC; a miss inserts it so future
// reads for the same key are accounted as hits.
func (f *cacheFront) Get(key string) ([]byte, error) {
	value, status := f.store.Read(key)
	if status != store.OK {
		return nil, fmt.Errorf("%s: %s", key, status)
	}

	if _, ok := f.agent.Find(key); !ok {
		f.agent.InsertOrReplace(engine.Handle{PoolId: f.poolID, Key: key, Size: uint64(len(value))})
	}
	return value, nil
}

func main() {
	fs := flag.NewFlagSet("holpaca-agent", flag.ExitOnError)
	configPath, sets := config.RegisterFlags(fs)
	httpAddr := fs.String("http-address", ":8080", "address to serve the demo object endpoint and metrics on")
	if err := fs.Parse(os.Args[1:]); err != nil {
		logger.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.ParseFlags(configPath, sets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "holpaca-agent: %v\n", err)
		os.Exit(1)
	}

	ramSize := cfg.GetUint64("cachelib.size", -1, 1_000_000_000)
	virtualSize := cfg.GetUint64("holpaca.virtualsize", -1, 0)
	proportion := cfg.GetFloat64("holpaca.proportion", -1, 1.0)
	ownAddress := cfg.GetString("holpaca.agent.address", -1, "")
	orchestratorAddr := cfg.GetString("holpaca.orchestrator.address", -1, "")

	a := agent.New(ramSize, virtualSize, proportion)
	s := store.New()

	var poolID holpaca.PoolId
	if !cfg.GetBool("holpaca.pool.noinitialsize", -1, false) {
		poolName := cfg.GetString("cachelib.pool.name", -1, "default")
		relSize := cfg.GetFloat64("cachelib.pool.relsize", -1, 1.0)
		qos := cfg.GetFloat64("holpaca.pool.qos", -1, 0.0)
		poolProportion := cfg.GetFloat64("holpaca.pool.proportion", -1, 1.0)
		size := uint64(float64(ramSize) * relSize)
		id, err := a.AddPool(poolName, size, qos, poolProportion)
		if err != nil {
			logger.Fatalf("creating initial pool %q: %v", poolName, err)
		}
		poolID = id
	}

	front := &cacheFront{agent: a, store: s, poolID: poolID}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/object/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/object/"):]
		value, err := front.Get(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Write(value)
	})
	go func() {
		if err := http.ListenAndServe(*httpAddr, mux); err != nil {
			logger.Errorf("http server stopped: %v", err)
		}
	}()

	srv := agent.NewServer(a, ownAddress, orchestratorAddr)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		logger.Fatalf("starting agent: %v", err)
	}

	<-ctx.Done()
	srv.Stop(context.Background())
}
