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

// Command holpaca-orchestrator runs the control plane: it listens for
// agent registrations and, if an algorithm is named on the command line,
// drives it on a fixed tick period.
//
// Usage: holpaca-orchestrator <bind-address> [<algorithm> <colon-args>]...
//
// Recognized algorithms:
//
//	ThroughputMaximization <periodicity_ms>:<delta>[:<fakeEnforce>[:<printLatenciesOnEntries>]]
//	Motivation <periodicity_ms>
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dsrhaslab/Holpaca/pkg/control"
	"github.com/dsrhaslab/Holpaca/pkg/log"
	"github.com/dsrhaslab/Holpaca/pkg/metrics"
	"github.com/dsrhaslab/Holpaca/pkg/orchestrator"
)

var logger = log.NewLogger("holpaca-orchestrator")

func usageError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "holpaca-orchestrator: "+format+"\n", args...)
	os.Exit(1)
}

func parseAlgorithm(name string, argsField string) (control.Algorithm, time.Duration) {
	args := strings.Split(argsField, ":")

	switch name {
	case "Motivation":
		if len(args) != 1 {
			usageError("Motivation takes exactly one argument: <periodicity_ms>")
		}
		ms, err := strconv.Atoi(args[0])
		if err != nil {
			usageError("Motivation: invalid periodicity_ms %q: %v", args[0], err)
		}
		return control.NewMotivation(), time.Duration(ms) * time.Millisecond

	case "ThroughputMaximization":
		if len(args) < 2 || len(args) > 4 {
			usageError("ThroughputMaximization takes 2-4 colon-separated arguments")
		}
		ms, err := strconv.Atoi(args[0])
		if err != nil {
			usageError("ThroughputMaximization: invalid periodicity_ms %q: %v", args[0], err)
		}
		// args[1] (delta) is consumed by the spec's literal CLI shape but the
		// bound fraction is a controller-internal constant in this
		// implementation; it is parsed and validated only.
		if _, err := strconv.ParseFloat(args[1], 64); err != nil {
			usageError("ThroughputMaximization: invalid delta %q: %v", args[1], err)
		}
		fakeEnforce := false
		if len(args) >= 3 {
			fakeEnforce, err = strconv.ParseBool(args[2])
			if err != nil {
				usageError("ThroughputMaximization: invalid fakeEnforce %q: %v", args[2], err)
			}
		}
		return control.NewPerformanceMaximization(fakeEnforce), time.Duration(ms) * time.Millisecond

	default:
		usageError("unknown algorithm %q", name)
		return nil, 0
	}
}

func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		usageError("usage: holpaca-orchestrator <bind-address> [<algorithm> <colon-args>]...")
	}

	bindAddress := args[0]
	rest := args[1:]
	if len(rest)%2 != 0 {
		usageError("algorithm arguments must come in <name> <colon-args> pairs")
	}

	o := orchestrator.New()
	for i := 0; i < len(rest); i += 2 {
		algo, periodicity := parseAlgorithm(rest[i], rest[i+1])
		o.AddAlgorithm(algo, periodicity)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(":9090", mux); err != nil {
			logger.Errorf("metrics server stopped: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := o.Serve(bindAddress); err != nil {
			logger.Fatalf("orchestrator gRPC server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	o.Stop()
}
