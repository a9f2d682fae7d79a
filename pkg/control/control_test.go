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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingAlgorithm struct {
	ticks atomic.Int64
	panic bool
}

func (c *countingAlgorithm) Tick(context.Context, ProxyManager) {
	c.ticks.Add(1)
	if c.panic {
		panic("boom")
	}
}

func TestRunnerTicksPeriodically(t *testing.T) {
	algo := &countingAlgorithm{}
	runner := NewRunner(&fakeProxyManager{}, algo, 5*time.Millisecond)

	runner.Start()
	time.Sleep(50 * time.Millisecond)
	runner.Stop()

	require.GreaterOrEqual(t, algo.ticks.Load(), int64(3))
}

func TestRunnerSurvivesPanickingTick(t *testing.T) {
	algo := &countingAlgorithm{panic: true}
	runner := NewRunner(&fakeProxyManager{}, algo, 5*time.Millisecond)

	runner.Start()
	time.Sleep(30 * time.Millisecond)
	runner.Stop()

	require.Greater(t, algo.ticks.Load(), int64(1), "a panicking tick must not kill the loop")
}

func TestRunnerStopWaitsForLoopExit(t *testing.T) {
	algo := &countingAlgorithm{}
	runner := NewRunner(&fakeProxyManager{}, algo, time.Millisecond)
	runner.Start()
	runner.Stop()

	before := algo.ticks.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, before, algo.ticks.Load(), "no ticks should occur after Stop returns")
}
