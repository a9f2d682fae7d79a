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

package agent

import (
	"testing"

	"github.com/dsrhaslab/Holpaca/pkg/engine"
	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/stretchr/testify/require"
)

func TestAddPoolRejectsOvercommit(t *testing.T) {
	a := New(1000, 0, 1.0)

	_, err := a.AddPool("pool-a", 700, 0, 1.0)
	require.NoError(t, err)

	_, err = a.AddPool("pool-b", 400, 0, 1.0)
	require.ErrorIs(t, err, holpaca.ErrCapacityExceeded)
}

func TestFindReturnsInsertedHandle(t *testing.T) {
	a := New(1000, 0, 1.0)
	id, err := a.AddPool("pool-a", 500, 0, 1.0)
	require.NoError(t, err)

	require.True(t, a.Insert(engine.Handle{PoolId: id, Key: "k1", Size: 10}))

	h, ok := a.Find("k1")
	require.True(t, ok)
	require.Equal(t, uint64(10), h.Size)

	status := a.GetStatus()
	require.Contains(t, status.Pools, id)
}

func TestInsertOrReplaceMovesEstimatorTrackingAcrossPools(t *testing.T) {
	a := New(1000, 0, 1.0)
	p1, err := a.AddPool("pool-a", 500, 0, 1.0)
	require.NoError(t, err)
	p2, err := a.AddPool("pool-b", 500, 0, 1.0)
	require.NoError(t, err)

	require.True(t, a.Insert(engine.Handle{PoolId: p1, Key: "k1", Size: 10}))

	old, hadOld := a.InsertOrReplace(engine.Handle{PoolId: p2, Key: "k1", Size: 20})
	require.True(t, hadOld)
	require.Equal(t, p1, old.PoolId)

	h, ok := a.Find("k1")
	require.True(t, ok)
	require.Equal(t, p2, h.PoolId)
}

func TestRegisterMetricsOverwritesLatestValues(t *testing.T) {
	a := New(1000, 0, 1.0)
	id, err := a.AddPool("pool-a", 500, 0, 1.0)
	require.NoError(t, err)

	require.NoError(t, a.RegisterMetrics(id, 1234, 0.42, 5678))

	status := a.GetStatus()
	require.Equal(t, uint32(1234), status.Pools[id].DiskIOPS)
	require.Equal(t, 0.42, status.Pools[id].MissRatio)
	require.Equal(t, uint32(5678), status.Pools[id].Throughput)
}

func TestRegisterMetricsUnknownPoolFails(t *testing.T) {
	a := New(1000, 0, 1.0)
	require.ErrorIs(t, a.RegisterMetrics(999, 0, 0, 0), holpaca.ErrUnknownPool)
}

func TestResizeShrinksBeforeGrowingToAvoidTransientOvercommit(t *testing.T) {
	a := New(1000, 0, 1.0)
	p1, err := a.AddPool("pool-a", 600, 0, 1.0)
	require.NoError(t, err)
	p2, err := a.AddPool("pool-b", 400, 0, 1.0)
	require.NoError(t, err)

	// Growing p2 before shrinking p1 would overcommit the 1000-byte budget
	// at the intermediate step; Resize must shrink p1 first.
	err = a.Resize(map[holpaca.PoolId]uint64{p1: 200, p2: 800})
	require.NoError(t, err)

	maxSize1, _, err := a.eng.GetPool(p1)
	require.NoError(t, err)
	require.Equal(t, uint64(200), maxSize1)

	maxSize2, _, err := a.eng.GetPool(p2)
	require.NoError(t, err)
	require.Equal(t, uint64(800), maxSize2)
}

func TestResizeSkipsUnknownPoolIds(t *testing.T) {
	a := New(1000, 0, 1.0)
	p1, err := a.AddPool("pool-a", 500, 0, 1.0)
	require.NoError(t, err)

	err = a.Resize(map[holpaca.PoolId]uint64{p1: 600, 999: 100})
	require.NoError(t, err)

	maxSize, _, err := a.eng.GetPool(p1)
	require.NoError(t, err)
	require.Equal(t, uint64(600), maxSize)
}

func TestRemovePoolReleasesMemoryForReuse(t *testing.T) {
	a := New(1000, 0, 1.0)
	p1, err := a.AddPool("pool-a", 700, 0, 1.0)
	require.NoError(t, err)

	require.NoError(t, a.RemovePool(p1))

	_, err = a.AddPool("pool-b", 900, 0, 1.0)
	require.NoError(t, err)

	status := a.GetStatus()
	require.NotContains(t, status.Pools, p1)
}

func TestGetStatusReportsVirtualSizeCeiling(t *testing.T) {
	a := New(1000, 300, 1.0)
	status := a.GetStatus()
	require.Equal(t, uint64(300), status.MaxSize)
}
