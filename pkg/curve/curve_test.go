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

package curve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePoints() []Point {
	return []Point{
		{Size: 1024, MissRatio: 0.80},
		{Size: 2048, MissRatio: 0.50},
		{Size: 4096, MissRatio: 0.20},
		{Size: 8192, MissRatio: 0.05},
	}
}

func TestBuildShiftsByAvgThroughputUniformly(t *testing.T) {
	// shift = prelim(usedSize) + avgThroughput adds avgThroughput as a
	// constant offset to every sampled utility value, so two curves fit from
	// the same points and usedSize but different avgThroughput must differ
	// by exactly that avgThroughput at every size, including usedSize.
	baseline, err := Build(samplePoints(), 2048, 1000, 0.0)
	require.NoError(t, err)
	shifted, err := Build(samplePoints(), 2048, 1000, 42.0)
	require.NoError(t, err)

	for _, size := range []float64{1024, 2048, 4096, 8192} {
		require.InDelta(t, 42.0, shifted.Value(size)-baseline.Value(size), 1e-6)
	}
}

func TestBuildRejectsTooFewPoints(t *testing.T) {
	_, err := Build(samplePoints()[:2], 2048, 1000, 42.0)
	require.Error(t, err)
}

func TestBuildIgnoresZeroMissRatioPoints(t *testing.T) {
	points := append(samplePoints(), Point{Size: 16384, MissRatio: 0})
	c, err := Build(points, 2048, 1000, 42.0)
	require.NoError(t, err)
	lo, hi := c.Domain()
	require.Equal(t, 1024.0, lo)
	require.Equal(t, 8192.0, hi)
}

func TestValueClampsOutsideDomain(t *testing.T) {
	c, err := Build(samplePoints(), 2048, 1000, 42.0)
	require.NoError(t, err)

	lo, hi := c.Domain()
	require.Equal(t, c.Value(lo), c.Value(0))
	require.Equal(t, c.Value(hi), c.Value(1<<20))
}

func TestUtilityIncreasesWithSize(t *testing.T) {
	// Fewer misses at larger sizes means utility (closer to 0, less negative)
	// should not get worse as size grows.
	c, err := Build(samplePoints(), 2048, 1000, 42.0)
	require.NoError(t, err)

	require.LessOrEqual(t, c.Value(1024), c.Value(4096))
	require.LessOrEqual(t, c.Value(4096), c.Value(8192))
}
