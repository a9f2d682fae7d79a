/*
Copyright 2019 Intel Corporation
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

// Package holpaca holds the identifiers and wire-level value types shared
// across the data plane, control plane, and RPC transport: PoolId, Size,
// CacheStatus/PoolStatus, and the resize plan types.
package holpaca

// PoolId uniquely identifies a pool within one cache instance.
type PoolId uint32

// CacheName identifies a cache instance across the orchestrator; canonically
// the agent's network address.
type CacheName string

// Size is an unsigned byte count.
type Size = uint64

// PoolStatus is the status of a single memory pool as reported by GetStatus.
type PoolStatus struct {
	PoolId      PoolId
	MaxSize     Size
	UsedSize    Size
	DiskIOPS    uint32
	MissRatio   float64
	Throughput  uint32
	QoSLevel    float64
	Proportion  float64
	MRC         map[Size]float32
}

// CacheStatus is the status of a whole cache instance as reported by GetStatus.
type CacheStatus struct {
	MaxSize    Size
	Proportion float64
	Pools      map[PoolId]PoolStatus
}

// PoolResize is a target size for a single pool within a CacheResize.
type PoolResize struct {
	PoolId PoolId
	Size   Size
}

// CacheResize is one cache's worth of pool resize targets, addressed by the
// cache's registered name (its agent address).
type CacheResize struct {
	Name        CacheName
	PoolResizes []PoolResize
}
