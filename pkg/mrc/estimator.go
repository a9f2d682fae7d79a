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

// Package mrc implements a SHARDS-style sampled miss-ratio-curve estimator:
// from a stream of (key, size) accesses it produces, on demand, a sorted
// size -> miss-ratio curve approximating what a pool's miss ratio would be
// at each candidate memory size, under bounded memory.
package mrc

import (
	"container/list"
	"hash/fnv"
	"sort"
	"sync"
)

// Config configures an Estimator.
type Config struct {
	// AcceptanceRate is the fraction of keys sampled, r in (0,1]. Typical 0.001.
	AcceptanceRate float64
	// BucketSize is the reuse-distance bucket granularity in bytes.
	BucketSize uint64
	// MaxSize bounds the domain of the emitted curve.
	MaxSize uint64
}

// defaultMaxTrackedKeys bounds the estimator's memory: once exceeded, the
// least recently used sampled key is dropped, degrading but never
// invalidating the monotonicity of the emitted curve.
const defaultMaxTrackedKeys = 200000

// Point is one (size, miss-ratio) sample of an emitted byte MRC.
type Point struct {
	Size      uint64
	MissRatio float32
}

type entry struct {
	key  string
	size uint64
}

// Estimator is a SHARDS-style sampled MRC estimator for a single pool. It
// is safe for concurrent Accessed/Remove calls from multiple workload
// threads, per the data-plane's concurrency contract.
type Estimator struct {
	mu sync.Mutex

	cfg Config
	mod uint64 // 1/r, precomputed once

	order *list.List               // MRU at Front(), LRU at Back()
	index map[string]*list.Element // key -> its element in order

	buckets map[uint64]uint64 // bucket index -> count of finite-distance samples
	infinite uint64           // count of compulsory (first-touch) samples
	total    uint64           // total samples recorded (finite + infinite)

	maxTracked int
}

// New creates an Estimator with the given configuration.
func New(cfg Config) *Estimator {
	mod := uint64(1)
	if cfg.AcceptanceRate > 0 && cfg.AcceptanceRate < 1 {
		mod = uint64(1.0 / cfg.AcceptanceRate)
	}
	if mod == 0 {
		mod = 1
	}
	if cfg.BucketSize == 0 {
		cfg.BucketSize = 1
	}
	return &Estimator{
		cfg:        cfg,
		mod:        mod,
		order:      list.New(),
		index:      make(map[string]*list.Element),
		buckets:    make(map[uint64]uint64),
		maxTracked: defaultMaxTrackedKeys,
	}
}

// sampled deterministically decides whether key is part of the sampled
// population: hash(key) mod floor(1/r) == 0. Deterministic per key, so an
// insert and a later access of the same key are jointly sampled or not.
func (e *Estimator) sampled(key string) bool {
	if e.mod <= 1 {
		return true
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()%e.mod == 0
}

// Accessed records an access to key of the given size. Never panics; a
// non-sampled key is simply ignored.
func (e *Estimator) Accessed(key string, size uint64) {
	if !e.sampled(key) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if elem, ok := e.index[key]; ok {
		var sampledDistance uint64
		for cur := e.order.Front(); cur != elem; cur = cur.Next() {
			sampledDistance += cur.Value.(*entry).size
		}
		elem.Value.(*entry).size = size
		e.order.MoveToFront(elem)

		// Only sampled objects contribute to sampledDistance, so it
		// underestimates the true reuse distance by a factor of r; rescale
		// to recover an estimate in real byte terms.
		actualDistance := sampledDistance * e.mod
		bucket := actualDistance / e.cfg.BucketSize
		e.buckets[bucket]++
	} else {
		elem := e.order.PushFront(&entry{key: key, size: size})
		e.index[key] = elem
		e.infinite++
	}
	e.total++

	e.compact()
}

// Remove drops any internal state tied to key. Does not affect the
// accumulated histogram, only future distance computations.
func (e *Estimator) Remove(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if elem, ok := e.index[key]; ok {
		e.order.Remove(elem)
		delete(e.index, key)
	}
}

// compact drops the least recently sampled keys once the tracked-key budget
// is exceeded. Must be called with mu held.
func (e *Estimator) compact() {
	for e.order.Len() > e.maxTracked {
		back := e.order.Back()
		if back == nil {
			return
		}
		e.order.Remove(back)
		delete(e.index, back.Value.(*entry).key)
	}
}

// ByteMRC returns a sorted, monotone non-increasing size -> miss-ratio
// curve. Entries where the miss ratio is 0 are omitted. Never panics; an
// estimator with no samples yet returns an empty curve.
func (e *Estimator) ByteMRC() []Point {
	e.mu.Lock()
	total := e.total
	infinite := e.infinite
	buckets := make(map[uint64]uint64, len(e.buckets))
	for k, v := range e.buckets {
		buckets[k] = v
	}
	e.mu.Unlock()

	if total == 0 || e.cfg.MaxSize == 0 {
		return nil
	}

	maxBucket := e.cfg.MaxSize / e.cfg.BucketSize
	indices := make([]uint64, 0, len(buckets))
	for k := range buckets {
		indices = append(indices, k)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	// suffixCount[k] = number of samples whose distance bucket is > k.
	points := make([]Point, 0, maxBucket+1)
	idx := len(indices) - 1
	var suffix uint64
	for k := int64(maxBucket); k >= 0; k-- {
		for idx >= 0 && indices[idx] > uint64(k) {
			suffix += buckets[indices[idx]]
			idx--
		}
		ratio := float32(float64(infinite+suffix) / float64(total))
		points = append(points, Point{Size: uint64(k) * e.cfg.BucketSize, MissRatio: ratio})
	}

	// points were built from largest size to smallest; reverse to sort ascending.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	// Enforce monotonicity (non-increasing in size) with a forward sweep
	// clamping any rise, and drop zero-ratio entries.
	out := make([]Point, 0, len(points))
	prev := float32(2.0) // above any valid ratio
	for _, p := range points {
		if p.MissRatio > prev {
			p.MissRatio = prev
		}
		prev = p.MissRatio
		if p.MissRatio > 0 {
			out = append(out, p)
		}
	}
	return out
}
