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

// Package engine is a reference in-memory slab-cache engine implementing
// the external interface the Cache Agent is built against: pools, identified
// by PoolId, carved out of one fixed memory budget, each an independently sized LRU
// region. Like djdv-go-clockpro's Cache, concurrent access must be guarded
// by the caller; the agent serializes engine operations against Resize
// with its own lock.
package engine

import (
	"container/list"

	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
)

// Handle identifies one cached object within a pool.
type Handle struct {
	PoolId holpaca.PoolId
	Key    string
	Size   uint64
}

type item struct {
	key  string
	size uint64
}

type pool struct {
	id       holpaca.PoolId
	maxSize  uint64
	usedSize uint64
	active   bool

	order *list.List               // MRU at Front(), LRU at Back()
	items map[string]*list.Element // key -> element
}

func newPool(id holpaca.PoolId, maxSize uint64) *pool {
	return &pool{
		id:      id,
		maxSize: maxSize,
		active:  true,
		order:   list.New(),
		items:   make(map[string]*list.Element, 64),
	}
}

// evictUntil evicts LRU entries until usedSize <= bound.
func (p *pool) evictUntil(bound uint64) {
	for p.usedSize > bound {
		back := p.order.Back()
		if back == nil {
			return
		}
		it := back.Value.(*item)
		p.order.Remove(back)
		delete(p.items, it.key)
		p.usedSize -= it.size
	}
}

func (p *pool) insert(key string, size uint64) {
	if elem, ok := p.items[key]; ok {
		it := elem.Value.(*item)
		p.usedSize -= it.size
		it.size = size
		p.usedSize += size
		p.order.MoveToFront(elem)
	} else {
		elem := p.order.PushFront(&item{key: key, size: size})
		p.items[key] = elem
		p.usedSize += size
	}
	p.evictUntil(p.maxSize)
}

func (p *pool) remove(key string) (uint64, bool) {
	elem, ok := p.items[key]
	if !ok {
		return 0, false
	}
	it := elem.Value.(*item)
	p.order.Remove(elem)
	delete(p.items, key)
	p.usedSize -= it.size
	return it.size, true
}

// CacheMemoryStats mirrors the original engine's getCacheMemoryStats().
type CacheMemoryStats struct {
	RamCacheSize uint64
}

// Engine is a reference slab-cache engine over one fixed memory budget.
type Engine struct {
	ramCacheSize uint64
	pools        map[holpaca.PoolId]*pool
	keyOwner     map[string]holpaca.PoolId
	nextID       holpaca.PoolId
}

// New creates an Engine with the given total RAM cache size.
func New(ramCacheSize uint64) *Engine {
	return &Engine{
		ramCacheSize: ramCacheSize,
		pools:        make(map[holpaca.PoolId]*pool, 64),
		keyOwner:     make(map[string]holpaca.PoolId, 64),
	}
}

func (e *Engine) committedSize() uint64 {
	var total uint64
	for _, p := range e.pools {
		if p.active {
			total += p.maxSize
		}
	}
	return total
}

// AddPool creates a new pool of the given maximum size, returning
// holpaca.ErrCapacityExceeded if it would overcommit the cache's RAM budget.
func (e *Engine) AddPool(size uint64) (holpaca.PoolId, error) {
	if e.committedSize()+size > e.ramCacheSize {
		return 0, holpaca.ErrCapacityExceeded
	}
	e.nextID++
	id := e.nextID
	e.pools[id] = newPool(id, size)
	return id, nil
}

// RemovePool marks the pool inactive and shrinks it to zero, evicting
// everything it held.
func (e *Engine) RemovePool(id holpaca.PoolId) error {
	p, ok := e.pools[id]
	if !ok {
		return holpaca.ErrUnknownPool
	}
	p.evictUntil(0)
	for key := range e.keyOwner {
		if e.keyOwner[key] == id {
			delete(e.keyOwner, key)
		}
	}
	p.active = false
	p.maxSize = 0
	return nil
}

// GrowPool increases a pool's capacity by the given number of bytes.
func (e *Engine) GrowPool(id holpaca.PoolId, bytes uint64) error {
	p, ok := e.pools[id]
	if !ok {
		return holpaca.ErrUnknownPool
	}
	if e.committedSize()+bytes > e.ramCacheSize {
		return holpaca.ErrCapacityExceeded
	}
	p.maxSize += bytes
	return nil
}

// ShrinkPool decreases a pool's capacity by the given number of bytes,
// evicting LRU entries if the pool is over its new capacity afterward.
func (e *Engine) ShrinkPool(id holpaca.PoolId, bytes uint64) error {
	p, ok := e.pools[id]
	if !ok {
		return holpaca.ErrUnknownPool
	}
	if bytes > p.maxSize {
		bytes = p.maxSize
	}
	p.maxSize -= bytes
	p.evictUntil(p.maxSize)
	return nil
}

// Find reports whether key is resident and which pool holds it. A hit makes
// the key the pool's most recently used entry.
func (e *Engine) Find(key string) (Handle, bool) {
	id, ok := e.keyOwner[key]
	if !ok {
		return Handle{}, false
	}
	p := e.pools[id]
	elem, ok := p.items[key]
	if !ok {
		return Handle{}, false
	}
	p.order.MoveToFront(elem)
	it := elem.Value.(*item)
	return Handle{PoolId: id, Key: key, Size: it.size}, true
}

// Allocate returns a handle for a new key in the given pool. The reference
// engine reserves no space here and does not make the key visible to Find;
// space is taken only when the handle is passed to Insert.
func (e *Engine) Allocate(poolID holpaca.PoolId, key string, size uint64) (*Handle, error) {
	if _, ok := e.pools[poolID]; !ok {
		return nil, holpaca.ErrUnknownPool
	}
	return &Handle{PoolId: poolID, Key: key, Size: size}, nil
}

// Insert makes handle's object resident in its pool.
func (e *Engine) Insert(h Handle) bool {
	p, ok := e.pools[h.PoolId]
	if !ok || !p.active {
		return false
	}
	p.insert(h.Key, h.Size)
	e.keyOwner[h.Key] = h.PoolId
	return true
}

// InsertOrReplace inserts handle, returning the handle it displaced (from
// any pool) if the key was already resident.
func (e *Engine) InsertOrReplace(h Handle) (*Handle, bool) {
	var old *Handle
	if prevID, existed := e.keyOwner[h.Key]; existed {
		if prev := e.pools[prevID]; prev != nil {
			if size, ok := prev.remove(h.Key); ok {
				old = &Handle{PoolId: prevID, Key: h.Key, Size: size}
			}
		}
	}
	e.Insert(h)
	return old, old != nil
}

// GetPool returns a pool's configured and currently used size, or
// holpaca.ErrUnknownPool if the pool does not exist or has been removed.
func (e *Engine) GetPool(id holpaca.PoolId) (maxSize, currentAllocSize uint64, err error) {
	p, ok := e.pools[id]
	if !ok || !p.active {
		return 0, 0, holpaca.ErrUnknownPool
	}
	return p.maxSize, p.usedSize, nil
}

// GetPoolIds lists the ids of all active pools.
func (e *Engine) GetPoolIds() []holpaca.PoolId {
	ids := make([]holpaca.PoolId, 0, len(e.pools))
	for id, p := range e.pools {
		if p.active {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetAllocInfo reports which pool owns key, if any.
func (e *Engine) GetAllocInfo(key string) (holpaca.PoolId, bool) {
	id, ok := e.keyOwner[key]
	return id, ok
}

// GetCacheMemoryStats reports the engine's fixed RAM budget.
func (e *Engine) GetCacheMemoryStats() CacheMemoryStats {
	return CacheMemoryStats{RamCacheSize: e.ramCacheSize}
}
