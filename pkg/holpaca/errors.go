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

package holpaca

// constError is a string-based error usable as a sentinel with errors.Is,
// following the same pattern djdv-go-clockpro uses for ErrInvalidCapacity.
type constError string

func (e constError) Error() string { return string(e) }

const (
	// ErrUnknownPool is returned when an operation references a PoolId the
	// cache instance has no active pool for.
	ErrUnknownPool = constError("unknown pool")
	// ErrPoolExists is returned by addPool when the requested name is already
	// in use within the cache instance.
	ErrPoolExists = constError("pool already exists")
	// ErrCapacityExceeded is returned when a requested allocation or resize
	// would violate sum(pool.maxSize) <= cache.maxSize.
	ErrCapacityExceeded = constError("requested size exceeds cache capacity")
	// ErrNoProxies is returned by resize when the orchestrator has no
	// registered agents at all.
	ErrNoProxies = constError("no registered agents")
	// ErrPlanLengthMismatch is returned by resize when the number of
	// CacheResize entries does not match the number of registered proxies.
	ErrPlanLengthMismatch = constError("resize plan length does not match registered proxy count")
	// ErrNotFound names a missing backing-store key. pkg/store itself
	// reports that case as its NotFound status, not as this error.
	ErrNotFound = constError("key not found")
)
