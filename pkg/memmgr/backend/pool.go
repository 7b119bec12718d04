// Copyright The GridSolve Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"fmt"
	"sync"
)

// poolBucketAlign is the size granularity of pool buckets. Rounding
// requests up to a common boundary lets similar-but-not-identical sizes
// share buckets instead of fragmenting the pool.
const poolBucketAlign = 256

// PoolStats is a snapshot of pool usage counters.
type PoolStats struct {
	// Hits is the number of allocations served from the pool.
	Hits int64
	// Misses is the number of allocations passed to the wrapped space.
	Misses int64
	// AllocBytes is the total number of bytes obtained from the wrapped space.
	AllocBytes int64
	// FreeBytes is the total number of bytes released back to the wrapped space.
	FreeBytes int64
	// PoolSize is the number of regions currently cached.
	PoolSize int
}

// bucketPool caches released regions by bucket-aligned size for reuse.
type bucketPool struct {
	mu      sync.Mutex
	buckets map[int][][]byte
	stats   PoolStats
}

func newBucketPool() bucketPool {
	return bucketPool{buckets: make(map[int][][]byte)}
}

func bucketSize(size int) int {
	return ((allocLength(size) + poolBucketAlign - 1) / poolBucketAlign) * poolBucketAlign
}

// take returns a cached region of the given bucket size, if any.
func (p *bucketPool) take(bucket int) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	regions, ok := p.buckets[bucket]
	if !ok || len(regions) == 0 {
		p.stats.Misses++
		return nil, false
	}

	mem := regions[len(regions)-1]
	p.buckets[bucket] = regions[:len(regions)-1]
	p.stats.Hits++
	p.stats.PoolSize--
	return mem, true
}

func (p *bucketPool) put(mem []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets[len(mem)] = append(p.buckets[len(mem)], mem)
	p.stats.PoolSize++
}

func (p *bucketPool) recordAlloc(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.AllocBytes += int64(n)
}

// drain removes cached regions, keeping at most keep per bucket, and
// returns the removed ones for release by the wrapped space.
func (p *bucketPool) drain(keep int) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	var removed [][]byte
	for size, regions := range p.buckets {
		if len(regions) <= keep {
			continue
		}
		for _, mem := range regions[keep:] {
			p.stats.FreeBytes += int64(len(mem))
			p.stats.PoolSize--
			removed = append(removed, mem)
		}
		if keep == 0 {
			delete(p.buckets, size)
		} else {
			p.buckets[size] = regions[:keep]
		}
	}
	return removed
}

func (p *bucketPool) snapshot() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// HostPool is a pooled host memory space wrapping another HostSpace.
// Released regions are cached by size instead of being returned to the
// wrapped space, which keeps repeated allocate/release cycles off the
// underlying allocator.
type HostPool struct {
	space HostSpace
	pool  bucketPool
}

// NewHostPool returns a pooled host memory space wrapping the given space.
func NewHostPool(space HostSpace) (*HostPool, error) {
	if space == nil {
		return nil, fmt.Errorf("backend: pool: nil host space")
	}
	return &HostPool{space: space, pool: newBucketPool()}, nil
}

func (p *HostPool) Name() string {
	return "pool(" + p.space.Name() + ")"
}

func (p *HostPool) Alloc(size int) ([]byte, error) {
	bucket := bucketSize(size)
	if mem, ok := p.pool.take(bucket); ok {
		return mem, nil
	}
	mem, err := p.space.Alloc(bucket)
	if err != nil {
		return nil, err
	}
	p.pool.recordAlloc(len(mem))
	return mem, nil
}

func (p *HostPool) Dealloc(mem []byte) {
	p.pool.put(mem)
}

func (p *HostPool) Protect(mem []byte) error   { return p.space.Protect(mem) }
func (p *HostPool) Unprotect(mem []byte) error { return p.space.Unprotect(mem) }

// Trim releases cached regions down to at most keep per size bucket.
func (p *HostPool) Trim(keep int) {
	for _, mem := range p.pool.drain(keep) {
		p.space.Dealloc(mem)
	}
}

// Release returns all cached regions to the wrapped space.
func (p *HostPool) Release() {
	p.Trim(0)
}

// Stats returns a snapshot of the pool counters.
func (p *HostPool) Stats() PoolStats {
	return p.pool.snapshot()
}

// DevicePool is a pooled device memory space wrapping another DeviceSpace.
type DevicePool struct {
	space DeviceSpace
	pool  bucketPool
}

// NewDevicePool returns a pooled device memory space wrapping the given
// space. Unified spaces cannot be pooled: their regions alias the host
// storage of a particular buffer and must not be recycled across buffers.
func NewDevicePool(space DeviceSpace) (*DevicePool, error) {
	if space == nil {
		return nil, fmt.Errorf("backend: pool: nil device space")
	}
	if space.Name() == "unified" {
		return nil, fmt.Errorf("backend: pool: unified device space cannot be pooled")
	}
	return &DevicePool{space: space, pool: newBucketPool()}, nil
}

func (p *DevicePool) Name() string {
	return "pool(" + p.space.Name() + ")"
}

func (p *DevicePool) Alloc(host []byte, size int) ([]byte, error) {
	bucket := bucketSize(size)
	if mem, ok := p.pool.take(bucket); ok {
		return mem, nil
	}
	mem, err := p.space.Alloc(host, bucket)
	if err != nil {
		return nil, err
	}
	p.pool.recordAlloc(len(mem))
	return mem, nil
}

func (p *DevicePool) Dealloc(mem []byte) {
	p.pool.put(mem)
}

// Trim releases cached regions down to at most keep per size bucket.
func (p *DevicePool) Trim(keep int) {
	for _, mem := range p.pool.drain(keep) {
		p.space.Dealloc(mem)
	}
}

// Release returns all cached regions to the wrapped space.
func (p *DevicePool) Release() {
	p.Trim(0)
}

// Stats returns a snapshot of the pool counters.
func (p *DevicePool) Stats() PoolStats {
	return p.pool.snapshot()
}
