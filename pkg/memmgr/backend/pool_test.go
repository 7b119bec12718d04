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

package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/gridsolve/memmgr/pkg/memmgr/backend"
)

func TestHostPoolReuse(t *testing.T) {
	p, err := NewHostPool(NewHeap())
	require.NoError(t, err)
	require.Equal(t, "pool(heap)", p.Name())

	mem, err := p.Alloc(100)
	require.NoError(t, err)
	require.Len(t, mem, 256, "request rounded up to the bucket size")
	addr := baseAddr(mem)
	p.Dealloc(mem)

	// A same-bucket allocation is served from the pool.
	mem, err = p.Alloc(200)
	require.NoError(t, err)
	require.Equal(t, addr, baseAddr(mem), "bucket reuse")

	stats := p.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, int64(256), stats.AllocBytes)
	require.Equal(t, 0, stats.PoolSize)

	// A different bucket misses.
	big, err := p.Alloc(1000)
	require.NoError(t, err)
	require.Len(t, big, 1024)
	require.Equal(t, int64(2), p.Stats().Misses)

	p.Dealloc(mem)
	p.Dealloc(big)
	require.Equal(t, 2, p.Stats().PoolSize)
}

func TestHostPoolTrim(t *testing.T) {
	p, err := NewHostPool(NewHeap())
	require.NoError(t, err)

	var regions [][]byte
	for i := 0; i < 4; i++ {
		mem, err := p.Alloc(256)
		require.NoError(t, err)
		regions = append(regions, mem)
	}
	for _, mem := range regions {
		p.Dealloc(mem)
	}
	require.Equal(t, 4, p.Stats().PoolSize)

	p.Trim(1)
	stats := p.Stats()
	require.Equal(t, 1, stats.PoolSize)
	require.Equal(t, int64(3*256), stats.FreeBytes)

	p.Release()
	stats = p.Stats()
	require.Equal(t, 0, stats.PoolSize)
	require.Equal(t, int64(4*256), stats.FreeBytes)
}

func TestDevicePool(t *testing.T) {
	p, err := NewDevicePool(NewHeapDevice())
	require.NoError(t, err)

	host := make([]byte, 100)
	dev, err := p.Alloc(host, 100)
	require.NoError(t, err)
	require.Len(t, dev, 256)
	p.Dealloc(dev)

	dev, err = p.Alloc(host, 256)
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Stats().Hits)
	p.Dealloc(dev)
	p.Release()
}

func TestPoolRejectsUnified(t *testing.T) {
	// Unified regions alias the host storage of one particular buffer
	// and must never be recycled across buffers.
	_, err := NewDevicePool(NewUnifiedDevice())
	require.Error(t, err)

	_, err = NewHostPool(nil)
	require.Error(t, err)
	_, err = NewDevicePool(nil)
	require.Error(t, err)
}
