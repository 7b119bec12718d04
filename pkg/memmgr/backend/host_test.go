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
	"unsafe"

	"github.com/stretchr/testify/require"

	. "github.com/gridsolve/memmgr/pkg/memmgr/backend"
)

func baseAddr(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
}

func TestHeapSpace(t *testing.T) {
	s := NewHeap()
	require.Equal(t, "heap", s.Name())

	mem, err := s.Alloc(100)
	require.NoError(t, err)
	require.Len(t, mem, 100)

	// Zero-byte regions still get a distinct, addressable base byte.
	zero, err := s.Alloc(0)
	require.NoError(t, err)
	require.Len(t, zero, 1)
	require.NotEqual(t, baseAddr(mem), baseAddr(zero))

	require.NoError(t, s.Protect(mem))
	require.NoError(t, s.Unprotect(mem))
	s.Dealloc(mem)
	s.Dealloc(zero)

	require.Panics(t, func() { _, _ = s.Alloc(-1) }, "negative allocation size")
}

func TestAlignedSpace(t *testing.T) {
	for _, alignment := range []int{32, 64, 4096} {
		s, err := NewAligned(alignment)
		require.NoError(t, err, "NewAligned(%d)", alignment)

		for _, size := range []int{0, 1, 100, 8192} {
			mem, err := s.Alloc(size)
			require.NoError(t, err, "%s Alloc(%d)", s.Name(), size)
			require.Zero(t, baseAddr(mem)%uintptr(alignment),
				"%s Alloc(%d) base alignment", s.Name(), size)
			s.Dealloc(mem)
		}
	}

	for _, alignment := range []int{0, -64, 3, 48} {
		_, err := NewAligned(alignment)
		require.Error(t, err, "NewAligned(%d)", alignment)
	}
}

func TestNoneDevice(t *testing.T) {
	s := NewNoneDevice()
	require.Equal(t, "none", s.Name())
	require.Panics(t, func() { _, _ = s.Alloc(nil, 16) }, "allocation without a device")
	require.Panics(t, func() { s.Dealloc(nil) }, "release without a device")
}

func TestHeapDevice(t *testing.T) {
	var (
		s    = NewHeapDevice()
		host = make([]byte, 64)
	)

	dev, err := s.Alloc(host, 64)
	require.NoError(t, err)
	require.Len(t, dev, 64)
	require.NotEqual(t, baseAddr(host), baseAddr(dev), "emulated device region is separate storage")
	s.Dealloc(dev)
}

func TestUnifiedDevice(t *testing.T) {
	var (
		s    = NewUnifiedDevice()
		host = make([]byte, 64)
	)

	dev, err := s.Alloc(host, 64)
	require.NoError(t, err)
	require.Equal(t, baseAddr(host), baseAddr(dev), "unified region shares host storage")
	s.Dealloc(dev)
}

func TestCopySpaces(t *testing.T) {
	var (
		plain = NewPlainCopy()
		src   = []byte{1, 2, 3, 4}
		dst   = make([]byte, 4)
	)

	plain.HtoD(dst, src)
	require.Equal(t, src, dst)
	dst[0] = 0
	plain.DtoH(dst, src)
	require.Equal(t, src, dst)
	dst[0] = 0
	plain.DtoD(dst, src)
	require.Equal(t, src, dst)

	// Unified host-device transfers are no-ops only when both operands
	// are the same storage; distinct regions still move data.
	unified := NewUnifiedCopy()
	clear(dst)
	unified.HtoD(dst, src)
	require.Equal(t, src, dst)
	clear(dst)
	unified.DtoH(dst, src)
	require.Equal(t, src, dst)
	clear(dst)
	unified.DtoD(dst, src)
	require.Equal(t, src, dst)
}
