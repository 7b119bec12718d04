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
	"unsafe"
)

// heapSpace is the plain host memory space backed by the Go heap. Heap
// exhaustion aborts the process; there is no recoverable failure path.
type heapSpace struct {
	name string
}

// NewHeap returns the plain host memory space.
func NewHeap() HostSpace {
	return &heapSpace{name: "heap"}
}

// NewUnifiedHost returns the host side of a unified memory configuration.
// Allocation is ordinary host allocation; the paired unified DeviceSpace
// serves device requests from the same storage.
func NewUnifiedHost() HostSpace {
	return &heapSpace{name: "unified"}
}

func (s *heapSpace) Name() string { return s.name }

func (s *heapSpace) Alloc(size int) ([]byte, error) {
	checkSize(s.name, size)
	return make([]byte, allocLength(size)), nil
}

func (s *heapSpace) Dealloc(mem []byte) {}

func (s *heapSpace) Protect(mem []byte) error   { return nil }
func (s *heapSpace) Unprotect(mem []byte) error { return nil }

// alignedSpace is a host memory space returning regions whose base address
// is aligned to a fixed power-of-two boundary. It over-allocates from the
// Go heap and offsets to the next boundary; the returned slice keeps the
// whole backing allocation alive.
type alignedSpace struct {
	alignment int
}

// NewAligned returns a host memory space with the given base alignment.
// The alignment must be a power of two.
func NewAligned(alignment int) (HostSpace, error) {
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("backend: invalid alignment %d, must be a power of two", alignment)
	}
	return &alignedSpace{alignment: alignment}, nil
}

func (s *alignedSpace) Name() string {
	return fmt.Sprintf("aligned-%d", s.alignment)
}

func (s *alignedSpace) Alloc(size int) ([]byte, error) {
	checkSize(s.Name(), size)
	length := allocLength(size)
	raw := make([]byte, length+s.alignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	pad := (s.alignment - int(addr)%s.alignment) % s.alignment
	return raw[pad : pad+length : pad+length], nil
}

func (s *alignedSpace) Dealloc(mem []byte) {}

func (s *alignedSpace) Protect(mem []byte) error   { return nil }
func (s *alignedSpace) Unprotect(mem []byte) error { return nil }
