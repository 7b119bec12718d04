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

// Package backend provides the memory space strategies the memory manager
// is composed of: host allocation, device allocation, and copying between
// the two spaces. A manager is configured with one fixed triple of these
// at construction.
package backend

import "fmt"

var (
	// ErrNoMem indicates that a backend failed to satisfy an allocation.
	ErrNoMem = fmt.Errorf("backend: out of memory")
	// ErrUnsupported indicates a backend unavailable on this platform.
	ErrUnsupported = fmt.Errorf("backend: not supported on this platform")
)

// HostSpace is a host memory allocation strategy.
type HostSpace interface {
	// Name returns the name of the host space.
	Name() string
	// Alloc allocates a host region of at least size bytes. It returns
	// ErrNoMem if the underlying allocator cannot satisfy the request.
	Alloc(size int) ([]byte, error)
	// Dealloc releases a region previously returned by Alloc.
	Dealloc(mem []byte)
	// Protect revokes read and write access to the region. Spaces without
	// page protection support treat this as a no-op.
	Protect(mem []byte) error
	// Unprotect restores read and write access to the region.
	Unprotect(mem []byte) error
}

// DeviceSpace is a device memory allocation strategy. The host region the
// allocation shadows is passed in so unified spaces can serve both spaces
// from one storage.
type DeviceSpace interface {
	// Name returns the name of the device space.
	Name() string
	// Alloc allocates a device region of at least size bytes.
	Alloc(host []byte, size int) ([]byte, error)
	// Dealloc releases a region previously returned by Alloc.
	Dealloc(mem []byte)
}

// CopySpace moves byte ranges between and within the two memory spaces.
type CopySpace interface {
	// Name returns the name of the copy space.
	Name() string
	// HtoD copies a host range to a device range.
	HtoD(dst, src []byte)
	// DtoD copies between device ranges.
	DtoD(dst, src []byte)
	// DtoH copies a device range to a host range.
	DtoH(dst, src []byte)
}

// allocLength clamps a requested size to an allocatable length. Zero-byte
// regions still need a distinct, addressable base byte: the manager keys
// its ledger by the base address, and protection syscalls on zero-length
// regions are undefined on some platforms.
func allocLength(size int) int {
	if size < 1 {
		return 1
	}
	return size
}

// checkSize panics on negative sizes. A negative size is a programming
// error in the caller, not an allocation failure.
func checkSize(space string, size int) {
	if size < 0 {
		panic(fmt.Sprintf("backend: %s: allocation with negative size %d", space, size))
	}
}
