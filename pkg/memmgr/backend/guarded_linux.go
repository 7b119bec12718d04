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

//go:build linux

package backend

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// guardedSpace is a host memory space backed by anonymous mmap. Protect
// revokes all access to the pages of a region with mprotect, so any read
// or write through a stale pointer faults immediately; the runtime reports
// the fault with the offending address. The manager protects the host
// pages of a buffer while the device copy is the authoritative one.
type guardedSpace struct{}

// NewGuarded returns the page-protected host memory space.
func NewGuarded() (HostSpace, error) {
	return &guardedSpace{}, nil
}

func (s *guardedSpace) Name() string { return "guarded" }

func (s *guardedSpace) Alloc(size int) ([]byte, error) {
	checkSize(s.Name(), size)
	mem, err := unix.Mmap(-1, 0, allocLength(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap of %d bytes: %v", ErrNoMem, size, err)
	}
	return mem, nil
}

func (s *guardedSpace) Dealloc(mem []byte) {
	if err := unix.Munmap(mem[:cap(mem)]); err != nil {
		panic(fmt.Sprintf("backend: guarded: munmap: %v", err))
	}
}

func (s *guardedSpace) Protect(mem []byte) error {
	if err := unix.Mprotect(mem[:cap(mem)], unix.PROT_NONE); err != nil {
		return fmt.Errorf("backend: guarded: mprotect(PROT_NONE): %w", err)
	}
	return nil
}

func (s *guardedSpace) Unprotect(mem []byte) error {
	if err := unix.Mprotect(mem[:cap(mem)], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("backend: guarded: mprotect(PROT_READ|PROT_WRITE): %w", err)
	}
	return nil
}
