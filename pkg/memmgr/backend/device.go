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

// noneSpace is the device memory space used when no device is configured.
// Any attempt to allocate or release device memory through it is a
// programming error in the caller.
type noneSpace struct{}

// NewNoneDevice returns the 'none' device memory space.
func NewNoneDevice() DeviceSpace {
	return &noneSpace{}
}

func (s *noneSpace) Name() string { return "none" }

func (s *noneSpace) Alloc(host []byte, size int) ([]byte, error) {
	panic("backend: device allocation without a configured device memory space")
}

func (s *noneSpace) Dealloc(mem []byte) {
	panic("backend: device release without a configured device memory space")
}

// heapDeviceSpace emulates a separate device memory space with ordinary
// host allocations. Data still moves through the copy space between the
// two regions, so the full coherence protocol is exercised without an
// accelerator. An accelerator-backed DeviceSpace slots in behind the same
// interface.
type heapDeviceSpace struct{}

// NewHeapDevice returns the emulated device memory space.
func NewHeapDevice() DeviceSpace {
	return &heapDeviceSpace{}
}

func (s *heapDeviceSpace) Name() string { return "heap" }

func (s *heapDeviceSpace) Alloc(host []byte, size int) ([]byte, error) {
	checkSize(s.Name(), size)
	return make([]byte, allocLength(size)), nil
}

func (s *heapDeviceSpace) Dealloc(mem []byte) {}

// unifiedDeviceSpace serves device requests from the buffer's host
// storage. Both spaces share one region, so there is nothing to release.
type unifiedDeviceSpace struct{}

// NewUnifiedDevice returns the unified device memory space.
func NewUnifiedDevice() DeviceSpace {
	return &unifiedDeviceSpace{}
}

func (s *unifiedDeviceSpace) Name() string { return "unified" }

func (s *unifiedDeviceSpace) Alloc(host []byte, size int) ([]byte, error) {
	checkSize(s.Name(), size)
	return host, nil
}

func (s *unifiedDeviceSpace) Dealloc(mem []byte) {}
