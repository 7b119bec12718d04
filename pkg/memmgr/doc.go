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

// Package memmgr implements a dual-residency memory manager: numerical
// code allocates logical buffers once and the manager keeps them
// coherent across a host memory space and a device memory space, without
// call sites knowing which space currently holds valid data.
//
// A Buffer is registered with a Manager and accessed only through
// pointer requests naming a memory class and an access mode:
//
//	buf, err := mgr.NewBuffer(1024, memmgr.TypeHost)
//	...
//	dev, err := buf.ReadWrite(memmgr.ClassDevice) // data moves host-to-device
//	...
//	host, err := buf.Read(memmgr.ClassHost)       // data moves back
//	...
//	buf.Free()
//
// Read requests pull stale data into the requested space and leave the
// other space's copy valid; write requests move nothing and mark the
// other space stale; read-write requests do both. Device storage is
// allocated lazily on first device touch. Sub-views into a buffer are
// created with Alias and share the base buffer's storage in both
// spaces.
//
// Misuse of the manager - registering a live address, accessing an
// unregistered buffer, tearing down an alias that does not exist -
// indicates a memory-safety bug in the calling code and panics with a
// diagnostic. Resource exhaustion and configuration problems are
// returned as errors.
package memmgr
