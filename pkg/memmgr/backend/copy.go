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

import "unsafe"

// plainCopy moves bytes between the spaces with ordinary memory copies.
type plainCopy struct{}

// NewPlainCopy returns the plain copy space.
func NewPlainCopy() CopySpace {
	return plainCopy{}
}

func (plainCopy) Name() string         { return "plain" }
func (plainCopy) HtoD(dst, src []byte) { copy(dst, src) }
func (plainCopy) DtoD(dst, src []byte) { copy(dst, src) }
func (plainCopy) DtoH(dst, src []byte) { copy(dst, src) }

// unifiedCopy is the copy space for unified memory. Within one buffer the
// host and device regions are the same storage and a cross-space transfer
// is a no-op, but transfers between distinct regions (cross-buffer copies,
// untracked memory) still move data.
type unifiedCopy struct{}

// NewUnifiedCopy returns the unified copy space.
func NewUnifiedCopy() CopySpace {
	return unifiedCopy{}
}

func (unifiedCopy) Name() string { return "unified" }

func (unifiedCopy) HtoD(dst, src []byte) {
	if !sameRegion(dst, src) {
		copy(dst, src)
	}
}

func (unifiedCopy) DtoD(dst, src []byte) { copy(dst, src) }

func (unifiedCopy) DtoH(dst, src []byte) {
	if !sameRegion(dst, src) {
		copy(dst, src)
	}
}

func sameRegion(dst, src []byte) bool {
	return unsafe.SliceData(dst) == unsafe.SliceData(src)
}
