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

package memmgr

import (
	"fmt"

	"github.com/gridsolve/memmgr/pkg/memmgr/backend"
)

// Resource exhaustion and configuration problems are reported as errors
// so callers can retry or fail gracefully. Conditions that indicate a
// programming error in the caller (double registration, unknown-address
// lookup, alias/base mismatch, invalid copy ranges) are not errors: they
// panic with a diagnostic, since recovering from them would mask
// memory-safety bugs in the calling code.
var (
	// ErrNoMem indicates that an allocation backend ran out of memory.
	ErrNoMem = backend.ErrNoMem
	// ErrUnsupported indicates a backend unavailable on this platform.
	ErrUnsupported = backend.ErrUnsupported
	// ErrInvalidType indicates an invalid or unusable memory type.
	ErrInvalidType = fmt.Errorf("memmgr: invalid memory type")
	// ErrInvalidClass indicates an invalid memory class.
	ErrInvalidClass = fmt.Errorf("memmgr: invalid memory class")
	// ErrConfig indicates an invalid manager configuration.
	ErrConfig = fmt.Errorf("memmgr: invalid configuration")
	// ErrClosed indicates use of a closed manager.
	ErrClosed = fmt.Errorf("memmgr: manager is closed")
)
