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

package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/gridsolve/memmgr/pkg/memmgr/backend"
)

func TestGuardedSpace(t *testing.T) {
	s, err := NewGuarded()
	require.NoError(t, err)
	require.Equal(t, "guarded", s.Name())

	mem, err := s.Alloc(4096)
	require.NoError(t, err)
	require.Len(t, mem, 4096)

	mem[0], mem[4095] = 0x5a, 0xa5

	// Protect then unprotect; the region must not be touched in
	// between. The contents survive the round trip.
	require.NoError(t, s.Protect(mem))
	require.NoError(t, s.Unprotect(mem))
	require.Equal(t, byte(0x5a), mem[0])
	require.Equal(t, byte(0xa5), mem[4095])

	s.Dealloc(mem)

	// Zero-byte regions are still mappable and protectable.
	zero, err := s.Alloc(0)
	require.NoError(t, err)
	require.Len(t, zero, 1)
	require.NoError(t, s.Protect(zero))
	require.NoError(t, s.Unprotect(zero))
	s.Dealloc(zero)
}
