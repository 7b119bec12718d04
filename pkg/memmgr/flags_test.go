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

package memmgr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/gridsolve/memmgr/pkg/memmgr"
)

func TestFlagOps(t *testing.T) {
	var f Flags

	f.Set(Registered | ValidHost)
	require.True(t, f.Has(Registered))
	require.True(t, f.Has(Registered|ValidHost))
	require.False(t, f.Has(ValidDevice))
	require.False(t, f.Has(Registered|ValidDevice), "Has() requires all given bits")

	f.Set(ValidDevice)
	f.Clear(ValidHost)
	require.True(t, f.Has(ValidDevice))
	require.False(t, f.Has(ValidHost))
}

func TestFlagsString(t *testing.T) {
	require.Equal(t, "-", Flags(0).String())
	require.Equal(t, "registered", Registered.String())
	require.Equal(t, "registered|valid-host|valid-device",
		(Registered | ValidHost | ValidDevice).String())
	require.Equal(t, "owns-host|alias|prefer-device",
		(OwnsHost | IsAlias | PreferDevice).String())
}
