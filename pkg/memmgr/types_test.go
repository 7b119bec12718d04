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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/gridsolve/memmgr/pkg/memmgr"
)

func TestParseType(t *testing.T) {
	for _, tc := range []struct {
		str  string
		t    Type
		fail bool
	}{
		{str: "host", t: TypeHost},
		{str: "host-64", t: TypeHost64},
		{str: "Guarded", t: TypeGuarded},
		{str: "DEVICE", t: TypeDevice},
		{str: "unified", t: TypeUnified},
		{str: "none", t: TypeNone},
		{str: "pinned", fail: true},
		{str: "", fail: true},
	} {
		parsed, err := ParseType(tc.str)
		if tc.fail {
			require.ErrorIs(t, err, ErrInvalidType, "ParseType(%q)", tc.str)
			continue
		}
		require.NoError(t, err, "ParseType(%q)", tc.str)
		require.Equal(t, tc.t, parsed, "ParseType(%q)", tc.str)
	}

	require.Panics(t, func() { MustParseType("bogus") }, "MustParseType() of unknown type")
}

func TestTypeClassification(t *testing.T) {
	require.True(t, TypeHost.IsHost())
	require.True(t, TypeGuarded.IsHost())
	require.False(t, TypeDevice.IsHost())
	require.False(t, TypeUnified.IsHost())
	require.False(t, TypeNone.IsHost())

	require.Equal(t, ClassHost64, TypeHost64.Class())
	require.Equal(t, ClassDevice, TypeDevice.Class())
	require.Panics(t, func() { _ = TypeNone.Class() }, "Class() of TypeNone")

	require.True(t, TypeNone.IsValid())
	require.False(t, Type(42).IsValid())
}

func TestClassJoin(t *testing.T) {
	// The least class satisfying both requirements is the stricter one.
	require.Equal(t, ClassHost64, ClassHost.Join(ClassHost64))
	require.Equal(t, ClassHost64, ClassHost64.Join(ClassHost32))
	require.Equal(t, ClassGuarded, ClassGuarded.Join(ClassHost))
	require.Equal(t, ClassDevice, ClassHost.Join(ClassDevice))
	require.Equal(t, ClassUnified, ClassDevice.Join(ClassUnified))
	require.Equal(t, ClassHost, ClassHost.Join(ClassHost))
}

func TestTypeJSON(t *testing.T) {
	data, err := json.Marshal(TypeHost32)
	require.NoError(t, err)
	require.Equal(t, `"host-32"`, string(data))

	var parsed Type
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Equal(t, TypeHost32, parsed)

	require.Error(t, json.Unmarshal([]byte(`"pinned"`), &parsed), "unmarshal of unknown type")
}

func TestModeString(t *testing.T) {
	require.Equal(t, "read", ModeRead.String())
	require.Equal(t, "write", ModeWrite.String())
	require.Equal(t, "read-write", ModeReadWrite.String())
}
