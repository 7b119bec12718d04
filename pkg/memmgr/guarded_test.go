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

package memmgr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/gridsolve/memmgr/pkg/memmgr"
)

// The guarded host space revokes access to the host pages while the
// device copy is authoritative. The full protocol must still work: every
// host touch goes through an access request, which restores the pages
// first.
func TestGuardedRoundTrip(t *testing.T) {
	m := newTestManager(t, WithHostType(TypeGuarded))

	buf, err := m.NewBuffer(4096, TypeGuarded)
	require.NoError(t, err, "unexpected NewBuffer() error")

	host, err := buf.Write(ClassGuarded)
	require.NoError(t, err)
	copy(host, pattern(4096))

	// The host pages are protected now; do not touch host until the
	// next host-class access.
	dev, err := buf.ReadWrite(ClassDevice)
	require.NoError(t, err)
	require.Equal(t, pattern(4096), dev, "device data after pull")
	for i := range dev {
		dev[i] ^= 0xff
	}

	expected := pattern(4096)
	for i := range expected {
		expected[i] ^= 0xff
	}
	host, err = buf.Read(ClassGuarded)
	require.NoError(t, err)
	require.Equal(t, expected, host, "host data after pull back")

	buf.Free()
}

// A weaker host class joins up to guarded and is served by the guarded
// space.
func TestGuardedServesWeakerClasses(t *testing.T) {
	m := newTestManager(t, WithHostType(TypeGuarded))

	buf, err := m.NewBuffer(64, TypeHost)
	require.NoError(t, err)
	defer buf.Free()

	_, err = buf.Read(ClassGuarded)
	require.NoError(t, err, "guarded class request")

	_, err = buf.Read(ClassHost)
	require.NoError(t, err, "host class request against guarded space")
}

func TestGuardedFreeWhileProtected(t *testing.T) {
	m := newTestManager(t, WithHostType(TypeGuarded))

	buf, err := m.NewBuffer(4096, TypeGuarded)
	require.NoError(t, err)

	// Leave the buffer device-valid with protected host pages; Free
	// must restore access before unmapping.
	_, err = buf.ReadWrite(ClassDevice)
	require.NoError(t, err)
	require.NotPanics(t, func() { buf.Free() }, "Free() of a protected buffer")
}
