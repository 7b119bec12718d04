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

import "strings"

// Flags is the per-buffer bookkeeping bitfield. It travels with each
// Buffer, not with the ledger: ownership and validity are properties of
// the handle, residency records are shared.
type Flags uint32

const (
	// Registered is set once the buffer is present in the ledger.
	Registered Flags = 1 << iota
	// OwnsHost marks the buffer as the owner of the host allocation.
	OwnsHost
	// OwnsDevice marks the buffer as the owner of the device allocation.
	OwnsDevice
	// OwnsLedger marks the buffer as the owner of its ledger entry.
	OwnsLedger
	// ValidHost is set while the host copy of the data is current.
	ValidHost
	// ValidDevice is set while the device copy of the data is current.
	ValidDevice
	// IsAlias marks the buffer as a sub-view into another buffer.
	IsAlias
	// PreferDevice hints that accesses should favor the device space.
	PreferDevice
)

var flagNames = []struct {
	bit  Flags
	name string
}{
	{Registered, "registered"},
	{OwnsHost, "owns-host"},
	{OwnsDevice, "owns-device"},
	{OwnsLedger, "owns-ledger"},
	{ValidHost, "valid-host"},
	{ValidDevice, "valid-device"},
	{IsAlias, "alias"},
	{PreferDevice, "prefer-device"},
}

// Has returns true if all the given bits are set.
func (f Flags) Has(bits Flags) bool {
	return f&bits == bits
}

// Set sets the given bits.
func (f *Flags) Set(bits Flags) {
	*f |= bits
}

// Clear clears the given bits.
func (f *Flags) Clear(bits Flags) {
	*f &^= bits
}

// String returns a string representation of the flags.
func (f Flags) String() string {
	if f == 0 {
		return "-"
	}
	names := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f&fn.bit != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// aliasFlags derives the flags of a freshly created alias from its base
// buffer. An alias never owns backing storage, only the base buffer does,
// but it does own its own ledger entry so alias teardown is independent
// of the base buffer's lifetime.
func aliasFlags(base Flags) Flags {
	return (base | IsAlias | OwnsLedger | Registered) &^ (OwnsHost | OwnsDevice)
}
