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
	"encoding/json"
	"fmt"
	"strings"
)

// Type represents known memory types a buffer can be allocated with.
type Type int

const (
	// TypeNone marks the absence of a memory type; as a device type it
	// configures a manager without device memory.
	TypeNone Type = iota - 1
	// TypeHost is plain host memory.
	TypeHost
	// TypeHost32 is host memory with a 32-byte aligned base address.
	TypeHost32
	// TypeHost64 is host memory with a 64-byte aligned base address.
	TypeHost64
	// TypeGuarded is page-protected host memory; access while the device
	// copy is authoritative traps.
	TypeGuarded
	// TypeDevice is device memory shadowed by a host region.
	TypeDevice
	// TypeUnified is memory serving both spaces from one storage.
	TypeUnified
)

var (
	typeToString = map[Type]string{
		TypeNone:    "none",
		TypeHost:    "host",
		TypeHost32:  "host-32",
		TypeHost64:  "host-64",
		TypeGuarded: "guarded",
		TypeDevice:  "device",
		TypeUnified: "unified",
	}
	stringToType = map[string]Type{
		"none":    TypeNone,
		"host":    TypeHost,
		"host-32": TypeHost32,
		"host-64": TypeHost64,
		"guarded": TypeGuarded,
		"device":  TypeDevice,
		"unified": TypeUnified,
	}
	typeToClass = map[Type]Class{
		TypeHost:    ClassHost,
		TypeHost32:  ClassHost32,
		TypeHost64:  ClassHost64,
		TypeGuarded: ClassGuarded,
		TypeDevice:  ClassDevice,
		TypeUnified: ClassUnified,
	}
)

// ParseType parses the given string into a memory type.
func ParseType(str string) (Type, error) {
	if t, ok := stringToType[strings.ToLower(str)]; ok {
		return t, nil
	}
	return TypeNone, fmt.Errorf("%w: %q", ErrInvalidType, str)
}

// MustParseType parses the given string into a memory type.
// It panicks on failure.
func MustParseType(str string) Type {
	t, err := ParseType(str)
	if err != nil {
		panic(err)
	}
	return t
}

// IsHost returns true for host-side memory types.
func (t Type) IsHost() bool {
	return t >= TypeHost && t <= TypeGuarded
}

// IsValid returns true if the memory type is valid/known.
func (t Type) IsValid() bool {
	_, ok := typeToString[t]
	return ok
}

// Class returns the memory class served by the memory type.
// It panicks for TypeNone and unknown types.
func (t Type) Class() Class {
	if mc, ok := typeToClass[t]; ok {
		return mc
	}
	panic(fmt.Errorf("%w: no class for type %s", ErrInvalidType, t))
}

// String returns a string representation of the memory type.
func (t Type) String() string {
	if str, ok := typeToString[t]; ok {
		return str
	}
	return fmt.Sprintf("%%!(memmgr:Bad-Type %d)", int(t))
}

// MarshalJSON is the json.Marshaller for Type.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON is the json.Unmarshaller for Type.
func (t *Type) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseType(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Class represents the memory class an access request names: the space,
// and for host classes any base address requirement, the returned address
// must satisfy.
type Class int

const (
	// ClassHost requests plain host memory.
	ClassHost Class = iota
	// ClassHost32 requests host memory with a 32-byte aligned base.
	ClassHost32
	// ClassHost64 requests host memory with a 64-byte aligned base.
	ClassHost64
	// ClassGuarded requests page-protected host memory.
	ClassGuarded
	// ClassDevice requests device memory.
	ClassDevice
	// ClassUnified requests unified memory.
	ClassUnified
)

var classToString = map[Class]string{
	ClassHost:    "host",
	ClassHost32:  "host-32",
	ClassHost64:  "host-64",
	ClassGuarded: "guarded",
	ClassDevice:  "device",
	ClassUnified: "unified",
}

// Join combines two memory classes into the least class satisfying both.
// The class ordering host < host-32 < host-64 < guarded < device < unified
// makes this simply the maximum of the two.
func (mc Class) Join(other Class) Class {
	if other > mc {
		return other
	}
	return mc
}

// IsHost returns true for host-side memory classes.
func (mc Class) IsHost() bool {
	return mc >= ClassHost && mc <= ClassGuarded
}

// Type returns the memory type serving the memory class.
func (mc Class) Type() Type {
	for t, c := range typeToClass {
		if c == mc {
			return t
		}
	}
	panic(fmt.Errorf("%w: no type for class %s", ErrInvalidClass, mc))
}

// String returns a string representation of the memory class.
func (mc Class) String() string {
	if str, ok := classToString[mc]; ok {
		return str
	}
	return fmt.Sprintf("%%!(memmgr:Bad-Class %d)", int(mc))
}

// Mode is the access mode of a pointer request.
type Mode int

const (
	// ModeRead requests read-only access; the data in the other space
	// stays valid.
	ModeRead Mode = iota
	// ModeWrite requests write-only access; the current data is not
	// moved, and the other space's copy becomes stale.
	ModeWrite
	// ModeReadWrite requests full access; the data is moved in if
	// necessary and the other space's copy becomes stale.
	ModeReadWrite
)

var modeToString = map[Mode]string{
	ModeRead:      "read",
	ModeWrite:     "write",
	ModeReadWrite: "read-write",
}

// String returns a string representation of the access mode.
func (mode Mode) String() string {
	if str, ok := modeToString[mode]; ok {
		return str
	}
	return fmt.Sprintf("%%!(memmgr:Bad-Mode %d)", int(mode))
}
