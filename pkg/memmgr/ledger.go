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
	"sync"
	"unsafe"
)

// record is the residency record of one registered buffer, keyed in the
// ledger by the base address of its host region. The record, not the
// buffer handle, holds the device region: handles never see device
// addresses directly.
type record struct {
	size   int
	host   []byte
	dev    []byte
	onHost bool
}

// aliasRec is the ledger record of a sub-view into a registered buffer.
// Sub-views at the same address share one record by reference counting.
type aliasRec struct {
	rec    *record
	offset int
	refs   int
}

// ledger is the registry of residency and alias records. Lookups take the
// read lock; structural mutation takes the write lock. Mutation of the
// fields of an individual record follows the per-buffer single-caller
// discipline and needs no ledger lock.
type ledger struct {
	mu      sync.RWMutex
	records map[uintptr]*record
	aliases map[uintptr]*aliasRec
}

// addrOf returns the base address of a region. The address is only used
// as a stable lookup key; the region itself is always reached through the
// slice kept in the record.
func addrOf(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
}

func newLedger() *ledger {
	return &ledger{
		records: make(map[uintptr]*record),
		aliases: make(map[uintptr]*aliasRec),
	}
}

func (r *record) hostAddr() uintptr {
	return addrOf(r.host)
}

// insert registers a host region. Registering a live address is a
// programming error.
func (l *ledger) insert(host []byte, size int) *record {
	a := addrOf(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[a]; ok {
		log.Panic("trying to register an already present address 0x%x", a)
	}
	rec := &record{size: size, host: host, onHost: true}
	l.records[a] = rec
	return rec
}

// insertDevice registers a host region shadowing pre-existing
// device-resident data.
func (l *ledger) insertDevice(dev, host []byte, size int) *record {
	if dev == nil {
		log.Panic("trying to register a nil device region")
	}
	a := addrOf(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[a]; ok {
		log.Panic("trying to register an already present address 0x%x", a)
	}
	rec := &record{size: size, host: host, dev: dev, onHost: false}
	l.records[a] = rec
	return rec
}

// erase removes and returns the record registered at the given address.
// Erasing an unknown address is a programming error.
func (l *ledger) erase(a uintptr) *record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[a]
	if !ok {
		log.Panic("trying to erase an unknown address 0x%x", a)
	}
	delete(l.records, a)
	return rec
}

func (l *ledger) find(a uintptr) (*record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[a]
	return rec, ok
}

func (l *ledger) mustFind(a uintptr) *record {
	rec, ok := l.find(a)
	if !ok {
		log.Panic("address 0x%x is not registered", a)
	}
	return rec
}

// insertAlias registers a sub-view at aliasAddr into the buffer at
// baseAddr. If the base is itself an alias the new record resolves
// transitively to the ultimate base. A re-insert at a live alias address
// must agree on base and offset; it then only bumps the reference count.
func (l *ledger) insertAlias(baseAddr, aliasAddr uintptr, baseIsAlias bool) *aliasRec {
	l.mu.Lock()
	defer l.mu.Unlock()

	offset := int(int64(aliasAddr) - int64(baseAddr))
	if baseIsAlias {
		base, ok := l.aliases[baseAddr]
		if !ok {
			log.Panic("alias base 0x%x is not a registered alias", baseAddr)
		}
		offset += base.offset
		baseAddr = base.rec.hostAddr()
	}

	rec, ok := l.records[baseAddr]
	if !ok {
		log.Panic("alias base address 0x%x is not registered", baseAddr)
	}

	if al, ok := l.aliases[aliasAddr]; ok {
		if al.rec != rec || al.offset != offset {
			log.Panic("alias at 0x%x already exists with different base/offset", aliasAddr)
		}
		al.refs++
		return al
	}

	al := &aliasRec{rec: rec, offset: offset, refs: 1}
	l.aliases[aliasAddr] = al
	l.checkAlias(aliasAddr, al)
	return al
}

// eraseAlias drops one reference to the alias at the given address and
// removes the record when the count reaches zero. This makes alias
// teardown idempotent under overlapping lifetime scopes.
func (l *ledger) eraseAlias(a uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()

	al, ok := l.aliases[a]
	if !ok {
		log.Panic("trying to erase an unknown alias 0x%x", a)
	}
	al.refs--
	if al.refs > 0 {
		return
	}
	delete(l.aliases, a)
}

func (l *ledger) findAlias(a uintptr) (*aliasRec, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	al, ok := l.aliases[a]
	return al, ok
}

func (l *ledger) mustAlias(a uintptr) *aliasRec {
	al, ok := l.findAlias(a)
	if !ok {
		log.Panic("address 0x%x is not a registered alias", a)
	}
	l.checkAlias(a, al)
	return al
}

// checkAlias verifies the alias offset invariant: base host address plus
// offset equals the alias address. A violation is never silently
// corrected.
func (l *ledger) checkAlias(a uintptr, al *aliasRec) {
	if al.rec.hostAddr()+uintptr(al.offset) != a {
		log.Panic("inconsistent alias at 0x%x: base 0x%x with offset %d",
			a, al.rec.hostAddr(), al.offset)
	}
}

func (l *ledger) known(a uintptr) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[a]
	return ok
}

func (l *ledger) knownAlias(a uintptr) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.aliases[a]
	return ok
}

// snapshot returns the current record addresses, for iteration without
// holding the ledger lock.
func (l *ledger) snapshot() []uintptr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	addrs := make([]uintptr, 0, len(l.records))
	for a := range l.records {
		addrs = append(addrs, a)
	}
	return addrs
}

func (l *ledger) aliasSnapshot() []uintptr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	addrs := make([]uintptr, 0, len(l.aliases))
	for a := range l.aliases {
		addrs = append(addrs, a)
	}
	return addrs
}
