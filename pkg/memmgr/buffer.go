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

import "fmt"

// Buffer is a logical buffer: an externally visible memory handle that
// may be backed by host and/or device storage. The handle holds the host
// window and the bookkeeping flags; device storage is reached only
// through the manager's ledger.
type Buffer struct {
	mgr   *Manager
	data  []byte
	size  int
	mtype Type
	flags Flags
}

// NewBuffer allocates and registers a logical buffer of the given byte
// size and memory type. Host-class types must be servable by the
// manager's configured host space; TypeDevice buffers are born
// device-valid with their device storage allocated lazily on first
// device touch.
func (m *Manager) NewBuffer(size int, t Type) (*Buffer, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if size < 0 {
		log.Panic("buffer allocation with negative size %d", size)
	}

	var flags Flags
	switch {
	case t.IsHost():
		if joined := t.Class().Join(m.hostClass); joined != m.hostClass {
			return nil, fmt.Errorf("%w: host space %s cannot serve type %s",
				ErrInvalidType, m.hostType, t)
		}
		flags = Registered | OwnsHost | OwnsDevice | OwnsLedger | ValidHost
	case t == TypeDevice:
		if m.deviceType == TypeNone {
			return nil, fmt.Errorf("%w: no device memory space configured", ErrConfig)
		}
		flags = Registered | OwnsHost | OwnsDevice | OwnsLedger | ValidDevice | PreferDevice
	case t == TypeUnified:
		if m.deviceType != TypeUnified {
			return nil, fmt.Errorf("%w: unified buffer without unified memory configured", ErrConfig)
		}
		flags = Registered | OwnsHost | OwnsDevice | OwnsLedger | ValidHost | ValidDevice
	default:
		return nil, fmt.Errorf("%w: cannot allocate a %s buffer", ErrInvalidType, t)
	}

	mem, err := m.host.Alloc(size)
	if err != nil {
		return nil, fmt.Errorf("host allocation of %d bytes: %w", size, err)
	}
	m.metrics.hostAlloc(len(mem))

	// Unified storage serves both spaces; nothing to allocate later.
	var dev []byte
	if t == TypeUnified {
		if dev, err = m.device.Alloc(mem, size); err != nil {
			m.host.Dealloc(mem)
			return nil, fmt.Errorf("device allocation of %d bytes: %w", size, err)
		}
	}

	rec := m.ledger.insert(mem, size)
	rec.dev = dev
	m.metrics.registered()

	return &Buffer{mgr: m, data: mem[:size], size: size, mtype: t, flags: flags}, nil
}

// Wrap registers externally supplied host memory as a logical buffer. A
// non-owning buffer (own=false) never triggers a host deallocation on
// Free. Owned wrapped memory must originate from the manager's host
// space.
func (m *Manager) Wrap(data []byte, own bool) *Buffer {
	flags := Registered | OwnsLedger | OwnsDevice | ValidHost
	if own {
		flags |= OwnsHost
	}
	m.ledger.insert(data, len(data))
	m.metrics.registered()
	return &Buffer{mgr: m, data: data, size: len(data), mtype: m.hostType, flags: flags}
}

// WrapDevice registers pre-existing device-resident data together with
// the host region shadowing it. The buffer is born device-valid; own
// controls whether Free releases the device region.
func (m *Manager) WrapDevice(dev, host []byte, own bool) *Buffer {
	flags := Registered | OwnsLedger | OwnsHost | ValidDevice | PreferDevice
	if own {
		flags |= OwnsDevice
	}
	m.ledger.insertDevice(dev, host, len(host))
	m.metrics.registered()
	return &Buffer{mgr: m, data: host, size: len(host), mtype: TypeDevice, flags: flags}
}

// Alias creates a sub-view of size bytes at the given byte offset into
// the buffer. The alias shares the base buffer's backing storage in both
// spaces and never owns any of it; it does own its ledger entry, so its
// teardown is independent of the base buffer's lifetime. An alias of an
// alias resolves to the ultimate base buffer.
func (b *Buffer) Alias(offset, size int) *Buffer {
	if !b.flags.Has(Registered) {
		log.Panic("alias into an unregistered buffer")
	}
	if offset < 0 || size < 0 || offset+size > b.size {
		log.Panic("alias window [%d,%d) outside buffer of %d bytes",
			offset, offset+size, b.size)
	}

	window := b.data[offset : offset+size]
	b.mgr.ledger.insertAlias(b.addr(), addrOf(window), b.flags.Has(IsAlias))

	return &Buffer{
		mgr:   b.mgr,
		data:  window,
		size:  size,
		mtype: b.mtype,
		flags: aliasFlags(b.flags),
	}
}

// Free unregisters the buffer and releases whatever backing storage the
// handle owns. Freeing an alias only drops one reference to its ledger
// entry; the base buffer's storage is untouched.
func (b *Buffer) Free() {
	if b == nil || b.flags == 0 {
		return
	}
	m := b.mgr

	if b.flags.Has(OwnsLedger) {
		if b.flags.Has(IsAlias) {
			m.ledger.eraseAlias(b.addr())
		} else {
			rec := m.ledger.erase(b.addr())
			if rec.dev != nil && b.flags.Has(OwnsDevice) {
				m.device.Dealloc(rec.dev)
			}
			if b.flags.Has(OwnsHost) {
				// Guarded regions may still be protected; restore access
				// before handing the pages back.
				if err := m.host.Unprotect(rec.host); err != nil {
					log.Panic("failed to unprotect host region at 0x%x: %v",
						rec.hostAddr(), err)
				}
				m.host.Dealloc(rec.host)
			}
			m.metrics.unregistered()
		}
	}

	b.data = nil
	b.flags = 0
}

// Read returns an address for read-only access in the given memory
// class, moving data into the requested space if its copy is stale. The
// other space's copy stays valid.
func (b *Buffer) Read(mc Class) ([]byte, error) {
	return b.mgr.access(b, mc, ModeRead)
}

// Write returns an address for write-only access in the given memory
// class. No data is moved; the other space's copy becomes stale.
func (b *Buffer) Write(mc Class) ([]byte, error) {
	return b.mgr.access(b, mc, ModeWrite)
}

// ReadWrite returns an address for full access in the given memory
// class, moving data in if the requested space is stale. The other
// space's copy becomes stale.
func (b *Buffer) ReadWrite(mc Class) ([]byte, error) {
	return b.mgr.access(b, mc, ModeReadWrite)
}

// Access returns an address for the given memory class and access mode.
func (b *Buffer) Access(mc Class, mode Mode) ([]byte, error) {
	return b.mgr.access(b, mc, mode)
}

// Class returns the memory class the buffer favors, derived from its
// type and the PreferDevice hint.
func (b *Buffer) Class() Class {
	if b.flags.Has(PreferDevice) && b.mgr.deviceType != TypeNone {
		return b.mgr.deviceType.Class()
	}
	return b.mtype.Class()
}

// UseDevice sets or clears the PreferDevice hint.
func (b *Buffer) UseDevice(on bool) {
	if on {
		b.flags.Set(PreferDevice)
	} else {
		b.flags.Clear(PreferDevice)
	}
}

// Sync propagates the validity of the base buffer to this alias,
// pulling into each space the base holds valid and the alias does not.
func (b *Buffer) Sync(base *Buffer) error {
	if !b.flags.Has(IsAlias) {
		log.Panic("sync of a non-alias buffer")
	}
	if !base.flags.Has(Registered) {
		log.Panic("sync against an unregistered base buffer")
	}

	m := b.mgr
	if base.flags.Has(ValidHost) && !b.flags.Has(ValidHost) {
		m.pullAlias(b.addr(), b.size, true)
	}
	if base.flags.Has(ValidDevice) && !b.flags.Has(ValidDevice) {
		if _, err := m.aliasDevicePtr(b.addr(), b.size, true); err != nil {
			return err
		}
	}
	b.flags = (b.flags &^ (ValidHost | ValidDevice)) |
		(base.flags & (ValidHost | ValidDevice))
	return nil
}

// Size returns the byte size of the buffer.
func (b *Buffer) Size() int { return b.size }

// MemType returns the memory type of the buffer.
func (b *Buffer) MemType() Type { return b.mtype }

// Flags returns the current bookkeeping flags of the buffer.
func (b *Buffer) Flags() Flags { return b.flags }

func (b *Buffer) addr() uintptr {
	return addrOf(b.data)
}
