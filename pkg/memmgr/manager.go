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
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridsolve/memmgr/pkg/memmgr/backend"
)

// Manager keeps logical buffers coherent across the host and device
// memory spaces. It combines the residency ledger with a fixed triple of
// allocation backends selected at construction; switching backends at run
// time is unsupported.
type Manager struct {
	ledger     *ledger
	host       backend.HostSpace
	device     backend.DeviceSpace
	copier     backend.CopySpace
	hostType   Type
	deviceType Type
	hostClass  Class
	hostPool   *backend.HostPool
	devicePool *backend.DevicePool
	metrics    *metrics
	closed     bool
}

// Option is an opaque option for a Manager.
type Option func(*options) error

type options struct {
	hostType   Type
	deviceType Type
	pooled     bool
	host       backend.HostSpace
	device     backend.DeviceSpace
	copier     backend.CopySpace
	registerer prometheus.Registerer
}

// WithHostType is an option selecting the host memory type of a manager.
func WithHostType(t Type) Option {
	return func(o *options) error {
		if !t.IsHost() && t != TypeUnified {
			return fmt.Errorf("%w: %s is not a host memory type", ErrInvalidType, t)
		}
		o.hostType = t
		return nil
	}
}

// WithDeviceType is an option selecting the device memory type of a
// manager. TypeNone configures a manager without device memory.
func WithDeviceType(t Type) Option {
	return func(o *options) error {
		if t != TypeDevice && t != TypeUnified && t != TypeNone {
			return fmt.Errorf("%w: %s is not a device memory type", ErrInvalidType, t)
		}
		o.deviceType = t
		return nil
	}
}

// WithPooling is an option enabling pooled allocation in front of the
// host and device memory spaces.
func WithPooling() Option {
	return func(o *options) error {
		o.pooled = true
		return nil
	}
}

// WithConfig is an option applying a parsed configuration.
func WithConfig(cfg *Config) Option {
	return func(o *options) error {
		return cfg.apply(o)
	}
}

// WithBackends is an option installing externally constructed memory
// spaces, e.g. accelerator-backed ones. The memory types still describe
// the spaces for validation and diagnostics.
func WithBackends(host backend.HostSpace, device backend.DeviceSpace, copier backend.CopySpace) Option {
	return func(o *options) error {
		o.host, o.device, o.copier = host, device, copier
		return nil
	}
}

// New creates a manager configured with the given options. The default
// configuration is plain host memory with an emulated device space.
func New(opts ...Option) (*Manager, error) {
	o := &options{
		hostType:   TypeHost,
		deviceType: TypeDevice,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if (o.hostType == TypeUnified) != (o.deviceType == TypeUnified) {
		return nil, fmt.Errorf("%w: host type %s with device type %s, unified memory must be configured for both spaces",
			ErrConfig, o.hostType, o.deviceType)
	}
	if o.pooled && o.deviceType == TypeUnified {
		return nil, fmt.Errorf("%w: pooled allocation combined with unified memory", ErrConfig)
	}

	m := &Manager{
		ledger:     newLedger(),
		hostType:   o.hostType,
		deviceType: o.deviceType,
		hostClass:  o.hostType.Class(),
		metrics:    newMetrics(),
	}

	var err error
	m.host, m.device, m.copier = o.host, o.device, o.copier
	if m.host == nil {
		if m.host, err = newHostSpace(o.hostType); err != nil {
			return nil, err
		}
		m.device = newDeviceSpace(o.deviceType)
		m.copier = newCopySpace(o.deviceType)
	}

	if o.pooled {
		if m.hostPool, err = backend.NewHostPool(m.host); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		m.host = m.hostPool
		if o.deviceType != TypeNone {
			if m.devicePool, err = backend.NewDevicePool(m.device); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConfig, err)
			}
			m.device = m.devicePool
		}
	}

	if o.registerer != nil {
		if err := m.metrics.register(o.registerer); err != nil {
			return nil, fmt.Errorf("%w: failed to register metrics: %v", ErrConfig, err)
		}
	}

	log.Info("memory manager with host space %s, device space %s, copy space %s",
		m.host.Name(), m.device.Name(), m.copier.Name())

	return m, nil
}

func newHostSpace(t Type) (backend.HostSpace, error) {
	switch t {
	case TypeHost:
		return backend.NewHeap(), nil
	case TypeHost32:
		return backend.NewAligned(32)
	case TypeHost64:
		return backend.NewAligned(64)
	case TypeGuarded:
		return backend.NewGuarded()
	case TypeUnified:
		return backend.NewUnifiedHost(), nil
	}
	return nil, fmt.Errorf("%w: no host space for type %s", ErrInvalidType, t)
}

func newDeviceSpace(t Type) backend.DeviceSpace {
	switch t {
	case TypeDevice:
		return backend.NewHeapDevice()
	case TypeUnified:
		return backend.NewUnifiedDevice()
	}
	return backend.NewNoneDevice()
}

func newCopySpace(t Type) backend.CopySpace {
	if t == TypeUnified {
		return backend.NewUnifiedCopy()
	}
	return backend.NewPlainCopy()
}

var (
	defOnce sync.Once
	defMgr  *Manager
)

// Default returns the shared default manager, constructing it on first
// use. Call sites that need a specific backend configuration construct
// their own manager instead.
func Default() *Manager {
	defOnce.Do(func() {
		var err error
		if defMgr, err = New(); err != nil {
			log.Fatal("failed to create default memory manager: %v", err)
		}
	})
	return defMgr
}

// HostType returns the host memory type of the manager.
func (m *Manager) HostType() Type { return m.hostType }

// DeviceType returns the device memory type of the manager.
func (m *Manager) DeviceType() Type { return m.deviceType }

// IsKnown returns true if the base address of the given region is a
// registered buffer address. Meant for defensive assertions by callers.
func (m *Manager) IsKnown(mem []byte) bool {
	return m.ledger.known(addrOf(mem))
}

// IsKnownAlias returns true if the base address of the given region is a
// registered alias address.
func (m *Manager) IsKnownAlias(mem []byte) bool {
	return m.ledger.knownAlias(addrOf(mem))
}

// RegisterCheck panics if the given region is not registered.
func (m *Manager) RegisterCheck(mem []byte) {
	if mem == nil {
		return
	}
	if a := addrOf(mem); !m.ledger.known(a) && !m.ledger.knownAlias(a) {
		log.Panic("address 0x%x is not registered", a)
	}
}

// Trim releases pooled memory down to at most keep cached regions per
// size bucket. It is a no-op for managers without pooling.
func (m *Manager) Trim(keep int) {
	if m.hostPool != nil {
		m.hostPool.Trim(keep)
	}
	if m.devicePool != nil {
		m.devicePool.Trim(keep)
	}
}

// PoolStats returns the host and device pool counters of a pooled
// manager.
func (m *Manager) PoolStats() (host, device backend.PoolStats) {
	if m.hostPool != nil {
		host = m.hostPool.Stats()
	}
	if m.devicePool != nil {
		device = m.devicePool.Stats()
	}
	return host, device
}

// Close tears the manager down, releasing all outstanding device memory
// and pooled regions. Buffers registered with the manager are invalid
// afterwards.
func (m *Manager) Close() error {
	if m.closed {
		return ErrClosed
	}
	m.closed = true

	var errs *multierror.Error
	for _, a := range m.ledger.snapshot() {
		rec := m.ledger.erase(a)
		if err := m.host.Unprotect(rec.host); err != nil {
			errs = multierror.Append(errs, err)
		}
		if rec.dev != nil && m.deviceType != TypeNone {
			m.device.Dealloc(rec.dev)
			rec.dev = nil
		}
	}
	for _, a := range m.ledger.aliasSnapshot() {
		m.ledger.eraseAlias(a)
	}

	if m.hostPool != nil {
		m.hostPool.Release()
	}
	if m.devicePool != nil {
		m.devicePool.Release()
	}

	return errs.ErrorOrNil()
}

// devicePtr returns the device region of the buffer registered at the
// given address, allocating it lazily on this first device touch, and
// moves the host data over when asked to.
func (m *Manager) devicePtr(a uintptr, n int, copyData bool) ([]byte, error) {
	rec := m.ledger.mustFind(a)
	if n > rec.size {
		log.Panic("access of %d bytes beyond buffer size %d at 0x%x", n, rec.size, a)
	}
	if rec.dev == nil {
		dev, err := m.device.Alloc(rec.host, rec.size)
		if err != nil {
			return nil, fmt.Errorf("device allocation of %d bytes: %w", rec.size, err)
		}
		rec.dev = dev
		m.metrics.deviceAlloc(len(dev))
	}
	if copyData {
		m.copier.HtoD(rec.dev[:n], rec.host[:n])
		rec.onHost = false
		m.metrics.copied(routeHtoD, n)
	}
	return rec.dev[:rec.size], nil
}

// aliasDevicePtr is devicePtr for aliases. The device region belongs to
// the base record; an alias never triggers allocation of its own device
// storage, it only windows into the base's.
func (m *Manager) aliasDevicePtr(a uintptr, n int, copyData bool) ([]byte, error) {
	al := m.ledger.mustAlias(a)
	rec := al.rec
	if al.offset < 0 || al.offset+n > rec.size {
		log.Panic("alias access window [%d,%d) outside base buffer of %d bytes",
			al.offset, al.offset+n, rec.size)
	}
	if rec.dev == nil {
		dev, err := m.device.Alloc(rec.host, rec.size)
		if err != nil {
			return nil, fmt.Errorf("device allocation of %d bytes: %w", rec.size, err)
		}
		rec.dev = dev
		m.metrics.deviceAlloc(len(dev))
	}
	if copyData {
		m.copier.HtoD(rec.dev[al.offset:al.offset+n], rec.host[al.offset:al.offset+n])
		rec.onHost = false
		m.metrics.copied(routeHtoD, n)
	}
	return rec.dev[al.offset : al.offset+n], nil
}

// pullKnown moves device data back to the host region of the buffer
// registered at the given address. A missing device region is fine: a
// freshly registered host-only buffer may be read before any device
// residency existed, and must not force a device allocation.
func (m *Manager) pullKnown(a uintptr, n int, copyData bool) {
	rec := m.ledger.mustFind(a)
	if copyData && rec.dev != nil {
		m.copier.DtoH(rec.host[:n], rec.dev[:n])
		rec.onHost = true
		m.metrics.copied(routeDtoH, n)
	}
}

// pullAlias is pullKnown for aliases, windowing through the alias offset.
func (m *Manager) pullAlias(a uintptr, n int, copyData bool) {
	al := m.ledger.mustAlias(a)
	rec := al.rec
	if copyData && rec.dev != nil {
		m.copier.DtoH(rec.host[al.offset:al.offset+n], rec.dev[al.offset:al.offset+n])
		m.metrics.copied(routeDtoH, n)
	}
}

// access is the heart of the coherence protocol: it resolves one pointer
// request of the given class and mode against the buffer's flags, moving
// data between the spaces when the requested space is stale.
func (m *Manager) access(b *Buffer, mc Class, mode Mode) ([]byte, error) {
	if !b.flags.Has(Registered) {
		log.Panic("%s access to an unregistered buffer", mode)
	}

	switch {
	case mc.IsHost():
		if joined := mc.Join(m.hostClass); joined != m.hostClass {
			log.Panic("host space %s cannot serve a %s class request", m.hostType, mc)
		}
		m.unprotectHost(b)
		if mode != ModeWrite && !b.flags.Has(ValidHost) {
			if b.flags.Has(IsAlias) {
				m.pullAlias(b.addr(), b.size, true)
			} else {
				m.pullKnown(b.addr(), b.size, true)
			}
		}
		b.flags.Set(ValidHost)
		if mode != ModeRead {
			b.flags.Clear(ValidDevice)
		}
		return b.data, nil

	case mc == ClassUnified:
		if m.hostType != TypeUnified {
			log.Panic("unified class request without unified memory configured")
		}
		// One storage serves both spaces; both copies are current.
		b.flags.Set(ValidHost | ValidDevice)
		return b.data, nil

	default: // ClassDevice
		needCopy := mode != ModeWrite && !b.flags.Has(ValidDevice)
		var (
			dev []byte
			err error
		)
		if b.flags.Has(IsAlias) {
			dev, err = m.aliasDevicePtr(b.addr(), b.size, needCopy)
		} else {
			dev, err = m.devicePtr(b.addr(), b.size, needCopy)
			if err == nil {
				dev = dev[:b.size]
			}
		}
		if err != nil {
			return nil, err
		}
		b.flags.Set(ValidDevice)
		if mode != ModeRead {
			b.flags.Clear(ValidHost)
			m.protectHost(b)
		}
		return dev, nil
	}
}

// unprotectHost restores host access to the pages backing the buffer
// before the host side is touched. A no-op for all but guarded memory.
func (m *Manager) unprotectHost(b *Buffer) {
	rec := m.baseRecord(b)
	if err := m.host.Unprotect(rec.host); err != nil {
		log.Panic("failed to unprotect host region at 0x%x: %v", rec.hostAddr(), err)
	}
}

// protectHost revokes host access to the pages of a buffer whose host
// copy just became stale. Aliases are skipped: protection acts on the
// whole base region, which may still be host-valid through its owner.
func (m *Manager) protectHost(b *Buffer) {
	if b.flags.Has(IsAlias) {
		return
	}
	rec := m.baseRecord(b)
	if err := m.host.Protect(rec.host); err != nil {
		log.Panic("failed to protect host region at 0x%x: %v", rec.hostAddr(), err)
	}
}

func (m *Manager) baseRecord(b *Buffer) *record {
	if b.flags.Has(IsAlias) {
		return m.ledger.mustAlias(b.addr()).rec
	}
	return m.ledger.mustFind(b.addr())
}
