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

// Copy copies n bytes from src to dst. The copy route is chosen from the
// validity flags of both operands:
//
//	          |       src
//	          |  h  |  d  |  hd
//	 ---------+-----+-----+------
//	       h  | h2h   d2h   h2h
//	 dst   d  | h2d   d2d   d2d
//	      hd  | h2h   d2d   d2d
//
// A side valid in both spaces follows the other side, and the tie when
// both sides are valid everywhere breaks toward device-to-device. After
// the copy the destination is valid only in the space the data landed
// in.
func (m *Manager) Copy(dst, src *Buffer, n int) error {
	checkRange(dst, src, n)

	srcOnHost := src.flags.Has(ValidHost) &&
		(!src.flags.Has(ValidDevice) ||
			(dst.flags.Has(ValidHost) && !dst.flags.Has(ValidDevice)))
	dstOnHost := dst.flags.Has(ValidHost) &&
		(!dst.flags.Has(ValidDevice) ||
			(src.flags.Has(ValidHost) && !src.flags.Has(ValidDevice)))

	var (
		srcDev []byte
		err    error
	)
	if !srcOnHost {
		if srcDev, err = m.bufferDevicePtr(src, n); err != nil {
			return err
		}
	}

	if dstOnHost {
		if srcOnHost {
			if dst.addr() != src.addr() && n != 0 {
				checkOverlap(dst, src, n)
				copy(dst.data[:n], src.data[:n])
				m.metrics.copied(routeHtoH, n)
			}
		} else {
			m.copier.DtoH(dst.data[:n], srcDev[:n])
			m.metrics.copied(routeDtoH, n)
		}
	} else {
		dstDev, err := m.bufferDevicePtr(dst, n)
		if err != nil {
			return err
		}
		if srcOnHost {
			m.copier.HtoD(dstDev[:n], src.data[:n])
			m.metrics.copied(routeHtoD, n)
		} else {
			m.copier.DtoD(dstDev[:n], srcDev[:n])
			m.metrics.copied(routeDtoD, n)
		}
	}

	if dstOnHost {
		dst.flags.Clear(ValidDevice)
	} else {
		dst.flags.Clear(ValidHost)
	}
	return nil
}

// CopyToHost copies n bytes from a tracked buffer into ordinary process
// memory not tracked by the ledger. The source's flags are untouched.
func (m *Manager) CopyToHost(dst []byte, src *Buffer, n int) error {
	if n < 0 || n > len(dst) || n > src.size {
		log.Panic("invalid copy of %d bytes between regions of %d and %d bytes",
			n, src.size, len(dst))
	}

	if src.flags.Has(ValidHost) {
		if addrOf(dst) != src.addr() && n != 0 {
			checkOverlapRange(addrOf(dst), src.addr(), n)
			copy(dst[:n], src.data[:n])
			m.metrics.copied(routeHtoH, n)
		}
		return nil
	}

	srcDev, err := m.bufferDevicePtr(src, n)
	if err != nil {
		return err
	}
	m.copier.DtoH(dst[:n], srcDev[:n])
	m.metrics.copied(routeDtoH, n)
	return nil
}

// CopyFromHost copies n bytes from ordinary untracked process memory
// into a tracked buffer. The destination ends up valid only in the space
// the data landed in.
func (m *Manager) CopyFromHost(dst *Buffer, src []byte, n int) error {
	if n < 0 || n > len(src) || n > dst.size {
		log.Panic("invalid copy of %d bytes between regions of %d and %d bytes",
			n, len(src), dst.size)
	}

	dstOnHost := dst.flags.Has(ValidHost)
	if dstOnHost {
		m.unprotectHost(dst)
		if dst.addr() != addrOf(src) && n != 0 {
			checkOverlapRange(dst.addr(), addrOf(src), n)
			copy(dst.data[:n], src[:n])
			m.metrics.copied(routeHtoH, n)
		}
	} else {
		dstDev, err := m.bufferDevicePtr(dst, n)
		if err != nil {
			return err
		}
		m.copier.HtoD(dstDev[:n], src[:n])
		m.metrics.copied(routeHtoD, n)
	}

	if dstOnHost {
		dst.flags.Clear(ValidDevice)
	} else {
		dst.flags.Clear(ValidHost)
	}
	return nil
}

// bufferDevicePtr resolves the device window of a buffer without moving
// any data, allocating device storage lazily for the base record.
func (m *Manager) bufferDevicePtr(b *Buffer, n int) ([]byte, error) {
	if b.flags.Has(IsAlias) {
		return m.aliasDevicePtr(b.addr(), n, false)
	}
	return m.devicePtr(b.addr(), n, false)
}

func checkRange(dst, src *Buffer, n int) {
	if n < 0 || n > dst.size || n > src.size {
		log.Panic("invalid copy of %d bytes between buffers of %d and %d bytes",
			n, src.size, dst.size)
	}
}

// checkOverlap panics if two distinct host ranges overlap. Overlapping
// copies indicate aliasing bugs in the caller.
func checkOverlap(dst, src *Buffer, n int) {
	checkOverlapRange(dst.addr(), src.addr(), n)
}

func checkOverlapRange(d, s uintptr, n int) {
	if d+uintptr(n) > s && s+uintptr(n) > d {
		log.Panic("copy of %d bytes between overlapping regions 0x%x and 0x%x", n, d, s)
	}
}
