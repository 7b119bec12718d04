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

	logger "github.com/gridsolve/memmgr/pkg/log"
)

var log = logger.Get("memmgr")

// Dump logs the full ledger contents: one line per residency record with
// host address, device address and residency, and one per alias. A
// debugging aid, not part of the steady-state contract.
func (m *Manager) Dump(context ...interface{}) {
	prefix := formatPrefix(context...)

	m.ledger.mu.RLock()
	defer m.ledger.mu.RUnlock()

	log.Info("%sledger: %d buffers, %d aliases",
		prefix, len(m.ledger.records), len(m.ledger.aliases))

	for a, rec := range m.ledger.records {
		resident := "host"
		if !rec.onHost {
			resident = "device"
		}
		if rec.dev != nil {
			log.Info("%s  host 0x%x, %d bytes, device 0x%x, resident on %s",
				prefix, a, rec.size, addrOf(rec.dev), resident)
		} else {
			log.Info("%s  host 0x%x, %d bytes, no device storage",
				prefix, a, rec.size)
		}
	}

	for a, al := range m.ledger.aliases {
		log.Info("%s  alias 0x%x, base 0x%x, offset %d, refs %d",
			prefix, a, al.rec.hostAddr(), al.offset, al.refs)
	}
}

// DumpFlags logs the state of a buffer's flag bitfield, one flag per
// line.
func (m *Manager) DumpFlags(b *Buffer, context ...interface{}) {
	prefix := formatPrefix(context...)
	for _, fn := range flagNames {
		log.Info("%s  %-13s = %v", prefix, fn.name, b.flags&fn.bit != 0)
	}
}

func formatPrefix(args ...interface{}) string {
	narg := len(args)
	if narg == 0 {
		return ""
	}

	format, ok := args[0].(string)
	if !ok {
		return "%%(!memmgr:Bad-Prefix)"
	}

	if len(args) == 1 {
		return format
	}

	return fmt.Sprintf(format, args[1:]...)
}
