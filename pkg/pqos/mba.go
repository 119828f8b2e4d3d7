/*
BSD LICENSE

Copyright(c) 2023-2026 Intel Corporation. All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions
are met:

  - Redistributions of source code must retain the above copyright
    notice, this list of conditions and the following disclaimer.
  - Redistributions in binary form must reproduce the above copyright
    notice, this list of conditions and the following disclaimer in
    the documentation and/or other materials provided with the
    distribution.
  - Neither the name of Intel Corporation nor the names of its
    contributors may be used to endorse or promote products derived
    from this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

package pqos

import (
	"runtime"

	"github.com/pkg/errors"
)

// MBA is one memory bandwidth allocation class definition. MBMax is a
// percentage of unthrottled bandwidth, or MBps when Ctrl is set and the
// MBA controller is active.
type MBA struct {
	ClassID uint32
	MBMax   uint32
	Ctrl    bool
}

func (m MBA) encode() rawMBA {
	raw := rawMBA{classID: m.ClassID, mbMax: m.MBMax}
	if m.Ctrl {
		raw.ctrl = 1
	}
	return raw
}

func decodeMBA(raw rawMBA) MBA {
	return MBA{ClassID: raw.classID, MBMax: raw.mbMax, Ctrl: raw.ctrl != 0}
}

// SetMBA programs MBA classes of service on one MBA domain. The returned
// entries carry what the hardware actually granted, which may differ from
// the request on platforms with coarse throttling steps.
func (h *Handle) SetMBA(mbaID uint32, requested []MBA) ([]MBA, error) {
	if len(requested) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "no classes of service to set")
	}
	raw := make([]rawMBA, 0, len(requested))
	for _, entry := range requested {
		raw = append(raw, entry.encode())
	}
	actual := make([]rawMBA, len(raw))
	code := h.lib.MBASet(mbaID, uint32(len(raw)), &raw[0], &actual[0])
	runtime.KeepAlive(raw)
	if err := checkRetval("pqos_mba_set", code); err != nil {
		return nil, err
	}
	granted := make([]MBA, 0, len(actual))
	for _, entry := range actual {
		granted = append(granted, decodeMBA(entry))
	}
	return granted, nil
}

// GetMBA reads the MBA classes of service programmed on one MBA domain.
func (h *Handle) GetMBA(mbaID uint32) ([]MBA, error) {
	caps, _, err := h.Capabilities()
	if err != nil {
		return nil, err
	}
	if caps == nil || caps.MBA == nil {
		return nil, errors.Wrap(ErrResource, "MBA capability not detected")
	}
	buf := make([]rawMBA, caps.MBA.NumClasses)
	var count uint32
	code := h.lib.MBAGet(mbaID, uint32(len(buf)), &count, &buf[0])
	runtime.KeepAlive(buf)
	if err := checkRetval("pqos_mba_get", code); err != nil {
		return nil, err
	}
	if count > uint32(len(buf)) {
		count = uint32(len(buf))
	}
	entries := make([]MBA, 0, count)
	for _, raw := range buf[:count] {
		entries = append(entries, decodeMBA(raw))
	}
	return entries, nil
}
