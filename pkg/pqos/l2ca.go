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

// L2CA is one L2 class of service definition, with the same CDP mask
// convention as L3CA.
type L2CA struct {
	ClassID  uint32
	CDP      bool
	WaysMask uint64
	DataMask uint64
	CodeMask uint64
}

func (ca L2CA) validate() error {
	if ca.CDP {
		if ca.WaysMask != 0 {
			return errors.Wrapf(ErrInvalidArgument, "class %d: ways mask given together with CDP masks", ca.ClassID)
		}
		return nil
	}
	if ca.DataMask != 0 || ca.CodeMask != 0 {
		return errors.Wrapf(ErrInvalidArgument, "class %d: code/data masks require CDP", ca.ClassID)
	}
	return nil
}

func (ca L2CA) encode() rawL2CA {
	raw := rawL2CA{classID: ca.ClassID}
	if ca.CDP {
		raw.cdp = 1
		raw.dataMask = ca.DataMask
		raw.codeMask = ca.CodeMask
		return raw
	}
	raw.dataMask = ca.WaysMask
	return raw
}

func decodeL2CA(raw rawL2CA) L2CA {
	ca := L2CA{ClassID: raw.classID}
	if raw.cdp != 0 {
		ca.CDP = true
		ca.DataMask = raw.dataMask
		ca.CodeMask = raw.codeMask
		return ca
	}
	ca.WaysMask = raw.dataMask
	return ca
}

// SetL2CA programs L2 classes of service on one L2 cluster.
func (h *Handle) SetL2CA(l2catID uint32, entries []L2CA) error {
	if len(entries) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no classes of service to set")
	}
	raw := make([]rawL2CA, 0, len(entries))
	for _, entry := range entries {
		if err := entry.validate(); err != nil {
			return err
		}
		raw = append(raw, entry.encode())
	}
	code := h.lib.L2CASet(l2catID, uint32(len(raw)), &raw[0])
	runtime.KeepAlive(raw)
	return checkRetval("pqos_l2ca_set", code)
}

// GetL2CA reads the L2 classes of service programmed on one L2 cluster.
func (h *Handle) GetL2CA(l2catID uint32) ([]L2CA, error) {
	caps, _, err := h.Capabilities()
	if err != nil {
		return nil, err
	}
	if caps == nil || caps.L2CA == nil {
		return nil, errors.Wrap(ErrResource, "L2 CAT capability not detected")
	}
	buf := make([]rawL2CA, caps.L2CA.NumClasses)
	var count uint32
	code := h.lib.L2CAGet(l2catID, uint32(len(buf)), &count, &buf[0])
	runtime.KeepAlive(buf)
	if err := checkRetval("pqos_l2ca_get", code); err != nil {
		return nil, err
	}
	if count > uint32(len(buf)) {
		count = uint32(len(buf))
	}
	entries := make([]L2CA, 0, count)
	for _, raw := range buf[:count] {
		entries = append(entries, decodeL2CA(raw))
	}
	return entries, nil
}

// L2CAMinBits returns the smallest number of bits a capacity bit mask may
// have.
func (h *Handle) L2CAMinBits() (uint32, error) {
	var minBits uint32
	if err := checkRetval("pqos_l2ca_get_min_cbm_bits", h.lib.L2CAMinBits(&minBits)); err != nil {
		return 0, err
	}
	return minBits, nil
}
