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

import "unsafe"

// Capabilities is the decoded struct pqos_cap: which RDT technologies the
// platform and the selected interface expose. Absent technologies are nil.
type Capabilities struct {
	Version uint32
	Mon     *MonCapability
	L3CA    *L3CACapability
	L2CA    *L2CACapability
	MBA     *MBACapability
}

// Supports reports whether every technology in mask was discovered.
func (c *Capabilities) Supports(mask Technology) bool {
	if mask&TechnologyMon != 0 && c.Mon == nil {
		return false
	}
	if mask&TechnologyL3CA != 0 && c.L3CA == nil {
		return false
	}
	if mask&TechnologyL2CA != 0 && c.L2CA == nil {
		return false
	}
	if mask&TechnologyMBA != 0 && c.MBA == nil {
		return false
	}
	return true
}

// MonCapability describes the monitoring part of struct pqos_cap_mon.
type MonCapability struct {
	MaxRMID uint32
	L3Size  uint32
	Events  []MonitorEvent
}

// EventMask returns the union of all supported event bits.
func (m *MonCapability) EventMask() MonEvent {
	var mask MonEvent
	for _, ev := range m.Events {
		mask |= ev.Event
	}
	return mask
}

// MonitorEvent describes one supported monitoring event, mirroring struct
// pqos_monitor.
type MonitorEvent struct {
	Event         MonEvent
	MaxRMID       uint32
	ScaleFactor   uint32
	CounterLength uint32
}

// L3CACapability describes L3 cache allocation, mirroring struct
// pqos_cap_l3ca.
type L3CACapability struct {
	NumClasses    uint32
	NumWays       uint32
	WaySize       uint32
	WayContention uint64
	CDP           bool
	CDPOn         bool
}

// L2CACapability describes L2 cache allocation, mirroring struct
// pqos_cap_l2ca.
type L2CACapability struct {
	NumClasses    uint32
	NumWays       uint32
	WaySize       uint32
	WayContention uint64
	CDP           bool
	CDPOn         bool
}

// MBACapability describes memory bandwidth allocation, mirroring struct
// pqos_cap_mba.
type MBACapability struct {
	NumClasses   uint32
	ThrottleMax  uint32
	ThrottleStep uint32
	IsLinear     bool
	Ctrl         bool
	CtrlOn       bool
}

// Capabilities fetches the capability and CPU topology blocks through
// pqos_cap_get and decodes both.
func (h *Handle) Capabilities() (*Capabilities, *CPUInfo, error) {
	var capPtr, cpuPtr uintptr
	if err := checkRetval("pqos_cap_get", h.lib.CapGet(&capPtr, &cpuPtr)); err != nil {
		return nil, nil, err
	}
	return decodeCapabilities(capPtr), decodeCPUInfo(cpuPtr), nil
}

// decodeCapabilities copies the native capability block into Go values.
// The entries live in one flexible array behind the rawCap header; the
// union payloads are only read up to the members known to this binding, so
// newer library revisions with longer structures decode fine.
func decodeCapabilities(p uintptr) *Capabilities {
	if p == 0 {
		return nil
	}
	base := unsafe.Pointer(p)
	header := (*rawCap)(base)
	caps := &Capabilities{Version: header.version}
	for i := 0; i < int(header.numCap); i++ {
		entry := (*rawCapability)(unsafe.Add(base, int(rawCapSize)+i*int(rawCapabilitySize)))
		if entry.u == 0 {
			continue
		}
		switch entry.capType {
		case capTypeMon:
			caps.Mon = decodeMonCapability(entry.u)
		case capTypeL3CA:
			raw := (*rawCapL3CA)(unsafe.Pointer(entry.u))
			caps.L3CA = &L3CACapability{
				NumClasses:    raw.numClasses,
				NumWays:       raw.numWays,
				WaySize:       raw.waySize,
				WayContention: raw.wayContention,
				CDP:           raw.cdp != 0,
				CDPOn:         raw.cdpOn != 0,
			}
		case capTypeL2CA:
			raw := (*rawCapL2CA)(unsafe.Pointer(entry.u))
			caps.L2CA = &L2CACapability{
				NumClasses:    raw.numClasses,
				NumWays:       raw.numWays,
				WaySize:       raw.waySize,
				WayContention: raw.wayContention,
				CDP:           raw.cdp != 0,
				CDPOn:         raw.cdpOn != 0,
			}
		case capTypeMBA:
			raw := (*rawCapMBA)(unsafe.Pointer(entry.u))
			caps.MBA = &MBACapability{
				NumClasses:   raw.numClasses,
				ThrottleMax:  raw.throttleMax,
				ThrottleStep: raw.throttleStep,
				IsLinear:     raw.isLinear != 0,
				Ctrl:         raw.ctrl != 0,
				CtrlOn:       raw.ctrlOn != 0,
			}
		}
	}
	return caps
}

func decodeMonCapability(p uintptr) *MonCapability {
	base := unsafe.Pointer(p)
	raw := (*rawCapMon)(base)
	mon := &MonCapability{
		MaxRMID: raw.maxRMID,
		L3Size:  raw.l3Size,
		Events:  make([]MonitorEvent, 0, raw.numEvents),
	}
	for i := 0; i < int(raw.numEvents); i++ {
		ev := (*rawMonitor)(unsafe.Add(base, int(rawCapMonSize)+i*int(rawMonitorSize)))
		mon.Events = append(mon.Events, MonitorEvent{
			Event:         MonEvent(ev.eventType),
			MaxRMID:       ev.maxRMID,
			ScaleFactor:   ev.scaleFactor,
			CounterLength: ev.counterLength,
		})
	}
	return mon
}
