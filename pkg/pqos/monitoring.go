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
	"strings"
	"unsafe"

	"github.com/pkg/errors"
)

// MonEvent is a bit mask of monitoring events, matching enum
// pqos_mon_event.
type MonEvent uint32

const (
	// MonEventL3Occup tracks L3 cache occupancy (CMT).
	MonEventL3Occup MonEvent = 1 << 0
	// MonEventLocalMemBW tracks local-socket memory bandwidth (MBM).
	MonEventLocalMemBW MonEvent = 1 << 1
	// MonEventTotalMemBW tracks total memory bandwidth (MBM).
	MonEventTotalMemBW MonEvent = 1 << 2
	// MonEventRemoteMemBW tracks remote-socket memory bandwidth (MBM).
	MonEventRemoteMemBW MonEvent = 1 << 3
	// PerfEventLLCMiss counts LLC misses through perf.
	PerfEventLLCMiss MonEvent = 0x4000
	// PerfEventIPC derives instructions per cycle through perf.
	PerfEventIPC MonEvent = 0x8000
	// PerfEventLLCRef counts LLC references through perf.
	PerfEventLLCRef MonEvent = 0x10000
)

// monEventNames follows the event naming of the pqos command line tool.
var monEventNames = []struct {
	name  string
	event MonEvent
}{
	{"llc", MonEventL3Occup},
	{"mbl", MonEventLocalMemBW},
	{"mbt", MonEventTotalMemBW},
	{"mbr", MonEventRemoteMemBW},
	{"misses", PerfEventLLCMiss},
	{"ipc", PerfEventIPC},
	{"refs", PerfEventLLCRef},
}

func (e MonEvent) String() string {
	var names []string
	for _, entry := range monEventNames {
		if e&entry.event != 0 {
			names = append(names, entry.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ParseMonEvents maps event names to a mask. "all" selects every RMID
// backed event, so the perf based ones still have to be named explicitly.
func ParseMonEvents(names []string) (MonEvent, error) {
	var mask MonEvent
	for _, name := range names {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "all" {
			mask |= MonEventL3Occup | MonEventLocalMemBW | MonEventTotalMemBW | MonEventRemoteMemBW
			continue
		}
		found := false
		for _, entry := range monEventNames {
			if entry.name == normalized {
				mask |= entry.event
				found = true
				break
			}
		}
		if !found {
			return 0, errors.Wrapf(ErrInvalidArgument, "unknown monitoring event %q (available: llc, mbl, mbt, mbr, misses, ipc, refs, all)", name)
		}
	}
	if mask == 0 {
		return 0, errors.Wrap(ErrInvalidArgument, "no monitoring events selected")
	}
	return mask, nil
}

// MonValues is one snapshot of a group's counters. The MBM deltas cover
// the span between the two most recent polls.
type MonValues struct {
	LLC                uint64
	MBMLocal           uint64
	MBMTotal           uint64
	MBMRemote          uint64
	MBMLocalDelta      uint64
	MBMTotalDelta      uint64
	MBMRemoteDelta     uint64
	IPC                float64
	LLCMisses          uint64
	LLCMissesDelta     uint64
	LLCReferences      uint64
	LLCReferencesDelta uint64
}

// MonGroup is one active monitoring group. The embedded native state is
// owned by this binding and filled by the library on every poll; it must
// not be copied, and Stop releases the library side.
type MonGroup struct {
	lib   nativeLib
	data  *rawMonData
	event MonEvent
	cores []uint32
	pids  []int
}

// Event returns the events the group was started with.
func (g *MonGroup) Event() MonEvent { return g.event }

// Cores returns the monitored cores for a core group, nil otherwise.
func (g *MonGroup) Cores() []uint32 {
	out := make([]uint32, len(g.cores))
	copy(out, g.cores)
	return out
}

// Pids returns the monitored PIDs for a PID group, nil otherwise.
func (g *MonGroup) Pids() []int {
	out := make([]int, len(g.pids))
	copy(out, g.pids)
	return out
}

// Values returns the counters from the most recent poll.
func (g *MonGroup) Values() MonValues {
	v := g.data.values
	return MonValues{
		LLC:                v.llc,
		MBMLocal:           v.mbmLocal,
		MBMTotal:           v.mbmTotal,
		MBMRemote:          v.mbmRemote,
		MBMLocalDelta:      v.mbmLocalDelta,
		MBMTotalDelta:      v.mbmTotalDelta,
		MBMRemoteDelta:     v.mbmRemoteDelta,
		IPC:                v.ipc,
		LLCMisses:          v.llcMisses,
		LLCMissesDelta:     v.llcMissesDelta,
		LLCReferences:      v.llcReferences,
		LLCReferencesDelta: v.llcReferencesDelta,
	}
}

// MonStartCores starts monitoring the given logical cores as one group.
// Cores already tracked by another group make pqos_mon_start fail.
func (h *Handle) MonStartCores(cores []uint32, events MonEvent) (*MonGroup, error) {
	if len(cores) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "no cores to monitor")
	}
	if events == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "no monitoring events selected")
	}
	owned := make([]uint32, len(cores))
	copy(owned, cores)

	group := &MonGroup{lib: h.lib, data: &rawMonData{}, event: events, cores: owned}
	code := h.lib.MonStart(uint32(len(owned)), &owned[0], uint32(events), 0, group.data)
	runtime.KeepAlive(owned)
	if err := checkRetval("pqos_mon_start", code); err != nil {
		return nil, err
	}
	return group, nil
}

// MonStartPids starts monitoring the given process ids as one group.
func (h *Handle) MonStartPids(pids []int, events MonEvent) (*MonGroup, error) {
	if len(pids) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "no pids to monitor")
	}
	if events == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "no monitoring events selected")
	}
	owned := make([]int, len(pids))
	copy(owned, pids)
	raw := pidArray(owned)

	group := &MonGroup{lib: h.lib, data: &rawMonData{}, event: events, pids: owned}
	code := h.lib.MonStartPids(uint32(len(raw)), &raw[0], uint32(events), 0, group.data)
	runtime.KeepAlive(raw)
	if err := checkRetval("pqos_mon_start_pids", code); err != nil {
		return nil, err
	}
	return group, nil
}

// AddPids extends a PID group with further processes.
func (g *MonGroup) AddPids(pids []int) error {
	if len(pids) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no pids to add")
	}
	raw := pidArray(pids)
	code := g.lib.MonAddPids(uint32(len(raw)), &raw[0], g.data)
	runtime.KeepAlive(raw)
	if err := checkRetval("pqos_mon_add_pids", code); err != nil {
		return err
	}
	g.pids = append(g.pids, pids...)
	return nil
}

// RemovePids drops processes from a PID group.
func (g *MonGroup) RemovePids(pids []int) error {
	if len(pids) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no pids to remove")
	}
	raw := pidArray(pids)
	code := g.lib.MonRemovePids(uint32(len(raw)), &raw[0], g.data)
	runtime.KeepAlive(raw)
	if err := checkRetval("pqos_mon_remove_pids", code); err != nil {
		return err
	}
	removed := map[int]struct{}{}
	for _, pid := range pids {
		removed[pid] = struct{}{}
	}
	kept := g.pids[:0]
	for _, pid := range g.pids {
		if _, ok := removed[pid]; !ok {
			kept = append(kept, pid)
		}
	}
	g.pids = kept
	return nil
}

// Stop ends monitoring for the group and frees its library-side state.
func (g *MonGroup) Stop() error {
	return checkRetval("pqos_mon_stop", g.lib.MonStop(g.data))
}

// MonPoll refreshes the counters of all given groups in one native call.
func (h *Handle) MonPoll(groups ...*MonGroup) error {
	if len(groups) == 0 {
		return nil
	}
	ptrs := make([]uintptr, len(groups))
	for i, group := range groups {
		if group == nil || group.data == nil {
			return errors.Wrap(ErrInvalidArgument, "nil monitoring group")
		}
		ptrs[i] = uintptr(unsafe.Pointer(group.data))
	}
	code := h.lib.MonPoll(&ptrs[0], uint32(len(groups)))
	runtime.KeepAlive(groups)
	return checkRetval("pqos_mon_poll", code)
}

// MonReset wipes all monitoring state, including groups started by other
// processes.
func (h *Handle) MonReset() error {
	return checkRetval("pqos_mon_reset", h.lib.MonReset())
}

func pidArray(pids []int) []int32 {
	raw := make([]int32, len(pids))
	for i, pid := range pids {
		raw[i] = int32(pid)
	}
	return raw
}
