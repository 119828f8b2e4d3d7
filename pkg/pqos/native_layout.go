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

// The raw* types in this file mirror the C structures declared in pqos.h
// for the LP64 data model used on linux/amd64 and linux/arm64. Pointers
// that refer to memory owned by the native library are declared uintptr so
// the garbage collector never follows them; they are converted at the point
// of use. The layouts are pinned by offset assertions in the package tests.

// rawConfig mirrors struct pqos_config passed to pqos_init.
type rawConfig struct {
	fdLog       int32
	_           [4]byte
	callbackLog uintptr
	contextLog  uintptr
	verbose     int32
	iface       int32
	reserved    int32
	_           [4]byte
}

// rawSysConfig mirrors struct pqos_sysconfig returned by pqos_sysconfig_get.
// All three members point into library-owned memory.
type rawSysConfig struct {
	cap uintptr
	cpu uintptr
	dev uintptr
}

// rawCap mirrors the header of struct pqos_cap. A flexible array of
// rawCapability entries of length numCap follows the header in memory,
// starting at rawCapSize.
type rawCap struct {
	memSize uint32
	version uint32
	numCap  uint32
	_       [4]byte
}

const rawCapSize = unsafe.Sizeof(rawCap{})

// rawCapability mirrors struct pqos_capability, a tagged union of pointers
// to the per-technology capability structures.
type rawCapability struct {
	capType int32
	_       [4]byte
	u       uintptr
}

const rawCapabilitySize = unsafe.Sizeof(rawCapability{})

// Values of enum pqos_cap_type.
const (
	capTypeMon  = 0
	capTypeL3CA = 1
	capTypeL2CA = 2
	capTypeMBA  = 3
)

// rawCapMon mirrors the header of struct pqos_cap_mon. A flexible array of
// rawMonitor entries of length numEvents follows the header.
type rawCapMon struct {
	memSize   uint32
	maxRMID   uint32
	l3Size    uint32
	numEvents uint32
}

const rawCapMonSize = unsafe.Sizeof(rawCapMon{})

// rawMonitor mirrors struct pqos_monitor, one supported monitoring event.
type rawMonitor struct {
	eventType     int32
	maxRMID       uint32
	scaleFactor   uint32
	counterLength uint32
}

const rawMonitorSize = unsafe.Sizeof(rawMonitor{})

// rawCapL3CA mirrors the leading members of struct pqos_cap_l3ca. Later
// library revisions append further members; memSize tells the real extent
// and nothing here reads past the members below.
type rawCapL3CA struct {
	memSize       uint32
	numClasses    uint32
	numWays       uint32
	waySize       uint32
	wayContention uint64
	cdp           int32
	cdpOn         int32
}

// rawCapL2CA mirrors the leading members of struct pqos_cap_l2ca.
type rawCapL2CA struct {
	memSize       uint32
	numClasses    uint32
	numWays       uint32
	waySize       uint32
	wayContention uint64
	cdp           int32
	cdpOn         int32
}

// rawCapMBA mirrors the leading members of struct pqos_cap_mba.
type rawCapMBA struct {
	memSize      uint32
	numClasses   uint32
	throttleMax  uint32
	throttleStep uint32
	isLinear     int32
	ctrl         int32
	ctrlOn       int32
}

// rawCacheInfo mirrors the anonymous cache descriptor embedded twice in
// struct pqos_cpuinfo.
type rawCacheInfo struct {
	detected      uint32
	numWays       uint32
	numSets       uint32
	numPartitions uint32
	lineSize      uint32
	totalSize     uint32
	waySize       uint32
}

// rawCPUInfo mirrors the header of struct pqos_cpuinfo. A flexible array of
// rawCoreInfo entries of length numCores follows the header.
type rawCPUInfo struct {
	memSize  uint32
	l2       rawCacheInfo
	l3       rawCacheInfo
	vendor   int32
	numCores uint32
}

const rawCPUInfoSize = unsafe.Sizeof(rawCPUInfo{})

// rawCoreInfo mirrors struct pqos_coreinfo, the topology record for one
// logical core.
type rawCoreInfo struct {
	lcore   uint32
	socket  uint32
	l3ID    uint32
	l2ID    uint32
	l3catID uint32
	mbaID   uint32
}

const rawCoreInfoSize = unsafe.Sizeof(rawCoreInfo{})

// rawEventValues mirrors struct pqos_event_values, the counter block
// embedded in every monitoring group.
type rawEventValues struct {
	llc                uint64
	mbmLocal           uint64
	mbmTotal           uint64
	mbmRemote          uint64
	mbmLocalDelta      uint64
	mbmTotalDelta      uint64
	mbmRemoteDelta     uint64
	ipcRetired         uint64
	ipcRetiredDelta    uint64
	ipcUnhalted        uint64
	ipcUnhaltedDelta   uint64
	ipc                float64
	llcMisses          uint64
	llcMissesDelta     uint64
	llcReferences      uint64
	llcReferencesDelta uint64
}

// rawMonData mirrors struct pqos_mon_data. The binding allocates it and the
// library fills it; pids, cores and intl point into library-owned memory.
type rawMonData struct {
	valid    int32
	event    int32
	context  uintptr
	values   rawEventValues
	numPids  uint32
	_        [4]byte
	pids     uintptr
	numCores uint32
	_        [4]byte
	cores    uintptr
	intl     uintptr
}

// rawL3CA mirrors struct pqos_l3ca. dataMask aliases the plain ways mask
// when CDP is off, matching the C union.
type rawL3CA struct {
	classID  uint32
	cdp      int32
	dataMask uint64
	codeMask uint64
}

// rawL2CA mirrors struct pqos_l2ca with the same union convention.
type rawL2CA struct {
	classID  uint32
	cdp      int32
	dataMask uint64
	codeMask uint64
}

// rawMBA mirrors struct pqos_mba.
type rawMBA struct {
	classID uint32
	mbMax   uint32
	ctrl    int32
}
