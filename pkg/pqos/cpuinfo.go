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
	"sort"
	"unsafe"

	"github.com/samber/lo"
)

// Vendor identifies the CPU vendor reported by the library.
type Vendor int32

const (
	VendorUnknown Vendor = 0
	VendorIntel   Vendor = 1
	VendorAMD     Vendor = 2
)

func (v Vendor) String() string {
	switch v {
	case VendorIntel:
		return "Intel"
	case VendorAMD:
		return "AMD"
	default:
		return "unknown"
	}
}

// CacheInfo describes one cache level as detected by the library.
type CacheInfo struct {
	Detected      bool
	NumWays       uint32
	NumSets       uint32
	NumPartitions uint32
	LineSize      uint32
	TotalSize     uint32
	WaySize       uint32
}

// CoreInfo is the topology record for one logical core, mirroring struct
// pqos_coreinfo. The id fields group cores sharing an L3/L2 cache and the
// L3 CAT and MBA programming domains.
type CoreInfo struct {
	Lcore   uint32
	Socket  uint32
	L3ID    uint32
	L2ID    uint32
	L3CATID uint32
	MBAID   uint32
}

// CPUInfo is the decoded struct pqos_cpuinfo.
type CPUInfo struct {
	Vendor Vendor
	L2     CacheInfo
	L3     CacheInfo
	Cores  []CoreInfo
}

// decodeCPUInfo copies the native CPU topology block into Go values.
func decodeCPUInfo(p uintptr) *CPUInfo {
	if p == 0 {
		return nil
	}
	base := unsafe.Pointer(p)
	raw := (*rawCPUInfo)(base)
	info := &CPUInfo{
		Vendor: Vendor(raw.vendor),
		L2:     decodeCacheInfo(raw.l2),
		L3:     decodeCacheInfo(raw.l3),
		Cores:  make([]CoreInfo, 0, raw.numCores),
	}
	for i := 0; i < int(raw.numCores); i++ {
		core := (*rawCoreInfo)(unsafe.Add(base, int(rawCPUInfoSize)+i*int(rawCoreInfoSize)))
		info.Cores = append(info.Cores, CoreInfo{
			Lcore:   core.lcore,
			Socket:  core.socket,
			L3ID:    core.l3ID,
			L2ID:    core.l2ID,
			L3CATID: core.l3catID,
			MBAID:   core.mbaID,
		})
	}
	return info
}

func decodeCacheInfo(raw rawCacheInfo) CacheInfo {
	return CacheInfo{
		Detected:      raw.detected != 0,
		NumWays:       raw.numWays,
		NumSets:       raw.numSets,
		NumPartitions: raw.numPartitions,
		LineSize:      raw.lineSize,
		TotalSize:     raw.totalSize,
		WaySize:       raw.waySize,
	}
}

// Sockets returns the sorted distinct socket ids.
func (c *CPUInfo) Sockets() []uint32 {
	return sortedUniq(lo.Map(c.Cores, func(core CoreInfo, _ int) uint32 { return core.Socket }))
}

// L3CATIDs returns the sorted distinct L3 CAT programming domain ids.
func (c *CPUInfo) L3CATIDs() []uint32 {
	return sortedUniq(lo.Map(c.Cores, func(core CoreInfo, _ int) uint32 { return core.L3CATID }))
}

// MBAIDs returns the sorted distinct MBA programming domain ids.
func (c *CPUInfo) MBAIDs() []uint32 {
	return sortedUniq(lo.Map(c.Cores, func(core CoreInfo, _ int) uint32 { return core.MBAID }))
}

// L2IDs returns the sorted distinct L2 cache ids.
func (c *CPUInfo) L2IDs() []uint32 {
	return sortedUniq(lo.Map(c.Cores, func(core CoreInfo, _ int) uint32 { return core.L2ID }))
}

// SocketCores returns the logical cores on one socket, sorted.
func (c *CPUInfo) SocketCores(socket uint32) []uint32 {
	cores := lo.FilterMap(c.Cores, func(core CoreInfo, _ int) (uint32, bool) {
		return core.Lcore, core.Socket == socket
	})
	sort.Slice(cores, func(i, j int) bool { return cores[i] < cores[j] })
	return cores
}

// L3Cores returns the logical cores sharing one L3 cache, sorted.
func (c *CPUInfo) L3Cores(l3ID uint32) []uint32 {
	cores := lo.FilterMap(c.Cores, func(core CoreInfo, _ int) (uint32, bool) {
		return core.Lcore, core.L3ID == l3ID
	})
	sort.Slice(cores, func(i, j int) bool { return cores[i] < cores[j] })
	return cores
}

// Core looks a logical core up by id.
func (c *CPUInfo) Core(lcore uint32) (CoreInfo, bool) {
	return lo.Find(c.Cores, func(core CoreInfo) bool { return core.Lcore == lcore })
}

func sortedUniq(ids []uint32) []uint32 {
	ids = lo.Uniq(ids)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
