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
	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// LibraryName is the soname of the native library this package binds to.
const LibraryName = "libpqos.so.5"

// nativeLib is the set of libpqos entry points the binding calls. Handle
// methods go through this interface only, so tests substitute a recording
// implementation without any shared library on the machine.
type nativeLib interface {
	Init(cfg *rawConfig) int32
	Fini() int32
	SysConfigGet(out *uintptr) int32
	CapGet(cap, cpu *uintptr) int32

	MonReset() int32
	MonStart(numCores uint32, cores *uint32, event uint32, context uintptr, group *rawMonData) int32
	MonStartPids(numPids uint32, pids *int32, event uint32, context uintptr, group *rawMonData) int32
	MonAddPids(numPids uint32, pids *int32, group *rawMonData) int32
	MonRemovePids(numPids uint32, pids *int32, group *rawMonData) int32
	MonPoll(groups *uintptr, numGroups uint32) int32
	MonStop(group *rawMonData) int32

	AllocAssocSet(lcore, classID uint32) int32
	AllocAssocGet(lcore uint32, classID *uint32) int32
	AllocAssocSetPid(pid int32, classID uint32) int32
	AllocAssocGetPid(pid int32, classID *uint32) int32
	AllocAssign(technology uint32, cores *uint32, numCores uint32, classID *uint32) int32
	AllocRelease(cores *uint32, numCores uint32) int32
	AllocAssignPid(technology uint32, pids *int32, numPids uint32, classID *uint32) int32
	AllocReleasePid(pids *int32, numPids uint32) int32
	AllocReset(l3CDP, l2CDP, mba int32) int32

	L3CASet(l3catID, numCOS uint32, ca *rawL3CA) int32
	L3CAGet(l3catID, maxNumCA uint32, numCA *uint32, ca *rawL3CA) int32
	L3CAMinBits(minBits *uint32) int32
	L2CASet(l2catID, numCOS uint32, ca *rawL2CA) int32
	L2CAGet(l2catID, maxNumCA uint32, numCA *uint32, ca *rawL2CA) int32
	L2CAMinBits(minBits *uint32) int32
	MBASet(mbaID, numCOS uint32, requested, actual *rawMBA) int32
	MBAGet(mbaID, maxNumCOS uint32, numCOS *uint32, mba *rawMBA) int32
}

// openNative resolves the native library. It is a variable so tests can
// point Acquire at a fake loader.
var openNative = openNativeLib

// dlLib is the production nativeLib, dispatching through function pointers
// resolved from the shared library at load time.
type dlLib struct {
	init         func(*rawConfig) int32
	fini         func() int32
	sysConfigGet func(*uintptr) int32
	capGet       func(*uintptr, *uintptr) int32

	monReset      func() int32
	monStart      func(uint32, *uint32, uint32, uintptr, *rawMonData) int32
	monStartPids  func(uint32, *int32, uint32, uintptr, *rawMonData) int32
	monAddPids    func(uint32, *int32, *rawMonData) int32
	monRemovePids func(uint32, *int32, *rawMonData) int32
	monPoll       func(*uintptr, uint32) int32
	monStop       func(*rawMonData) int32

	allocAssocSet    func(uint32, uint32) int32
	allocAssocGet    func(uint32, *uint32) int32
	allocAssocSetPid func(int32, uint32) int32
	allocAssocGetPid func(int32, *uint32) int32
	allocAssign      func(uint32, *uint32, uint32, *uint32) int32
	allocRelease     func(*uint32, uint32) int32
	allocAssignPid   func(uint32, *int32, uint32, *uint32) int32
	allocReleasePid  func(*int32, uint32) int32
	allocReset       func(int32, int32, int32) int32

	l3caSet     func(uint32, uint32, *rawL3CA) int32
	l3caGet     func(uint32, uint32, *uint32, *rawL3CA) int32
	l3caMinBits func(*uint32) int32
	l2caSet     func(uint32, uint32, *rawL2CA) int32
	l2caGet     func(uint32, uint32, *uint32, *rawL2CA) int32
	l2caMinBits func(*uint32) int32
	mbaSet      func(uint32, uint32, *rawMBA, *rawMBA) int32
	mbaGet      func(uint32, uint32, *uint32, *rawMBA) int32
}

// openNativeLib dlopens the library and resolves every entry point up
// front, so a truncated or mismatched install surfaces as a LoadError at
// Acquire time instead of a panic on first use.
func openNativeLib() (nativeLib, error) {
	handle, err := purego.Dlopen(LibraryName, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, &LoadError{Library: LibraryName, Err: err}
	}

	lib := &dlLib{}
	for _, entry := range []struct {
		fptr interface{}
		name string
	}{
		{&lib.init, "pqos_init"},
		{&lib.fini, "pqos_fini"},
		{&lib.sysConfigGet, "pqos_sysconfig_get"},
		{&lib.capGet, "pqos_cap_get"},
		{&lib.monReset, "pqos_mon_reset"},
		{&lib.monStart, "pqos_mon_start"},
		{&lib.monStartPids, "pqos_mon_start_pids"},
		{&lib.monAddPids, "pqos_mon_add_pids"},
		{&lib.monRemovePids, "pqos_mon_remove_pids"},
		{&lib.monPoll, "pqos_mon_poll"},
		{&lib.monStop, "pqos_mon_stop"},
		{&lib.allocAssocSet, "pqos_alloc_assoc_set"},
		{&lib.allocAssocGet, "pqos_alloc_assoc_get"},
		{&lib.allocAssocSetPid, "pqos_alloc_assoc_set_pid"},
		{&lib.allocAssocGetPid, "pqos_alloc_assoc_get_pid"},
		{&lib.allocAssign, "pqos_alloc_assign"},
		{&lib.allocRelease, "pqos_alloc_release"},
		{&lib.allocAssignPid, "pqos_alloc_assign_pid"},
		{&lib.allocReleasePid, "pqos_alloc_release_pid"},
		{&lib.allocReset, "pqos_alloc_reset"},
		{&lib.l3caSet, "pqos_l3ca_set"},
		{&lib.l3caGet, "pqos_l3ca_get"},
		{&lib.l3caMinBits, "pqos_l3ca_get_min_cbm_bits"},
		{&lib.l2caSet, "pqos_l2ca_set"},
		{&lib.l2caGet, "pqos_l2ca_get"},
		{&lib.l2caMinBits, "pqos_l2ca_get_min_cbm_bits"},
		{&lib.mbaSet, "pqos_mba_set"},
		{&lib.mbaGet, "pqos_mba_get"},
	} {
		sym, err := purego.Dlsym(handle, entry.name)
		if err != nil {
			return nil, &LoadError{Library: LibraryName, Err: errors.Wrapf(err, "failed to resolve %s", entry.name)}
		}
		purego.RegisterFunc(entry.fptr, sym)
	}
	return lib, nil
}

func (l *dlLib) Init(cfg *rawConfig) int32       { return l.init(cfg) }
func (l *dlLib) Fini() int32                     { return l.fini() }
func (l *dlLib) SysConfigGet(out *uintptr) int32 { return l.sysConfigGet(out) }
func (l *dlLib) CapGet(cap, cpu *uintptr) int32  { return l.capGet(cap, cpu) }

func (l *dlLib) MonReset() int32 { return l.monReset() }

func (l *dlLib) MonStart(numCores uint32, cores *uint32, event uint32, context uintptr, group *rawMonData) int32 {
	return l.monStart(numCores, cores, event, context, group)
}

func (l *dlLib) MonStartPids(numPids uint32, pids *int32, event uint32, context uintptr, group *rawMonData) int32 {
	return l.monStartPids(numPids, pids, event, context, group)
}

func (l *dlLib) MonAddPids(numPids uint32, pids *int32, group *rawMonData) int32 {
	return l.monAddPids(numPids, pids, group)
}

func (l *dlLib) MonRemovePids(numPids uint32, pids *int32, group *rawMonData) int32 {
	return l.monRemovePids(numPids, pids, group)
}

func (l *dlLib) MonPoll(groups *uintptr, numGroups uint32) int32 {
	return l.monPoll(groups, numGroups)
}

func (l *dlLib) MonStop(group *rawMonData) int32 { return l.monStop(group) }

func (l *dlLib) AllocAssocSet(lcore, classID uint32) int32 {
	return l.allocAssocSet(lcore, classID)
}

func (l *dlLib) AllocAssocGet(lcore uint32, classID *uint32) int32 {
	return l.allocAssocGet(lcore, classID)
}

func (l *dlLib) AllocAssocSetPid(pid int32, classID uint32) int32 {
	return l.allocAssocSetPid(pid, classID)
}

func (l *dlLib) AllocAssocGetPid(pid int32, classID *uint32) int32 {
	return l.allocAssocGetPid(pid, classID)
}

func (l *dlLib) AllocAssign(technology uint32, cores *uint32, numCores uint32, classID *uint32) int32 {
	return l.allocAssign(technology, cores, numCores, classID)
}

func (l *dlLib) AllocRelease(cores *uint32, numCores uint32) int32 {
	return l.allocRelease(cores, numCores)
}

func (l *dlLib) AllocAssignPid(technology uint32, pids *int32, numPids uint32, classID *uint32) int32 {
	return l.allocAssignPid(technology, pids, numPids, classID)
}

func (l *dlLib) AllocReleasePid(pids *int32, numPids uint32) int32 {
	return l.allocReleasePid(pids, numPids)
}

func (l *dlLib) AllocReset(l3CDP, l2CDP, mba int32) int32 {
	return l.allocReset(l3CDP, l2CDP, mba)
}

func (l *dlLib) L3CASet(l3catID, numCOS uint32, ca *rawL3CA) int32 {
	return l.l3caSet(l3catID, numCOS, ca)
}

func (l *dlLib) L3CAGet(l3catID, maxNumCA uint32, numCA *uint32, ca *rawL3CA) int32 {
	return l.l3caGet(l3catID, maxNumCA, numCA, ca)
}

func (l *dlLib) L3CAMinBits(minBits *uint32) int32 { return l.l3caMinBits(minBits) }

func (l *dlLib) L2CASet(l2catID, numCOS uint32, ca *rawL2CA) int32 {
	return l.l2caSet(l2catID, numCOS, ca)
}

func (l *dlLib) L2CAGet(l2catID, maxNumCA uint32, numCA *uint32, ca *rawL2CA) int32 {
	return l.l2caGet(l2catID, maxNumCA, numCA, ca)
}

func (l *dlLib) L2CAMinBits(minBits *uint32) int32 { return l.l2caMinBits(minBits) }

func (l *dlLib) MBASet(mbaID, numCOS uint32, requested, actual *rawMBA) int32 {
	return l.mbaSet(mbaID, numCOS, requested, actual)
}

func (l *dlLib) MBAGet(mbaID, maxNumCOS uint32, numCOS *uint32, mba *rawMBA) int32 {
	return l.mbaGet(mbaID, maxNumCOS, numCOS, mba)
}
