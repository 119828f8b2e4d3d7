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

// Technology is a bit mask of RDT technologies, one bit per capability
// type.
type Technology uint32

const (
	TechnologyMon  Technology = 1 << capTypeMon
	TechnologyL3CA Technology = 1 << capTypeL3CA
	TechnologyL2CA Technology = 1 << capTypeL2CA
	TechnologyMBA  Technology = 1 << capTypeMBA
)

// CDPConfig selects code and data prioritization behavior for AllocReset,
// matching enum pqos_cdp_config.
type CDPConfig int32

const (
	CDPOff CDPConfig = 0
	CDPOn  CDPConfig = 1
	CDPAny CDPConfig = 2
)

// MBAMode selects MBA controller behavior for AllocReset, matching enum
// pqos_mba_config.
type MBAMode int32

const (
	MBAModeDefault MBAMode = 0
	MBAModeCtrl    MBAMode = 1
	MBAModeAny     MBAMode = 2
)

// AssocSet associates a logical core with a class of service.
func (h *Handle) AssocSet(lcore, classID uint32) error {
	return checkRetval("pqos_alloc_assoc_set", h.lib.AllocAssocSet(lcore, classID))
}

// AssocGet returns the class of service a logical core is associated with.
func (h *Handle) AssocGet(lcore uint32) (uint32, error) {
	var classID uint32
	if err := checkRetval("pqos_alloc_assoc_get", h.lib.AllocAssocGet(lcore, &classID)); err != nil {
		return 0, err
	}
	return classID, nil
}

// AssocSetPid associates a process with a class of service. Only the OS
// interface supports PID association.
func (h *Handle) AssocSetPid(pid int, classID uint32) error {
	return checkRetval("pqos_alloc_assoc_set_pid", h.lib.AllocAssocSetPid(int32(pid), classID))
}

// AssocGetPid returns the class of service a process is associated with.
func (h *Handle) AssocGetPid(pid int) (uint32, error) {
	var classID uint32
	if err := checkRetval("pqos_alloc_assoc_get_pid", h.lib.AllocAssocGetPid(int32(pid), &classID)); err != nil {
		return 0, err
	}
	return classID, nil
}

// AllocAssign picks the first unused class of service for the given
// technologies, associates the cores with it and returns its id.
func (h *Handle) AllocAssign(technology Technology, cores []uint32) (uint32, error) {
	if len(cores) == 0 {
		return 0, errors.Wrap(ErrInvalidArgument, "no cores to assign")
	}
	var classID uint32
	code := h.lib.AllocAssign(uint32(technology), &cores[0], uint32(len(cores)), &classID)
	runtime.KeepAlive(cores)
	if err := checkRetval("pqos_alloc_assign", code); err != nil {
		return 0, err
	}
	return classID, nil
}

// AllocRelease puts the cores back into the default class of service.
func (h *Handle) AllocRelease(cores []uint32) error {
	if len(cores) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no cores to release")
	}
	code := h.lib.AllocRelease(&cores[0], uint32(len(cores)))
	runtime.KeepAlive(cores)
	return checkRetval("pqos_alloc_release", code)
}

// AllocAssignPids picks the first unused class of service for the given
// technologies, associates the processes with it and returns its id.
func (h *Handle) AllocAssignPids(technology Technology, pids []int) (uint32, error) {
	if len(pids) == 0 {
		return 0, errors.Wrap(ErrInvalidArgument, "no pids to assign")
	}
	raw := pidArray(pids)
	var classID uint32
	code := h.lib.AllocAssignPid(uint32(technology), &raw[0], uint32(len(raw)), &classID)
	runtime.KeepAlive(raw)
	if err := checkRetval("pqos_alloc_assign_pid", code); err != nil {
		return 0, err
	}
	return classID, nil
}

// AllocReleasePids puts the processes back into the default class of
// service.
func (h *Handle) AllocReleasePids(pids []int) error {
	if len(pids) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no pids to release")
	}
	raw := pidArray(pids)
	code := h.lib.AllocReleasePid(&raw[0], uint32(len(raw)))
	runtime.KeepAlive(raw)
	return checkRetval("pqos_alloc_release_pid", code)
}

// AllocReset reverts all allocation configuration to the default state,
// optionally switching CDP and the MBA controller on the way.
func (h *Handle) AllocReset(l3CDP, l2CDP CDPConfig, mba MBAMode) error {
	return checkRetval("pqos_alloc_reset", h.lib.AllocReset(int32(l3CDP), int32(l2CDP), int32(mba)))
}
