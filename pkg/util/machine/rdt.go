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

package machine

import (
	"bufio"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/moby/sys/mountinfo"
	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

const (
	defaultProcRoot = "/proc"
	resctrlFSType   = "resctrl"
	msrDevicePath   = "/dev/cpu/0/msr"
)

// rdtCPUFlags are the /proc/cpuinfo feature names the kernel exposes for
// cache monitoring and allocation hardware.
var rdtCPUFlags = []string{
	"cqm",
	"cqm_llc",
	"cqm_occup_llc",
	"cqm_mbm_total",
	"cqm_mbm_local",
	"cat_l3",
	"cdp_l3",
	"cat_l2",
	"cdp_l2",
	"mba",
}

// RDTSupport describes what the host offers for cache monitoring and
// allocation: the CPU identity, the relevant cpuinfo flags, and whether
// the two access routes (resctrl and the MSR device) are available.
type RDTSupport struct {
	CPUVendor cpuid.Vendor
	BrandName string
	Family    int
	Model     int

	// CPUFlags holds the subset of /proc/cpuinfo flags related to
	// monitoring and allocation, in cpuinfo order.
	CPUFlags []string

	ResctrlInKernel   bool
	ResctrlMounted    bool
	ResctrlMountPoint string
	MSRDevice         bool
}

// HasFlag reports whether the kernel advertised the given cpuinfo flag.
func (s *RDTSupport) HasFlag(name string) bool {
	return lo.Contains(s.CPUFlags, name)
}

// SupportsMonitoring reports whether any monitoring feature is present.
func (s *RDTSupport) SupportsMonitoring() bool {
	return s.HasFlag("cqm_occup_llc") || s.HasFlag("cqm_mbm_total") || s.HasFlag("cqm_mbm_local")
}

// SupportsAllocation reports whether any allocation feature is present.
func (s *RDTSupport) SupportsAllocation() bool {
	return s.HasFlag("cat_l3") || s.HasFlag("cat_l2") || s.HasFlag("mba")
}

// HostProber inspects the running host. The filesystem and the proc
// mount point are configurable for tests.
type HostProber struct {
	fs       afero.Fs
	procRoot string
}

func NewHostProber() *HostProber {
	return &HostProber{
		fs:       afero.NewOsFs(),
		procRoot: defaultProcRoot,
	}
}

// Probe collects the RDT related state of the host.
func (p *HostProber) Probe() (*RDTSupport, error) {
	support := &RDTSupport{
		CPUVendor: cpuid.CPU.VendorID,
		BrandName: cpuid.CPU.BrandName,
		Family:    cpuid.CPU.Family,
		Model:     cpuid.CPU.Model,
	}

	flags, err := p.cpuFlags()
	if err != nil {
		return nil, err
	}
	support.CPUFlags = flags

	inKernel, err := p.resctrlInKernel()
	if err != nil {
		return nil, err
	}
	support.ResctrlInKernel = inKernel

	mounted, mountPoint, err := p.resctrlMount()
	if err != nil {
		return nil, err
	}
	support.ResctrlMounted = mounted
	support.ResctrlMountPoint = mountPoint

	support.MSRDevice = p.msrDeviceReady()

	return support, nil
}

func (p *HostProber) msrDeviceReady() bool {
	_, err := p.fs.Stat(msrDevicePath)
	return err == nil
}

func (p *HostProber) cpuFlags() ([]string, error) {
	fs, err := procfs.NewFS(p.procRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open procfs at %s", p.procRoot)
	}
	info, err := fs.CPUInfo()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cpuinfo")
	}
	if len(info) == 0 {
		return nil, errors.New("cpuinfo lists no processors")
	}

	wanted := lo.SliceToMap(rdtCPUFlags, func(flag string) (string, struct{}) {
		return flag, struct{}{}
	})
	return lo.Filter(info[0].Flags, func(flag string, _ int) bool {
		_, ok := wanted[flag]
		return ok
	}), nil
}

func (p *HostProber) resctrlInKernel() (bool, error) {
	f, err := p.fs.Open(p.procRoot + "/filesystems")
	if err != nil {
		return false, errors.Wrap(err, "failed to open filesystems list")
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[len(fields)-1] == resctrlFSType {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func (p *HostProber) resctrlMount() (bool, string, error) {
	f, err := p.fs.Open(p.procRoot + "/self/mountinfo")
	if err != nil {
		return false, "", errors.Wrap(err, "failed to open mountinfo")
	}
	defer func() { _ = f.Close() }()

	mounts, err := mountinfo.GetMountsFromReader(f, mountinfo.FSTypeFilter(resctrlFSType))
	if err != nil {
		return false, "", errors.Wrap(err, "failed to parse mountinfo")
	}
	if len(mounts) == 0 {
		return false, "", nil
	}
	return true, mounts[0].Mountpoint, nil
}
