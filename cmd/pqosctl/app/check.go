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

package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/machine"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Diagnose whether this host can run RDT monitoring and allocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			support, err := machine.NewHostProber().Probe()
			if err != nil {
				return errors.Wrap(err, "failed to probe the host")
			}
			_, loadErr := pqos.Acquire()
			return checkHost(cmd.OutOrStdout(), *support, loadErr)
		},
	}
}

func checkHost(w io.Writer, support machine.RDTSupport, loadErr error) error {
	flagList := "none"
	if len(support.CPUFlags) > 0 {
		flagList = strings.Join(support.CPUFlags, " ")
	}
	resctrl := "not supported by the kernel"
	switch {
	case support.ResctrlMounted:
		resctrl = "mounted at " + support.ResctrlMountPoint
	case support.ResctrlInKernel:
		resctrl = "in kernel, not mounted"
	}
	msr := "missing"
	if support.MSRDevice {
		msr = "available"
	}
	libpqos := "loaded"
	if loadErr != nil {
		libpqos = "failed to load"
	}

	fmt.Fprintln(w, "host diagnostic")
	fmt.Fprintf(w, "  cpu:        %s %s (family %d, model %d)\n",
		support.CPUVendor, support.BrandName, support.Family, support.Model)
	fmt.Fprintf(w, "  rdt flags:  %s\n", flagList)
	fmt.Fprintf(w, "  monitoring: %v\n", support.SupportsMonitoring())
	fmt.Fprintf(w, "  allocation: %v\n", support.SupportsAllocation())
	fmt.Fprintf(w, "  resctrl:    %s\n", resctrl)
	fmt.Fprintf(w, "  msr device: %s\n", msr)
	fmt.Fprintf(w, "  libpqos:    %s\n", libpqos)

	ready := loadErr == nil &&
		(support.SupportsMonitoring() || support.SupportsAllocation()) &&
		(support.ResctrlMounted || support.MSRDevice)
	if ready {
		fmt.Fprintln(w, "no issues detected")
		return nil
	}

	type issue struct {
		component string
		problem   string
		fix       string
	}
	issues := make([]issue, 0, 4)

	if loadErr != nil {
		issues = append(issues, issue{
			component: "libpqos",
			problem:   loadErr.Error(),
			fix:       "install intel-cmt-cat (provides libpqos.so.5)",
		})
	}
	if !support.SupportsMonitoring() && !support.SupportsAllocation() {
		issues = append(issues, issue{
			component: "cpu",
			problem:   "/proc/cpuinfo shows no RDT feature flags",
			fix:       "run on an Intel(R) or AMD CPU with CMT/CAT/MBA support",
		})
	}
	if !support.ResctrlMounted && !support.MSRDevice {
		problem := "resctrl is not mounted and /dev/cpu/0/msr is missing"
		fix := "mount -t resctrl resctrl /sys/fs/resctrl, or modprobe msr"
		if !support.ResctrlInKernel {
			problem = "the kernel has no resctrl support and /dev/cpu/0/msr is missing"
			fix = "modprobe msr, or boot a kernel with CONFIG_X86_CPU_RESCTRL"
		}
		issues = append(issues, issue{
			component: "interface",
			problem:   problem,
			fix:       fix,
		})
	}

	fmt.Fprintln(w, "detected issues:")
	for i, issue := range issues {
		fmt.Fprintf(w, "  %d) %s: %s\n", i+1, issue.component, issue.problem)
		fmt.Fprintf(w, "     fix: %s\n", issue.fix)
	}
	return errors.Errorf("host is not ready for RDT (%d issue(s))", len(issues))
}
