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

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/machine"
)

func infoCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show library capabilities and CPU topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withHandle(func(h *pqos.Handle) error {
				caps, cpu, err := h.Capabilities()
				if err != nil {
					return err
				}
				printInfo(cmd.OutOrStdout(), flags.iface, caps, cpu)
				return nil
			})
		},
	}
}

func printInfo(w io.Writer, iface string, caps *pqos.Capabilities, cpu *pqos.CPUInfo) {
	fmt.Fprintf(w, "PQoS library %s, %s interface\n", formatLibVersion(caps.Version), strings.ToUpper(iface))
	fmt.Fprintf(w, "CPU: %s, %d cores, %d sockets\n", cpu.Vendor, len(cpu.Cores), len(cpu.Sockets()))

	if caps.Mon != nil {
		fmt.Fprintln(w, "\nMonitoring")
		fmt.Fprintf(w, "    RMIDs:  %d\n", caps.Mon.MaxRMID)
		fmt.Fprintf(w, "    events: %s\n", caps.Mon.EventMask())
	}
	if caps.L3CA != nil {
		fmt.Fprintln(w, "\nL3 CAT")
		fmt.Fprintf(w, "    classes: %d, ways: %d (way size %s), %s\n",
			caps.L3CA.NumClasses, caps.L3CA.NumWays, formatBytes(uint64(caps.L3CA.WaySize)),
			cdpState(caps.L3CA.CDP, caps.L3CA.CDPOn))
	}
	if caps.L2CA != nil {
		fmt.Fprintln(w, "\nL2 CAT")
		fmt.Fprintf(w, "    classes: %d, ways: %d (way size %s), %s\n",
			caps.L2CA.NumClasses, caps.L2CA.NumWays, formatBytes(uint64(caps.L2CA.WaySize)),
			cdpState(caps.L2CA.CDP, caps.L2CA.CDPOn))
	}
	if caps.MBA != nil {
		fmt.Fprintln(w, "\nMBA")
		shape := "non-linear"
		if caps.MBA.IsLinear {
			shape = fmt.Sprintf("linear, step %d%%, max throttle %d%%",
				caps.MBA.ThrottleStep, caps.MBA.ThrottleMax)
		}
		line := fmt.Sprintf("    classes: %d, %s", caps.MBA.NumClasses, shape)
		if caps.MBA.Ctrl {
			state := "available"
			if caps.MBA.CtrlOn {
				state = "active"
			}
			line += fmt.Sprintf(", MBps controller %s", state)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w, "\nTopology")
	for _, socket := range cpu.Sockets() {
		fmt.Fprintf(w, "    socket %d: cores %s\n", socket, coreSet(cpu.SocketCores(socket)))
	}
	if cpu.L3.Detected {
		fmt.Fprintf(w, "    L3: %s, %d ways, %d B lines\n",
			formatBytes(uint64(cpu.L3.TotalSize)), cpu.L3.NumWays, cpu.L3.LineSize)
	}
	if cpu.L2.Detected {
		fmt.Fprintf(w, "    L2: %s, %d ways, %d B lines\n",
			formatBytes(uint64(cpu.L2.TotalSize)), cpu.L2.NumWays, cpu.L2.LineSize)
	}
}

// formatLibVersion renders the PQOS_VERSION encoding (major*10000 +
// minor*100 + patch).
func formatLibVersion(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v/10000, v%10000/100, v%100)
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func cdpState(supported, on bool) string {
	switch {
	case !supported:
		return "no CDP"
	case on:
		return "CDP on"
	default:
		return "CDP off"
	}
}

func coreSet(cores []uint32) machine.CPUSet {
	return machine.NewCPUSet(lo.Map(cores, func(c uint32, _ int) int { return int(c) })...)
}
