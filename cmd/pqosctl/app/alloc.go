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
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/general"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/machine"
)

func allocCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Show and program cache and memory bandwidth allocation",
	}
	cmd.AddCommand(
		allocShowCmd(flags),
		allocSetCmd(flags),
		allocAssocCmd(flags),
		allocAssignCmd(flags),
		allocReleaseCmd(flags),
	)
	return cmd
}

func allocShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show programmed classes of service and core associations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withHandle(func(h *pqos.Handle) error {
				return runAllocShow(cmd.OutOrStdout(), h)
			})
		},
	}
}

func runAllocShow(w io.Writer, h *pqos.Handle) error {
	caps, cpu, err := h.Capabilities()
	if err != nil {
		return err
	}

	if caps.L3CA != nil {
		for _, id := range cpu.L3CATIDs() {
			entries, err := h.GetL3CA(id)
			if err != nil {
				return errors.Wrapf(err, "failed to read L3 classes on domain %d", id)
			}
			fmt.Fprintf(w, "L3CA domain %d\n", id)
			for _, entry := range entries {
				if entry.CDP {
					fmt.Fprintf(w, "    COS%-2d  data 0x%x, code 0x%x\n", entry.ClassID, entry.DataMask, entry.CodeMask)
				} else {
					fmt.Fprintf(w, "    COS%-2d  mask 0x%x\n", entry.ClassID, entry.WaysMask)
				}
			}
		}
	}
	if caps.L2CA != nil {
		for _, id := range cpu.L2IDs() {
			entries, err := h.GetL2CA(id)
			if err != nil {
				return errors.Wrapf(err, "failed to read L2 classes on domain %d", id)
			}
			fmt.Fprintf(w, "L2CA domain %d\n", id)
			for _, entry := range entries {
				if entry.CDP {
					fmt.Fprintf(w, "    COS%-2d  data 0x%x, code 0x%x\n", entry.ClassID, entry.DataMask, entry.CodeMask)
				} else {
					fmt.Fprintf(w, "    COS%-2d  mask 0x%x\n", entry.ClassID, entry.WaysMask)
				}
			}
		}
	}
	if caps.MBA != nil {
		for _, id := range cpu.MBAIDs() {
			entries, err := h.GetMBA(id)
			if err != nil {
				return errors.Wrapf(err, "failed to read MBA classes on domain %d", id)
			}
			fmt.Fprintf(w, "MBA domain %d\n", id)
			for _, entry := range entries {
				unit := "%"
				if entry.Ctrl {
					unit = " MBps"
				}
				fmt.Fprintf(w, "    COS%-2d  %d%s\n", entry.ClassID, entry.MBMax, unit)
			}
		}
	}

	fmt.Fprintln(w, "core associations")
	for _, socket := range cpu.Sockets() {
		byClass := map[uint32][]int{}
		for _, core := range cpu.SocketCores(socket) {
			classID, err := h.AssocGet(core)
			if err != nil {
				return errors.Wrapf(err, "failed to read association of core %d", core)
			}
			byClass[classID] = append(byClass[classID], int(core))
		}
		classes := lo.Keys(byClass)
		sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
		fmt.Fprintf(w, "    socket %d\n", socket)
		for _, classID := range classes {
			fmt.Fprintf(w, "        COS%-2d  cores %s\n", classID, machine.NewCPUSet(byClass[classID]...))
		}
	}
	return nil
}

func allocSetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set SPEC...",
		Short: "Program classes of service",
		Long: `Program classes of service from schemata-like specs:

    l3ca:<cos>=<mask>[@<id-list>]           capacity mask on L3 domains
    l3ca:<cos>=d:<mask>,c:<mask>[@<ids>]    CDP data and code masks
    l2ca:<cos>=<mask>[@<id-list>]           capacity mask on L2 domains
    mba:<cos>=<percent>[@<id-list>]         bandwidth limit on MBA domains

Masks accept hex (0xf0) and decimal. Without an id list the class is
programmed on every domain of that technology.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := make([]allocSpec, 0, len(args))
			for _, arg := range args {
				spec, err := parseAllocSpec(arg)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}
			return flags.withHandle(func(h *pqos.Handle) error {
				_, cpu, err := h.Capabilities()
				if err != nil {
					return err
				}
				for _, spec := range specs {
					if err := applyAllocSpec(h, cpu, spec); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

// allocSpec is one parsed "tech:cos=value[@ids]" argument. A nil ids
// slice means every domain of the technology.
type allocSpec struct {
	tech     string
	classID  uint32
	cdp      bool
	waysMask uint64
	dataMask uint64
	codeMask uint64
	mbMax    uint32
	ids      []uint32
}

func parseAllocSpec(arg string) (allocSpec, error) {
	var spec allocSpec

	techRest := strings.SplitN(arg, ":", 2)
	if len(techRest) != 2 {
		return spec, errors.Errorf("invalid allocation spec %q, want tech:cos=value[@ids]", arg)
	}
	spec.tech = strings.ToLower(strings.TrimSpace(techRest[0]))
	switch spec.tech {
	case "l3ca", "l2ca", "mba":
	default:
		return spec, errors.Errorf("unknown technology %q in spec %q (available: l3ca, l2ca, mba)", techRest[0], arg)
	}

	cosValue := strings.SplitN(techRest[1], "=", 2)
	if len(cosValue) != 2 {
		return spec, errors.Errorf("invalid allocation spec %q, want tech:cos=value[@ids]", arg)
	}
	cos, err := strconv.ParseUint(strings.TrimSpace(cosValue[0]), 10, 32)
	if err != nil {
		return spec, errors.Wrapf(err, "invalid class of service in spec %q", arg)
	}
	spec.classID = uint32(cos)

	value := cosValue[1]
	if at := strings.LastIndex(value, "@"); at >= 0 {
		set, err := machine.Parse(value[at+1:])
		if err != nil {
			return spec, errors.Wrapf(err, "invalid id list in spec %q", arg)
		}
		if set.IsEmpty() {
			return spec, errors.Errorf("empty id list in spec %q", arg)
		}
		spec.ids = set.ToSliceUInt32()
		value = value[:at]
	}
	value = strings.TrimSpace(value)

	if spec.tech == "mba" {
		rate, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return spec, errors.Wrapf(err, "invalid bandwidth value in spec %q", arg)
		}
		spec.mbMax = uint32(rate)
		return spec, nil
	}

	if strings.Contains(value, "d:") || strings.Contains(value, "c:") {
		spec.cdp = true
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			switch {
			case strings.HasPrefix(part, "d:"):
				mask, err := parseMask(part[2:])
				if err != nil {
					return spec, errors.Wrapf(err, "invalid data mask in spec %q", arg)
				}
				spec.dataMask = mask
			case strings.HasPrefix(part, "c:"):
				mask, err := parseMask(part[2:])
				if err != nil {
					return spec, errors.Wrapf(err, "invalid code mask in spec %q", arg)
				}
				spec.codeMask = mask
			default:
				return spec, errors.Errorf("invalid CDP mask %q in spec %q, want d:<mask>,c:<mask>", part, arg)
			}
		}
		if spec.dataMask == 0 || spec.codeMask == 0 {
			return spec, errors.Errorf("CDP spec %q needs both a data and a code mask", arg)
		}
		return spec, nil
	}

	mask, err := parseMask(value)
	if err != nil {
		return spec, errors.Wrapf(err, "invalid capacity mask in spec %q", arg)
	}
	spec.waysMask = mask
	return spec, nil
}

func parseMask(s string) (uint64, error) {
	mask, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, err
	}
	if mask == 0 {
		return 0, errors.New("mask must not be zero")
	}
	return mask, nil
}

func applyAllocSpec(h *pqos.Handle, cpu *pqos.CPUInfo, spec allocSpec) error {
	switch spec.tech {
	case "l3ca":
		entry := pqos.L3CA{
			ClassID:  spec.classID,
			CDP:      spec.cdp,
			WaysMask: spec.waysMask,
			DataMask: spec.dataMask,
			CodeMask: spec.codeMask,
		}
		ids := spec.ids
		if ids == nil {
			ids = cpu.L3CATIDs()
		}
		for _, id := range ids {
			if err := h.SetL3CA(id, []pqos.L3CA{entry}); err != nil {
				return errors.Wrapf(err, "failed to program L3 COS%d on domain %d", spec.classID, id)
			}
		}
	case "l2ca":
		entry := pqos.L2CA{
			ClassID:  spec.classID,
			CDP:      spec.cdp,
			WaysMask: spec.waysMask,
			DataMask: spec.dataMask,
			CodeMask: spec.codeMask,
		}
		ids := spec.ids
		if ids == nil {
			ids = cpu.L2IDs()
		}
		for _, id := range ids {
			if err := h.SetL2CA(id, []pqos.L2CA{entry}); err != nil {
				return errors.Wrapf(err, "failed to program L2 COS%d on domain %d", spec.classID, id)
			}
		}
	case "mba":
		entry := pqos.MBA{ClassID: spec.classID, MBMax: spec.mbMax}
		ids := spec.ids
		if ids == nil {
			ids = cpu.MBAIDs()
		}
		for _, id := range ids {
			granted, err := h.SetMBA(id, []pqos.MBA{entry})
			if err != nil {
				return errors.Wrapf(err, "failed to program MBA COS%d on domain %d", spec.classID, id)
			}
			if len(granted) > 0 && granted[0].MBMax != spec.mbMax {
				general.Infof("MBA COS%d on domain %d: granted %d%% for requested %d%%",
					spec.classID, id, granted[0].MBMax, spec.mbMax)
			}
		}
	}
	return nil
}

func allocAssocCmd(flags *rootFlags) *cobra.Command {
	var (
		classID  uint32
		coreList string
		pids     []int
	)
	cmd := &cobra.Command{
		Use:   "assoc",
		Short: "Associate cores or processes with a class of service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if coreList == "" && len(pids) == 0 {
				return errors.New("nothing to associate, pass --cores and/or --pids")
			}
			var cores []uint32
			if coreList != "" {
				set, err := machine.Parse(coreList)
				if err != nil {
					return err
				}
				if set.IsEmpty() {
					return errors.Errorf("empty core list %q", coreList)
				}
				cores = set.ToSliceUInt32()
			}
			return flags.withHandle(func(h *pqos.Handle) error {
				for _, core := range cores {
					if err := h.AssocSet(core, classID); err != nil {
						return errors.Wrapf(err, "failed to associate core %d with COS%d", core, classID)
					}
				}
				for _, pid := range pids {
					if err := h.AssocSetPid(pid, classID); err != nil {
						return errors.Wrapf(err, "failed to associate pid %d with COS%d", pid, classID)
					}
				}
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.Uint32Var(&classID, "cos", 0, "class of service to associate with")
	fl.StringVar(&coreList, "cores", "", "core list to associate (e.g. 0-3,8)")
	fl.IntSliceVar(&pids, "pids", nil, "process ids to associate")
	_ = cmd.MarkFlagRequired("cos")
	return cmd
}

func allocAssignCmd(flags *rootFlags) *cobra.Command {
	var (
		techNames []string
		coreList  string
		pids      []int
	)
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign the first unused class of service to cores or processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (coreList == "") == (len(pids) == 0) {
				return errors.New("pass exactly one of --cores or --pids")
			}
			technology, err := parseTechnologies(techNames)
			if err != nil {
				return err
			}
			var cores []uint32
			if coreList != "" {
				set, err := machine.Parse(coreList)
				if err != nil {
					return err
				}
				if set.IsEmpty() {
					return errors.Errorf("empty core list %q", coreList)
				}
				cores = set.ToSliceUInt32()
			}
			return flags.withHandle(func(h *pqos.Handle) error {
				var classID uint32
				if len(cores) > 0 {
					classID, err = h.AllocAssign(technology, cores)
				} else {
					classID, err = h.AllocAssignPids(technology, pids)
				}
				if err != nil {
					return errors.Wrap(err, "failed to assign a class of service")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "COS%d\n", classID)
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&techNames, "technology", []string{"l3ca"}, "technologies the class must support (l3ca, l2ca, mba)")
	fl.StringVar(&coreList, "cores", "", "core list to assign (e.g. 0-3,8)")
	fl.IntSliceVar(&pids, "pids", nil, "process ids to assign")
	return cmd
}

func parseTechnologies(names []string) (pqos.Technology, error) {
	var technology pqos.Technology
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "l3ca":
			technology |= pqos.TechnologyL3CA
		case "l2ca":
			technology |= pqos.TechnologyL2CA
		case "mba":
			technology |= pqos.TechnologyMBA
		default:
			return 0, errors.Errorf("unknown technology %q (available: l3ca, l2ca, mba)", name)
		}
	}
	if technology == 0 {
		return 0, errors.New("no technology selected")
	}
	return technology, nil
}

func allocReleaseCmd(flags *rootFlags) *cobra.Command {
	var (
		coreList string
		pids     []int
	)
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release cores or processes back to the default class of service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if coreList == "" && len(pids) == 0 {
				return errors.New("nothing to release, pass --cores and/or --pids")
			}
			var cores []uint32
			if coreList != "" {
				set, err := machine.Parse(coreList)
				if err != nil {
					return err
				}
				if set.IsEmpty() {
					return errors.Errorf("empty core list %q", coreList)
				}
				cores = set.ToSliceUInt32()
			}
			return flags.withHandle(func(h *pqos.Handle) error {
				if len(cores) > 0 {
					if err := h.AllocRelease(cores); err != nil {
						return errors.Wrap(err, "failed to release cores")
					}
				}
				if len(pids) > 0 {
					if err := h.AllocReleasePids(pids); err != nil {
						return errors.Wrap(err, "failed to release pids")
					}
				}
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&coreList, "cores", "", "core list to release (e.g. 0-3,8)")
	fl.IntSliceVar(&pids, "pids", nil, "process ids to release")
	return cmd
}
