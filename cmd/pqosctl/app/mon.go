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
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/general"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/machine"
)

// errMonDone ends the polling loop once --count samples were printed.
var errMonDone = errors.New("monitoring finished")

// monColumn renders one monitored event as a table column.
type monColumn struct {
	header string
	event  pqos.MonEvent
	value  func(v pqos.MonValues, interval time.Duration) float64
	prec   int
}

// monColumns lists every printable column in output order. Bandwidth and
// miss columns are rates over the sampling interval.
var monColumns = []monColumn{
	{"IPC", pqos.PerfEventIPC, func(v pqos.MonValues, _ time.Duration) float64 {
		return v.IPC
	}, 2},
	{"MISS/s", pqos.PerfEventLLCMiss, func(v pqos.MonValues, d time.Duration) float64 {
		return float64(v.LLCMissesDelta) / d.Seconds()
	}, 0},
	{"REF/s", pqos.PerfEventLLCRef, func(v pqos.MonValues, d time.Duration) float64 {
		return float64(v.LLCReferencesDelta) / d.Seconds()
	}, 0},
	{"LLC[KB]", pqos.MonEventL3Occup, func(v pqos.MonValues, _ time.Duration) float64 {
		return float64(v.LLC) / 1024
	}, 1},
	{"MBL[MB/s]", pqos.MonEventLocalMemBW, func(v pqos.MonValues, d time.Duration) float64 {
		return float64(v.MBMLocalDelta) / d.Seconds() / 1e6
	}, 1},
	{"MBT[MB/s]", pqos.MonEventTotalMemBW, func(v pqos.MonValues, d time.Duration) float64 {
		return float64(v.MBMTotalDelta) / d.Seconds() / 1e6
	}, 1},
	{"MBR[MB/s]", pqos.MonEventRemoteMemBW, func(v pqos.MonValues, d time.Duration) float64 {
		return float64(v.MBMRemoteDelta) / d.Seconds() / 1e6
	}, 1},
}

func activeColumns(events pqos.MonEvent) []monColumn {
	return lo.Filter(monColumns, func(col monColumn, _ int) bool {
		return events&col.event != 0
	})
}

func monCmd(flags *rootFlags) *cobra.Command {
	var (
		coreLists []string
		pids      []int
		events    []string
		interval  time.Duration
		duration  time.Duration
		count     int
	)

	cmd := &cobra.Command{
		Use:   "mon",
		Short: "Monitor cache occupancy and memory bandwidth",
		Long: `Monitor cache occupancy, memory bandwidth and perf derived events for
groups of cores or processes. Every --cores list becomes its own
monitoring group; all --pids together form one group. Samples print
once per interval until the duration or sample count is reached, or
until interrupted. A per-group summary follows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(coreLists) == 0 && len(pids) == 0 {
				return errors.New("nothing to monitor, pass --cores and/or --pids")
			}
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}
			mask, err := pqos.ParseMonEvents(events)
			if err != nil {
				return err
			}
			sets := make([]machine.CPUSet, 0, len(coreLists))
			for _, list := range coreLists {
				set, err := machine.Parse(list)
				if err != nil {
					return err
				}
				if set.IsEmpty() {
					return errors.Errorf("empty core list %q", list)
				}
				sets = append(sets, set)
			}

			return flags.withHandle(func(h *pqos.Handle) error {
				return runMon(cmd, h, sets, pids, mask, interval, duration, count)
			})
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVar(&coreLists, "cores", nil, "core list monitored as one group, repeatable (e.g. 0-3,8)")
	fl.IntSliceVar(&pids, "pids", nil, "process ids monitored as one group")
	fl.StringSliceVar(&events, "events", []string{"llc", "mbl", "mbt"}, "events to monitor (llc, mbl, mbt, mbr, misses, ipc, refs, all)")
	fl.DurationVar(&interval, "interval", time.Second, "sampling interval")
	fl.DurationVar(&duration, "duration", 0, "how long to monitor, 0 means until interrupted")
	fl.IntVar(&count, "count", 0, "number of samples to print, 0 means unlimited")
	return cmd
}

// monTarget is one started group plus the samples collected for its
// summary, keyed by column header.
type monTarget struct {
	label  string
	group  *pqos.MonGroup
	series map[string][]float64
}

func runMon(cmd *cobra.Command, h *pqos.Handle, sets []machine.CPUSet, pids []int, events pqos.MonEvent, interval, duration time.Duration, count int) error {
	w := cmd.OutOrStdout()

	targets := make([]*monTarget, 0, len(sets)+1)
	stopAll := func() {
		for _, t := range targets {
			if err := t.group.Stop(); err != nil {
				general.Warningf("failed to stop group %s: %v", t.label, err)
			}
		}
	}

	for _, set := range sets {
		group, err := h.MonStartCores(set.ToSliceUInt32(), events)
		if err != nil {
			stopAll()
			return errors.Wrapf(err, "failed to start monitoring cores %s", set)
		}
		targets = append(targets, &monTarget{label: set.String(), group: group, series: map[string][]float64{}})
	}
	if len(pids) > 0 {
		group, err := h.MonStartPids(pids, events)
		if err != nil {
			stopAll()
			return errors.Wrap(err, "failed to start monitoring pids")
		}
		label := "pid:" + strings.Join(lo.Map(pids, func(p int, _ int) string { return strconv.Itoa(p) }), ",")
		targets = append(targets, &monTarget{label: label, group: group, series: map[string][]float64{}})
	}
	defer stopAll()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	native := lo.Map(targets, func(t *monTarget, _ int) *pqos.MonGroup { return t.group })
	cols := activeColumns(events)

	printMonHeader(w, cols)
	primed := false
	printed := 0
	err := general.TickUntilDone(ctx, interval, func() error {
		if err := h.MonPoll(native...); err != nil {
			return err
		}
		// The first poll only primes the bandwidth deltas.
		if !primed {
			primed = true
			return nil
		}
		printMonSample(w, targets, cols, interval)
		printed++
		if count > 0 && printed >= count {
			return errMonDone
		}
		return nil
	})
	switch {
	case err == nil,
		errors.Is(err, errMonDone),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
	default:
		return err
	}

	printMonSummary(w, targets, cols)
	return nil
}

func printMonHeader(w io.Writer, cols []monColumn) {
	fmt.Fprintf(w, "%-9s %-14s", "TIME", "GROUP")
	for _, col := range cols {
		fmt.Fprintf(w, " %11s", col.header)
	}
	fmt.Fprintln(w)
}

func printMonSample(w io.Writer, targets []*monTarget, cols []monColumn, interval time.Duration) {
	now := time.Now().Format("15:04:05")
	for _, t := range targets {
		values := t.group.Values()
		fmt.Fprintf(w, "%-9s %-14s", now, t.label)
		for _, col := range cols {
			v := col.value(values, interval)
			fmt.Fprintf(w, " %11.*f", col.prec, v)
			t.series[col.header] = append(t.series[col.header], v)
		}
		fmt.Fprintln(w)
	}
}

func printMonSummary(w io.Writer, targets []*monTarget, cols []monColumn) {
	for _, t := range targets {
		samples := 0
		if len(cols) > 0 {
			samples = len(t.series[cols[0].header])
		}
		if samples == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s: %d samples\n", t.label, samples)
		fmt.Fprintf(w, "  %-11s %11s %11s %11s %11s\n", "", "min", "mean", "max", "p95")
		for _, col := range cols {
			series := t.series[col.header]
			min, max, sum := series[0], series[0], 0.0
			for _, v := range series {
				min = math.Min(min, v)
				max = math.Max(max, v)
				sum += v
			}
			p95, err := stats.Float64Data(series).Percentile(95)
			if err != nil {
				general.Errorf("failed to get stats p95: %v", err)
				continue
			}
			fmt.Fprintf(w, "  %-11s %11.*f %11.*f %11.*f %11.*f\n",
				col.header, col.prec, min, col.prec, sum/float64(samples), col.prec, max, col.prec, p95)
		}
	}
}
