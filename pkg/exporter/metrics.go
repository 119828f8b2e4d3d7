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

package exporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
)

var (
	llcOccupancy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pqos_llc_occupancy_bytes",
		Help: "Last level cache occupancy of the monitored group",
	}, []string{"group"})

	mbmLocalRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pqos_mbm_local_bytes_per_second",
		Help: "Local memory bandwidth of the monitored group over the last poll interval",
	}, []string{"group"})

	mbmTotalRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pqos_mbm_total_bytes_per_second",
		Help: "Total memory bandwidth of the monitored group over the last poll interval",
	}, []string{"group"})

	mbmRemoteRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pqos_mbm_remote_bytes_per_second",
		Help: "Remote memory bandwidth of the monitored group over the last poll interval",
	}, []string{"group"})

	ipcRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pqos_ipc",
		Help: "Instructions retired per cycle in the monitored group",
	}, []string{"group"})

	llcMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pqos_llc_misses_total",
		Help: "Last level cache misses of the monitored group",
	}, []string{"group"})

	monitoredGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pqos_monitored_groups",
		Help: "Number of active monitoring groups",
	})

	pollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pqos_poll_errors_total",
		Help: "Total number of failed monitoring polls",
	})

	pollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pqos_polls_total",
		Help: "Total number of monitoring polls",
	})
)

// recordGroupValues publishes one poll's counters for a group. Only the
// events the group actually monitors are published, so absent hardware
// features never show up as zero readings.
func recordGroupValues(group string, events pqos.MonEvent, values pqos.MonValues, interval time.Duration) {
	seconds := interval.Seconds()

	if events&pqos.MonEventL3Occup != 0 {
		llcOccupancy.WithLabelValues(group).Set(float64(values.LLC))
	}
	if events&pqos.MonEventLocalMemBW != 0 {
		mbmLocalRate.WithLabelValues(group).Set(float64(values.MBMLocalDelta) / seconds)
	}
	if events&pqos.MonEventTotalMemBW != 0 {
		mbmTotalRate.WithLabelValues(group).Set(float64(values.MBMTotalDelta) / seconds)
	}
	if events&pqos.MonEventRemoteMemBW != 0 {
		mbmRemoteRate.WithLabelValues(group).Set(float64(values.MBMRemoteDelta) / seconds)
	}
	if events&pqos.PerfEventIPC != 0 {
		ipcRatio.WithLabelValues(group).Set(values.IPC)
	}
	if events&pqos.PerfEventLLCMiss != 0 {
		llcMissesTotal.WithLabelValues(group).Add(float64(values.LLCMissesDelta))
	}
}

// dropGroupSeries removes a group's series so a reload does not leave
// stale readings behind.
func dropGroupSeries(group string) {
	llcOccupancy.DeleteLabelValues(group)
	mbmLocalRate.DeleteLabelValues(group)
	mbmTotalRate.DeleteLabelValues(group)
	mbmRemoteRate.DeleteLabelValues(group)
	ipcRatio.DeleteLabelValues(group)
	llcMissesTotal.DeleteLabelValues(group)
}
