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
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/general"
)

// monGroup is the slice of pqos.MonGroup the collector needs.
type monGroup interface {
	Event() pqos.MonEvent
	Values() pqos.MonValues
	Stop() error
}

// monService starts and polls monitoring groups. The production
// implementation forwards to a pqos.Handle; tests substitute a fake.
type monService interface {
	StartCores(cores []uint32, events pqos.MonEvent) (monGroup, error)
	StartPids(pids []int, events pqos.MonEvent) (monGroup, error)
	Poll(groups []monGroup) error
}

// handleMonService adapts a pqos.Handle to monService.
type handleMonService struct {
	handle *pqos.Handle
}

func (s handleMonService) StartCores(cores []uint32, events pqos.MonEvent) (monGroup, error) {
	return s.handle.MonStartCores(cores, events)
}

func (s handleMonService) StartPids(pids []int, events pqos.MonEvent) (monGroup, error) {
	return s.handle.MonStartPids(pids, events)
}

func (s handleMonService) Poll(groups []monGroup) error {
	native := make([]*pqos.MonGroup, len(groups))
	for i, g := range groups {
		mg, ok := g.(*pqos.MonGroup)
		if !ok {
			return errors.Errorf("unexpected monitoring group type %T", g)
		}
		native[i] = mg
	}
	return s.handle.MonPoll(native...)
}

type activeGroup struct {
	name   string
	events pqos.MonEvent
	group  monGroup
}

// Collector owns the monitoring groups of one config generation and
// publishes their readings.
type Collector struct {
	svc      monService
	interval Duration
	groups   []activeGroup
	lastPoll atomic.Time
}

// NewCollector starts a monitoring group per configured group. On any
// failure the groups started so far are stopped again.
func NewCollector(handle *pqos.Handle, cfg *Config) (*Collector, error) {
	return newCollector(handleMonService{handle: handle}, cfg)
}

func newCollector(svc monService, cfg *Config) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Collector{svc: svc, interval: cfg.Interval}
	for _, g := range cfg.Groups {
		var (
			group monGroup
			err   error
		)
		if g.Cores != "" {
			group, err = svc.StartCores(g.cores.ToSliceUInt32(), g.events)
		} else {
			group, err = svc.StartPids(g.Pids, g.events)
		}
		if err != nil {
			c.Close()
			return nil, errors.Wrapf(err, "failed to start group %q", g.Name)
		}
		c.groups = append(c.groups, activeGroup{name: g.Name, events: g.events, group: group})
		general.Infof("monitoring group %q: events %s", g.Name, g.events)
	}

	monitoredGroups.Set(float64(len(c.groups)))
	return c, nil
}

// Poll reads all groups once and publishes their values. A failed poll
// is counted and reported but leaves the previous readings in place.
func (c *Collector) Poll() error {
	groups := make([]monGroup, len(c.groups))
	for i, g := range c.groups {
		groups[i] = g.group
	}

	pollsTotal.Inc()
	if err := c.svc.Poll(groups); err != nil {
		pollErrorsTotal.Inc()
		return err
	}

	for _, g := range c.groups {
		recordGroupValues(g.name, g.events, g.group.Values(), c.interval.std())
	}
	c.lastPoll.Store(time.Now())
	return nil
}

// LastPoll returns the time of the last successful poll, zero before the
// first one.
func (c *Collector) LastPoll() time.Time {
	return c.lastPoll.Load()
}

// Run polls on the configured interval until the context ends.
func (c *Collector) Run(ctx context.Context) error {
	return general.TickUntilDone(ctx, c.interval.std(), func() error {
		if err := c.Poll(); err != nil {
			general.Errorf("poll failed: %v", err)
		}
		return nil
	})
}

// Close stops every group and removes its series.
func (c *Collector) Close() {
	for _, g := range c.groups {
		if err := g.group.Stop(); err != nil {
			general.Errorf("failed to stop group %q: %v", g.name, err)
		}
		dropGroupSeries(g.name)
	}
	c.groups = nil
	monitoredGroups.Set(0)
}
