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

// Package exporter publishes cache occupancy, memory bandwidth and IPC
// readings for configured groups of cores or processes as Prometheus
// metrics.
package exporter

import (
	"bytes"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/machine"
)

const (
	// DefaultListen is the exporter's default listen address.
	DefaultListen = ":9738"

	// DefaultInterval is the default poll interval.
	DefaultInterval = time.Second

	minInterval = 100 * time.Millisecond
)

// Duration decodes Go duration strings ("500ms", "2s") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) std() time.Duration { return time.Duration(d) }

// GroupConfig names one monitored set of cores or processes. Exactly one
// of Cores and Pids must be given.
type GroupConfig struct {
	Name   string   `yaml:"name"`
	Cores  string   `yaml:"cores,omitempty"`
	Pids   []int    `yaml:"pids,omitempty"`
	Events []string `yaml:"events"`

	// filled by Validate
	events pqos.MonEvent
	cores  machine.CPUSet
}

// Config is the exporter configuration file.
type Config struct {
	Listen   string        `yaml:"listen,omitempty"`
	Interval Duration      `yaml:"interval,omitempty"`
	Groups   []GroupConfig `yaml:"groups"`
}

// LoadConfig reads and validates a YAML config file. Unknown keys are
// rejected so typos fail loudly instead of monitoring nothing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	cfg := &Config{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate fills in defaults and checks every group, parsing its event
// names and core list.
func (c *Config) Validate() error {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Interval == 0 {
		c.Interval = Duration(DefaultInterval)
	}
	if c.Interval.std() < minInterval {
		return errors.Errorf("interval %s below minimum %s", c.Interval.std(), minInterval)
	}
	if len(c.Groups) == 0 {
		return errors.New("no groups configured")
	}

	names := lo.Map(c.Groups, func(g GroupConfig, _ int) string { return g.Name })
	if len(lo.Uniq(names)) != len(names) {
		return errors.Errorf("group names must be unique, got %v", names)
	}

	for i := range c.Groups {
		if err := c.Groups[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (g *GroupConfig) validate() error {
	if g.Name == "" {
		return errors.New("group without a name")
	}
	if g.Cores == "" && len(g.Pids) == 0 {
		return errors.Errorf("group %q monitors neither cores nor pids", g.Name)
	}
	if g.Cores != "" && len(g.Pids) > 0 {
		return errors.Errorf("group %q mixes cores and pids", g.Name)
	}

	events, err := pqos.ParseMonEvents(g.Events)
	if err != nil {
		return errors.Wrapf(err, "group %q", g.Name)
	}
	g.events = events

	if g.Cores != "" {
		cores, err := machine.Parse(g.Cores)
		if err != nil {
			return errors.Wrapf(err, "group %q", g.Name)
		}
		if cores.IsEmpty() {
			return errors.Errorf("group %q has an empty core list", g.Name)
		}
		g.cores = cores
	}
	return nil
}
