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
	goflag "flag"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/ludoplex/intel-cmt-cat/pkg/exporter"
)

// Options holds the daemon configuration before validation.
type Options struct {
	ConfigFile string
	Listen     string
	Interface  string
	Verbosity  string
}

func NewOptions() *Options {
	return &Options{
		Interface: "msr",
	}
}

// AddFlags adds the daemon flags plus the klog flags to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	local := goflag.NewFlagSet(os.Args[0], goflag.ExitOnError)
	klog.InitFlags(local)
	local.VisitAll(func(fl *goflag.Flag) {
		fs.AddGoFlag(fl)
	})

	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile,
		"path to the monitoring group configuration file")
	fs.StringVar(&o.Listen, "listen", o.Listen,
		"listen address, overrides the configuration file value")
	fs.StringVarP(&o.Interface, "interface", "I", o.Interface,
		"library interface: msr, os, os_resctrl_mon or auto")
	fs.StringVar(&o.Verbosity, "pqos-verbosity", o.Verbosity,
		"native library log level: silent, default, verbose or super")
}

// Config loads the configuration file named by the options and applies
// the command line overrides.
func (o *Options) Config() (*exporter.Config, error) {
	if o.ConfigFile == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := exporter.LoadConfig(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.Listen != "" {
		cfg.Listen = o.Listen
	}
	return cfg, nil
}
