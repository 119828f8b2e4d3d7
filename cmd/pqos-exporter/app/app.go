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

// Package app holds the pqos-exporter daemon command.
package app

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ludoplex/intel-cmt-cat/pkg/exporter"
	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/general"
)

const version = "5.0.0"

// NewExporterCommand builds the pqos-exporter command.
func NewExporterCommand() *cobra.Command {
	opts := NewOptions()

	cmd := &cobra.Command{
		Use:     "pqos-exporter",
		Short:   "Export RDT monitoring values to Prometheus",
		Version: version,
		Long: `pqos-exporter keeps monitoring groups from a configuration file running
and serves their cache occupancy, memory bandwidth and IPC values as
Prometheus metrics. The configuration file is watched and reloaded on
change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, opts *Options) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}

	handle, err := pqos.Acquire()
	if err != nil {
		return err
	}
	if err := handle.Init(pqos.InitConfig{
		Interface: opts.Interface,
		Verbosity: opts.Verbosity,
		LogCallback: func(message string, _ interface{}) {
			general.Infof("pqos: %s", strings.TrimRight(message, "\n"))
		},
	}); err != nil {
		return err
	}
	defer func() {
		if err := handle.Fini(); err != nil {
			general.Errorf("failed to shut the library down: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	general.Infof("pqos-exporter %s listening on %s", version, cfg.Listen)
	return exporter.NewServer(handle, cfg, opts.ConfigFile).Run(ctx)
}
