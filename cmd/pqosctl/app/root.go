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

// Package app holds the pqosctl command tree.
package app

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/general"
)

const version = "5.0.0"

// rootFlags carries the library setup shared by every subcommand that
// talks to the native side.
type rootFlags struct {
	iface   string
	verbose int
	quiet   bool
	logFile string
}

func (f *rootFlags) verbosity() string {
	switch {
	case f.quiet:
		return "silent"
	case f.verbose >= 2:
		return "super"
	case f.verbose == 1:
		return "verbose"
	default:
		return "default"
	}
}

// withHandle acquires the library, initializes it with the root flags,
// runs fn and shuts the library down again.
func (f *rootFlags) withHandle(fn func(h *pqos.Handle) error) error {
	handle, err := pqos.Acquire()
	if err != nil {
		return err
	}

	cfg := pqos.InitConfig{
		Interface: f.iface,
		Verbosity: f.verbosity(),
	}
	if f.logFile != "" {
		logFile, err := os.Create(f.logFile)
		if err != nil {
			return errors.Wrapf(err, "failed to open log file %s", f.logFile)
		}
		defer func() { _ = logFile.Close() }()
		cfg.LogFile = logFile
	} else {
		// Route native library messages through our own logging.
		cfg.LogCallback = func(message string, _ interface{}) {
			general.Infof("pqos: %s", strings.TrimRight(message, "\n"))
		}
	}

	if err := handle.Init(cfg); err != nil {
		return err
	}
	defer func() {
		if err := handle.Fini(); err != nil {
			general.Errorf("failed to shut the library down: %v", err)
		}
	}()

	return fn(handle)
}

// NewPqosctlCommand builds the pqosctl command tree.
func NewPqosctlCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:     "pqosctl",
		Short:   "Control cache monitoring and allocation (Intel RDT)",
		Version: version,
		Long: `pqosctl drives the PQoS library: it reports platform capabilities,
monitors cache occupancy, memory bandwidth and IPC for groups of cores
or processes, and programs cache and memory bandwidth allocation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.iface, "interface", "I", "msr",
		"library interface: msr, os, os_resctrl_mon or auto")
	cmd.PersistentFlags().CountVarP(&flags.verbose, "verbose", "v",
		"raise library log verbosity (-v verbose, -vv super verbose)")
	cmd.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false,
		"silence library logging")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "",
		"write library logs to a file instead of the process log")

	cmd.AddCommand(
		infoCmd(flags),
		checkCmd(),
		monCmd(flags),
		allocCmd(flags),
		resetCmd(flags),
	)
	return cmd
}
