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
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
)

func resetCmd(flags *rootFlags) *cobra.Command {
	var (
		l3CDP      string
		l2CDP      string
		mbaMode    string
		monitoring bool
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset allocation and optionally monitoring to the default state",
		Long: `Reset all allocation configuration: every class of service back to the
full mask, every core back to COS0. CDP and the MBA controller can be
switched on or off on the way; "any" keeps the current state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l3, err := parseCDPConfig(l3CDP)
			if err != nil {
				return errors.Wrap(err, "invalid --l3-cdp")
			}
			l2, err := parseCDPConfig(l2CDP)
			if err != nil {
				return errors.Wrap(err, "invalid --l2-cdp")
			}
			mba, err := parseMBAMode(mbaMode)
			if err != nil {
				return errors.Wrap(err, "invalid --mba")
			}
			return flags.withHandle(func(h *pqos.Handle) error {
				if err := h.AllocReset(l3, l2, mba); err != nil {
					return errors.Wrap(err, "failed to reset allocation")
				}
				if monitoring {
					if err := h.MonReset(); err != nil {
						return errors.Wrap(err, "failed to reset monitoring")
					}
				}
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&l3CDP, "l3-cdp", "any", "L3 CDP state after the reset (any, off, on)")
	fl.StringVar(&l2CDP, "l2-cdp", "any", "L2 CDP state after the reset (any, off, on)")
	fl.StringVar(&mbaMode, "mba", "any", "MBA controller mode after the reset (any, default, ctrl)")
	fl.BoolVar(&monitoring, "monitoring", false, "also reset all monitoring state")
	return cmd
}

func parseCDPConfig(name string) (pqos.CDPConfig, error) {
	switch strings.ToLower(name) {
	case "any":
		return pqos.CDPAny, nil
	case "off":
		return pqos.CDPOff, nil
	case "on":
		return pqos.CDPOn, nil
	default:
		return 0, errors.Errorf("unknown CDP state %q (available: any, off, on)", name)
	}
}

func parseMBAMode(name string) (pqos.MBAMode, error) {
	switch strings.ToLower(name) {
	case "any":
		return pqos.MBAModeAny, nil
	case "default":
		return pqos.MBAModeDefault, nil
	case "ctrl":
		return pqos.MBAModeCtrl, nil
	default:
		return 0, errors.Errorf("unknown MBA mode %q (available: any, default, ctrl)", name)
	}
}
