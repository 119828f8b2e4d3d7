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

// Package pqos binds the Intel(R) RDT PQoS library (libpqos) without cgo.
// The shared library is loaded at runtime with dlopen, so binaries build
// and start on machines without libpqos installed and only Acquire fails
// there.
//
// A Handle wraps one process-wide session with the library: Init selects
// the MSR or resctrl programming interface, monitoring groups track cache
// occupancy and memory bandwidth per core or per PID, and the allocation
// calls program CAT and MBA classes of service.
package pqos

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/ludoplex/intel-cmt-cat/pkg/util/general"
)

// Interface selects how the library reaches RDT features: raw MSR access,
// the kernel resctrl filesystem, or resctrl with monitoring only.
type Interface int32

// Values of enum pqos_interface.
const (
	InterfaceMSR          Interface = 0
	InterfaceOS           Interface = 1
	InterfaceOSResctrlMon Interface = 2
	InterfaceAuto         Interface = 3
)

func (i Interface) String() string {
	switch i {
	case InterfaceMSR:
		return "MSR"
	case InterfaceOS:
		return "OS"
	case InterfaceOSResctrlMon:
		return "OS_RESCTRL_MON"
	case InterfaceAuto:
		return "AUTO"
	default:
		return "UNKNOWN"
	}
}

// ParseInterface maps an interface name to its enum value. Matching is
// case-insensitive.
func ParseInterface(name string) (Interface, error) {
	switch strings.ToUpper(name) {
	case "MSR":
		return InterfaceMSR, nil
	case "OS":
		return InterfaceOS, nil
	case "OS_RESCTRL_MON":
		return InterfaceOSResctrlMon, nil
	case "AUTO":
		return InterfaceAuto, nil
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "unknown interface %q (available: MSR, OS, OS_RESCTRL_MON, AUTO)", name)
	}
}

// Verbosity selects how much the native library logs.
type Verbosity int32

const (
	VerbositySilent  Verbosity = -1
	VerbosityDefault Verbosity = 0
	VerbosityVerbose Verbosity = 1
	VerbositySuper   Verbosity = 2
)

func (v Verbosity) String() string {
	switch v {
	case VerbositySilent:
		return "silent"
	case VerbosityDefault:
		return "default"
	case VerbosityVerbose:
		return "verbose"
	case VerbositySuper:
		return "super"
	default:
		return "unknown"
	}
}

// ParseVerbosity maps a verbosity name to its enum value. Matching is
// case-insensitive and the empty string means the default level.
func ParseVerbosity(name string) (Verbosity, error) {
	switch strings.ToLower(name) {
	case "silent":
		return VerbositySilent, nil
	case "", "default":
		return VerbosityDefault, nil
	case "verbose":
		return VerbosityVerbose, nil
	case "super":
		return VerbositySuper, nil
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "unknown verbosity %q (available: silent, default, verbose, super)", name)
	}
}

// InitConfig carries everything Init passes to pqos_init. The zero value
// asks for the MSR interface at default verbosity with native logs written
// to stdout.
type InitConfig struct {
	// Interface names the programming interface: "MSR", "OS",
	// "OS_RESCTRL_MON" or "AUTO". Empty selects MSR.
	Interface string

	// Verbosity names the native log level: "silent", "default", "verbose"
	// or "super". Empty selects the default level.
	Verbosity string

	// LogFile receives native log output when LogCallback is unset.
	// Defaults to os.Stdout.
	LogFile *os.File

	// LogCallback, when set, receives every native log line instead of
	// LogFile. LogContext is handed back unchanged with each line.
	LogCallback LogCallback
	LogContext  interface{}
}

// Handle is a session with the native library. All handles returned by
// Acquire share the same loaded library; the library itself serializes
// concurrent calls.
type Handle struct {
	lib      nativeLib
	logToken atomic.Uintptr
}

var (
	acquireOnce   sync.Once
	sharedHandle  *Handle
	sharedLoadErr error
)

// Acquire loads the native library on first use and returns the
// process-wide handle. The outcome is sticky: once loading fails, every
// later call reports the same LoadError without retrying dlopen.
func Acquire() (*Handle, error) {
	acquireOnce.Do(func() {
		lib, err := openNative()
		if err != nil {
			sharedLoadErr = err
			return
		}
		sharedHandle = &Handle{lib: lib}
	})
	return sharedHandle, sharedLoadErr
}

func newHandle(lib nativeLib) *Handle {
	return &Handle{lib: lib}
}

// Init initializes the native library for the interface and log sink named
// by cfg. Argument problems surface as ErrInvalidArgument before any
// native call; a rejected pqos_init surfaces as a NativeCallError.
func (h *Handle) Init(cfg InitConfig) error {
	iface := InterfaceMSR
	if cfg.Interface != "" {
		parsed, err := ParseInterface(cfg.Interface)
		if err != nil {
			return err
		}
		iface = parsed
	}
	verbosity, err := ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return err
	}

	raw := rawConfig{
		iface:   int32(iface),
		verbose: int32(verbosity),
	}
	var token uintptr
	if cfg.LogCallback != nil {
		token = registerLogSink(cfg.LogCallback, cfg.LogContext)
		raw.callbackLog = logTrampoline()
		raw.contextLog = token
	} else {
		logFile := cfg.LogFile
		if logFile == nil {
			logFile = os.Stdout
		}
		raw.fdLog = int32(logFile.Fd())
	}

	if err := checkRetval("pqos_init", h.lib.Init(&raw)); err != nil {
		dropLogSink(token)
		return err
	}
	h.logToken.Store(token)
	general.Infof("pqos: library initialized: interface=%s verbosity=%s", iface, verbosity)
	return nil
}

// Fini shuts the native library down and releases the log callback
// registered by Init, if any.
func (h *Handle) Fini() error {
	if err := checkRetval("pqos_fini", h.lib.Fini()); err != nil {
		return err
	}
	dropLogSink(h.logToken.Swap(0))
	general.Infof("pqos: library finalized")
	return nil
}

// SystemConfig is a view over the library-owned struct pqos_sysconfig.
// The memory stays valid until Fini.
type SystemConfig struct {
	raw *rawSysConfig
}

// SystemConfig returns the system configuration snapshot held by the
// library. Repeated calls return views over the same native memory.
func (h *Handle) SystemConfig() (*SystemConfig, error) {
	var out uintptr
	if err := checkRetval("pqos_sysconfig_get", h.lib.SysConfigGet(&out)); err != nil {
		return nil, err
	}
	return &SystemConfig{raw: (*rawSysConfig)(unsafe.Pointer(out))}, nil
}

// Capabilities decodes the capability block of the snapshot. It returns
// nil when the library published no capabilities.
func (s *SystemConfig) Capabilities() *Capabilities {
	return decodeCapabilities(s.raw.cap)
}

// CPU decodes the CPU topology block of the snapshot. It returns nil when
// the library published no topology.
func (s *SystemConfig) CPU() *CPUInfo {
	return decodeCPUInfo(s.raw.cpu)
}

// HasDeviceInfo reports whether the library discovered I/O RDT devices.
func (s *SystemConfig) HasDeviceInfo() bool {
	return s.raw.dev != 0
}
