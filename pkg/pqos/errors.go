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

package pqos

import (
	"fmt"

	"github.com/pkg/errors"
)

// libpqos status codes, as defined by pqos.h.
const (
	retOK        = 0
	retError     = 1
	retParam     = 2
	retResource  = 3
	retInit      = 4
	retTransport = 5
	retPerfCtr   = 6
	retBusy      = 7
	retInterface = 8
	retOverflow  = 9
)

// ErrInvalidArgument marks arguments rejected by this binding before any
// native call is made.
var ErrInvalidArgument = errors.New("invalid argument")

// Sentinels for the non-success libpqos status codes. A NativeCallError
// unwraps to one of these so callers can match with errors.Is without
// remembering raw code values.
var (
	ErrGeneric   = errors.New("generic error")
	ErrParam     = errors.New("incorrect parameter")
	ErrResource  = errors.New("unavailable resource")
	ErrInit      = errors.New("initialization error")
	ErrTransport = errors.New("transport error")
	ErrPerfCtr   = errors.New("performance counter error")
	ErrBusy      = errors.New("resource busy")
	ErrInterface = errors.New("interface not supported")
	ErrOverflow  = errors.New("data overflow")
)

var retvalErrors = map[int]error{
	retError:     ErrGeneric,
	retParam:     ErrParam,
	retResource:  ErrResource,
	retInit:      ErrInit,
	retTransport: ErrTransport,
	retPerfCtr:   ErrPerfCtr,
	retBusy:      ErrBusy,
	retInterface: ErrInterface,
	retOverflow:  ErrOverflow,
}

// LoadError reports that the shared library could not be resolved or that
// one of its entry points is missing. It is fatal to any further operation.
type LoadError struct {
	Library string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Library, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NativeCallError reports a libpqos entry point returning a non-success
// status code. It carries the entry point name and the raw code; it never
// implies a retry.
type NativeCallError struct {
	Call string
	Code int
}

func (e *NativeCallError) Error() string {
	if known, ok := retvalErrors[e.Code]; ok {
		return fmt.Sprintf("%s returned %d: %v", e.Call, e.Code, known)
	}
	return fmt.Sprintf("%s returned unknown status %d", e.Call, e.Code)
}

func (e *NativeCallError) Unwrap() error {
	if known, ok := retvalErrors[e.Code]; ok {
		return known
	}
	return ErrGeneric
}

// checkRetval translates a native status code into an error, attaching the
// originating entry point name. Zero maps to nil.
func checkRetval(call string, code int32) error {
	if code == retOK {
		return nil
	}
	return &NativeCallError{Call: call, Code: int(code)}
}
