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

// Package general carries small helpers shared across the module: caller
// tagged logging on top of klog and a context aware ticker loop.
package general

import (
	"fmt"
	"runtime"
	"strings"

	"k8s.io/klog/v2"
)

const callDepth = 3

const modulePrefix = "github.com/ludoplex/"

// callerTag returns the calling function's import path and name with the
// module prefix stripped, so log lines carry their origin without
// hardcoding function names in every message.
func callerTag() string {
	pc, _, _, ok := runtime.Caller(callDepth)
	if !ok {
		return ""
	}
	return strings.TrimPrefix(runtime.FuncForPC(pc).Name(), modulePrefix)
}

func tagged(message string, params ...interface{}) string {
	return "[" + callerTag() + "] " + fmt.Sprintf(message, params...)
}

func Infof(message string, params ...interface{}) {
	klog.InfofDepth(1, tagged(message, params...))
}

func InfofV(level int, message string, params ...interface{}) {
	klog.V(klog.Level(level)).InfofDepth(1, tagged(message, params...))
}

func Warningf(message string, params ...interface{}) {
	klog.WarningfDepth(1, tagged(message, params...))
}

func Errorf(message string, params ...interface{}) {
	klog.ErrorfDepth(1, tagged(message, params...))
}

func ErrorS(err error, message string, params ...interface{}) {
	klog.ErrorSDepth(1, err, tagged(message), params...)
}

func Fatalf(message string, params ...interface{}) {
	klog.FatalfDepth(1, tagged(message, params...))
}
