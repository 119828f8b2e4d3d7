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
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"
)

// LogCallback receives one native log line per call together with the
// context value given to Init. It runs on the goroutine that triggered the
// native call producing the line.
type LogCallback func(message string, context interface{})

type logSink struct {
	callback LogCallback
	context  interface{}
}

// logSinks maps the opaque token carried in pqos_config.context_log back to
// the registered Go callback. Tokens instead of pointers keep Go objects
// out of native memory entirely.
var logSinks = struct {
	sync.Mutex
	nextToken uintptr
	active    map[uintptr]*logSink
}{active: map[uintptr]*logSink{}}

func registerLogSink(callback LogCallback, context interface{}) uintptr {
	logSinks.Lock()
	defer logSinks.Unlock()
	logSinks.nextToken++
	token := logSinks.nextToken
	logSinks.active[token] = &logSink{callback: callback, context: context}
	return token
}

func dropLogSink(token uintptr) {
	if token == 0 {
		return
	}
	logSinks.Lock()
	defer logSinks.Unlock()
	delete(logSinks.active, token)
}

var (
	trampolineOnce sync.Once
	trampolinePtr  uintptr
)

// logTrampoline returns the C-callable thunk handed to pqos_init as
// callback_log. purego callbacks can never be released, so one static
// trampoline serves every session and dispatch goes through the sink
// registry instead.
func logTrampoline() uintptr {
	trampolineOnce.Do(func() {
		trampolinePtr = purego.NewCallback(dispatchLogMessage)
	})
	return trampolinePtr
}

// dispatchLogMessage matches the native callback_log signature
// (context, size, message). The message is NUL terminated by the library,
// so size is redundant and ignored. Unknown tokens are dropped silently:
// the library may still flush lines briefly after a sink is released.
func dispatchLogMessage(context, _, message uintptr) uintptr {
	logSinks.Lock()
	sink := logSinks.active[context]
	logSinks.Unlock()
	if sink == nil || sink.callback == nil {
		return 0
	}
	var text string
	if message != 0 {
		text = unix.BytePtrToString((*byte)(unsafe.Pointer(message))) //nolint:govet
	}
	sink.callback(text, sink.context)
	return 0
}
