package pqos

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cString builds a NUL terminated buffer the way the native library hands
// log lines to the callback.
func cString(t *testing.T, text string) ([]byte, uintptr) {
	t.Helper()
	buf := append([]byte(text), 0)
	return buf, uintptr(unsafe.Pointer(&buf[0]))
}

func TestDispatchLogMessage(t *testing.T) {
	type received struct {
		message string
		context interface{}
	}
	var calls []received
	token := registerLogSink(func(message string, context interface{}) {
		calls = append(calls, received{message: message, context: context})
	}, "session-1")
	defer dropLogSink(token)

	buf, message := cString(t, "INFO: allocation reset")
	dispatchLogMessage(token, uintptr(len(buf)), message)
	runtime.KeepAlive(buf)

	require.Len(t, calls, 1)
	assert.Equal(t, "INFO: allocation reset", calls[0].message)
	assert.Equal(t, "session-1", calls[0].context)
}

func TestDispatchLogMessageUnknownToken(t *testing.T) {
	called := false
	token := registerLogSink(func(string, interface{}) { called = true }, nil)
	defer dropLogSink(token)

	buf, message := cString(t, "stray line")
	dispatchLogMessage(token+1000, uintptr(len(buf)), message)
	runtime.KeepAlive(buf)

	assert.False(t, called, "messages for unknown tokens must be dropped")
}

func TestDispatchLogMessageAfterDrop(t *testing.T) {
	calls := 0
	token := registerLogSink(func(string, interface{}) { calls++ }, nil)

	buf, message := cString(t, "first")
	dispatchLogMessage(token, uintptr(len(buf)), message)
	dropLogSink(token)
	dispatchLogMessage(token, uintptr(len(buf)), message)
	runtime.KeepAlive(buf)

	assert.Equal(t, 1, calls, "dropped sinks must not receive further lines")
}

func TestDispatchLogMessageNilMessage(t *testing.T) {
	var got *string
	token := registerLogSink(func(message string, _ interface{}) { got = &message }, nil)
	defer dropLogSink(token)

	dispatchLogMessage(token, 0, 0)

	require.NotNil(t, got)
	assert.Equal(t, "", *got)
}

func TestRegisterLogSinkTokensAreUnique(t *testing.T) {
	first := registerLogSink(func(string, interface{}) {}, nil)
	second := registerLogSink(func(string, interface{}) {}, nil)
	defer dropLogSink(first)
	defer dropLogSink(second)

	assert.NotEqual(t, first, second)
}

func TestLogTrampolineIsStable(t *testing.T) {
	assert.Equal(t, logTrampoline(), logTrampoline())
	assert.NotZero(t, logTrampoline())
}
