package pqos

import (
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL2CARoundTrip(t *testing.T) {
	l2 := &rawCapL2CA{memSize: 32, numClasses: 4, numWays: 20}
	block := &capBuffer{header: rawCap{numCap: 1}}
	block.entries[0] = rawCapability{capType: capTypeL2CA, u: uintptr(unsafe.Pointer(l2))}

	var captured []rawL2CA
	stub := &stubLib{
		onCapGet: func(capOut, cpuOut *uintptr) int32 {
			*capOut = uintptr(unsafe.Pointer(block))
			return retOK
		},
		onL2CASet: func(l2catID, numCOS uint32, ca *rawL2CA) int32 {
			captured = append(captured, unsafe.Slice(ca, numCOS)...)
			return retOK
		},
		onL2CAGet: func(l2catID, maxNumCA uint32, numCA *uint32, ca *rawL2CA) int32 {
			out := unsafe.Slice(ca, maxNumCA)
			out[0] = rawL2CA{classID: 0, dataMask: 0xfffff}
			out[1] = rawL2CA{classID: 1, cdp: 1, dataMask: 0xff, codeMask: 0xff00}
			*numCA = 2
			return retOK
		},
	}
	h := newHandle(stub)

	require.NoError(t, h.SetL2CA(2, []L2CA{{ClassID: 0, WaysMask: 0xf}}))
	require.Len(t, captured, 1)
	assert.Equal(t, uint64(0xf), captured[0].dataMask)

	entries, err := h.GetL2CA(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, L2CA{ClassID: 0, WaysMask: 0xfffff}, entries[0])
	assert.Equal(t, L2CA{ClassID: 1, CDP: true, DataMask: 0xff, CodeMask: 0xff00}, entries[1])
}

func TestL2CAValidation(t *testing.T) {
	t.Parallel()

	err := L2CA{ClassID: 3, CDP: true, WaysMask: 0xf}.validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	err = L2CA{ClassID: 3, CodeMask: 0xf}.validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	assert.NoError(t, L2CA{ClassID: 3, WaysMask: 0xf}.validate())
	assert.NoError(t, L2CA{ClassID: 3, CDP: true, DataMask: 0x3, CodeMask: 0xc}.validate())
}

func TestL2CAMinBits(t *testing.T) {
	stub := &stubLib{onL2CAMinBits: func(minBits *uint32) int32 {
		*minBits = 1
		return retOK
	}}

	minBits, err := newHandle(stub).L2CAMinBits()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), minBits)
}
