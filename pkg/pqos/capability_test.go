package pqos

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeMonCap() *monCapBuffer {
	return &monCapBuffer{
		header: rawCapMon{memSize: uint32(unsafe.Sizeof(monCapBuffer{})), maxRMID: 256, l3Size: 34603008, numEvents: 4},
		events: [4]rawMonitor{
			{eventType: int32(MonEventL3Occup), maxRMID: 256, scaleFactor: 106496},
			{eventType: int32(MonEventLocalMemBW), maxRMID: 256, scaleFactor: 24},
			{eventType: int32(MonEventTotalMemBW), maxRMID: 256, scaleFactor: 24},
			{eventType: int32(PerfEventIPC)},
		},
	}
}

func TestDecodeCapabilities(t *testing.T) {
	mon := fakeMonCap()
	l3 := &rawCapL3CA{memSize: 32, numClasses: 8, numWays: 12, waySize: 2883584, wayContention: 0xc00, cdp: 1}
	mba := &rawCapMBA{memSize: 28, numClasses: 8, throttleMax: 90, throttleStep: 10, isLinear: 1, ctrl: 1}

	block := &capBuffer{header: rawCap{version: 50200, numCap: 3}}
	block.entries[0] = rawCapability{capType: capTypeMon, u: uintptr(unsafe.Pointer(mon))}
	block.entries[1] = rawCapability{capType: capTypeL3CA, u: uintptr(unsafe.Pointer(l3))}
	block.entries[2] = rawCapability{capType: capTypeMBA, u: uintptr(unsafe.Pointer(mba))}

	caps := decodeCapabilities(uintptr(unsafe.Pointer(block)))
	runtime.KeepAlive(mon)
	runtime.KeepAlive(l3)
	runtime.KeepAlive(mba)
	runtime.KeepAlive(block)

	require.NotNil(t, caps)
	assert.Equal(t, uint32(50200), caps.Version)

	require.NotNil(t, caps.Mon)
	assert.Equal(t, uint32(256), caps.Mon.MaxRMID)
	assert.Equal(t, uint32(34603008), caps.Mon.L3Size)
	require.Len(t, caps.Mon.Events, 4)
	assert.Equal(t, MonEventL3Occup, caps.Mon.Events[0].Event)
	assert.Equal(t, uint32(106496), caps.Mon.Events[0].ScaleFactor)
	assert.Equal(t, MonEventL3Occup|MonEventLocalMemBW|MonEventTotalMemBW|PerfEventIPC, caps.Mon.EventMask())

	require.NotNil(t, caps.L3CA)
	assert.Equal(t, uint32(8), caps.L3CA.NumClasses)
	assert.Equal(t, uint32(12), caps.L3CA.NumWays)
	assert.Equal(t, uint64(0xc00), caps.L3CA.WayContention)
	assert.True(t, caps.L3CA.CDP)
	assert.False(t, caps.L3CA.CDPOn)

	require.NotNil(t, caps.MBA)
	assert.Equal(t, uint32(90), caps.MBA.ThrottleMax)
	assert.True(t, caps.MBA.IsLinear)
	assert.True(t, caps.MBA.Ctrl)

	assert.Nil(t, caps.L2CA)
	assert.True(t, caps.Supports(TechnologyMon|TechnologyL3CA|TechnologyMBA))
	assert.False(t, caps.Supports(TechnologyL2CA))
}

func TestDecodeCapabilitiesEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, decodeCapabilities(0))

	block := &capBuffer{header: rawCap{version: 1, numCap: 0}}
	caps := decodeCapabilities(uintptr(unsafe.Pointer(block)))
	runtime.KeepAlive(block)

	require.NotNil(t, caps)
	assert.Nil(t, caps.Mon)
	assert.False(t, caps.Supports(TechnologyMon))
}

func fakeCPU() *cpuBuffer {
	block := &cpuBuffer{
		header: rawCPUInfo{
			memSize:  uint32(unsafe.Sizeof(cpuBuffer{})),
			l2:       rawCacheInfo{detected: 1, numWays: 20, numSets: 1024, numPartitions: 1, lineSize: 64, totalSize: 1310720, waySize: 65536},
			l3:       rawCacheInfo{detected: 1, numWays: 12, numSets: 57344, numPartitions: 1, lineSize: 64, totalSize: 44040192, waySize: 3670016},
			vendor:   int32(VendorIntel),
			numCores: 8,
		},
	}
	// Cores deliberately out of order to exercise sorting in the helpers.
	for i, lcore := range []uint32{1, 0, 3, 2, 5, 4, 7, 6} {
		socket := lcore / 4
		block.cores[i] = rawCoreInfo{lcore: lcore, socket: socket, l3ID: socket, l2ID: lcore / 2, l3catID: socket, mbaID: socket}
	}
	return block
}

func TestDecodeCPUInfo(t *testing.T) {
	block := fakeCPU()

	info := decodeCPUInfo(uintptr(unsafe.Pointer(block)))
	runtime.KeepAlive(block)

	require.NotNil(t, info)
	assert.Equal(t, VendorIntel, info.Vendor)
	assert.Equal(t, "Intel", info.Vendor.String())
	assert.True(t, info.L3.Detected)
	assert.Equal(t, uint32(12), info.L3.NumWays)
	assert.Equal(t, uint32(1310720), info.L2.TotalSize)
	require.Len(t, info.Cores, 8)

	assert.Equal(t, []uint32{0, 1}, info.Sockets())
	assert.Equal(t, []uint32{0, 1}, info.L3CATIDs())
	assert.Equal(t, []uint32{0, 1}, info.MBAIDs())
	assert.Equal(t, []uint32{0, 1, 2, 3}, info.SocketCores(0))
	assert.Equal(t, []uint32{4, 5, 6, 7}, info.SocketCores(1))
	assert.Equal(t, []uint32{4, 5, 6, 7}, info.L3Cores(1))
	assert.Empty(t, info.SocketCores(2))

	core, ok := info.Core(5)
	require.True(t, ok)
	assert.Equal(t, uint32(1), core.Socket)
	assert.Equal(t, uint32(2), core.L2ID)

	_, ok = info.Core(99)
	assert.False(t, ok)
}

func TestDecodeCPUInfoNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, decodeCPUInfo(0))
}

func TestHandleCapabilities(t *testing.T) {
	mon := fakeMonCap()
	capBlock := &capBuffer{header: rawCap{version: 3, numCap: 1}}
	capBlock.entries[0] = rawCapability{capType: capTypeMon, u: uintptr(unsafe.Pointer(mon))}
	cpuBlock := fakeCPU()

	stub := &stubLib{onCapGet: func(capOut, cpuOut *uintptr) int32 {
		*capOut = uintptr(unsafe.Pointer(capBlock))
		*cpuOut = uintptr(unsafe.Pointer(cpuBlock))
		return retOK
	}}

	caps, cpu, err := newHandle(stub).Capabilities()
	runtime.KeepAlive(mon)
	runtime.KeepAlive(capBlock)
	runtime.KeepAlive(cpuBlock)

	require.NoError(t, err)
	require.NotNil(t, caps)
	require.NotNil(t, cpu)
	assert.NotNil(t, caps.Mon)
	assert.Len(t, cpu.Cores, 8)
}

func TestHandleCapabilitiesError(t *testing.T) {
	stub := &stubLib{onCapGet: func(capOut, cpuOut *uintptr) int32 { return retInit }}

	_, _, err := newHandle(stub).Capabilities()
	require.Error(t, err)

	var callErr *NativeCallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "pqos_cap_get", callErr.Call)
}

func TestSystemConfigViews(t *testing.T) {
	mon := fakeMonCap()
	capBlock := &capBuffer{header: rawCap{version: 3, numCap: 1}}
	capBlock.entries[0] = rawCapability{capType: capTypeMon, u: uintptr(unsafe.Pointer(mon))}
	cpuBlock := fakeCPU()
	sys := &rawSysConfig{
		cap: uintptr(unsafe.Pointer(capBlock)),
		cpu: uintptr(unsafe.Pointer(cpuBlock)),
	}

	stub := &stubLib{onSysConfigGet: func(out *uintptr) int32 {
		*out = uintptr(unsafe.Pointer(sys))
		return retOK
	}}

	cfg, err := newHandle(stub).SystemConfig()
	require.NoError(t, err)

	caps := cfg.Capabilities()
	cpu := cfg.CPU()
	runtime.KeepAlive(mon)
	runtime.KeepAlive(capBlock)
	runtime.KeepAlive(cpuBlock)
	runtime.KeepAlive(sys)

	require.NotNil(t, caps)
	assert.NotNil(t, caps.Mon)
	require.NotNil(t, cpu)
	assert.Equal(t, []uint32{0, 1}, cpu.Sockets())
	assert.False(t, cfg.HasDeviceInfo())
}
