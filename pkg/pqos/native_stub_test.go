package pqos

// stubLib is a scriptable nativeLib. Every hook is optional; calls without
// a hook succeed and the counters still record that the entry point was
// reached, so tests can assert both invocation and non-invocation.
type stubLib struct {
	initCalls int
	onInit    func(cfg *rawConfig) int32

	finiCalls int
	onFini    func() int32

	onSysConfigGet func(out *uintptr) int32
	onCapGet       func(cap, cpu *uintptr) int32

	onMonReset      func() int32
	onMonStart      func(numCores uint32, cores *uint32, event uint32, context uintptr, group *rawMonData) int32
	onMonStartPids  func(numPids uint32, pids *int32, event uint32, context uintptr, group *rawMonData) int32
	onMonAddPids    func(numPids uint32, pids *int32, group *rawMonData) int32
	onMonRemovePids func(numPids uint32, pids *int32, group *rawMonData) int32
	onMonPoll       func(groups *uintptr, numGroups uint32) int32
	onMonStop       func(group *rawMonData) int32

	onAllocAssocSet    func(lcore, classID uint32) int32
	onAllocAssocGet    func(lcore uint32, classID *uint32) int32
	onAllocAssocSetPid func(pid int32, classID uint32) int32
	onAllocAssocGetPid func(pid int32, classID *uint32) int32
	onAllocAssign      func(technology uint32, cores *uint32, numCores uint32, classID *uint32) int32
	onAllocRelease     func(cores *uint32, numCores uint32) int32
	onAllocAssignPid   func(technology uint32, pids *int32, numPids uint32, classID *uint32) int32
	onAllocReleasePid  func(pids *int32, numPids uint32) int32
	onAllocReset       func(l3CDP, l2CDP, mba int32) int32

	onL3CASet     func(l3catID, numCOS uint32, ca *rawL3CA) int32
	onL3CAGet     func(l3catID, maxNumCA uint32, numCA *uint32, ca *rawL3CA) int32
	onL3CAMinBits func(minBits *uint32) int32
	onL2CASet     func(l2catID, numCOS uint32, ca *rawL2CA) int32
	onL2CAGet     func(l2catID, maxNumCA uint32, numCA *uint32, ca *rawL2CA) int32
	onL2CAMinBits func(minBits *uint32) int32
	onMBASet      func(mbaID, numCOS uint32, requested, actual *rawMBA) int32
	onMBAGet      func(mbaID, maxNumCOS uint32, numCOS *uint32, mba *rawMBA) int32
}

func (s *stubLib) Init(cfg *rawConfig) int32 {
	s.initCalls++
	if s.onInit != nil {
		return s.onInit(cfg)
	}
	return retOK
}

func (s *stubLib) Fini() int32 {
	s.finiCalls++
	if s.onFini != nil {
		return s.onFini()
	}
	return retOK
}

func (s *stubLib) SysConfigGet(out *uintptr) int32 {
	if s.onSysConfigGet != nil {
		return s.onSysConfigGet(out)
	}
	return retOK
}

func (s *stubLib) CapGet(cap, cpu *uintptr) int32 {
	if s.onCapGet != nil {
		return s.onCapGet(cap, cpu)
	}
	return retOK
}

func (s *stubLib) MonReset() int32 {
	if s.onMonReset != nil {
		return s.onMonReset()
	}
	return retOK
}

func (s *stubLib) MonStart(numCores uint32, cores *uint32, event uint32, context uintptr, group *rawMonData) int32 {
	if s.onMonStart != nil {
		return s.onMonStart(numCores, cores, event, context, group)
	}
	return retOK
}

func (s *stubLib) MonStartPids(numPids uint32, pids *int32, event uint32, context uintptr, group *rawMonData) int32 {
	if s.onMonStartPids != nil {
		return s.onMonStartPids(numPids, pids, event, context, group)
	}
	return retOK
}

func (s *stubLib) MonAddPids(numPids uint32, pids *int32, group *rawMonData) int32 {
	if s.onMonAddPids != nil {
		return s.onMonAddPids(numPids, pids, group)
	}
	return retOK
}

func (s *stubLib) MonRemovePids(numPids uint32, pids *int32, group *rawMonData) int32 {
	if s.onMonRemovePids != nil {
		return s.onMonRemovePids(numPids, pids, group)
	}
	return retOK
}

func (s *stubLib) MonPoll(groups *uintptr, numGroups uint32) int32 {
	if s.onMonPoll != nil {
		return s.onMonPoll(groups, numGroups)
	}
	return retOK
}

func (s *stubLib) MonStop(group *rawMonData) int32 {
	if s.onMonStop != nil {
		return s.onMonStop(group)
	}
	return retOK
}

func (s *stubLib) AllocAssocSet(lcore, classID uint32) int32 {
	if s.onAllocAssocSet != nil {
		return s.onAllocAssocSet(lcore, classID)
	}
	return retOK
}

func (s *stubLib) AllocAssocGet(lcore uint32, classID *uint32) int32 {
	if s.onAllocAssocGet != nil {
		return s.onAllocAssocGet(lcore, classID)
	}
	return retOK
}

func (s *stubLib) AllocAssocSetPid(pid int32, classID uint32) int32 {
	if s.onAllocAssocSetPid != nil {
		return s.onAllocAssocSetPid(pid, classID)
	}
	return retOK
}

func (s *stubLib) AllocAssocGetPid(pid int32, classID *uint32) int32 {
	if s.onAllocAssocGetPid != nil {
		return s.onAllocAssocGetPid(pid, classID)
	}
	return retOK
}

func (s *stubLib) AllocAssign(technology uint32, cores *uint32, numCores uint32, classID *uint32) int32 {
	if s.onAllocAssign != nil {
		return s.onAllocAssign(technology, cores, numCores, classID)
	}
	return retOK
}

func (s *stubLib) AllocRelease(cores *uint32, numCores uint32) int32 {
	if s.onAllocRelease != nil {
		return s.onAllocRelease(cores, numCores)
	}
	return retOK
}

func (s *stubLib) AllocAssignPid(technology uint32, pids *int32, numPids uint32, classID *uint32) int32 {
	if s.onAllocAssignPid != nil {
		return s.onAllocAssignPid(technology, pids, numPids, classID)
	}
	return retOK
}

func (s *stubLib) AllocReleasePid(pids *int32, numPids uint32) int32 {
	if s.onAllocReleasePid != nil {
		return s.onAllocReleasePid(pids, numPids)
	}
	return retOK
}

func (s *stubLib) AllocReset(l3CDP, l2CDP, mba int32) int32 {
	if s.onAllocReset != nil {
		return s.onAllocReset(l3CDP, l2CDP, mba)
	}
	return retOK
}

func (s *stubLib) L3CASet(l3catID, numCOS uint32, ca *rawL3CA) int32 {
	if s.onL3CASet != nil {
		return s.onL3CASet(l3catID, numCOS, ca)
	}
	return retOK
}

func (s *stubLib) L3CAGet(l3catID, maxNumCA uint32, numCA *uint32, ca *rawL3CA) int32 {
	if s.onL3CAGet != nil {
		return s.onL3CAGet(l3catID, maxNumCA, numCA, ca)
	}
	return retOK
}

func (s *stubLib) L3CAMinBits(minBits *uint32) int32 {
	if s.onL3CAMinBits != nil {
		return s.onL3CAMinBits(minBits)
	}
	return retOK
}

func (s *stubLib) L2CASet(l2catID, numCOS uint32, ca *rawL2CA) int32 {
	if s.onL2CASet != nil {
		return s.onL2CASet(l2catID, numCOS, ca)
	}
	return retOK
}

func (s *stubLib) L2CAGet(l2catID, maxNumCA uint32, numCA *uint32, ca *rawL2CA) int32 {
	if s.onL2CAGet != nil {
		return s.onL2CAGet(l2catID, maxNumCA, numCA, ca)
	}
	return retOK
}

func (s *stubLib) L2CAMinBits(minBits *uint32) int32 {
	if s.onL2CAMinBits != nil {
		return s.onL2CAMinBits(minBits)
	}
	return retOK
}

func (s *stubLib) MBASet(mbaID, numCOS uint32, requested, actual *rawMBA) int32 {
	if s.onMBASet != nil {
		return s.onMBASet(mbaID, numCOS, requested, actual)
	}
	return retOK
}

func (s *stubLib) MBAGet(mbaID, maxNumCOS uint32, numCOS *uint32, mba *rawMBA) int32 {
	if s.onMBAGet != nil {
		return s.onMBAGet(mbaID, maxNumCOS, numCOS, mba)
	}
	return retOK
}

// capBuffer assembles a fake capability block the way the library lays it
// out in memory: the pqos_cap header followed by its capability entries.
type capBuffer struct {
	header  rawCap
	entries [4]rawCapability
}

// monCapBuffer assembles a fake pqos_cap_mon block with its event table.
type monCapBuffer struct {
	header rawCapMon
	events [4]rawMonitor
}

// cpuBuffer assembles a fake pqos_cpuinfo block with its core table.
type cpuBuffer struct {
	header rawCPUInfo
	cores  [8]rawCoreInfo
}
