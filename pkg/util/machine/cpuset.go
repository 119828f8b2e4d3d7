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

// Package machine knows about the host: CPU list notation as used by
// sysfs and resctrl, and probing the machine for RDT related features.
package machine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CPUSet is an immutable set of logical CPU ids. The zero value is the
// empty set.
type CPUSet struct {
	elems map[int]struct{}
}

// NewCPUSet builds a set from individual CPU ids.
func NewCPUSet(cpus ...int) CPUSet {
	s := CPUSet{elems: map[int]struct{}{}}
	for _, cpu := range cpus {
		s.elems[cpu] = struct{}{}
	}
	return s
}

// Parse reads the kernel list notation used across sysfs and resctrl,
// e.g. "0-3,8,10-11". The empty string is the empty set.
func Parse(s string) (CPUSet, error) {
	result := NewCPUSet()
	if strings.TrimSpace(s) == "" {
		return result, nil
	}
	for _, chunk := range strings.Split(s, ",") {
		chunk = strings.TrimSpace(chunk)
		if bounds := strings.SplitN(chunk, "-", 2); len(bounds) == 2 {
			first, err := strconv.Atoi(bounds[0])
			if err != nil {
				return NewCPUSet(), errors.Wrapf(err, "failed to parse cpu range %q", chunk)
			}
			last, err := strconv.Atoi(bounds[1])
			if err != nil {
				return NewCPUSet(), errors.Wrapf(err, "failed to parse cpu range %q", chunk)
			}
			if first > last {
				return NewCPUSet(), errors.Errorf("invalid cpu range %q: start after end", chunk)
			}
			for cpu := first; cpu <= last; cpu++ {
				result.elems[cpu] = struct{}{}
			}
			continue
		}
		cpu, err := strconv.Atoi(chunk)
		if err != nil {
			return NewCPUSet(), errors.Wrapf(err, "failed to parse cpu id %q", chunk)
		}
		result.elems[cpu] = struct{}{}
	}
	return result, nil
}

// MustParse is Parse for trusted literals; it panics on malformed input.
func MustParse(s string) CPUSet {
	set, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return set
}

// Size returns the number of CPUs in the set.
func (s CPUSet) Size() int { return len(s.elems) }

// IsEmpty reports whether the set has no CPUs.
func (s CPUSet) IsEmpty() bool { return len(s.elems) == 0 }

// Contains reports whether cpu is in the set.
func (s CPUSet) Contains(cpu int) bool {
	_, ok := s.elems[cpu]
	return ok
}

// Equals reports whether both sets hold exactly the same CPUs.
func (s CPUSet) Equals(other CPUSet) bool {
	if len(s.elems) != len(other.elems) {
		return false
	}
	for cpu := range s.elems {
		if !other.Contains(cpu) {
			return false
		}
	}
	return true
}

// Union returns a new set with the CPUs of both sets.
func (s CPUSet) Union(other CPUSet) CPUSet {
	result := NewCPUSet()
	for cpu := range s.elems {
		result.elems[cpu] = struct{}{}
	}
	for cpu := range other.elems {
		result.elems[cpu] = struct{}{}
	}
	return result
}

// Intersection returns a new set with the CPUs present in both sets.
func (s CPUSet) Intersection(other CPUSet) CPUSet {
	result := NewCPUSet()
	for cpu := range s.elems {
		if other.Contains(cpu) {
			result.elems[cpu] = struct{}{}
		}
	}
	return result
}

// Difference returns a new set with the CPUs of s not present in other.
func (s CPUSet) Difference(other CPUSet) CPUSet {
	result := NewCPUSet()
	for cpu := range s.elems {
		if !other.Contains(cpu) {
			result.elems[cpu] = struct{}{}
		}
	}
	return result
}

// ToSliceInt returns the CPUs in ascending order.
func (s CPUSet) ToSliceInt() []int {
	result := make([]int, 0, len(s.elems))
	for cpu := range s.elems {
		result = append(result, cpu)
	}
	sort.Ints(result)
	return result
}

// ToSliceUInt32 returns the CPUs in ascending order as uint32, the width
// logical core ids have on the native side.
func (s CPUSet) ToSliceUInt32() []uint32 {
	ints := s.ToSliceInt()
	result := make([]uint32, 0, len(ints))
	for _, cpu := range ints {
		result = append(result, uint32(cpu))
	}
	return result
}

// String renders the canonical kernel list notation with collapsed
// ranges, e.g. "0-3,8,10-11".
func (s CPUSet) String() string {
	cpus := s.ToSliceInt()
	if len(cpus) == 0 {
		return ""
	}

	var b strings.Builder
	appendRange := func(first, last int) {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if first == last {
			b.WriteString(strconv.Itoa(first))
			return
		}
		b.WriteString(strconv.Itoa(first))
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(last))
	}

	first, last := cpus[0], cpus[0]
	for _, cpu := range cpus[1:] {
		if cpu == last+1 {
			last = cpu
			continue
		}
		appendRange(first, last)
		first, last = cpu, cpu
	}
	appendRange(first, last)
	return b.String()
}
