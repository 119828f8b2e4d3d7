package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCPUSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    []int
		wantErr bool
	}{
		{name: "empty", in: "", want: []int{}},
		{name: "blank", in: "   ", want: []int{}},
		{name: "single", in: "3", want: []int{3}},
		{name: "range", in: "0-3", want: []int{0, 1, 2, 3}},
		{name: "mixed", in: "0-2,8,10-11", want: []int{0, 1, 2, 8, 10, 11}},
		{name: "spaces around chunks", in: " 0-1, 4 ", want: []int{0, 1, 4}},
		{name: "duplicates collapse", in: "1,1,1-2", want: []int{1, 2}},
		{name: "reversed range", in: "5-2", wantErr: true},
		{name: "garbage", in: "a-b", wantErr: true},
		{name: "trailing comma", in: "1,", wantErr: true},
		{name: "bare dash", in: "-", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ToSliceInt())
		})
	}
}

func TestMustParsePanicsOnBadInput(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustParse("not-a-cpu-list") })
	assert.Equal(t, 3, MustParse("0,2,4").Size())
}

func TestCPUSetString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		set  CPUSet
		want string
	}{
		{name: "empty", set: NewCPUSet(), want: ""},
		{name: "single", set: NewCPUSet(7), want: "7"},
		{name: "collapsed run", set: NewCPUSet(0, 1, 2, 3), want: "0-3"},
		{name: "unsorted input", set: NewCPUSet(5, 3, 4, 9), want: "3-5,9"},
		{name: "pairs stay ranges", set: MustParse("0-1,3-4"), want: "0-1,3-4"},
		{name: "round trip", set: MustParse("0-2,8,10-11"), want: "0-2,8,10-11"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.set.String())
		})
	}
}

func TestCPUSetOperations(t *testing.T) {
	t.Parallel()

	a := MustParse("0-3")
	b := MustParse("2-5")

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, a.Union(b).ToSliceInt())
	assert.Equal(t, []int{2, 3}, a.Intersection(b).ToSliceInt())
	assert.Equal(t, []int{0, 1}, a.Difference(b).ToSliceInt())
	assert.Equal(t, []int{4, 5}, b.Difference(a).ToSliceInt())

	assert.True(t, a.Contains(0))
	assert.False(t, a.Contains(4))
	assert.True(t, a.Equals(NewCPUSet(3, 2, 1, 0)))
	assert.False(t, a.Equals(b))

	assert.True(t, NewCPUSet().IsEmpty())
	assert.False(t, a.IsEmpty())
	assert.Equal(t, 4, a.Size())

	// Operations never mutate their operands.
	assert.Equal(t, "0-3", a.String())
	assert.Equal(t, "2-5", b.String())
}

func TestCPUSetToSliceUInt32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []uint32{0, 2, 9}, NewCPUSet(9, 0, 2).ToSliceUInt32())
	assert.Empty(t, NewCPUSet().ToSliceUInt32())
}
