package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
)

func TestActiveColumns(t *testing.T) {
	t.Parallel()

	mask, err := pqos.ParseMonEvents([]string{"llc", "mbl", "ipc"})
	require.NoError(t, err)

	headers := lo.Map(activeColumns(mask), func(col monColumn, _ int) string { return col.header })
	assert.Equal(t, []string{"IPC", "LLC[KB]", "MBL[MB/s]"}, headers)

	assert.Empty(t, activeColumns(0))
}

func TestMonColumnValues(t *testing.T) {
	t.Parallel()

	values := pqos.MonValues{
		LLC:            4 * 1024,
		MBMLocalDelta:  3_000_000,
		MBMTotalDelta:  6_000_000,
		IPC:            1.25,
		LLCMissesDelta: 1000,
	}
	byHeader := lo.SliceToMap(monColumns, func(col monColumn) (string, monColumn) {
		return col.header, col
	})

	interval := 2 * time.Second
	assert.InDelta(t, 4.0, byHeader["LLC[KB]"].value(values, interval), 1e-9)
	assert.InDelta(t, 1.5, byHeader["MBL[MB/s]"].value(values, interval), 1e-9)
	assert.InDelta(t, 3.0, byHeader["MBT[MB/s]"].value(values, interval), 1e-9)
	assert.InDelta(t, 1.25, byHeader["IPC"].value(values, interval), 1e-9)
	assert.InDelta(t, 500.0, byHeader["MISS/s"].value(values, interval), 1e-9)
}

func TestPrintMonHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printMonHeader(&buf, activeColumns(pqos.MonEventL3Occup|pqos.MonEventLocalMemBW))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "TIME"))
	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "LLC[KB]")
	assert.Contains(t, out, "MBL[MB/s]")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestPrintMonSummary(t *testing.T) {
	t.Parallel()

	targets := []*monTarget{
		{
			label: "0-3",
			series: map[string][]float64{
				"LLC[KB]": {100, 200, 300, 400},
			},
		},
		{
			label:  "pid:99",
			series: map[string][]float64{},
		},
	}
	cols := []monColumn{{header: "LLC[KB]", prec: 1}}

	var buf bytes.Buffer
	printMonSummary(&buf, targets, cols)

	out := buf.String()
	assert.Contains(t, out, "0-3: 4 samples")
	assert.Contains(t, out, "100.0")
	assert.Contains(t, out, "250.0")
	assert.Contains(t, out, "400.0")
	assert.NotContains(t, out, "pid:99")
}
