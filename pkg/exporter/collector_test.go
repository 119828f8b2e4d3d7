package exporter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
)

type fakeMonGroup struct {
	mu      sync.Mutex
	events  pqos.MonEvent
	cores   []uint32
	pids    []int
	values  pqos.MonValues
	stopped int
}

func (g *fakeMonGroup) Event() pqos.MonEvent   { return g.events }
func (g *fakeMonGroup) Values() pqos.MonValues { return g.values }

func (g *fakeMonGroup) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped++
	return nil
}

func (g *fakeMonGroup) stopCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

type fakeMonService struct {
	mu      sync.Mutex
	groups  []*fakeMonGroup
	starts  int
	failOn  int // 1-based start call to fail, 0 never fails
	polls   int
	pollErr error
}

func (s *fakeMonService) start(g *fakeMonGroup) (monGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.starts++
	if s.failOn != 0 && s.starts == s.failOn {
		return nil, pqos.ErrResource
	}
	s.groups = append(s.groups, g)
	return g, nil
}

func (s *fakeMonService) StartCores(cores []uint32, events pqos.MonEvent) (monGroup, error) {
	return s.start(&fakeMonGroup{events: events, cores: cores})
}

func (s *fakeMonService) StartPids(pids []int, events pqos.MonEvent) (monGroup, error) {
	return s.start(&fakeMonGroup{events: events, pids: pids})
}

func (s *fakeMonService) Poll(groups []monGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.polls++
	return s.pollErr
}

func (s *fakeMonService) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func (s *fakeMonService) startedGroups() []*fakeMonGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeMonGroup(nil), s.groups...)
}

func testGroupsConfig() *Config {
	return &Config{
		Groups: []GroupConfig{
			{Name: "col-web", Cores: "0-1", Events: []string{"llc", "mbl"}},
			{Name: "col-batch", Pids: []int{1234}, Events: []string{"ipc"}},
		},
	}
}

func TestNewCollectorStartsGroups(t *testing.T) {
	svc := &fakeMonService{}

	collector, err := newCollector(svc, testGroupsConfig())
	require.NoError(t, err)

	groups := svc.startedGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, []uint32{0, 1}, groups[0].cores)
	assert.Equal(t, pqos.MonEventL3Occup|pqos.MonEventLocalMemBW, groups[0].events)
	assert.Equal(t, []int{1234}, groups[1].pids)
	assert.Equal(t, pqos.PerfEventIPC, groups[1].events)
	assert.Equal(t, 2.0, testutil.ToFloat64(monitoredGroups))

	collector.Close()
	assert.Equal(t, 1, groups[0].stopCount())
	assert.Equal(t, 1, groups[1].stopCount())
	assert.Equal(t, 0.0, testutil.ToFloat64(monitoredGroups))
}

func TestNewCollectorRollsBackOnStartFailure(t *testing.T) {
	svc := &fakeMonService{failOn: 2}

	_, err := newCollector(svc, testGroupsConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, pqos.ErrResource)
	assert.Contains(t, err.Error(), "col-batch")

	groups := svc.startedGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].stopCount())
}

func TestCollectorPollPublishesValues(t *testing.T) {
	svc := &fakeMonService{}
	cfg := &Config{
		Interval: Duration(2 * time.Second),
		Groups: []GroupConfig{
			{Name: "col-poll", Cores: "0", Events: []string{"llc", "mbl"}},
		},
	}

	collector, err := newCollector(svc, cfg)
	require.NoError(t, err)
	defer collector.Close()

	svc.startedGroups()[0].values = pqos.MonValues{LLC: 8192, MBMLocalDelta: 4000}
	require.NoError(t, collector.Poll())

	assert.Equal(t, 8192.0, testutil.ToFloat64(llcOccupancy.WithLabelValues("col-poll")))
	assert.Equal(t, 2000.0, testutil.ToFloat64(mbmLocalRate.WithLabelValues("col-poll")))
}

func TestCollectorPollErrorIsCounted(t *testing.T) {
	svc := &fakeMonService{pollErr: pqos.ErrTransport}
	cfg := &Config{
		Groups: []GroupConfig{
			{Name: "col-err", Cores: "0", Events: []string{"llc"}},
		},
	}

	collector, err := newCollector(svc, cfg)
	require.NoError(t, err)
	defer collector.Close()

	before := testutil.ToFloat64(pollErrorsTotal)
	require.ErrorIs(t, collector.Poll(), pqos.ErrTransport)
	assert.Equal(t, before+1, testutil.ToFloat64(pollErrorsTotal))

	// The failed poll must not publish anything for the group.
	assert.False(t, llcOccupancy.DeleteLabelValues("col-err"))
}

func TestCollectorRunStopsWithContext(t *testing.T) {
	svc := &fakeMonService{}
	cfg := &Config{
		Groups: []GroupConfig{
			{Name: "col-run", Cores: "0", Events: []string{"llc"}},
		},
	}

	collector, err := newCollector(svc, cfg)
	require.NoError(t, err)
	defer collector.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = collector.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, svc.pollCount())
}
