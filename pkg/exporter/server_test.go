package exporter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerHandler(t *testing.T) {
	svc := &fakeMonService{}
	s := &Server{svc: svc, cfg: &Config{Listen: DefaultListen}}
	handler := s.handler()

	healthz := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		return rec
	}

	// No collector yet.
	assert.Equal(t, http.StatusServiceUnavailable, healthz().Code)

	collector, err := newCollector(svc, &Config{
		Interval: Duration(200 * time.Millisecond),
		Groups: []GroupConfig{
			{Name: "srv-handler", Cores: "0", Events: []string{"llc"}},
		},
	})
	require.NoError(t, err)
	defer collector.Close()
	s.setCurrent(collector)

	// Active collector, first poll pending.
	assert.Equal(t, http.StatusOK, healthz().Code)

	require.NoError(t, collector.Poll())
	rec := healthz()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	// A collector that stopped polling goes unhealthy.
	collector.lastPoll.Store(time.Now().Add(-time.Hour))
	assert.Equal(t, http.StatusServiceUnavailable, healthz().Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pqos_monitored_groups")
}

func TestWatchConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups: []\n"), 0o644))

	notify := make(chan struct{}, 1)
	stop, err := watchConfig(path, notify)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("groups: [] # touched\n"), 0o644))
	select {
	case <-notify:
	case <-time.After(2 * time.Second):
		t.Fatal("no notification after config write")
	}

	// Writes to other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x\n"), 0o644))
	select {
	case <-notify:
		t.Fatal("unexpected notification for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func writeConfigAtomically(t *testing.T, path, content string) {
	t.Helper()

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestServerRunLifecycle(t *testing.T) {
	svc := &fakeMonService{}
	cfg := &Config{
		Listen:   "127.0.0.1:0",
		Interval: Duration(200 * time.Millisecond),
		Groups: []GroupConfig{
			{Name: "srv-run", Cores: "0", Events: []string{"llc"}},
		},
	}

	s := &Server{svc: svc, cfg: cfg}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.pollCount() > 0 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}

	groups := svc.startedGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].stopCount())
}

func TestServerRunReloadsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigAtomically(t, path, `
listen: "127.0.0.1:0"
interval: 200ms
groups:
  - name: srv-reload-a
    cores: "0"
    events: [llc]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	svc := &fakeMonService{}
	s := &Server{svc: svc, cfg: cfg, configPath: path}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.pollCount() > 0 },
		2*time.Second, 10*time.Millisecond)

	writeConfigAtomically(t, path, `
listen: "127.0.0.1:0"
interval: 200ms
groups:
  - name: srv-reload-b
    cores: "1"
    events: [llc]
`)

	// The old generation's group gets stopped and a new one started.
	require.Eventually(t, func() bool {
		groups := svc.startedGroups()
		return len(groups) == 2 && groups[0].stopCount() == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}

	groups := svc.startedGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, []uint32{1}, groups[1].cores)
	assert.Equal(t, 1, groups[1].stopCount())
}
