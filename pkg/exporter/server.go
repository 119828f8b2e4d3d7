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

package exporter

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
	"github.com/ludoplex/intel-cmt-cat/pkg/util/general"
)

const shutdownTimeout = 5 * time.Second

// Server serves /metrics and /healthz and keeps a collector running,
// rebuilding it whenever the config file changes.
type Server struct {
	svc        monService
	cfg        *Config
	configPath string

	mu      sync.Mutex
	current *Collector
}

// NewServer builds a server around an initialized handle. configPath may
// be empty, which disables config reloading.
func NewServer(handle *pqos.Handle, cfg *Config, configPath string) *Server {
	return &Server{
		svc:        handleMonService{handle: handle},
		cfg:        cfg,
		configPath: configPath,
	}
}

func (s *Server) setCurrent(c *Collector) {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}

// healthy reports whether a collector is active and polling. A collector
// whose last successful poll is older than three intervals counts as
// stuck.
func (s *Server) healthy() bool {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == nil {
		return false
	}
	last := current.LastPoll()
	if last.IsZero() {
		// First poll still pending.
		return true
	}
	return time.Since(last) < 3*current.interval.std()
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.healthy() {
			http.Error(w, "monitoring is not polling", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Run blocks until the context ends or the HTTP listener fails. A clean
// shutdown stops all monitoring groups and drains the HTTP server.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	httpErr := make(chan error, 1)
	go func() { httpErr <- httpServer.ListenAndServe() }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	reload := make(chan struct{}, 1)
	if s.configPath != "" {
		stop, err := watchConfig(s.configPath, reload)
		if err != nil {
			general.Warningf("config reload disabled: %v", err)
		} else {
			defer stop()
		}
	}

	general.Infof("serving metrics on %s", s.cfg.Listen)

	cfg := s.cfg
	for {
		collector, err := newCollector(s.svc, cfg)
		if err != nil {
			return err
		}

		s.setCurrent(collector)
		genCtx, cancelGen := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- collector.Run(genCtx) }()

		stopGeneration := func() {
			cancelGen()
			<-done
			s.setCurrent(nil)
			collector.Close()
		}

	generation:
		for {
			select {
			case <-ctx.Done():
				stopGeneration()
				return nil

			case err := <-httpErr:
				stopGeneration()
				return errors.Wrap(err, "http server failed")

			case <-reload:
				next, err := LoadConfig(s.configPath)
				if err != nil {
					general.Errorf("config reload failed, keeping previous config: %v", err)
					continue
				}
				if next.Listen != cfg.Listen {
					general.Warningf("listen address change needs a restart, keeping %s", cfg.Listen)
					next.Listen = cfg.Listen
				}
				general.Infof("config reloaded from %s", s.configPath)
				stopGeneration()
				cfg = next
				break generation
			}
		}
	}
}

// watchConfig signals notify when the config file is written or
// replaced. The directory is watched rather than the file so the
// rename-then-write dance of editors and config managers is caught.
func watchConfig(path string, notify chan<- struct{}) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}
	base := filepath.Base(path)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case notify <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				general.Warningf("config watcher: %v", err)
			}
		}
	}()

	return func() { _ = watcher.Close() }, nil
}
