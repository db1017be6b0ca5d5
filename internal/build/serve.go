package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/stubdocs/internal/observability"
)

const rebuildDebounce = 300 * time.Millisecond

// Serve runs an initial build, then watches the local stub directory and
// rebuilds on changes until ctx is canceled. When metricsAddr is non-empty,
// a /metrics endpoint is served there for the duration.
func (r *Runner) Serve(ctx context.Context, metricsAddr string) error {
	result, err := r.Run(ctx)
	if err != nil {
		// Keep serving: the next edit may fix the build.
		observability.ErrorContext(ctx, "initial build failed", slog.Any("error", err))
	}

	var metricsServer *http.Server
	if metricsAddr != "" {
		metricsServer = r.startMetricsServer(metricsAddr)
		defer stopMetricsServer(metricsServer)
	}

	stubPath := ""
	if result != nil {
		stubPath = result.LocalStubPath
	}
	if stubPath == "" {
		slog.Info("no local stub to watch, serving static build")
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors replace files by rename,
	// which drops a file-level watch.
	stubDir := filepath.Dir(stubPath)
	if err := watcher.Add(stubDir); err != nil {
		return fmt.Errorf("watch %s: %w", stubDir, err)
	}
	slog.Info("watching local stub directory", "dir", stubDir)

	rebuildReq, trigger := newDebouncer()
	r.startRebuildWorker(ctx, rebuildReq)

	for {
		select {
		case <-ctx.Done():
			// rebuildReq is never closed: a debounce timer armed just before
			// shutdown may still send, and a send on a closed channel would
			// panic. The worker exits via ctx instead.
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldIgnoreEvent(ev.Name) {
				continue
			}
			slog.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// newDebouncer returns a rebuild request channel and a trigger that coalesces
// bursts of events into one request.
func newDebouncer() (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(rebuildDebounce, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

// startRebuildWorker drains rebuild requests one at a time. A request that
// arrives mid-build queues exactly one follow-up build.
func (r *Runner) startRebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	var mu sync.Mutex
	running := false
	pending := false

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				mu.Lock()
				if running {
					pending = true
					mu.Unlock()
					continue
				}
				running = true
				mu.Unlock()

				slog.Info("change detected, rebuilding site")
				r.metrics.Rebuilds.Inc()
				if _, err := r.Run(observability.WithStage(ctx, "rebuild")); err != nil {
					slog.Warn("rebuild failed", "error", err)
				}

				mu.Lock()
				running = false
				if pending {
					pending = false
					mu.Unlock()
					select {
					case rebuildReq <- struct{}{}:
					default:
					}
				} else {
					mu.Unlock()
				}
			}
		}
	}()
}

func (r *Runner) startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", err)
		}
	}()
	slog.Info("metrics endpoint listening", "addr", addr)
	return server
}

func stopMetricsServer(server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics server shutdown error", "error", err)
	}
}

// shouldIgnoreEvent filters filesystem events that never warrant a rebuild:
// hidden files, editor swap files, and OS cruft.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
