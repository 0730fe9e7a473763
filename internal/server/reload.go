package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/neverinfamous/db-mcp/internal/config"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

// WatchConfig reloads the tool filter when the config file changes. Only
// tool_filter is hot; other settings still require a restart. Blocks until
// ctx is canceled.
func (s *Server) WatchConfig(ctx context.Context, cfgPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck

	// Watch the directory: editors replace files on save, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(cfgPath)); err != nil {
		return err
	}

	target := filepath.Clean(cfgPath)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Editors fire bursts of events per save; reload once
			debounce = time.After(200 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("config watch error", "error", err)
		case <-debounce:
			debounce = nil
			s.reloadFilter(cfgPath)
		}
	}
}

func (s *Server) reloadFilter(cfgPath string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		s.logger.Error("config reload failed, keeping current filter", "error", err)
		return
	}
	s.SetFilter(toolfilter.Parse(cfg.ToolFilter))
}
