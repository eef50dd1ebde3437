package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchFile signals on out whenever the file is written or replaced.
// Editors often rename-and-recreate on save, so the watch is re-added
// after Rename/Remove events with a short retry loop.
func watchFile(ctx context.Context, file string, out chan<- struct{}, log *slog.Logger) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("failed to create watcher", "error", err)
		return
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(file); err != nil {
		log.Error("watch add failed", "file", file, "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				go func(name string) {
					for i := 0; i < 5; i++ {
						if err := w.Add(name); err == nil {
							return
						} else if !os.IsNotExist(err) {
							log.Error("watch re-add failed", "file", name, "error", err)
							return
						}
						time.Sleep(100 * time.Millisecond)
					}
				}(ev.Name)
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				select {
				case out <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Error("watch error", "error", err)
		}
	}
}
