package holiday

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads cal whenever path changes, until ctx is done. A file that
// fails to parse leaves the previous calendar in place.
func Watch(ctx context.Context, path string, cal *Calendar, log zerolog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	dir, name := filepath.Dir(path), filepath.Base(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Debug().Str("path", path).Msg("holiday watcher started")

	reload := func() {
		entries, err := LoadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("holiday reload failed; keeping previous calendar")
			return
		}
		cal.Set(entries)
		log.Info().Str("path", path).Int("holidays", len(entries)).Msg("holiday calendar reloaded")
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, reload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("path", path).Msg("holiday watch error")
		}
	}
}
