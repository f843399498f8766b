package yandex

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zorins376-hub/music-bot/logger"

	"github.com/fsnotify/fsnotify"
)

// ReadTokenFile reads one token per line, skipping blanks and # comments.
func ReadTokenFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens = append(tokens, line)
	}
	return tokens, sc.Err()
}

// WatchTokenFile reloads the pool whenever the token file changes. The static
// tokens are always kept in front of the file's. It blocks until ctx ends.
func WatchTokenFile(ctx context.Context, path string, static []string, pool *TokenPool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	reload := func() {
		fromFile, err := ReadTokenFile(path)
		if err != nil {
			logger.Warn("[Yandex] token file unreadable", logger.String("path", path), logger.ErrorField(err))
			return
		}
		merged := append([]string(nil), static...)
		for _, t := range fromFile {
			if !contains(merged, t) {
				merged = append(merged, t)
			}
		}
		pool.Replace(merged)
		logger.Info("[Yandex] token pool reloaded", logger.Int("tokens", len(merged)))
	}
	reload()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == target && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("[Yandex] token watcher error", logger.ErrorField(err))
		}
	}
}
