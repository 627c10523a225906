package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/annel0/endless-terrain/internal/logging"
)

// reloadDelay объединяет серию событий записи в одну перезагрузку
const reloadDelay = 100 * time.Millisecond

// Watch следит за файлом конфигурации и вызывает onChange с новой конфигурацией
// после каждого изменения. Блокирует до отмены ctx.
// Следим за каталогом: редакторы часто заменяют файл целиком.
func Watch(ctx context.Context, path string, logger *logging.Logger, onChange func(*Config)) error {
	logger = logging.OrDefault(logger)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("путь конфигурации %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("создание fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("подписка на %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("👀 Слежение за конфигурацией %s", abs)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := Load(abs)
			if err != nil {
				logger.Warn("⚠️ Конфигурация не перечитана: %v", err)
				continue
			}
			logger.Info("🔄 Конфигурация перечитана")
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("⚠️ Ошибка fsnotify: %v", err)
		}
	}
}
