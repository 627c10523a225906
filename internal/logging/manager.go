package logging

import (
	"fmt"
	"sort"
	"sync"
)

// LoggerManager управляет логгерами отдельных компонентов
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	console LogLevel
	file    LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
			console: INFO,
			file:    DEBUG,
		}
	})
	return globalManager
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger, nil
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Проверяем еще раз на случай гонки
	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}
	logger.SetLevel(lm.console, lm.file)

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный fallback при ошибке
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return &Logger{
			component:       component,
			consoleLogger:   consoleOut,
			minConsoleLevel: lm.console,
			minFileLevel:    ERROR,
		}
	}
	return logger
}

// Register добавляет готовый логгер (например, NewWriterLogger в тестах)
func (lm *LoggerManager) Register(component string, logger *Logger) {
	lm.mu.Lock()
	lm.loggers[component] = logger
	lm.mu.Unlock()
}

// SetDefaultLevels задаёт уровни для всех существующих и будущих логгеров
func (lm *LoggerManager) SetDefaultLevels(console, file LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.console = console
	lm.file = file
	for _, logger := range lm.loggers {
		logger.SetLevel(console, file)
	}
}

// CloseAll закрывает все логгеры
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}

	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// ListComponents возвращает отсортированный список зарегистрированных компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// Удобные функции для получения логгеров
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetComputeLogger() *Logger {
	return GetComponentLogger("compute")
}

func GetWorldLogger() *Logger {
	return GetComponentLogger("world")
}

func GetAPILogger() *Logger {
	return GetComponentLogger("api")
}

// SetLevels задаёт уровни логгеру по умолчанию и всем логгерам компонентов
func SetLevels(console, file LogLevel) {
	current().SetLevel(console, file)
	GetLoggerManager().SetDefaultLevels(console, file)
}
