package logging

import (
	"fmt"
	"sort"
	"sync"
)

// LoggerManager хранит отдельные файловые логгеры компонентов (api, storage)
type LoggerManager struct {
	mu           sync.RWMutex
	loggers      map[string]*Logger
	consoleLevel LogLevel
	fileLevel    LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:      make(map[string]*Logger),
		consoleLevel: INFO,
		fileLevel:    TRACE,
	}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()
	if exists {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	logger.SetLevels(lm.consoleLevel, lm.fileLevel)
	lm.loggers[component] = logger
	return logger, nil
}

// register подставляет готовый логгер компонента
func (lm *LoggerManager) register(component string, l *Logger) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	l.SetLevels(lm.consoleLevel, lm.fileLevel)
	lm.loggers[component] = l
}

// SetLevels меняет пороги у существующих логгеров и у создаваемых позже
func (lm *LoggerManager) SetLevels(console, file LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.consoleLevel = console
	lm.fileLevel = file
	for _, l := range lm.loggers {
		l.SetLevels(console, file)
	}
}

// Components возвращает отсортированные имена компонентов
func (lm *LoggerManager) Components() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	out := make([]string, 0, len(lm.loggers))
	for c := range lm.loggers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CloseAll закрывает файлы всех логгеров
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("закрытие логгера %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// componentLogger при ошибке создания файла откатывается на глобальный логгер
func componentLogger(component string) *Logger {
	l, err := GetLoggerManager().GetLogger(component)
	if err != nil {
		return defaultLogger
	}
	return l
}

func GetAPILogger() *Logger {
	return componentLogger("api")
}

func GetStorageLogger() *Logger {
	return componentLogger("storage")
}
