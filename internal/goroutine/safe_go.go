package goroutine

import (
	"runtime/debug"
	"sync"

	"github.com/ignatzorin/moderation-backend/internal/logger"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
	wg     sync.WaitGroup
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				rh.logger.Errorf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// Wait ждёт завершения всех запущенных горутин. Используется при остановке сервиса.
func (rh *RecoveryHandler) Wait() {
	rh.wg.Wait()
}

// DefaultRecoveryHandler - глобальный обработчик, пишет panic в logrus
var DefaultRecoveryHandler = NewRecoveryHandler(logger.Component("goroutine"))

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// Wait ждёт горутины глобального обработчика.
func Wait() {
	DefaultRecoveryHandler.Wait()
}
