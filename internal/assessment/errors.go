package assessment

import (
	"errors"
	"fmt"
)

// ErrUnavailable объединяет все причины, по которым вердикт не получен.
var ErrUnavailable = errors.New("assessment: сервис оценки недоступен")

// Failure неуспешный вызов сервиса оценки. Причина нужна только для логов,
// вызывающий код различает лишь факт отказа.
type Failure struct {
	Reason string
	Cause  error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("assessment: %s: %v", f.Reason, f.Cause)
	}
	return "assessment: " + f.Reason
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

func (f *Failure) Is(target error) bool {
	return target == ErrUnavailable
}

func fail(reason string, cause error) *Failure {
	return &Failure{Reason: reason, Cause: cause}
}
