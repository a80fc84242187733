package services

import (
	"context"
	"errors"
	"fmt"
)

// Таксономия ошибок ядра. Любая из них ограничена одним запросом,
// фатальных для процесса ошибок здесь нет.
var (
	ErrInvalidViewer    = errors.New("invalid viewer id")
	ErrContentNotFound  = errors.New("content not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRetryable - транзиентная ошибка хранилища. Все мутации ядра
	// идемпотентны либо ограничены снизу, слепой повтор безопасен.
	ErrRetryable = errors.New("retryable store error")
)

// wrapStoreErr помечает таймауты и отмены как retryable
func wrapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %v: %w", op, err, ErrRetryable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
