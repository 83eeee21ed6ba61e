package logger

import (
	"log/slog"
	"time"
)

// LogRequest logs an API call against the remote backend.
func LogRequest(operation string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "api"),
		slog.String("operation", operation),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Request failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Request completed", attrs...)
	}
}

// LogTx logs an on-chain transaction attempt.
func LogTx(method string, txHash string, err error) {
	attrs := []any{
		slog.String("type", "chain"),
		slog.String("method", method),
	}
	if txHash != "" {
		attrs = append(attrs, slog.String("tx_hash", txHash))
	}

	if err != nil {
		slog.Error("Transaction failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Transaction sent", attrs...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
