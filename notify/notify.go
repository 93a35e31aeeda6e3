// Package notify delivers listing run events to the operator: structured
// logs on the terminal and messages in a ChatWork room.
package notify

import (
	"log/slog"

	"github.com/aluiziolira/go-auction-lister/models"
)

// Notifier observes run events.
type Notifier interface {
	OnProgress(current, total int)
	OnLog(message string, level models.LogLevel)
	OnComplete()
	OnError(message string)
}

// Logger reports run events through slog.
type Logger struct {
	logger *slog.Logger
}

// NewLogger wraps logger. A nil logger uses slog.Default().
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) OnProgress(current, total int) {
	l.logger.Info("progress", slog.Int("current", current), slog.Int("total", total))
}

func (l *Logger) OnLog(message string, level models.LogLevel) {
	switch level {
	case models.LevelError:
		l.logger.Error(message)
	case models.LevelWarn:
		l.logger.Warn(message)
	case models.LevelSuccess:
		l.logger.Info(message, slog.Bool("success", true))
	default:
		l.logger.Info(message)
	}
}

func (l *Logger) OnComplete() {
	l.logger.Info("listing run complete")
}

func (l *Logger) OnError(message string) {
	l.logger.Error("listing run failed", slog.String("error", message))
}

// Multi fans every event out to each notifier in order.
type Multi []Notifier

func (m Multi) OnProgress(current, total int) {
	for _, n := range m {
		n.OnProgress(current, total)
	}
}

func (m Multi) OnLog(message string, level models.LogLevel) {
	for _, n := range m {
		n.OnLog(message, level)
	}
}

func (m Multi) OnComplete() {
	for _, n := range m {
		n.OnComplete()
	}
}

func (m Multi) OnError(message string) {
	for _, n := range m {
		n.OnError(message)
	}
}
