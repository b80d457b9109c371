package services

import (
	"context"

	"costwatch/internal/pkg/logger"
)

// LogNotifier delivers alert notifications to the structured log. It is
// the default transport for single-instance deployments; webhook or
// chat transports plug in behind the same interface.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, alertName string, percentageUsed float64, severity string) error {
	n.log.WithFields(map[string]interface{}{
		"alert":           alertName,
		"percentage_used": percentageUsed,
		"severity":        severity,
	}).Warn("budget alert triggered")
	return nil
}
