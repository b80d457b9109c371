package notification

import "context"

// Notifier delivers budget alert notifications. Delivery is
// fire-and-forget: failures are logged by callers, never propagated,
// and never roll back an alert state transition.
type Notifier interface {
	Notify(ctx context.Context, alertName string, percentageUsed float64, severity string) error
}

// Severity implied by the alert type carried in the payload.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SeverityForAlertType maps a budget alert type to a notification
// severity.
func SeverityForAlertType(alertType string) string {
	switch alertType {
	case "anomaly", "variance":
		return SeverityCritical
	default:
		return SeverityWarning
	}
}
