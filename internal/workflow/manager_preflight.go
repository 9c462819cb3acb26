package workflow

import (
	"context"
	"fmt"
	"strings"

	"tunefetch/internal/logging"
	"tunefetch/internal/preflight"
	"tunefetch/internal/services"
)

// runPreflightChecks validates the working directories before the worker
// starts. Returns nil when all checks pass, or an error describing all
// failures. Missing tools are only warned about; the stage that needs one
// fails on its own.
func (m *Manager) runPreflightChecks(ctx context.Context) error {
	logger := m.logger
	var failures []string
	for _, r := range preflight.RunAll(ctx, m.cfg) {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and restart"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}

	for _, status := range preflight.CheckSystemDeps(ctx, m.cfg) {
		if !status.Missing() {
			continue
		}
		logging.WarnWithContext(logger, "external tool unavailable", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, status.Description),
		)
	}

	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "preflight",
			strings.Join(failures, "; "), nil)
	}
	return nil
}
