package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tunefetch/internal/logging"
	"tunefetch/internal/services"
)

// cancellationError describes why ctx ended as a services error.
func cancellationError(ctx context.Context, stageName string) error {
	cause := context.Cause(ctx)
	message := "cancelled"
	if errors.Is(cause, context.Canceled) && !errors.Is(cause, errCancelledByUser) {
		message = "cancelled by shutdown"
	}
	return services.Wrap(services.ErrCancelled, stageName, "", message, nil)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}

	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if details.Cause != nil {
		cause := strings.TrimSpace(details.Cause.Error())
		switch {
		case message == "":
			message = cause
		case cause != "":
			message = message + ": " + cause
		}
	}
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = stageFailureMessage(stageName, "failed")
	}
	return message
}

func stageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}

// classifyItemFailure builds the item error message, prefixed with the stage
// that failed when one is known.
func (m *Manager) classifyItemFailure(ctx context.Context, failure error) string {
	if errors.Is(failure, services.ErrCancelled) || ctx.Err() != nil {
		return classifyStageFailure("", cancellationError(ctx, ""))
	}
	details := services.Details(failure)
	message := classifyStageFailure(details.Stage, failure)
	if details.Stage != "" && !strings.HasPrefix(message, details.Stage) {
		return details.Stage + ": " + message
	}
	return message
}

func (m *Manager) logStageFailure(logger *slog.Logger, stageErr error, message string) {
	details := services.Details(stageErr)
	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String("error_operation", details.Operation),
		logging.Alert("stage_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	if hint := failureHint(stageErr); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
	logger.Error("stage failed", logging.Args(attrs...)...)
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrSpawnFailed):
		return "check the tool paths in the [tools] config section"
	case errors.Is(err, services.ErrTimeout):
		return "raise the stage timeout in config or retry later"
	case errors.Is(err, services.ErrConfiguration):
		return "fix the configuration and resubmit"
	case errors.Is(err, services.ErrValidation):
		return "check the submitted source reference"
	default:
		return ""
	}
}
