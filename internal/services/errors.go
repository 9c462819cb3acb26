package services

import (
	"errors"
	"strings"
)

var (
	ErrSpawnFailed         = errors.New("spawn failed")
	ErrNonZeroExit         = errors.New("process exited non-zero")
	ErrCancelled           = errors.New("cancelled")
	// ErrPreconditionMissing classifies an absent working file. Stages do not
	// return it; a skipped step is logged with its kind.
	ErrPreconditionMissing = errors.New("precondition missing")
	ErrCollaborator        = errors.New("collaborator failure")
	ErrExternalTool        = errors.New("external tool error")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrTimeout             = errors.New("timeout")
	ErrTransient           = errors.New("transient failure")
)

// Error carries stage context alongside a classification marker. It unwraps to
// both the marker and the underlying cause so errors.Is works for either.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 5)
	if e.Marker != nil {
		parts = append(parts, e.Marker.Error())
	}
	parts = append(parts, buildDetail(e.Stage, e.Operation, e.Message))
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the flattened view of a wrapped error used for failure
// summaries and structured logging.
type ErrorDetails struct {
	Kind      string
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts classification and context from err. Errors that were not
// produced by Wrap are classified by the first known marker they match.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var wrapped *Error
	if errors.As(err, &wrapped) {
		return ErrorDetails{
			Kind:      Kind(err),
			Stage:     wrapped.Stage,
			Operation: wrapped.Operation,
			Message:   wrapped.Message,
			Cause:     wrapped.Cause,
		}
	}
	return ErrorDetails{Kind: Kind(err), Message: strings.TrimSpace(err.Error())}
}

var markerKinds = []struct {
	marker error
	kind   string
}{
	{ErrCancelled, "cancelled"},
	{ErrSpawnFailed, "spawn_failed"},
	{ErrNonZeroExit, "non_zero_exit"},
	{ErrPreconditionMissing, "precondition_missing"},
	{ErrCollaborator, "collaborator"},
	{ErrTimeout, "timeout"},
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
	{ErrExternalTool, "external_tool"},
	{ErrTransient, "transient"},
}

// Kind returns a stable classification label for err, or "unknown".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, mk := range markerKinds {
		if errors.Is(err, mk.marker) {
			return mk.kind
		}
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
