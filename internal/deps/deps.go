package deps

import (
	"fmt"
	"strings"
)

// Requirement names an external tool a stage shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional tools only matter for some configurations; a missing optional
	// tool is reported but does not fail doctor.
	Optional bool
}

// Status is the outcome of resolving one Requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the executable that would run. Empty when unresolved.
	Path   string
	Detail string
}

// Missing reports whether the tool is required and could not be found.
func (s Status) Missing() bool {
	return !s.Available && !s.Optional
}

// CheckBinaries resolves each requirement. Order is preserved.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = check(req)
	}
	return results
}

func check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	switch path, ok := Resolve(status.Command); {
	case status.Command == "":
		status.Detail = "command not configured"
	case !ok:
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
	default:
		status.Available = true
		status.Path = path
	}
	return status
}
