package stage

import "tunefetch/internal/deps"

// Health summarizes the readiness of a workflow stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// ToolHealth reports whether command resolves to an executable. A ready
// result carries the resolved path as its detail.
func ToolHealth(name, command string) Health {
	status := deps.CheckBinaries([]deps.Requirement{{Name: name, Command: command}})[0]
	if !status.Available {
		return Unhealthy(name, status.Detail)
	}
	return Health{Name: name, Ready: true, Detail: status.Path}
}
