package workflow

// ConfigurePipeline replaces the stage handlers used for items submitted
// from now on. Items already queued keep the handlers chosen when they were
// submitted.
func (m *Manager) ConfigurePipeline(p Pipeline) {
	m.mu.Lock()
	m.pipeline = p
	m.mu.Unlock()
}
