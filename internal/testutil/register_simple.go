package testutil

import "github.com/vk/loom/internal/viz"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single adapter handler.
type SimpleModule struct {
	Name    string
	Handler any
}

// Register implements the viz.Module interface.
func (m *SimpleModule) Register(h viz.Handlers) {
	if m.Name != "" && m.Handler != nil {
		h.RegisterHandler(m.Name, m.Handler)
	}
}
