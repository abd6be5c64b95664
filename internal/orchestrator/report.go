package orchestrator

import (
	"fmt"

	"github.com/vk/loom/internal/instances"
)

// Phase names the step of the pass a failure happened in.
type Phase string

const (
	PhaseDetect  Phase = "detect"
	PhaseInit    Phase = "init"
	PhaseRender  Phase = "render"
	PhaseOptions Phase = "options"
	PhaseFeature Phase = "feature"
)

// Failure is one isolated problem. Element is empty for page-wide phases.
type Failure struct {
	Adapter string
	Element string
	Phase   Phase
	Err     error
}

func (f Failure) Error() string {
	if f.Element != "" {
		return fmt.Sprintf("%s %s on #%s: %v", f.Adapter, f.Phase, f.Element, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Adapter, f.Phase, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// AdapterResult summarizes what happened to one descriptor.
type AdapterResult struct {
	ID       string
	Detected bool
	// State is the furthest lifecycle state the descriptor reached.
	State instances.State
	// Instances lists the ids registered for this descriptor, in render order.
	Instances []string
}

// Report is the outcome of one bootstrap pass.
type Report struct {
	RunID    string
	Adapters []AdapterResult
	// Diagnostics are author-facing problems, such as malformed data-options.
	Diagnostics []Failure
	// Failures are adapter errors and panics.
	Failures []Failure
	// Features maps a page feature name to the number of elements it added.
	Features map[string]int
}

// Detected returns the ids of detected adapters in catalog order.
func (r *Report) Detected() []string {
	var ids []string
	for _, a := range r.Adapters {
		if a.Detected {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// InstanceCount returns the number of instances registered during the pass.
func (r *Report) InstanceCount() int {
	n := 0
	for _, a := range r.Adapters {
		n += len(a.Instances)
	}
	return n
}
