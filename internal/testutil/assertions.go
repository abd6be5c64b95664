package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertAdapterRendered checks the log output within a HarnessResult to
// confirm that an adapter finished its render phase.
func AssertAdapterRendered(t *testing.T, result *HarnessResult, adapterID string) {
	t.Helper()

	expected := fmt.Sprintf("adapter=%s", adapterID)
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, "Adapter rendered.") && strings.Contains(line, expected) {
			return
		}
	}
	require.Fail(t, "adapter did not render", "expected a render log line for adapter '%s'", adapterID)
}

// AssertAdapterSkipped confirms an adapter was never detected.
func AssertAdapterSkipped(t *testing.T, result *HarnessResult, adapterID string) {
	t.Helper()

	require.NotNil(t, result.App, "app was not built")
	report := result.App.Report()
	require.NotNil(t, report, "bootstrap did not produce a report")
	require.NotContains(t, report.Detected(), adapterID)
}
