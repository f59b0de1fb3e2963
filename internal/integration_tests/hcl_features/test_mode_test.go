package integration_tests

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/testutil"
)

// TestHclFeatures_TestModeAppendsConventionalFlag runs a check in test mode
// against a fixture that follows the convention: per-sub-check "test <n>
// [OK]" lines on the diagnostic stream, then a final pass line on the
// primary stream.
func TestHclFeatures_TestModeAppendsConventionalFlag(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	script := filepath.Join(t.TempDir(), "selfcheck.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
if [ "$1" = "--test" ]; then
  echo "test 0 [OK]" >&2
  echo "test 1 [OK]" >&2
fi
echo "all checks passed"
`), 0644))

	pipelineHCL := fmt.Sprintf(`
        check "selfcheck" {
            command   = "sh"
            args      = [%q]
            test_mode = true
        }
    `, script)

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"main.hcl": pipelineHCL}, nil)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Contains(t, result.LogOutput, "test 0 [OK]")
	assert.Contains(t, result.LogOutput, "test 1 [OK]")
	assert.Contains(t, result.LogOutput, "stream=diagnostic")
	assert.Contains(t, result.LogOutput, "all checks passed")
}
