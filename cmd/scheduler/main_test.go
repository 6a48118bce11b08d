package main

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartup_ReportsConfigError(t *testing.T) {
	if os.Getenv("LIBRARY_RUN_MAIN") == "1" {
		main()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestStartup_ReportsConfigError$")
	cmd.Env = append(os.Environ(), "LIBRARY_RUN_MAIN=1", "JWT_SECRET=")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(out), "Failed to load configuration")
	assert.Contains(t, string(out), "JWT_SECRET is required")
}
