package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDemoCommandRunsAllJobs(t *testing.T) {
	t.Setenv("STATUSINFO_LOGGING_DEVELOPMENT", "false")
	t.Setenv("STATUSINFO_SINKS_LOG", "false")
	t.Setenv("STATUSINFO_DEMO_STEP_DELAY", "1ms")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"demo", "--jobs", "3", "--interval", "0", "--output", "json"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Equal(t, "processed=3 failed=0\n", out.String())
}

func TestDemoCommandRejectsUnknownOutput(t *testing.T) {
	t.Setenv("STATUSINFO_SINKS_LOG", "false")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"demo", "--output", "xml"})

	require.ErrorContains(t, root.ExecuteContext(context.Background()), "unknown output format")
}

func TestRootCommandFailsOnMissingConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", "does-not-exist.yaml", "demo"})

	require.ErrorContains(t, root.ExecuteContext(context.Background()), "load config")
}

func TestResolveRuntimeWithoutApp(t *testing.T) {
	t.Parallel()

	_, err := resolveRuntime(context.Background())
	require.EqualError(t, err, "application services not initialized")
}
