package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/centraunit/beans/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func rows(t *testing.T, out string) map[string][]string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "BEAN"))

	byName := map[string][]string{}
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		require.GreaterOrEqual(t, len(fields), 5, line)
		byName[fields[0]] = fields
	}
	return byName
}

func TestReportWithoutConfiguration(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(zaptest.NewLogger(t), &out, nil, "", "BEANINSPECT_TEST_", false))

	got := rows(t, out.String())
	require.Contains(t, got, executor.ScheduledBeanName)
	cfg := got[executor.ScheduledBeanName]
	assert.Equal(t, "true", cfg[3])
	assert.Equal(t, executor.ScheduledBeanName, cfg[4])
	assert.Len(t, got, 3)
}

func TestReportWithExplicitScheduledExecutor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  executors:\n    scheduled: custom\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(zaptest.NewLogger(t), &out, nil, path, "BEANINSPECT_TEST_", false))

	for name, fields := range rows(t, out.String()) {
		assert.Equal(t, "false", fields[3], name)
		assert.Equal(t, "-", fields[4], name)
	}
}

func TestReportReadsEnvFiles(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("SERVER_EXECUTORS_SCHEDULED=custom\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(zaptest.NewLogger(t), &out, []string{env}, "", "BEANINSPECT_TEST_", false))

	cfg := rows(t, out.String())[executor.ScheduledBeanName]
	require.NotNil(t, cfg)
	assert.Equal(t, "false", cfg[3])
}

func TestMissingEnvFile(t *testing.T) {
	var out bytes.Buffer
	err := run(zaptest.NewLogger(t), &out, []string{filepath.Join(t.TempDir(), "missing.env")}, "", "BEANINSPECT_TEST_", false)
	assert.Error(t, err)
}
