package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-model", "model.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "model.hcl", cfg.ModelPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0, cfg.OpsPort)
}

func TestParseShorthandAndPositional(t *testing.T) {
	var out bytes.Buffer

	cfg, _, err := Parse([]string{"-m", "short.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "short.hcl", cfg.ModelPath)

	cfg, _, err = Parse([]string{"positional.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "positional.hcl", cfg.ModelPath)

	// The long flag takes precedence over both.
	cfg, _, err = Parse([]string{"-model", "long.hcl", "-m", "short.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "long.hcl", cfg.ModelPath)
}

func TestParseOptions(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{
		"-ops-port", "8080",
		"-log-format", "text",
		"-log-level", "DEBUG",
		"-workers", "4",
		"model.hcl",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.OpsPort)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel, "levels are normalized to lowercase")
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestParseNoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseHelpFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
}

func TestParseInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-bogus"}},
		{"bad log format", []string{"-log-format", "xml", "model.hcl"}},
		{"bad log level", []string{"-log-level", "loud", "model.hcl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tt.args, &out)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
