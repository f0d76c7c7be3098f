package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/config"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"schema", "taxonomy", "ingest", "observations", "classify", "stats", "run"} {
		assert.Contains(t, names, want)
	}
}

func TestClassifyOptions(t *testing.T) {
	cfg = &config.Config{
		ClassifyTopK:        2,
		ClassifyWorkers:     1,
		ClassifyTimeout:     time.Minute,
		WriteRetries:        3,
		WriteRetryBaseDelay: 200 * time.Millisecond,
	}
	t.Cleanup(func() { cfg = nil })

	cmd := &cobra.Command{Use: "test"}
	addClassifyFlags(cmd)

	opts, err := classifyOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, 2, opts.TopK)
	assert.Equal(t, 1, opts.Workers)
	assert.Equal(t, time.Minute, opts.Timeout)
	assert.Equal(t, 3, opts.Retry.Retries)

	require.NoError(t, cmd.Flags().Set("top-k", "3"))
	require.NoError(t, cmd.Flags().Set("timeout", "5s"))
	opts, err = classifyOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.TopK)
	assert.Equal(t, 1, opts.Workers)
	assert.Equal(t, 5*time.Second, opts.Timeout)
}

func TestClassifyOptions_RejectsOutOfRangeFlags(t *testing.T) {
	cfg = &config.Config{
		ClassifyTopK:    2,
		ClassifyWorkers: 1,
		ClassifyTimeout: time.Minute,
	}
	t.Cleanup(func() { cfg = nil })

	tests := []struct {
		flag  string
		value string
	}{
		{"top-k", "-1"},
		{"top-k", "0"},
		{"workers", "0"},
		{"timeout", "-5s"},
	}
	for _, tt := range tests {
		t.Run(tt.flag+"="+tt.value, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			addClassifyFlags(cmd)
			require.NoError(t, cmd.Flags().Set(tt.flag, tt.value))

			_, err := classifyOptions(cmd)
			require.Error(t, err)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
		})
	}
}
