package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaultsToUp(t *testing.T) {
	opts, err := parseOptions(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "up", opts.cmd)
	assert.Empty(t, opts.dir)
	assert.False(t, opts.offline())
}

func TestParseOptionsValidatesCommands(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "create needs name", args: []string{"-cmd", "create"}, wantErr: "missing -name"},
		{name: "version needs target", args: []string{"-cmd", "version"}, wantErr: "missing -version"},
		{name: "unknown command", args: []string{"-cmd", "sideways"}, wantErr: "unknown -cmd"},
		{name: "unknown flag", args: []string{"-force"}, wantErr: "flag provided but not defined"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseOptions(tc.args, io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseOptionsOfflineCommands(t *testing.T) {
	opts, err := parseOptions([]string{"-cmd", "create", "-name", "add_index", "-dir", "tmp"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.offline())
	assert.Equal(t, "add_index", opts.name)

	opts, err = parseOptions([]string{"-cmd", "validate"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.offline())

	opts, err = parseOptions([]string{"-cmd", "version", "-version", "20250101090000"}, io.Discard)
	require.NoError(t, err)
	assert.False(t, opts.offline())
}

func TestRunOfflineValidatesDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runOffline(options{cmd: "create", dir: dir, name: "add_index"}))
	require.NoError(t, runOffline(options{cmd: "validate", dir: dir}))
}
