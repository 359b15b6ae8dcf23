package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/tone/config"
)

func TestInit(t *testing.T) {
	// check if commands are registered
	assert.Equal(t, len(commands), 2)
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  backend: headless\n  block_size: 256\n"), 0o644))
	tests := []struct {
		description string
		args        []string
		exitCode    int
	}{
		{
			description: "no command",
			args:        []string{"tone"},
			exitCode:    errorExitCode,
		},
		{
			description: "unknown command",
			args:        []string{"tone", "record"},
			exitCode:    errorExitCode,
		},
		{
			description: "list",
			args:        []string{"tone", "list"},
			exitCode:    successExitCode,
		},
		{
			description: "unknown flag",
			args:        []string{"tone", "play", "-volume", "11"},
			exitCode:    errorExitCode,
		},
		{
			description: "unknown preset",
			args:        []string{"tone", "play", "-backend", "headless", "-preset", "theremin"},
			exitCode:    errorExitCode,
		},
		{
			description: "unknown backend",
			args:        []string{"tone", "play", "-backend", "jack"},
			exitCode:    errorExitCode,
		},
		{
			description: "headless playback",
			args:        []string{"tone", "play", "-config", path, "-preset", "cmajor", "-duration", "100ms"},
			exitCode:    successExitCode,
		},
	}
	for _, test := range tests {
		a := app{args: test.args}
		assert.Equal(t, test.exitCode, a.run(), test.description)
	}
}

func TestPresets(t *testing.T) {
	for _, name := range presetNames() {
		g, err := buildPreset(name, 44100)
		require.NoError(t, err, name)
		assert.Equal(t, 1, g.NumChannels(), name)
		for i := uint64(0); i < 4410; i++ {
			v := g.Next(i)
			assert.True(t, v >= -1 && v <= 1, "%s: sample %d is %v", name, i, v)
		}
	}
	_, err := buildPreset("theremin", 44100)
	assert.Error(t, err)
}

func TestReleaseAt(t *testing.T) {
	assert.Equal(t, 1700*time.Millisecond, releaseAt(2*time.Second))
	assert.Equal(t, 250*time.Millisecond, releaseAt(500*time.Millisecond))
}

func TestNewSink(t *testing.T) {
	c := config.Default()
	c.Device.Backend = config.BackendHeadless
	sink, err := newSink(c)
	require.NoError(t, err)
	assert.NotNil(t, sink)
}
