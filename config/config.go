// Package config loads the configuration of the tone command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-audio/audio"
	"gopkg.in/yaml.v3"

	"github.com/dudk/tone"
	"github.com/dudk/tone/signal"
)

// Backends of the output device.
const (
	BackendOto       = "oto"
	BackendPortaudio = "portaudio"
	BackendHeadless  = "headless"
)

// Config of the tone command.
type Config struct {
	Device struct {
		Backend    string `yaml:"backend"`
		SampleRate int    `yaml:"sample_rate"`
		Channels   int    `yaml:"channels"`
		BlockSize  int    `yaml:"block_size"`
		Format     string `yaml:"format"`
	} `yaml:"device"`

	Buffer struct {
		Periods  int `yaml:"periods"`
		Prefill  int `yaml:"prefill"`
		LowWater int `yaml:"low_water"`
	} `yaml:"buffer"`

	Playback struct {
		Preset   string        `yaml:"preset"`
		Duration time.Duration `yaml:"duration"`
	} `yaml:"playback"`

	Log struct {
		Debug bool `yaml:"debug"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	var c Config
	c.Device.Backend = BackendOto
	c.Device.SampleRate = 44100
	c.Device.Channels = 2
	c.Device.BlockSize = 512
	c.Device.Format = "f32"
	c.Buffer.Periods = 8
	c.Buffer.Prefill = 3
	c.Buffer.LowWater = 2
	c.Playback.Preset = "pluck"
	c.Playback.Duration = 2 * time.Second
	return &c
}

// Load reads the configuration from the yaml file. Values missing in the
// file keep their defaults. If filename is empty or doesn't exist, the
// default configuration is returned.
func Load(filename string) (*Config, error) {
	config := Default()
	if filename == "" {
		return config, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the configuration describes a playable stream.
func (c *Config) Validate() error {
	var errs []error
	switch c.Device.Backend {
	case BackendOto, BackendPortaudio, BackendHeadless:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Device.Backend))
	}
	if c.Device.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate %d", c.Device.SampleRate))
	}
	if c.Device.Channels <= 0 {
		errs = append(errs, fmt.Errorf("channels %d", c.Device.Channels))
	}
	if c.Device.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block size %d", c.Device.BlockSize))
	}
	if _, err := c.SampleFormat(); err != nil {
		errs = append(errs, err)
	}
	if c.Buffer.Periods < 1 || c.Buffer.Prefill < 0 || c.Buffer.LowWater < 0 ||
		c.Buffer.Prefill > c.Buffer.Periods || c.Buffer.LowWater > c.Buffer.Periods {
		errs = append(errs, fmt.Errorf("buffer periods %d prefill %d low water %d", c.Buffer.Periods, c.Buffer.Prefill, c.Buffer.LowWater))
	}
	if c.Playback.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration %v", c.Playback.Duration))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", tone.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// SampleFormat returns the sample format sent to the device.
func (c *Config) SampleFormat() (signal.Format, error) {
	switch c.Device.Format {
	case "", "f32":
		return signal.Float32LE, nil
	case "s16":
		return signal.Int16LE, nil
	case "u8":
		return signal.Uint8, nil
	}
	return 0, fmt.Errorf("unknown sample format %q", c.Device.Format)
}

// StreamConfig returns the stream config of the device.
func (c *Config) StreamConfig() tone.StreamConfig {
	return tone.StreamConfig{
		Format: audio.Format{
			NumChannels: c.Device.Channels,
			SampleRate:  c.Device.SampleRate,
		},
		BlockSize: c.Device.BlockSize,
	}
}

// Options returns pipeline options for the buffer configuration.
func (c *Config) Options() []tone.Option {
	return []tone.Option{
		tone.WithBufferPeriods(c.Buffer.Periods),
		tone.WithPrefill(c.Buffer.Prefill),
		tone.WithLowWater(c.Buffer.LowWater),
	}
}
