// Package portaudio plays tone pipelines with the default output device
// through PortAudio.
package portaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/dudk/tone"
)

type (
	// Sink represets portaudio sink which allows to play audio using default device.
	Sink struct {
		mu     sync.Mutex
		stream *portaudio.Stream
	}
)

// NewSink returns new sink which allows to play pipeline.
func NewSink() *Sink {
	return &Sink{}
}

// Open initializes a portaudio api with default stream. The stream calls
// the callback directly from the device thread with interleaved samples.
func (s *Sink) Open(pipeID string, cfg tone.StreamConfig, cb tone.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return fmt.Errorf("sink is already opened")
	}
	err := portaudio.Initialize()
	if err != nil {
		return fmt.Errorf("%w: %v", tone.ErrDeviceUnavailable, err)
	}
	stream, err := portaudio.OpenDefaultStream(0, cfg.Format.NumChannels, float64(cfg.Format.SampleRate), cfg.BlockSize, func(out []float32) {
		cb(out)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", tone.ErrDeviceUnavailable, errors.Join(err, portaudio.Terminate()))
	}
	err = stream.Start()
	if err != nil {
		return fmt.Errorf("%w: %v", tone.ErrDeviceUnavailable, errors.Join(err, stream.Close(), portaudio.Terminate()))
	}
	s.stream = stream
	return nil
}

// Close stops the stream and terminates portaudio structures.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	err := s.stream.Stop()
	if err != nil {
		return err
	}
	err = s.stream.Close()
	if err != nil {
		return err
	}
	s.stream = nil
	return portaudio.Terminate()
}

// Devices returns names of available output devices. The default device
// is marked with an asterisk.
func Devices() ([]string, error) {
	err := portaudio.Initialize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tone.ErrDeviceUnavailable, err)
	}
	defer portaudio.Terminate()
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	def, err := portaudio.DefaultOutputDevice()
	if err != nil {
		def = nil
	}
	var names []string
	for _, d := range devices {
		if d.MaxOutputChannels == 0 {
			continue
		}
		name := d.Name
		if def != nil && d.Name == def.Name {
			name = "* " + name
		}
		names = append(names, name)
	}
	return names, nil
}
