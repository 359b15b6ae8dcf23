package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dudk/tone"
	"github.com/dudk/tone/config"
	"github.com/dudk/tone/log"
	"github.com/dudk/tone/metric"
	"github.com/dudk/tone/mock"
	"github.com/dudk/tone/oto"
	"github.com/dudk/tone/portaudio"
	"github.com/dudk/tone/signal"
)

// releaseTail is the time left for envelopes to release before playback
// stops.
const releaseTail = 300 * time.Millisecond

type playCommand struct {
	config   string
	preset   string
	duration time.Duration
	backend  string
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play a preset with the output device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.config, "config", "", "path to yaml configuration")
	fs.StringVar(&cmd.preset, "preset", "", "preset to play, see list command")
	fs.DurationVar(&cmd.duration, "duration", 0, "playback duration, zero plays until interrupted")
	fs.StringVar(&cmd.backend, "backend", "", "output backend: oto, portaudio or headless")
}

func (cmd *playCommand) Run() error {
	c, err := config.Load(cmd.config)
	if err != nil {
		return err
	}
	if cmd.preset != "" {
		c.Playback.Preset = cmd.preset
	}
	if cmd.duration != 0 {
		c.Playback.Duration = cmd.duration
	}
	if cmd.backend != "" {
		c.Device.Backend = cmd.backend
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Log.Debug {
		log.SetDebug(true)
	}
	logger := log.GetLogger()

	g, err := buildPreset(c.Playback.Preset, c.Device.SampleRate)
	if err != nil {
		return err
	}
	sink, err := newSink(c)
	if err != nil {
		return err
	}
	options := append(c.Options(),
		tone.WithName(c.Playback.Preset),
		tone.WithLogger(logger),
		tone.WithMetric(),
	)
	p, err := tone.New(g, c.StreamConfig(), options...)
	if err != nil {
		return err
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Playback.Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
		release := time.AfterFunc(releaseAt(d), g.NoteOffAll)
		defer release.Stop()
	}
	if err := p.Play(ctx, sink); err != nil {
		return err
	}

	s := p.Stats()
	log.Fields(logger, c.Playback.Preset, p.ID()).WithFields(logrus.Fields{
		"elapsed":   s.Elapsed,
		"delivered": s.Delivered,
		"underruns": s.Underruns,
		"silence":   s.Silence,
	}).Info("playback finished")
	logger.Debug(metric.Get(p))
	return nil
}

// releaseAt returns when envelopes are released for playback of duration d.
func releaseAt(d time.Duration) time.Duration {
	if d > 2*releaseTail {
		return d - releaseTail
	}
	return d / 2
}

func newSink(c *config.Config) (tone.Sink, error) {
	switch c.Device.Backend {
	case config.BackendPortaudio:
		return portaudio.NewSink(), nil
	case config.BackendHeadless:
		return &mock.Sink{
			Interval: signal.DurationOf(c.Device.SampleRate, int64(c.Device.BlockSize)),
		}, nil
	}
	format, err := c.SampleFormat()
	if err != nil {
		return nil, err
	}
	sink := oto.NewSink()
	sink.Format = format
	return sink, nil
}
