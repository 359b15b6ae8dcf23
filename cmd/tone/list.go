package main

import (
	"flag"
	"fmt"

	"github.com/dudk/tone/config"
	"github.com/dudk/tone/portaudio"
)

type listCommand struct {
	devices bool
}

func (cmd *listCommand) Name() string {
	return "list"
}

func (cmd *listCommand) Help() string {
	return "Show the list of available presets and backends"
}

func (cmd *listCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.devices, "devices", false, "list portaudio output devices")
}

func (cmd *listCommand) Run() error {
	fmt.Println("Presets:")
	for _, name := range presetNames() {
		fmt.Printf("\t%s\t%s\n", name, presets[name].help)
	}
	fmt.Println("Backends:")
	for _, backend := range []string{config.BackendOto, config.BackendPortaudio, config.BackendHeadless} {
		fmt.Printf("\t%s\n", backend)
	}
	if !cmd.devices {
		return nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	fmt.Println("Devices:")
	for _, d := range devices {
		fmt.Printf("\t%s\n", d)
	}
	return nil
}
