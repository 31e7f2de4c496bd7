package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/handremap/pkg/config"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"handremap.json" description:"Configuration file"`
	Verbose bool   `short:"v" long:"verbose" description:"Log bone resolution details"`

	Setup   SetupCommand   `command:"setup" description:"Pick a skeleton and tracking source, calibrate a glove"`
	Inspect InspectCommand `command:"inspect" description:"Show how the mapping resolves against the skeleton"`
	Preview PreviewCommand `command:"preview" description:"Live finger curl preview of the retargeted hand"`
	Export  ExportCommand  `command:"export" description:"Evaluate one frame and write the posed skeleton as glTF"`
	Serve   ServeCommand   `command:"serve" description:"Serve retargeted poses over HTTP"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "handremap - drive a skeleton's hand bones from hand tracking"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		level := slog.LevelInfo
		if opts.Verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if opts.Config != config.DefaultConfigFile {
		return config.LoadConfigFrom(opts.Config)
	}
	if !config.ConfigExists() {
		return nil, fmt.Errorf("no %s in the current directory", config.DefaultConfigFile)
	}
	return config.LoadConfig()
}

func saveConfig(cfg *config.Config) error {
	if opts.Config == config.DefaultConfigFile {
		return cfg.Save()
	}
	return cfg.SaveTo(opts.Config)
}
