//go:build linux

// Command pluginhost drives a single out-of-process plugin child: it
// spawns the child binary, answers its handshake queries, and pumps
// control messages until the host's Run loop stops.
//
// This binary is a thin driver over package hostproto; it calls none of
// the transport's outbound operations (process, MIDI delivery, UI
// show/hide, sample rate and buffer size changes). Those are methods of
// hostproto.Host for an embedding application to call.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ardnew/remoteplugin/hostproto"
	"github.com/ardnew/remoteplugin/internal/config"
	"github.com/ardnew/remoteplugin/pkg"
	"github.com/ardnew/remoteplugin/pkg/prof"
)

var (
	configPath     string
	childPath      string
	sampleRate     int32
	framesPerBlock int32
	jsonLogs       bool
	verbose        bool
	profile        string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pluginhost",
		Short:         "spawn and drive an out-of-process audio/MIDI plugin child",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to an optional transport config YAML file")
	flags.StringVar(&childPath, "child", "", "path to the plugin child binary (required)")
	flags.Int32Var(&sampleRate, "sample-rate", 44100, "sample rate in Hz pushed to the child")
	flags.Int32Var(&framesPerBlock, "frames", 256, "frames per processing block pushed to the child")
	flags.BoolVar(&jsonLogs, "json", false, "emit logs as JSON")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&profile, "profile", "", "write a CPU profile to this path on exit (requires -tags profile)")

	_ = cmd.MarkFlagRequired("child")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevelValue()
	if verbose {
		level = logrus.DebugLevel
	}
	pkg.SetLogLevel(level)
	if jsonLogs || cfg.LogFormat == "json" {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}

	if profile != "" {
		if err := prof.StartCPU(profile); err != nil {
			pkg.LogError(pkg.ComponentHost, "failed to start CPU profile", "error", err)
		} else {
			defer prof.StopCPU()
		}
	}

	host, proc, err := hostproto.Spawn(childPath, args, sampleRate, framesPerBlock, cfg.FIFOOptions(), cfg.BusyInterval)
	if err != nil {
		return err
	}
	defer host.Close()

	pkg.LogInfo(pkg.ComponentHost, "child ready, pumping control messages", "session", host.SessionID)

	runErr := host.Run()

	if waitErr := proc.Wait(); waitErr != nil {
		pkg.LogWarn(pkg.ComponentHost, "child exited non-zero", "error", waitErr)
	}

	return runErr
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
