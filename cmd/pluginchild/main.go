//go:build linux

// Command pluginchild is the child side of the out-of-process plugin
// transport: it attaches to the two FIFO keys passed as its first two
// positional arguments, completes the handshake, and runs the control
// loop until ClosePlugin or GeneralFailure.
//
// This binary runs an identity DSP (copies input straight to output) so it
// can stand in for a real plugin's embedding code in integration testing;
// a real plugin replaces identityDSP with its own childproto.DSP.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ardnew/remoteplugin/childproto"
	"github.com/ardnew/remoteplugin/fifo"
	"github.com/ardnew/remoteplugin/internal/config"
	"github.com/ardnew/remoteplugin/midi"
	"github.com/ardnew/remoteplugin/pkg"
)

var (
	configPath   string
	inputs       int
	outputs      int
	verbose      bool
	fifoCapacity int32
	pollInterval time.Duration
)

// identityDSP is a minimal DSP hook that copies its input block to its
// output block unchanged and discards MIDI events. It exists so this
// binary can be exercised end-to-end without a real plugin attached.
type identityDSP struct{}

func (identityDSP) UpdateSampleRate(int32)      {}
func (identityDSP) UpdateBufferSize(int32)      {}
func (identityDSP) Process(in, out []float32)   { copy(out, in) }
func (identityDSP) ProcessMIDIEvent(midi.Event) {}

func main() {
	pflag.StringVar(&configPath, "config", "", "path to an optional transport config YAML file")
	pflag.IntVar(&inputs, "inputs", 2, "number of input audio channels")
	pflag.IntVar(&outputs, "outputs", 2, "number of output audio channels")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pflag.Int32Var(&fifoCapacity, "fifo-capacity", fifo.DefaultCapacity, "byte capacity of each control FIFO, set by the host that spawned this process")
	pflag.DurationVar(&pollInterval, "poll-interval", fifo.DefaultPollInterval, "FIFO read/write backoff interval, set by the host that spawned this process")
	pflag.Parse()

	if pflag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: pluginchild [flags] <uplink-key> <downlink-key>")
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level := cfg.LogLevelValue()
	if verbose {
		level = logrus.DebugLevel
	}
	pkg.SetLogLevel(level)

	uplinkKey, err := strconv.ParseInt(pflag.Arg(0), 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid uplink key:", err)
		os.Exit(2)
	}
	downlinkKey, err := strconv.ParseInt(pflag.Arg(1), 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid downlink key:", err)
		os.Exit(2)
	}

	opts := fifo.Options{Capacity: fifoCapacity, PollInterval: pollInterval}

	uplink, err := fifo.Open(int32(uplinkKey), opts)
	if err != nil {
		pkg.LogError(pkg.ComponentChild, "failed attaching uplink fifo", "error", err)
		os.Exit(1)
	}
	downlink, err := fifo.Open(int32(downlinkKey), opts)
	if err != nil {
		pkg.LogError(pkg.ComponentChild, "failed attaching downlink fifo", "error", err)
		os.Exit(1)
	}

	child := childproto.New(uplink, downlink, identityDSP{}, inputs, outputs)

	err = child.Run()
	if cerr := child.Close(); cerr != nil {
		pkg.LogError(pkg.ComponentChild, "failed closing audio region", "error", cerr)
	}
	if err != nil {
		pkg.LogError(pkg.ComponentChild, "control loop exited with error", "error", err)
		os.Exit(1)
	}

	os.Exit(0)
}
