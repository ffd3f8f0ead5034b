package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/vsariola/looper"
	"github.com/vsariola/looper/cmd"
	"github.com/vsariola/looper/engine"
	"github.com/vsariola/looper/portaudio"
	"github.com/vsariola/looper/rpc"
	"github.com/vsariola/looper/status"
	"github.com/vsariola/looper/version"
)

var (
	configFile     = flag.String("config", "", "read settings from a .yml `file`")
	midiInput      = flag.String("midi-input", "", "connect MIDI input to matching device name prefix")
	firstMidi      = flag.Bool("first-midi-input", false, "connect the first MIDI input found")
	debug          = flag.Bool("debug", false, "log debug messages")
	listen         = flag.String("listen", rpc.DefaultAddress, "serve remote control on `address`; empty disables")
	statusTemplate = flag.String("status", status.DefaultTemplate, "text/template for the status printed to stdout; empty disables")
	statusInterval = flag.Duration("status-interval", time.Second, "how often the status is printed")
	bufferSize     = flag.Int("buffer", 256, "frames per audio buffer")
	versionFlag    = flag.Bool("v", false, "print version")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	logger := cmd.NewLogger(os.Stderr, *debug)
	config, err := looper.LoadConfig(*configFile)
	if err != nil {
		logger.Error("could not load config", "err", err)
		os.Exit(1)
	}
	var formatter *status.Formatter
	if *statusTemplate != "" {
		if formatter, err = status.New(*statusTemplate); err != nil {
			logger.Error("invalid status template", "err", err)
			os.Exit(1)
		}
	}

	broker := engine.NewBroker(config)
	e := engine.NewEngine(broker, config)

	midiContext, closeMIDI, err := cmd.NewMIDIInput(*midiInput, *firstMidi)
	if err != nil {
		logger.Warn("no MIDI input", "err", err)
	}
	defer closeMIDI()

	stream, err := portaudio.Open(config.SampleRate, *bufferSize, func(in, out [2][]float32) {
		e.Process(in, out, midiContext)
	})
	if err != nil {
		logger.Error("could not open audio", "err", err)
		os.Exit(1)
	}
	logger.Info("audio opened", "devices", stream.Info(), "version", version.VersionOrHash)

	var server *rpc.Server
	if *listen != "" {
		server = rpc.NewServer(broker, logger)
		if err := server.Listen(*listen); err != nil {
			logger.Error("could not start remote control", "err", err)
			stream.Close()
			os.Exit(1)
		}
		defer server.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	done := make(chan struct{})
	defer close(done)
	go cmd.LogAlerts(logger, broker.Alerts, done)

	if err := stream.Start(); err != nil {
		logger.Error("could not start audio", "err", err)
		stream.Close()
		os.Exit(1)
	}
	defer stream.Close()

	ticker := time.NewTicker(*statusInterval)
	defer ticker.Stop()
	var latest looper.State
	var reportedMIDIDrops uint64
	for {
		select {
		case s := <-broker.ToGUI:
			latest = s.Copy()
			broker.PutState(s)
			if server != nil {
				server.Publish(latest.Copy())
			}
		case <-ticker.C:
			if formatter != nil {
				if err := formatter.Format(os.Stdout, latest); err != nil {
					logger.Error("status failed", "err", err)
				}
			}
			if n := broker.DroppedStates(); n > 0 {
				logger.Debug("state snapshots dropped", "count", n)
			}
			if d, ok := midiContext.(interface{ Dropped() uint64 }); ok {
				if n := d.Dropped(); n > reportedMIDIDrops {
					logger.Warn("MIDI messages dropped", "count", n)
					reportedMIDIDrops = n
				}
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Live audio looper on the default sound card, controlled with MIDI notes or remotely.\nUsage: %s [flags]\n", os.Args[0])
	flag.PrintDefaults()
}
