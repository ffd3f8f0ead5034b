package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsariola/looper"
	"github.com/vsariola/looper/cmd"
	"github.com/vsariola/looper/engine"
	"github.com/vsariola/looper/oto"
	"github.com/vsariola/looper/status"
	"github.com/vsariola/looper/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	configFile := flag.String("config", "", "Read settings from a .yml `file`.")
	midiFile := flag.String("midi", "", "Standard MIDI `file` with the note-on cues driving the loopers.")
	directory := flag.String("o", "", "Directory where to output the rendered files. By default, they are placed in the working directory.")
	blockSize := flag.Int("block", 512, "Frames per processed block.")
	tail := flag.Float64("tail", 0, "Seconds of silence processed after the input, so that playing loops continue.")
	play := flag.Bool("p", false, "Play the rendered audio.")
	debug := flag.Bool("debug", false, "Log debug messages.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	logger := cmd.NewLogger(os.Stderr, *debug)
	config, err := looper.LoadConfig(*configFile)
	if err != nil {
		logger.Error("could not load config", "err", err)
		os.Exit(1)
	}
	var audioContext *oto.OtoContext
	retval := 0
	for _, filename := range flag.Args() {
		r := renderer{
			config:    config,
			logger:    logger.With("file", filename),
			midiFile:  *midiFile,
			blockSize: max(*blockSize, 1),
			tail:      max(*tail, 0),
		}
		buffer, sampleRate, err := r.render(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not render %v: %v\n", filename, err)
			retval = 1
			continue
		}
		if err := output(filename, *directory, buffer, sampleRate); err != nil {
			fmt.Fprintf(os.Stderr, "could not write output for %v: %v\n", filename, err)
			retval = 1
			continue
		}
		if *play {
			if audioContext == nil {
				if audioContext, err = oto.NewContext(sampleRate); err != nil {
					fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
					os.Exit(1)
				}
			}
			sink := audioContext.Output()
			if err := sink.WriteAudio(buffer); err != nil {
				fmt.Fprintf(os.Stderr, "could not play %v: %v\n", filename, err)
				retval = 1
			}
			sink.Close()
		}
	}
	if audioContext != nil {
		audioContext.Close()
	}
	os.Exit(retval)
}

type renderer struct {
	config    looper.Config
	logger    *slog.Logger
	midiFile  string
	blockSize int
	tail      float64
}

// render runs the input file through a fresh engine block by block.
func (r *renderer) render(filename string) (looper.AudioBuffer, int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, 0, err
	}
	input, sampleRate, err := looper.ReadWav(f)
	f.Close()
	if err != nil {
		return nil, 0, err
	}
	config := r.config
	if sampleRate != config.SampleRate {
		r.logger.Info("using the sample rate of the input", "samplerate", sampleRate)
		config.SampleRate = sampleRate
	}
	schedule := engine.NewMIDISchedule(nil)
	if r.midiFile != "" {
		mf, err := os.Open(r.midiFile)
		if err != nil {
			return nil, 0, err
		}
		schedule, err = engine.ReadMIDISchedule(mf, sampleRate)
		mf.Close()
		if err != nil {
			return nil, 0, err
		}
		r.logger.Debug("read MIDI cues", "count", len(schedule.Cues))
	}
	broker := engine.NewBroker(config)
	e := engine.NewEngine(broker, config)

	left, right := input.Channels()
	total := len(input) + int(r.tail*float64(sampleRate))
	left = append(left, make([]float32, total-len(left))...)
	right = append(right, make([]float32, total-len(right))...)
	out := [2][]float32{make([]float32, total), make([]float32, total)}
	var last looper.State
	for pos := 0; pos < total; pos += r.blockSize {
		end := min(pos+r.blockSize, total)
		schedule.Advance(end - pos)
		e.Process([2][]float32{left[pos:end], right[pos:end]}, [2][]float32{out[0][pos:end], out[1][pos:end]}, schedule)
		cmd.DrainAlerts(r.logger, broker.Alerts)
		for len(broker.ToGUI) > 0 {
			s := <-broker.ToGUI
			last = s.Copy()
			broker.PutState(s)
		}
	}
	if !schedule.Done() {
		r.logger.Warn("MIDI cues after the end of the rendered audio were ignored")
	}
	if formatter, err := status.New(status.DefaultTemplate); err == nil {
		formatter.Format(os.Stdout, last)
	}
	return looper.Interleave(out[0], out[1]), sampleRate, nil
}

func output(filename, dir string, buffer looper.AudioBuffer, sampleRate int) error {
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
		}
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create output directory %v: %w", dir, err)
	}
	_, name := filepath.Split(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name)) + "-looped.wav"
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return looper.WriteWav(f, buffer, sampleRate)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Looper command line utility for running .wav files through the looper offline.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
