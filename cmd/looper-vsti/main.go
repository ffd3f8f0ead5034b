//go:build plugin

package main

import (
	"os"
	"path/filepath"

	"github.com/vsariola/looper"
	"github.com/vsariola/looper/cmd"
	"github.com/vsariola/looper/engine"
	"gitlab.com/gomidi/midi/v2"
	"pipelined.dev/audio/vst2"
)

const pluginName = "Looper"

var pluginID = [4]byte{'L', 'o', 'o', 'p'}

type VSTIProcessContext struct {
	events     []vst2.MIDIEvent
	eventIndex int
}

func (c *VSTIProcessContext) NextEvent() (midi.Message, bool) {
	if c.eventIndex >= len(c.events) {
		return nil, false
	}
	c.eventIndex++
	return midi.Message(c.events[c.eventIndex-1].Data[:]), true
}

// loadConfig reads looper.yml from the user config directory, if there is
// one.
func loadConfig() (looper.Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return looper.DefaultConfig(), nil
	}
	path := filepath.Join(configDir, "Looper", "looper.yml")
	if _, err := os.Stat(path); err != nil {
		return looper.DefaultConfig(), nil
	}
	return looper.LoadConfig(path)
}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		logger := cmd.NewLogger(os.Stderr, false).With("plugin", pluginName)
		config, err := loadConfig()
		if err != nil {
			logger.Error("could not load config, using defaults", "err", err)
			config = looper.DefaultConfig()
		}
		broker := engine.NewBroker(config)
		e := engine.NewEngine(broker, config)
		done := make(chan struct{})
		go cmd.LogAlerts(logger, broker.Alerts, done)
		context := VSTIProcessContext{}
		return vst2.Plugin{
				UniqueID:       pluginID,
				Version:        version,
				InputChannels:  2,
				OutputChannels: 2,
				Name:           pluginName,
				Vendor:         "vsariola/looper",
				Category:       vst2.PluginCategoryEffect,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					e.Process(
						[2][]float32{in.Channel(0), in.Channel(1)},
						[2][]float32{out.Channel(0), out.Channel(1)},
						&context,
					)
					context.events = context.events[:0] // reset buffer, but keep the allocated memory
					context.eventIndex = 0
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						switch v := ev.Event(i).(type) {
						case *vst2.MIDIEvent:
							context.events = append(context.events, *v)
						}
					}
				},
				CloseFunc: func() {
					close(done)
				},
			}
	}
}

func main() {}
