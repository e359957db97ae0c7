// Lichtwerk drives addressable LED strips with layered, parametric
// animations: per-segment colour fades, moving pulses, glitter, and
// scripted multi-step sequences. It runs either against real APA102
// hardware on a Raspberry Pi or inside a terminal simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lichtwerk.net/lichtwerk/anim"
	"lichtwerk.net/lichtwerk/beat"
	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/config"
	"lichtwerk.net/lichtwerk/logging"
	"lichtwerk.net/lichtwerk/platform"
	"lichtwerk.net/lichtwerk/segment"
	"lichtwerk.net/lichtwerk/strip"
	"lichtwerk.net/lichtwerk/util"
)

func main() {
	cfile := flag.String("config", config.CONFILE, "Path to the config file")
	realhw := flag.Bool("real", false, "Drive real hardware instead of the TUI simulation")
	loglevel := flag.String("loglevel", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
	logformat := flag.String("logformat", "text", "Log format: text or json")
	logfile := flag.String("logfile", "", "Tee logs into this file")
	demo := flag.String("demo", "", "Demo program: rainbow, pulse, beat or sequence")
	flag.Parse()

	// while the TUI owns the terminal, logs are held back and flushed
	// into its log pane once it is up
	if err := logging.Init(!*realhw, *loglevel, *logformat, *logfile); err != nil {
		fmt.Fprintf(os.Stderr, "Can't initialize logging: %s\n", err)
		os.Exit(2)
	}
	defer logging.Close()

	if err := config.ReadConfig(*cfile, *realhw); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(2)
	}

	ossignal := make(chan os.Signal, 1)
	signal.Notify(ossignal, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		app, err := newApp(ossignal, *demo)
		if err != nil {
			slog.Error("Startup failed", "error", err)
			logging.Close()
			os.Exit(1)
		}
		app.start()

		sig := <-ossignal
		app.stop()
		if sig == syscall.SIGHUP {
			slog.Info("Reloading configuration...")
			if err := config.ReadConfig(*cfile, *realhw); err != nil {
				slog.Error("Config reload failed, keeping previous", "error", err)
			}
			continue
		}
		slog.Info("Shutting down")
		return
	}
}

// app holds one configured generation of the whole pipeline. A config
// reload tears the old one down and builds a fresh one.
type app struct {
	plat      platform.Platform
	bank      *strip.Bank
	engine    *segment.Engine
	seq       *anim.Sequencer
	wheel     *anim.RainbowWheel
	dimmer    *anim.NightDimmer
	listener  *beat.Listener
	beatSeq   int
	signals   chan os.Signal
	stopWatch func()
	stopChan  chan struct{}
}

func newApp(ossignal chan os.Signal, demo string) (*app, error) {
	conf := &config.CONFIG

	sizes := make([]int, len(conf.Strips))
	for i, s := range conf.Strips {
		sizes[i] = s.Size
	}

	var plat platform.Platform
	if conf.RealHW {
		corr := [3]float64{conf.Hardware.ColorCorrRed, conf.Hardware.ColorCorrGrn, conf.Hardware.ColorCorrBlue}
		spiSpeed := int(conf.Hardware.SPISpeedMhz * 1e6)
		if spiSpeed <= 0 {
			spiSpeed = 2_000_000
		}
		plat = platform.NewRaspberryPiPlatform(spiSpeed, corr, sizes...)
	} else {
		plat = platform.NewTUIPlatform(ossignal, conf.TUI.HistorySize, sizes...)
	}

	bank := strip.NewBank(plat, sizes...)
	bank.SetDefaultGlobal(conf.Engine.DefaultGlobal)

	clock := util.NewSystemClock()
	engine := segment.New(bank, clock, util.NewSystemRand(), conf.Engine.UpdatePeriod, conf.Engine.CalcCycles)

	for i, sc := range conf.Segments {
		if _, err := engine.AddSegment(sc.Strip, sc.Start, sc.Stop, sc.Invert, sc.Exclude,
			sc.Fade.FadeSetting(), sc.Pulse.PulseSetting(conf.Engine.UpdatePeriod)); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}

	a := &app{
		plat:     plat,
		bank:     bank,
		engine:   engine,
		seq:      anim.NewSequencer(engine, clock, conf.Engine.TaskPeriod),
		beatSeq:  anim.NewSequence,
		signals:  ossignal,
		stopChan: make(chan struct{}),
	}

	if conf.NightDim.Enabled {
		a.dimmer = anim.NewNightDimmer(bank, conf.NightDim.Latitude, conf.NightDim.Longitude,
			conf.NightDim.DayGlobal, conf.NightDim.NightGlobal)
	}
	if conf.Beat.Enabled {
		a.listener = beat.NewListener(conf.Beat.Config, beat.NewDetector(conf.Beat.Config))
	}
	if demo != "" {
		if err := a.setupDemo(demo); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) start() {
	if err := a.plat.Start(); err != nil {
		slog.Error("Platform start failed", "error", err)
		return
	}
	if a.dimmer != nil {
		a.dimmer.Start()
	}
	if a.listener != nil {
		if err := a.listener.Start(); err != nil {
			slog.Error("Beat listener start failed", "error", err)
			a.listener = nil
		}
	}
	stop, err := config.WatchConfig(config.CONFIG.Configfile, config.CONFIG.RealHW, func(*config.Config) {
		a.requestReload()
	})
	if err != nil {
		slog.Warn("Config watcher unavailable", "error", err)
	} else {
		a.stopWatch = stop
	}

	go a.tickLoop()
}

// requestReload makes a detected config change behave like an operator
// SIGHUP: main tears the app down and rebuilds it from the fresh CONFIG.
// With a reload already queued the change is folded into it.
func (a *app) requestReload() {
	select {
	case a.signals <- syscall.SIGHUP:
	default:
	}
}

func (a *app) stop() {
	close(a.stopChan)
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.listener != nil {
		a.listener.Stop()
	}
	if a.dimmer != nil {
		a.dimmer.Stop()
	}
	a.plat.Stop()
}

// tickLoop is the single execution context of the whole animation core:
// engine sub-cycles, the sequencer, and the generators all run from here.
func (a *app) tickLoop() {
	subPeriod := a.engine.UpdatePeriod() / time.Duration(a.engine.CalcCycles())
	if subPeriod <= 0 {
		subPeriod = 5 * time.Millisecond
	}
	ticker := time.NewTicker(subPeriod)
	defer ticker.Stop()

	var onset <-chan struct{}
	if a.listener != nil {
		onset = a.listener.Detector().Onset.Channel()
	}

	for {
		select {
		case <-a.stopChan:
			return
		case <-onset:
			a.onBeat()
		case <-ticker.C:
			a.engine.RunIteration()
			a.seq.RunTask()
			if a.wheel != nil {
				a.wheel.Tick()
			}
		}
	}
}

// onBeat refreshes the beat-synchronized sequence from the detector's
// current interval window.
func (a *app) onBeat() {
	det := a.listener.Detector()
	avg := det.Average()
	if avg == 0 || a.engine.NumSegments() == 0 {
		return
	}
	id, err := anim.BuildBeatSequence(a.seq, a.beatSeq, []time.Duration{avg}, anim.BeatParams{
		Target:   0,
		Baseline: colour.RGB{R: 10, G: 0, B: 20},
		Boost:    colour.RGB{R: 180, G: 40, B: 255},
		Span:     a.segmentSpan(0),
		Cycles:   0,
	})
	if err != nil {
		slog.Debug("Beat sequence rebuild failed", "error", err)
		return
	}
	a.beatSeq = id
}

func (a *app) segmentSpan(id int) int {
	st, err := a.engine.State(id)
	if err != nil {
		return 1
	}
	return st.Stop - st.Start + 1
}

// setupDemo wires one of the built-in demo programs onto segment 0 (and
// friends, where configured).
func (a *app) setupDemo(name string) error {
	if a.engine.NumSegments() == 0 {
		return fmt.Errorf("demo %q needs at least one configured segment", name)
	}
	switch name {
	case "rainbow":
		wheel, err := anim.NewRainbowWheel(a.engine, 0, colour.Rainbow(12), 0, 3*time.Second, 0)
		if err != nil {
			return err
		}
		a.wheel = wheel
		return wheel.Start()

	case "pulse":
		return a.engine.SetPulse(0, &segment.PulseSetting{
			Mode:               segment.ModeBounce,
			Max:                colour.RGB{R: 255, G: 120, B: 0},
			LedsMaxPower:       3,
			LedsFadeBefore:     4,
			LedsFadeAfter:      4,
			StartLed:           1,
			StartDir:           1,
			PixelsPerIteration: 1,
			PixelTime:          40,
			Cycles:             0,
			Global:             0,
			ColourSeq:          colour.Pride,
			ColourSeqLoops:     1,
		})

	case "sequence":
		_, err := anim.BuildFadeSequence(a.seq, anim.NewSequence, 0, false,
			colour.Rainbow(6), 2*time.Second, 500*time.Millisecond, 0, 0)
		return err

	case "beat":
		if a.listener == nil {
			return fmt.Errorf("demo beat needs Beat.Enabled in the config")
		}
		return nil
	}
	return fmt.Errorf("unknown demo %q", name)
}
