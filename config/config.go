// Package config reads the YAML configuration file describing the strips,
// segments and animation defaults, and watches it for changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lichtwerk.net/lichtwerk/beat"
	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/segment"
)

const CONFILE = "config.yml"

var CONFIG Config

type Config struct {
	RealHW     bool
	Configfile string
	Engine     struct {
		UpdatePeriod  time.Duration `yaml:"UpdatePeriod"`
		CalcCycles    int           `yaml:"CalcCycles"`
		TaskPeriod    time.Duration `yaml:"TaskPeriod"`
		DefaultGlobal uint8         `yaml:"DefaultGlobal"`
	} `yaml:"Engine"`
	Strips   []StripConfig   `yaml:"Strips"`
	Segments []SegmentConfig `yaml:"Segments"`
	NightDim struct {
		Enabled     bool    `yaml:"Enabled"`
		Latitude    float64 `yaml:"Latitude"`
		Longitude   float64 `yaml:"Longitude"`
		DayGlobal   uint8   `yaml:"DayGlobal"`
		NightGlobal uint8   `yaml:"NightGlobal"`
	} `yaml:"NightDim"`
	Beat struct {
		Enabled bool `yaml:"Enabled"`
		beat.Config  `yaml:",inline"`
	} `yaml:"Beat"`
	TUI struct {
		HistorySize int `yaml:"HistorySize"`
	} `yaml:"TUI"`
	Hardware struct {
		SPISpeedMhz   float64 `yaml:"SPISpeedMhz"`
		ColorCorrRed  float64 `yaml:"ColorCorrRed"`
		ColorCorrGrn  float64 `yaml:"ColorCorrGreen"`
		ColorCorrBlue float64 `yaml:"ColorCorrBlue"`
	} `yaml:"Hardware"`
}

type StripConfig struct {
	Size int `yaml:"Size"`
}

type SegmentConfig struct {
	Strip   int          `yaml:"Strip"`
	Start   int          `yaml:"Start"`
	Stop    int          `yaml:"Stop"`
	Invert  bool         `yaml:"Invert"`
	Exclude bool         `yaml:"Exclude"`
	Fade    *FadeConfig  `yaml:"Fade"`
	Pulse   *PulseConfig `yaml:"Pulse"`
}

type FadeConfig struct {
	Mode      string        `yaml:"Mode"`
	Min       [3]uint8      `yaml:"Min"`
	Max       [3]uint8      `yaml:"Max"`
	Time      time.Duration `yaml:"Time"`
	Cycles    int           `yaml:"Cycles"`
	StartDir  int           `yaml:"StartDir"`
	Global    uint8         `yaml:"Global"`
	SyncGroup int           `yaml:"SyncGroup"`
}

type PulseConfig struct {
	Mode               string        `yaml:"Mode"`
	Max                [3]uint8      `yaml:"Max"`
	LedsMaxPower       int           `yaml:"LedsMaxPower"`
	LedsFadeBefore     int           `yaml:"LedsFadeBefore"`
	LedsFadeAfter      int           `yaml:"LedsFadeAfter"`
	StartLed           int           `yaml:"StartLed"`
	StartDir           int           `yaml:"StartDir"`
	PixelsPerIteration int           `yaml:"PixelsPerIteration"`
	PixelTime          time.Duration `yaml:"PixelTime"`
	Cycles             int           `yaml:"Cycles"`
	Global             uint8         `yaml:"Global"`
}

var fadeModes = map[string]segment.Mode{
	"loop":                 segment.ModeLoop,
	"loop_end":             segment.ModeLoopEnd,
	"bounce":               segment.ModeBounce,
	"glitter_loop":         segment.ModeGlitterLoop,
	"glitter_loop_end":     segment.ModeGlitterLoopEnd,
	"glitter_loop_persist": segment.ModeGlitterLoopPersist,
	"glitter_bounce":       segment.ModeGlitterBounce,
}

// ReadConfig loads and validates cfile into the package-global CONFIG.
func ReadConfig(cfile string, realhw bool) error {
	f, err := os.Open(cfile)
	if err != nil {
		return fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	var conf Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&conf); err != nil {
		return fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	conf.RealHW = realhw
	conf.Configfile = cfile
	conf.applyDefaults()
	if err := conf.validate(); err != nil {
		return err
	}
	CONFIG = conf
	return nil
}

func (c *Config) applyDefaults() {
	if c.Engine.UpdatePeriod <= 0 {
		c.Engine.UpdatePeriod = segment.DefaultUpdatePeriod
	}
	if c.Engine.CalcCycles <= 0 {
		c.Engine.CalcCycles = segment.DefaultCalcCycles
	}
	if c.Engine.TaskPeriod <= 0 {
		c.Engine.TaskPeriod = 55 * time.Millisecond
	}
	if c.Engine.DefaultGlobal == 0 || c.Engine.DefaultGlobal > 31 {
		c.Engine.DefaultGlobal = 10
	}
	if c.TUI.HistorySize <= 0 {
		c.TUI.HistorySize = 100
	}
}

func (c *Config) validate() error {
	if len(c.Strips) == 0 {
		return fmt.Errorf("config: no strips defined")
	}
	for i, s := range c.Strips {
		if s.Size <= 0 {
			return fmt.Errorf("config: strip %d has size %d", i, s.Size)
		}
	}
	for i, sc := range c.Segments {
		if sc.Strip < 0 || sc.Strip >= len(c.Strips) {
			return fmt.Errorf("config: segment %d references strip %d", i, sc.Strip)
		}
		size := c.Strips[sc.Strip].Size
		if sc.Start > sc.Stop || sc.Start < 0 || sc.Stop >= size {
			return fmt.Errorf("config: segment %d range %d-%d outside strip of %d", i, sc.Start, sc.Stop, size)
		}
		if sc.Fade != nil {
			if _, ok := fadeModes[sc.Fade.Mode]; !ok {
				return fmt.Errorf("config: segment %d: unknown fade mode %q", i, sc.Fade.Mode)
			}
		}
		if sc.Pulse != nil {
			if _, ok := fadeModes[sc.Pulse.Mode]; !ok {
				return fmt.Errorf("config: segment %d: unknown pulse mode %q", i, sc.Pulse.Mode)
			}
		}
	}
	return nil
}

// FadeSetting converts the YAML form into an engine setting.
func (fc *FadeConfig) FadeSetting() *segment.FadeSetting {
	if fc == nil {
		return nil
	}
	return &segment.FadeSetting{
		Mode:      fadeModes[fc.Mode],
		Min:       colour.RGB{R: fc.Min[0], G: fc.Min[1], B: fc.Min[2]},
		Max:       colour.RGB{R: fc.Max[0], G: fc.Max[1], B: fc.Max[2]},
		FadeTime:  fc.Time,
		Cycles:    fc.Cycles,
		StartDir:  fc.StartDir,
		Global:    fc.Global,
		SyncGroup: fc.SyncGroup,
	}
}

// PulseSetting converts the YAML form into an engine setting. The engine
// counts a window pulse's PixelTime in update periods but a glitter ring's
// in milliseconds, so the YAML duration is converted per mode.
func (pc *PulseConfig) PulseSetting(updatePeriod time.Duration) *segment.PulseSetting {
	if pc == nil {
		return nil
	}
	mode := fadeModes[pc.Mode]
	pixelTime := int(pc.PixelTime.Milliseconds())
	if !mode.IsGlitter() {
		periodMs := int(updatePeriod.Milliseconds())
		if periodMs < 1 {
			periodMs = int(segment.DefaultUpdatePeriod.Milliseconds())
		}
		pixelTime /= periodMs
		if pixelTime < 1 {
			pixelTime = 1
		}
	}
	return &segment.PulseSetting{
		Mode:               mode,
		Max:                colour.RGB{R: pc.Max[0], G: pc.Max[1], B: pc.Max[2]},
		LedsMaxPower:       pc.LedsMaxPower,
		LedsFadeBefore:     pc.LedsFadeBefore,
		LedsFadeAfter:      pc.LedsFadeAfter,
		StartLed:           pc.StartLed,
		StartDir:           pc.StartDir,
		PixelsPerIteration: pc.PixelsPerIteration,
		PixelTime:          pixelTime,
		Cycles:             pc.Cycles,
		Global:             pc.Global,
	}
}
