package anim

import (
	"log/slog"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"lichtwerk.net/lichtwerk/strip"
)

// NightDimmer lowers the bank's default global brightness between sunset
// and sunrise at a configured location. It runs its own goroutine and only
// ever touches the bank's atomic default, so it is safe next to the
// single-threaded engine.
type NightDimmer struct {
	bank      *strip.Bank
	latitude  float64
	longitude float64
	dayGlobal uint8
	nightGlob uint8
	stop      chan struct{}
}

func NewNightDimmer(bank *strip.Bank, latitude, longitude float64, dayGlobal, nightGlobal uint8) *NightDimmer {
	return &NightDimmer{
		bank:      bank,
		latitude:  latitude,
		longitude: longitude,
		dayGlobal: dayGlobal,
		nightGlob: nightGlobal,
		stop:      make(chan struct{}),
	}
}

// Start applies the brightness for the current time of day and keeps it in
// step with sunrise and sunset until Stop is called.
func (d *NightDimmer) Start() {
	go d.runner()
}

func (d *NightDimmer) Stop() {
	close(d.stop)
}

func (d *NightDimmer) runner() {
	for {
		now := time.Now()
		next := now.Add(24 * time.Hour) // tomorrow
		rise, set := sunrise.SunriseSunset(d.latitude, d.longitude, now.Year(), now.Month(), now.Day())
		riseNext, _ := sunrise.SunriseSunset(d.latitude, d.longitude, next.Year(), next.Month(), next.Day())

		var wait time.Duration
		if now.After(rise) && now.Before(set) {
			d.apply(d.dayGlobal, "day")
			wait = set.Sub(now)
		} else if now.Before(rise) {
			d.apply(d.nightGlob, "night")
			wait = rise.Sub(now)
		} else {
			d.apply(d.nightGlob, "night")
			wait = riseNext.Sub(now)
		}

		select {
		case <-d.stop:
			return
		case <-time.After(wait):
		}
	}
}

func (d *NightDimmer) apply(global uint8, phase string) {
	slog.Debug("Night dimmer switching brightness", "phase", phase, "global", global)
	d.bank.SetDefaultGlobal(global)
}
