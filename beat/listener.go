// +build cgo

package beat

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

var (
	paMutex       sync.Mutex
	paInitialized bool
)

// Listener captures audio input through portaudio and feeds buffer energy
// into an onset detector.
type Listener struct {
	cfg      Config
	detector *Detector
	stopchan chan struct{}
	wg       sync.WaitGroup
}

// NewListener creates a listener. Start begins capturing.
func NewListener(cfg Config, detector *Detector) *Listener {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 1024
	}
	return &Listener{
		cfg:      cfg,
		detector: detector,
		stopchan: make(chan struct{}),
	}
}

// Detector returns the onset detector fed by this listener.
func (l *Listener) Detector() *Detector {
	return l.detector
}

// Start initializes portaudio and launches the capture goroutine.
func (l *Listener) Start() error {
	paMutex.Lock()
	if !paInitialized {
		if err := portaudio.Initialize(); err != nil {
			paMutex.Unlock()
			return fmt.Errorf("beat listener: initialize portaudio: %w", err)
		}
		paInitialized = true
		slog.Info("Beat listener: PortAudio initialized")
	}
	paMutex.Unlock()

	l.wg.Add(1)
	go l.runner()
	return nil
}

// Stop ends capturing and terminates portaudio.
func (l *Listener) Stop() {
	close(l.stopchan)
	l.wg.Wait()
	paMutex.Lock()
	defer paMutex.Unlock()
	if paInitialized {
		if err := portaudio.Terminate(); err != nil {
			slog.Error("Beat listener: failed to terminate portaudio", "error", err)
		} else {
			paInitialized = false
		}
	}
}

func (l *Listener) runner() {
	defer l.wg.Done()

	inDevice, err := l.findDevice()
	if err != nil {
		slog.Error("Beat listener: no device", "error", err)
		return
	}
	slog.Info("Beat listener", "device", inDevice.Name,
		"sampleRate", l.cfg.SampleRate, "framesPerBuffer", l.cfg.FramesPerBuffer)

	buffer := make([]float32, l.cfg.FramesPerBuffer*inDevice.MaxInputChannels)
	streamParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDevice,
			Channels: inDevice.MaxInputChannels,
			Latency:  inDevice.DefaultLowInputLatency,
		},
		SampleRate:      float64(l.cfg.SampleRate),
		FramesPerBuffer: l.cfg.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(streamParams, buffer)
	if err != nil {
		slog.Error("Beat listener: failed to open stream", "error", err)
		return
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		slog.Error("Beat listener: failed to start stream", "error", err)
		return
	}
	defer stream.Stop()

	for {
		select {
		case <-l.stopchan:
			return
		default:
		}
		if err := stream.Read(); err != nil {
			// overflow is routine when the consumer lags, keep reading
			continue
		}
		l.detector.Feed(RMS(buffer), time.Now())
	}
}

func (l *Listener) findDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("could not list audio devices: %w", err)
	}
	for _, device := range devices {
		if device.MaxInputChannels > 0 && strings.Contains(strings.ToLower(device.Name), l.cfg.Device) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("no suitable audio input device found")
}
