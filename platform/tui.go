package platform

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/gammazero/deque"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"lichtwerk.net/lichtwerk/logging"
	"lichtwerk.net/lichtwerk/strip"
	"lichtwerk.net/lichtwerk/util"
)

// TUIPlatform renders the strips as coloured bar graphs in the terminal.
// Frames are kept in a bounded history so the animation can be paused and
// stepped backwards for inspection.
type TUIPlatform struct {
	tviewapp   *tview.Application
	intro      *tview.TextView
	ledDisplay *tview.TextView
	logView    *tview.TextView

	ossignalChan chan os.Signal
	frameEvent   *util.AtomicEvent[struct{}]
	logFlushOnce sync.Once
	readyChan    chan bool
	stopChan     chan struct{}

	mu          sync.Mutex
	frames      [][]strip.Pixel
	history     *deque.Deque[[][]strip.Pixel]
	historySize int
	paused      bool
	histPos     int
}

// NewTUIPlatform prepares a simulation of strips with the given sizes.
// historySize bounds the number of retained frames.
func NewTUIPlatform(ossignalchan chan os.Signal, historySize int, sizes ...int) *TUIPlatform {
	if historySize < 1 {
		historySize = 1
	}
	frames := make([][]strip.Pixel, len(sizes))
	for i, size := range sizes {
		frames[i] = make([]strip.Pixel, size)
	}
	inst := &TUIPlatform{
		ossignalChan: ossignalchan,
		frameEvent:   util.NewAtomicEvent[struct{}](),
		readyChan:    make(chan bool),
		stopChan:     make(chan struct{}),
		frames:       frames,
		history:      new(deque.Deque[[][]strip.Pixel]),
		historySize:  historySize,
	}
	inst.history.Grow(historySize)
	return inst
}

// Ready is closed once the TUI has drawn for the first time and has taken
// over log output.
func (s *TUIPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *TUIPlatform) Start() error {
	s.initTUI()
	go s.redrawLoop()
	return nil
}

func (s *TUIPlatform) Stop() {
	close(s.stopChan)
	if s.tviewapp != nil {
		s.tviewapp.Stop()
	}
}

// Transmit records a strip's frame and schedules a redraw.
func (s *TUIPlatform) Transmit(stripIdx int, frame []strip.Pixel) {
	s.mu.Lock()
	if stripIdx >= 0 && stripIdx < len(s.frames) {
		copy(s.frames[stripIdx], frame)
		s.pushHistory()
	}
	s.mu.Unlock()
	s.frameEvent.Send(struct{}{})
}

// pushHistory snapshots the full frame set; caller holds the lock.
func (s *TUIPlatform) pushHistory() {
	snap := make([][]strip.Pixel, len(s.frames))
	for i, f := range s.frames {
		snap[i] = append([]strip.Pixel(nil), f...)
	}
	s.history.PushBack(snap)
	for s.history.Len() > s.historySize {
		s.history.PopFront()
	}
}

func (s *TUIPlatform) redrawLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		case <-s.frameEvent.Channel():
			s.mu.Lock()
			paused := s.paused
			s.mu.Unlock()
			if !paused {
				s.tviewapp.QueueUpdateDraw(s.renderStrips)
			}
		}
	}
}

func (s *TUIPlatform) introText() string {
	line1 := "Hit [#ff0000]q[-] to exit, [#ff0000]r[-] to reload the config"
	line2 := "Hit [#ff0000]Space[-] to pause, [#ff0000]Left/Right[-] to step through paused frames"
	line3 := "Hit [#ff0000]Up/Down[-] to scroll logs"
	return fmt.Sprintf("%s\n%s\n%s", line1, line2, line3)
}

func (s *TUIPlatform) initTUI() {
	s.tviewapp = tview.NewApplication()

	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(s.introText())
	s.intro.SetBorder(true).SetTitle(" LICHTWERK Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	s.ledDisplay = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.ledDisplay.SetBorder(true)
	s.ledDisplay.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			s.tviewapp.Draw()
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	stripeHeight := 3*len(s.frames) + 2

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 5, 0, false).
		AddItem(s.ledDisplay, stripeHeight, 0, false).
		AddItem(s.logView, 0, 1, true)

	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.logFlushOnce.Do(func() {
			logWriter := tview.ANSIWriter(s.logView)
			logging.Release(logWriter)
			close(s.readyChan)
		})
	})

	s.tviewapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			s.tviewapp.Stop()
			s.ossignalChan <- os.Interrupt
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				s.ossignalChan <- os.Interrupt
				return nil
			case 'r', 'R':
				s.ossignalChan <- syscall.SIGHUP
				return nil
			case ' ':
				s.togglePause()
				return nil
			}
		case tcell.KeyLeft:
			s.stepHistory(-1)
			return nil
		case tcell.KeyRight:
			s.stepHistory(1)
			return nil
		case tcell.KeyUp:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row+1, col)
			return nil
		}
		return event
	})

	go func() {
		if err := s.tviewapp.SetRoot(layout, true).Run(); err != nil {
			slog.Error("Error running TUI", "error", err)
			s.ossignalChan <- os.Interrupt
		}
	}()
}

func (s *TUIPlatform) togglePause() {
	s.mu.Lock()
	s.paused = !s.paused
	s.histPos = s.history.Len() - 1
	s.mu.Unlock()
	s.tviewapp.QueueUpdateDraw(s.renderStrips)
}

func (s *TUIPlatform) stepHistory(delta int) {
	s.mu.Lock()
	if !s.paused || s.history.Len() == 0 {
		s.mu.Unlock()
		return
	}
	s.histPos += delta
	if s.histPos < 0 {
		s.histPos = 0
	}
	if s.histPos >= s.history.Len() {
		s.histPos = s.history.Len() - 1
	}
	s.mu.Unlock()
	s.tviewapp.QueueUpdateDraw(s.renderStrips)
}

// renderStrips redraws the LED pane. Must run on the TUI thread via
// QueueUpdateDraw.
func (s *TUIPlatform) renderStrips() {
	s.mu.Lock()
	frames := s.frames
	title := ""
	if s.paused && s.history.Len() > 0 {
		frames = s.history.At(s.histPos)
		title = fmt.Sprintf(" PAUSED %d/%d ", s.histPos+1, s.history.Len())
	}
	var buf strings.Builder
	for _, frame := range frames {
		top, bot := renderFrame(frame)
		buf.WriteString(" ")
		buf.WriteString(top)
		buf.WriteString("\n ")
		buf.WriteString(bot)
		buf.WriteString("\n\n")
	}
	s.mu.Unlock()
	s.ledDisplay.SetTitle(title)
	s.ledDisplay.SetText(buf.String())
}

// renderFrame produces the two-line bar representation of one strip.
func renderFrame(frame []strip.Pixel) (string, string) {
	var buf1, buf2 strings.Builder
	buf1.Grow(len(frame) * (len("[-][#000000]") + 1))
	buf2.Grow(len(frame) * (len("[-][#000000]") + 1))

	for _, px := range frame {
		if px.R == 0 && px.G == 0 && px.B == 0 {
			buf1.WriteString(" ")
			buf2.WriteString(" ")
			continue
		}
		// perceived level folds the APA102 global brightness in
		value := int(math.Round(float64(int(px.R)+int(px.G)+int(px.B)) / 3.0 *
			float64(px.Global&0x1F) / float64(strip.MaxGlobal) / 2.56))
		colorStr := scaledColor(px)
		buf1.WriteString(colorStr)
		buf2.WriteString(colorStr)

		topChar, bottomChar := " ", " "
		switch {
		case value <= 1:
			bottomChar = "▁"
		case value <= 3:
			bottomChar = "▂"
		case value <= 5:
			bottomChar = "▃"
		case value <= 8:
			bottomChar = "▄"
		case value <= 11:
			bottomChar = "▅"
		case value <= 14:
			bottomChar = "▆"
		case value <= 17:
			bottomChar = "▇"
		case value <= 20:
			bottomChar = "█"
		case value <= 24:
			topChar, bottomChar = "▁", "█"
		case value <= 28:
			topChar, bottomChar = "▂", "█"
		case value <= 33:
			topChar, bottomChar = "▃", "█"
		case value <= 38:
			topChar, bottomChar = "▄", "█"
		case value <= 44:
			topChar, bottomChar = "▅", "█"
		case value <= 50:
			topChar, bottomChar = "▆", "█"
		case value <= 60:
			topChar, bottomChar = "▇", "█"
		case value <= 80:
			topChar, bottomChar = "█", "█"
		default:
			topChar, bottomChar = "▒", "█"
		}
		buf1.WriteString(topChar)
		buf2.WriteString(bottomChar)
		buf1.WriteString("[-]")
		buf2.WriteString("[-]")
	}
	return buf1.String(), buf2.String()
}

// scaledColor maps a pixel to a full-saturation terminal colour tag; the
// brightness is conveyed by the bar height instead.
func scaledColor(px strip.Pixel) string {
	maxColor := math.Max(float64(px.R), math.Max(float64(px.G), float64(px.B)))
	if maxColor == 0 {
		return "[#000000]"
	}
	factor := 255 / maxColor
	red := math.Min(float64(px.R)*factor, 255)
	green := math.Min(float64(px.G)*factor, 255)
	blue := math.Min(float64(px.B)*factor, 255)

	const epsilon = 1e-9

	return fmt.Sprintf("[#%02x%02x%02x]", byte(math.Round(red+epsilon)), byte(math.Round(green+epsilon)), byte(math.Round(blue+epsilon)))
}
