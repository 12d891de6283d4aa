package progress

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/deploymenttheory/go-emmc/pkg/app"
)

// ErrInterrupted is returned when the operator stops the operation from the
// terminal UI.
var ErrInterrupted = errors.New("interrupted")

// TUI is a full-screen progress display. It shows a title, the phases of the
// operation with check marks, a progress bar and status lines. Ctrl-C, q or
// Esc request a stop; the caller watches Stopped and cancels its context.
type TUI struct {
	mu       sync.Mutex
	s        tcell.Screen
	stopChan chan struct{}
	once     sync.Once
	restore  bool

	// set while the terminal is handed back for line input
	suspended bool

	title        string
	phases       []string
	phaseDoneMap map[string]bool
	summaryLines []string
	statusLines  []string
	current      app.ProgressUpdate
}

// NewTUI takes over the terminal.
func NewTUI(title string) (*TUI, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	u, err := NewTUIWithScreen(s, title)
	if err != nil {
		return nil, err
	}
	u.restore = true
	return u, nil
}

// NewTUIWithScreen runs the UI on an existing screen, such as a
// tcell.SimulationScreen.
func NewTUIWithScreen(s tcell.Screen, title string) (*TUI, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	u := &TUI{
		s:            s,
		stopChan:     make(chan struct{}),
		phaseDoneMap: make(map[string]bool),
		title:        title,
	}
	go u.eventLoop(s)
	return u, nil
}

// Close restores the terminal.
func (u *TUI) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil {
		return
	}
	u.s.Fini()
	u.s = nil
	if u.restore {
		fmt.Print("\033[?1049l\033[?25h")
	}
}

// Suspend hands the terminal back to normal line mode so the caller can
// prompt on it. Drawing is skipped until Resume.
func (u *TUI) Suspend() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil || u.suspended {
		return nil
	}
	if err := u.s.Suspend(); err != nil {
		return err
	}
	u.suspended = true
	return nil
}

// Resume takes the terminal over again and redraws.
func (u *TUI) Resume() error {
	u.mu.Lock()
	if u.s == nil || !u.suspended {
		u.mu.Unlock()
		return nil
	}
	err := u.s.Resume()
	if err == nil {
		u.suspended = false
	}
	u.mu.Unlock()

	if err != nil {
		return err
	}
	u.LayoutAndDraw()
	return nil
}

// Suspended reports whether the terminal is currently handed back.
func (u *TUI) Suspended() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.suspended
}

// RequestStop signals that the operator wants to stop. Safe to call more
// than once.
func (u *TUI) RequestStop() {
	u.once.Do(func() {
		close(u.stopChan)
		u.mu.Lock()
		if u.s != nil {
			u.s.PostEvent(tcell.NewEventInterrupt(nil))
		}
		u.mu.Unlock()
	})
}

// Stopped is closed once a stop has been requested.
func (u *TUI) Stopped() <-chan struct{} {
	return u.stopChan
}

// IsStopped reports whether a stop has been requested.
func (u *TUI) IsStopped() bool {
	select {
	case <-u.stopChan:
		return true
	default:
		return false
	}
}

// SetPhases sets the phase labels shown with check marks.
func (u *TUI) SetPhases(labels []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.phases = append([]string(nil), labels...)
}

// SetPhaseDone marks a phase complete. Case-insensitive.
func (u *TUI) SetPhaseDone(p string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.phaseDoneMap[strings.ToLower(p)] = true
}

// SetSummaryLines sets the lines shown under the title.
func (u *TUI) SetSummaryLines(lines []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.summaryLines = append([]string(nil), lines...)
}

// SetStatusLines replaces the status block.
func (u *TUI) SetStatusLines(lines []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statusLines = append([]string(nil), lines...)
}

// Update implements Sink.
func (u *TUI) Update(p app.ProgressUpdate) {
	u.mu.Lock()
	if p.Done() {
		u.phaseDoneMap[strings.ToLower(p.Phase)] = true
	}
	u.current = p
	u.statusLines = []string{
		fmt.Sprintf("Target:  %s", p.Target),
		fmt.Sprintf("Sectors: %d/%d (%d%%)", p.Completed, p.Total, p.Percent()),
		fmt.Sprintf("Speed:   %.2f MB/s", p.MegabytesPerSecond()),
		fmt.Sprintf("ETA:     %.0fs", p.ETA().Seconds()),
	}
	u.mu.Unlock()

	u.LayoutAndDraw()
}

func putStr(s tcell.Screen, x, y int, str string) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		pos := x + i
		if pos >= w {
			break
		}
		s.SetContent(pos, y, r, nil, tcell.StyleDefault)
	}
}

// bar renders a width-wide progress bar.
func bar(width int, completed, total int64) string {
	if width < 3 {
		return ""
	}
	inner := width - 2
	filled := 0
	if total > 0 {
		filled = int(int64(inner) * completed / total)
	}
	if filled > inner {
		filled = inner
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", inner-filled) + "]"
}

// LayoutAndDraw redraws the whole screen from the current state.
func (u *TUI) LayoutAndDraw() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil || u.suspended {
		return
	}

	u.s.Clear()
	w, h := u.s.Size()
	y := 0

	if u.title != "" {
		putStr(u.s, 0, y, strings.Repeat("═", w))
		putStr(u.s, (w-len([]rune(u.title)))/2, y, u.title)
		y++
	}

	for _, line := range u.summaryLines {
		if y >= h {
			break
		}
		putStr(u.s, 0, y, line)
		y++
	}

	if len(u.phases) > 0 && y+1 < h {
		putStr(u.s, 0, y, strings.Repeat("─", w))
		putStr(u.s, 2, y, " Phase ")
		y++
		b := strings.Builder{}
		for i, p := range u.phases {
			if i > 0 {
				b.WriteByte(' ')
			}
			mark := ' '
			if u.phaseDoneMap[strings.ToLower(p)] {
				mark = '✓'
			}
			fmt.Fprintf(&b, "[%c]%s", mark, p)
		}
		putStr(u.s, 0, y, b.String())
		y++
	}

	if u.current.Total > 0 && y < h {
		putStr(u.s, 0, y, bar(w, u.current.Completed, u.current.Total))
		y++
	}

	if len(u.statusLines) > 0 && y < h {
		putStr(u.s, 0, y, strings.Repeat("─", w))
		putStr(u.s, 2, y, " Status ")
		y++
		for _, line := range u.statusLines {
			if y >= h {
				break
			}
			putStr(u.s, 0, y, line)
			y++
		}
	}

	u.s.Show()
}

func (u *TUI) eventLoop(s tcell.Screen) {
	for {
		select {
		case <-u.stopChan:
			return
		default:
		}
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC:
				u.RequestStop()
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				u.RequestStop()
			case ev.Key() == tcell.KeyEscape:
				u.RequestStop()
			}
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
			return
		case nil:
			return
		}
	}
}
