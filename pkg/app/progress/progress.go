// Package progress renders transfer progress reported through app.Context:
// a carriage-return console line, structured log records, or a full-screen
// terminal UI.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/deploymenttheory/go-emmc/pkg/app"
)

// Sink receives progress updates.
type Sink interface {
	Update(update app.ProgressUpdate)
}

// Attach routes the progress of ctx to sink.
func Attach(ctx *app.Context, sink Sink) {
	ctx.SetProgress(sink.Update)
}

// Label returns the display name of a phase ("read" -> "Read").
func Label(phase string) string {
	if phase == "" {
		return "Progress"
	}
	return strings.ToUpper(phase[:1]) + phase[1:]
}

// Line formats an update as one console line:
// "Read: 10/100 sectors (1.23 MB/s, ETA: 4s)".
func Line(u app.ProgressUpdate) string {
	return fmt.Sprintf("%s: %d/%d sectors (%.2f MB/s, ETA: %.0fs)",
		Label(u.Phase), u.Completed, u.Total, u.MegabytesPerSecond(), u.ETA().Seconds())
}

// Console rewrites a single line on w with carriage returns and ends it when
// a phase completes.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Update implements Sink.
func (c *Console) Update(u app.ProgressUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "\r%s    ", Line(u))
	if u.Done() {
		fmt.Fprintln(c.w)
	}
}

// Log emits one structured record per update.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a sink logging at info level to logger.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Update implements Sink.
func (l *Log) Update(u app.ProgressUpdate) {
	l.logger.Info("progress",
		"target", u.Target,
		"phase", u.Phase,
		"done", u.Completed,
		"total", u.Total,
		"percent", u.Percent(),
		"mb_per_sec", fmt.Sprintf("%.2f", u.MegabytesPerSecond()),
		"eta", u.ETA().Round(time.Second),
	)
}
