package download

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Event reports one job reaching a terminal state.
type Event struct {
	// Done counts terminal jobs including this one.
	Done  int
	Total int
	Job   Job
	Bytes int64
	Err   error

	Elapsed time.Duration
}

// Progress receives dispatch progress. Update is called concurrently
// from workers.
type Progress interface {
	Start(total int)
	Update(ev Event)
	Finish()
}

// NewProgress returns a Console when f is a terminal and a Log reporter
// otherwise.
func NewProgress(f *os.File, logger *slog.Logger) Progress {
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return NewConsole(f)
	}
	return NewLog(logger)
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(int)    {}
func (Nop) Update(Event) {}
func (Nop) Finish()      {}

// =============================================================================
// Console
// =============================================================================

// Console redraws a single status line. Failures are printed on their own
// line above it.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	width int
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Start implements Progress.
func (c *Console) Start(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width = len(fmt.Sprint(total))
}

// Update implements Progress.
func (c *Console) Update(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Err != nil {
		fmt.Fprintf(c.w, "\r\x1b[Kfailed %s: %v\n", ev.Job.Key, ev.Err)
	}
	fmt.Fprintf(c.w, "\r\x1b[K[%*d/%d] %s", c.width, ev.Done, ev.Total, ev.Job.Key)
}

// Finish implements Progress.
func (c *Console) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w)
}

// =============================================================================
// Log
// =============================================================================

// Log reports every terminal job as a structured log record.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log reporter. A nil logger uses slog.Default.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Start implements Progress.
func (l *Log) Start(total int) {
	l.logger.Debug("download progress started", "total", total)
}

// Update implements Progress.
func (l *Log) Update(ev Event) {
	if ev.Err != nil {
		l.logger.Warn("download failed",
			"done", ev.Done,
			"total", ev.Total,
			"key", ev.Job.Key,
			"error", ev.Err)
		return
	}
	l.logger.Info("downloaded",
		"done", ev.Done,
		"total", ev.Total,
		"key", ev.Job.Key,
		"bytes", ev.Bytes,
		"elapsed", ev.Elapsed)
}

// Finish implements Progress.
func (*Log) Finish() {}

// Verify interface compliance.
var (
	_ Progress = Nop{}
	_ Progress = (*Console)(nil)
	_ Progress = (*Log)(nil)
)
