package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/nexx/mediacenter/internal/locale"
)

// MultiUI renders one mpb bar per file for batch uploads and downloads.
// Off a terminal it prints one line per start and completion instead.
type MultiUI struct {
	progress   *mpb.Progress
	isTerminal bool
	out        io.Writer
	verb       string
	totalFiles int
	started    int32
	completed  int32
	failed     int32
}

// Bar is one file's bar. It implements Reporter.
type Bar struct {
	bar        *mpb.Bar
	ui         *MultiUI
	index      int
	name       string
	dest       string
	size       int64
	startTime  time.Time
	lastUpdate time.Time
}

// NewMultiUI creates a UI for totalFiles transfers. verb labels the
// non-terminal output ("Uploading", "Downloading").
func NewMultiUI(verb string, totalFiles int) *MultiUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	return newMultiUI(verb, totalFiles, isTerminal, os.Stderr)
}

func newMultiUI(verb string, totalFiles int, isTerminal bool, out io.Writer) *MultiUI {
	var p *mpb.Progress
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}
	return &MultiUI{
		progress:   p,
		isTerminal: isTerminal,
		out:        out,
		verb:       verb,
		totalFiles: totalFiles,
	}
}

// AddBar creates the bar for one file. dest is shown after the arrow:
// the folder for uploads, the local path for downloads.
func (u *MultiUI) AddBar(name, dest string, size int64) *Bar {
	index := int(atomic.AddInt32(&u.started, 1))
	b := &Bar{
		ui:         u,
		index:      index,
		name:       truncatePath(name, 2),
		dest:       dest,
		size:       size,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}

	if u.isTerminal {
		b.bar = u.progress.New(size,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s → %s", b.index, u.totalFiles, b.name, dest), decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	}
	return b
}

// Start prints the start line off a terminal; size changes are applied.
func (b *Bar) Start(total int64, description string) {
	if total > 0 {
		b.size = total
		if b.bar != nil {
			b.bar.SetTotal(total, false)
		}
	}
	b.startTime = time.Now()
	if !b.ui.isTerminal {
		fmt.Fprintf(b.ui.out, "%s [%d/%d]: %s (%s) → %s\n",
			b.ui.verb, b.index, b.ui.totalFiles, b.name, locale.FormatSize(b.size), b.dest)
	}
}

// Update moves the bar to current bytes.
func (b *Bar) Update(current int64) {
	if b.bar == nil {
		return
	}
	now := time.Now()
	b.bar.EwmaSetCurrent(current, now.Sub(b.lastUpdate))
	b.lastUpdate = now
}

// Finish completes the bar and prints a summary line.
func (b *Bar) Finish() {
	elapsed := time.Since(b.startTime)
	if b.bar != nil {
		b.bar.SetCurrent(b.size)
		b.bar.SetTotal(b.size, true)
	}
	b.ui.println(fmt.Sprintf("✓ %s → %s (%s, %s)", b.name, b.dest, locale.FormatSize(b.size), elapsed.Round(time.Second)))
	atomic.AddInt32(&b.ui.completed, 1)
}

// Error aborts the bar and prints the failure.
func (b *Bar) Error(err error) {
	if err == nil {
		return
	}
	if b.bar != nil {
		b.bar.Abort(false)
	}
	b.ui.println(fmt.Sprintf("✗ %s → %s: %v", b.name, b.dest, err))
	atomic.AddInt32(&b.ui.failed, 1)
}

// SetDescription is unused by bars; the label is fixed at creation.
func (b *Bar) SetDescription(desc string) {}

// println writes through mpb so bars are not torn.
func (u *MultiUI) println(msg string) {
	if u.isTerminal {
		_, _ = u.progress.Write([]byte(msg + "\n"))
		return
	}
	fmt.Fprintln(u.out, msg)
}

// Wait blocks until all bars complete.
func (u *MultiUI) Wait() {
	u.progress.Wait()
}

// Writer returns a writer that prints above the bars.
func (u *MultiUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return u.out
}

// IsTerminal reports whether bars are drawn.
func (u *MultiUI) IsTerminal() bool {
	return u.isTerminal
}

// Counts returns completed and failed transfers.
func (u *MultiUI) Counts() (completed, failed int) {
	return int(atomic.LoadInt32(&u.completed)), int(atomic.LoadInt32(&u.failed))
}

// truncatePath keeps the last maxComponents path components.
// Example: truncatePath("/a/b/c/d/file.txt", 3) → "…/c/d/file.txt"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}

// enableANSIOnWindows enables virtual terminal processing; a no-op elsewhere.
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
