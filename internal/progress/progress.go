// Package progress reports transfer progress either as terminal bars or
// as events on the bus, behind one Reporter interface.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/nexx/mediacenter/internal/events"
)

// Reporter receives the progress of one transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress draws a single progress bar on stderr.
type CLIProgress struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

// NewCLIProgress creates a new CLI progress reporter.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{out: os.Stderr}
}

// Start initializes the progress bar with total size and description.
// An unknown total (-1) shows a spinner.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		if p.bar != nil {
			_ = p.bar.Exit()
		}
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// EventProgress publishes TransferEvents for a frontend to render.
type EventProgress struct {
	bus      *events.EventBus
	taskID   string
	taskType string
	name     string

	mu    sync.Mutex
	total int64
}

// NewEventProgress creates a reporter for one task.
func NewEventProgress(bus *events.EventBus, taskID, taskType, name string) *EventProgress {
	return &EventProgress{bus: bus, taskID: taskID, taskType: taskType, name: name}
}

func (p *EventProgress) event(current int64, done bool, err error) *events.TransferEvent {
	p.mu.Lock()
	total := p.total
	p.mu.Unlock()

	ev := &events.TransferEvent{
		BaseEvent: events.NewBase(events.EventTransfer),
		TaskID:    p.taskID,
		TaskType:  p.taskType,
		Name:      p.name,
		Size:      total,
		Done:      done,
		Error:     err,
	}
	if total > 0 {
		ev.Progress = float64(current) / float64(total)
		if ev.Progress > 1 {
			ev.Progress = 1
		}
	}
	return ev
}

// Start records the total and publishes a zero-progress event.
func (p *EventProgress) Start(total int64, description string) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
	p.bus.Publish(p.event(0, false, nil))
}

// Update publishes the current position.
func (p *EventProgress) Update(current int64) {
	p.bus.Publish(p.event(current, false, nil))
}

// Finish publishes completion.
func (p *EventProgress) Finish() {
	p.mu.Lock()
	total := p.total
	p.mu.Unlock()
	p.bus.Publish(p.event(total, true, nil))
}

// Error publishes a failed completion.
func (p *EventProgress) Error(err error) {
	if err != nil {
		p.bus.Publish(p.event(0, true, err))
	}
}

// SetDescription is a no-op; events carry the task name.
func (p *EventProgress) SetDescription(desc string) {}

// NoOpProgress is a progress reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Finish()                               {}
func (p *NoOpProgress) Error(err error)                       {}
func (p *NoOpProgress) SetDescription(desc string)            {}

// Tee fans progress out to several reporters.
type Tee []Reporter

func (t Tee) Start(total int64, description string) {
	for _, r := range t {
		r.Start(total, description)
	}
}

func (t Tee) Update(current int64) {
	for _, r := range t {
		r.Update(current)
	}
}

func (t Tee) Finish() {
	for _, r := range t {
		r.Finish()
	}
}

func (t Tee) Error(err error) {
	for _, r := range t {
		r.Error(err)
	}
}

func (t Tee) SetDescription(desc string) {
	for _, r := range t {
		r.SetDescription(desc)
	}
}

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{reader: reader, reporter: reporter}
}

// Read implements io.Reader interface with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.current += int64(n)
		pr.reporter.Update(pr.current)
	}
	return n, err
}

// Current returns the bytes read so far.
func (pr *ProgressReader) Current() int64 {
	return pr.current
}
