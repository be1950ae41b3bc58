package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nexx/mediacenter/internal/events"
)

type recorder struct {
	total   int64
	updates []int64
	done    bool
	err     error
}

func (r *recorder) Start(total int64, description string) { r.total = total }
func (r *recorder) Update(current int64)                  { r.updates = append(r.updates, current) }
func (r *recorder) Finish()                               { r.done = true }
func (r *recorder) Error(err error)                       { r.err = err }
func (r *recorder) SetDescription(desc string)            {}

func TestProgressReader(t *testing.T) {
	rec := &recorder{}
	pr := NewProgressReader(strings.NewReader("hello world"), rec)
	buf := make([]byte, 4)

	var got bytes.Buffer
	for {
		n, err := pr.Read(buf)
		got.Write(buf[:n])
		if err == io.EOF {
			break
		}
	}
	if got.String() != "hello world" {
		t.Errorf("read %q", got.String())
	}
	if pr.Current() != 11 || rec.updates[len(rec.updates)-1] != 11 {
		t.Errorf("current = %d, updates = %v", pr.Current(), rec.updates)
	}
	for i := 1; i < len(rec.updates); i++ {
		if rec.updates[i] <= rec.updates[i-1] {
			t.Fatalf("updates not increasing: %v", rec.updates)
		}
	}
}

func TestTee(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	tee := Tee{a, b}
	tee.Start(10, "x")
	tee.Update(5)
	tee.Finish()
	for _, r := range []*recorder{a, b} {
		if r.total != 10 || len(r.updates) != 1 || !r.done {
			t.Errorf("recorder = %+v", r)
		}
	}
}

func TestEventProgress(t *testing.T) {
	bus := events.NewEventBus(16)
	ch := bus.Subscribe(events.EventTransfer)
	p := NewEventProgress(bus, "task-1", "upload", "clip.mp4")

	p.Start(200, "clip.mp4")
	p.Update(50)
	p.Finish()
	p.Error(errors.New("boom"))

	want := []struct {
		progress float64
		done     bool
		failed   bool
	}{
		{0, false, false},
		{0.25, false, false},
		{1, true, false},
		{0, true, true},
	}
	for i, w := range want {
		select {
		case e := <-ch:
			te := e.(*events.TransferEvent)
			if te.TaskID != "task-1" || te.Size != 200 || te.Progress != w.progress || te.Done != w.done || (te.Error != nil) != w.failed {
				t.Errorf("event %d = %+v", i, te)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not published", i)
		}
	}
}

func TestMultiUI_NonTerminal(t *testing.T) {
	var out bytes.Buffer
	ui := newMultiUI("Uploading", 2, false, &out)

	a := ui.AddBar("/home/u/media/a.mp4", "Clips", 2048)
	a.Start(2048, "")
	a.Update(1024)
	a.Finish()

	b := ui.AddBar("b.mp3", "Clips", 10)
	b.Start(10, "")
	b.Error(errors.New("status 500"))
	ui.Wait()

	s := out.String()
	for _, want := range []string{"Uploading [1/2]: …/media/a.mp4 (2.00 KB) → Clips", "✓ …/media/a.mp4", "✗ b.mp3 → Clips: status 500"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if done, failed := ui.Counts(); done != 1 || failed != 1 {
		t.Errorf("counts = %d, %d", done, failed)
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		n    int
		want string
	}{
		{"/a/b/c/d/file.txt", 3, "…/c/d/file.txt"},
		{"file.txt", 2, "file.txt"},
		{"dir/file.txt", 2, "file.txt"},
	}
	for _, tt := range tests {
		if got := truncatePath(tt.path, tt.n); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.n, got, tt.want)
		}
	}
}
