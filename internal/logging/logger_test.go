package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithOutput("transfer", &buf)
	l.Infof("uploaded %d files", 3)

	out := buf.String()
	if !strings.Contains(out, "uploaded 3 files") {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, "transfer") {
		t.Errorf("missing component in %q", out)
	}
}

func TestLogger_SetOutput(t *testing.T) {
	var first, second bytes.Buffer
	l := NewLoggerWithOutput("cli", &first)
	l.SetOutput(&second)
	l.Warnf("redirected")

	if first.Len() != 0 {
		t.Errorf("old writer received %q", first.String())
	}
	if !strings.Contains(second.String(), "redirected") {
		t.Errorf("new writer missing message: %q", second.String())
	}
	if l.Output() != &second {
		t.Error("Output() does not return the current writer")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Errorf("dropped")
	l.Info().Msg("dropped")
}
