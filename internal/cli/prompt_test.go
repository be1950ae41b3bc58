package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name, input, want string
		wantErr           bool
	}{
		{"trims", "  hello  \n", "hello", false},
		{"last line without newline", "tail", "tail", false},
		{"empty input", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := readLine(reader(tt.input), &out, "? ")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if out.String() != "? " {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"sure\n": false,
	}
	for input, want := range tests {
		if got := confirm(reader(input), &bytes.Buffer{}, "Delete?"); got != want {
			t.Errorf("confirm(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestPromptDownloadConflict(t *testing.T) {
	tests := []struct {
		input string
		want  DownloadConflictAction
	}{
		{"1\n", DownloadSkipOnce},
		{"2\n", DownloadSkipAll},
		{"3\n", DownloadOverwriteOnce},
		{"4\n", DownloadOverwriteAll},
		{"5\n", DownloadAbort},
		{"9\nx\n3\n", DownloadOverwriteOnce},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := promptDownloadConflict(reader(tt.input), &out, "/tmp/a.mp4")
		if err != nil {
			t.Fatalf("input %q: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("input %q: got %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "/tmp/a.mp4") {
			t.Errorf("prompt does not name the file: %q", out.String())
		}
	}

	if got, err := promptDownloadConflict(reader(""), &bytes.Buffer{}, "x"); err == nil || got != DownloadAbort {
		t.Errorf("EOF: got %v, %v; want abort with error", got, err)
	}
}
