package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/nexx/mediacenter/internal/localfs"
)

func TestConflictResolver_Flags(t *testing.T) {
	over := newConflictResolver(true, false, strings.NewReader(""), io.Discard)
	if ok, err := over.resolve("/a"); !ok || err != nil {
		t.Errorf("--overwrite: got %v, %v", ok, err)
	}
	skip := newConflictResolver(false, true, strings.NewReader(""), io.Discard)
	if ok, err := skip.resolve("/a"); ok || err != nil {
		t.Errorf("--skip-existing: got %v, %v", ok, err)
	}
}

func TestConflictResolver_Prompts(t *testing.T) {
	tests := []struct {
		name    string
		answers string
		want    []bool
		wantErr error
	}{
		{"once each", "3\n1\n", []bool{true, false}, nil},
		{"overwrite all sticks", "4\n", []bool{true, true, true}, nil},
		{"skip all sticks", "2\n", []bool{false, false}, nil},
		{"abort", "5\n", []bool{false}, errDownloadAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConflictResolver(false, false, strings.NewReader(tt.answers), io.Discard)
			for i, want := range tt.want {
				got, err := c.resolve("/dl/file")
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Fatalf("err = %v, want %v", err, tt.wantErr)
					}
					return
				}
				if err != nil {
					t.Fatalf("call %d: %v", i, err)
				}
				if got != want {
					t.Errorf("call %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestConflictResolver_SerializesPrompts(t *testing.T) {
	var mu sync.Mutex
	active, maxActive, calls := 0, 0, 0

	c := newConflictResolver(false, false, strings.NewReader(""), io.Discard)
	c.prompt = func(r *bufio.Reader, w io.Writer, path string) (DownloadConflictAction, error) {
		mu.Lock()
		active++
		calls++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		mu.Lock()
		active--
		mu.Unlock()
		return DownloadSkipOnce, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.resolve("/dl/x")
		}()
	}
	wg.Wait()

	if calls != 8 || maxActive != 1 {
		t.Errorf("calls = %d, max concurrent prompts = %d", calls, maxActive)
	}
}

func TestFilesCmd(t *testing.T) {
	cmd := newFilesCmd()
	found := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		found[sub.Name()] = true
	}
	for _, want := range []string{"list", "upload", "download", "rename", "describe", "lock", "unlock", "delete", "export"} {
		if !found[want] {
			t.Errorf("subcommand %q not found", want)
		}
	}

	dl := newFilesDownloadCmd()
	for _, name := range []string{"outdir", "max-concurrent", "overwrite", "skip-existing"} {
		if dl.Flags().Lookup(name) == nil {
			t.Errorf("download: --%s flag not found", name)
		}
	}
}

func TestExecuteUpload_RejectsConcurrency(t *testing.T) {
	for _, n := range []int{0, 9} {
		if err := executeUpload(io.Discard, []string{"a"}, localfs.Options{}, 0, n); err == nil || !strings.Contains(err.Error(), "--max-concurrent") {
			t.Errorf("maxConcurrent %d: err = %v", n, err)
		}
	}
}

func TestExecuteUpload_DirectoryNeedsRecursive(t *testing.T) {
	err := executeUpload(io.Discard, []string{t.TempDir()}, localfs.Options{}, 0, 1)
	if !errors.Is(err, localfs.ErrIsDirectory) {
		t.Errorf("err = %v, want ErrIsDirectory", err)
	}
}
