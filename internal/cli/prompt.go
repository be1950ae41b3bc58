package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readLine prints prompt and reads one trimmed line.
func readLine(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a secret without echo when in is a terminal, and a
// plain line otherwise (pipes, tests).
func readPassword(in *os.File, w io.Writer, prompt string) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(bufio.NewReader(in), w, prompt)
	}
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// confirm asks a yes/no question; anything but y/yes is no.
func confirm(r *bufio.Reader, w io.Writer, question string) bool {
	answer, err := readLine(r, w, question+" [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// DownloadConflictAction represents user choice for download file conflicts
type DownloadConflictAction int

const (
	DownloadSkipOnce DownloadConflictAction = iota
	DownloadSkipAll
	DownloadOverwriteOnce
	DownloadOverwriteAll
	DownloadAbort
)

// promptDownloadConflict asks what to do when a download target exists.
func promptDownloadConflict(r *bufio.Reader, w io.Writer, localPath string) (DownloadConflictAction, error) {
	for {
		fmt.Fprintf(w, "\nFile '%s' already exists.\n", localPath)
		fmt.Fprintln(w, "  1. Skip (once)")
		fmt.Fprintln(w, "  2. Skip (do for all)")
		fmt.Fprintln(w, "  3. Overwrite (once)")
		fmt.Fprintln(w, "  4. Overwrite (do for all)")
		fmt.Fprintln(w, "  5. Abort")
		input, err := readLine(r, w, "Choose [1-5]: ")
		if err != nil {
			return DownloadAbort, err
		}
		switch input {
		case "1":
			return DownloadSkipOnce, nil
		case "2":
			return DownloadSkipAll, nil
		case "3":
			return DownloadOverwriteOnce, nil
		case "4":
			return DownloadOverwriteAll, nil
		case "5":
			return DownloadAbort, nil
		}
		fmt.Fprintln(w, "Invalid choice, please try again.")
	}
}
