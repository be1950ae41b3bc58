// Package localfs expands upload arguments into the local files to send.
package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrIsDirectory is returned for a directory argument without Recursive.
var ErrIsDirectory = errors.New("is a directory")

// Options configures Collect.
type Options struct {
	// Recursive descends into directory arguments.
	Recursive bool

	// IncludeHidden keeps dot files and dot directories found while
	// walking. Hidden files named explicitly are always kept.
	IncludeHidden bool
}

// IsHiddenName reports whether a base name is a dot file. "." and ".."
// are not hidden.
func IsHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}

// Collect returns the regular files named by args, in argument order.
// Directories are walked in lexical order when opts.Recursive is set.
// A file reachable through more than one argument is returned once.
func Collect(args []string, opts Options) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if !seen[key] {
			seen[key] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				return nil, fmt.Errorf("%s: not a regular file", arg)
			}
			add(arg)
			continue
		}
		if !opts.Recursive {
			return nil, fmt.Errorf("%s: %w (use --recursive)", arg, ErrIsDirectory)
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != arg && !opts.IncludeHidden && IsHiddenName(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return files, nil
}
