// Package validation checks the names users and the server give to
// folders and files before they reach the API or the local disk.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest folder or file name accepted, in runes.
const MaxNameLength = 255

var (
	ErrEmptyName   = errors.New("name cannot be empty")
	ErrNameTooLong = fmt.Errorf("name longer than %d characters", MaxNameLength)
	ErrNameSlash   = errors.New("name cannot contain / or \\")
	ErrNameDots    = errors.New("name cannot be . or ..")
	ErrNameControl = errors.New("name contains control characters")
	ErrOutsideDir  = errors.New("path escapes the target directory")
)

// invisible are zero-width characters that survive copy and paste from
// chat and office tools and make two names look identical.
var invisible = strings.NewReplacer(
	"\u200B", "", // zero-width space
	"\u200D", "", // zero-width joiner
	"\uFEFF", "", // byte order mark
	"\u00AD", "", // soft hyphen
	"\u2060", "", // word joiner
)

// CleanName trims whitespace and strips invisible characters. The
// zero-width non-joiner is kept: Persian spelling needs it.
func CleanName(name string) string {
	return strings.TrimSpace(invisible.Replace(name))
}

// ItemName cleans and validates a folder or file name typed by a user.
func ItemName(name string) (string, error) {
	name = CleanName(name)
	switch {
	case name == "":
		return "", ErrEmptyName
	case name == "." || name == "..":
		return "", ErrNameDots
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: %q", ErrNameSlash, name)
	case utf8.RuneCountInString(name) > MaxNameLength:
		return "", ErrNameTooLong
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q", ErrNameControl, name)
		}
	}
	return name, nil
}

// LocalFileName reduces a server-suggested download name to a safe base
// name, or returns fallback when nothing usable is left.
func LocalFileName(suggested, fallback string) string {
	name := filepath.Base(strings.ReplaceAll(suggested, "\\", "/"))
	name, err := ItemName(name)
	if err != nil {
		return fallback
	}
	return name
}

// InDirectory reports an error unless path, once cleaned, lies inside dir.
func InDirectory(path, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideDir, path)
	}
	return nil
}
