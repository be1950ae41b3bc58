// Package diskspace checks free space before a download is written.
package diskspace

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/locale"
)

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space for %s: need %s, have %s available",
		e.Path, locale.FormatSize(e.RequiredBytes), locale.FormatSize(e.AvailableBytes))
}

// CheckAvailableSpace checks that the filesystem holding targetPath has
// requiredBytes plus safetyMargin (a fraction, 0.15 = 15%) free. When
// free space cannot be determined the check passes and the write fails
// on its own if it must.
func CheckAvailableSpace(targetPath string, requiredBytes int64, safetyMargin float64) error {
	if requiredBytes <= 0 {
		return nil
	}
	available, err := availableBytes(filepath.Dir(targetPath))
	if err != nil {
		return nil
	}

	required := requiredBytes + int64(float64(requiredBytes)*safetyMargin)
	if available < required {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  required,
			AvailableBytes: available,
		}
	}
	return nil
}

// CheckForDownload applies the default download margin.
func CheckForDownload(targetPath string, size int64) error {
	return CheckAvailableSpace(targetPath, size, constants.DiskSpaceBufferPercent)
}

// GetAvailableSpace returns the available space in bytes for the filesystem
// containing path. Returns 0 if unable to determine.
func GetAvailableSpace(path string) int64 {
	n, err := availableBytes(filepath.Dir(path))
	if err != nil {
		return 0
	}
	return n
}

// IsInsufficientSpaceError checks if an error is an InsufficientSpaceError
func IsInsufficientSpaceError(err error) bool {
	var e *InsufficientSpaceError
	return errors.As(err, &e)
}
