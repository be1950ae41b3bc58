package locale

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
	tib = 1024 * gib
)

var sizeLabelPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([a-z]*)$`)

var sizeUnits = map[string]float64{
	"":      1,
	"b":     1,
	"byte":  1,
	"bytes": 1,
	"kb":    kib,
	"mb":    mib,
	"gb":    gib,
	"tb":    tib,
}

// FormatSize renders a byte count the way the file list shows it:
// "742 B", "512.00 KB", "1.23 MB".
func FormatSize(n int64) string {
	switch {
	case n < kib:
		return fmt.Sprintf("%d B", n)
	case n < mib:
		return fmt.Sprintf("%.2f KB", float64(n)/kib)
	case n < gib:
		return fmt.Sprintf("%.2f MB", float64(n)/mib)
	case n < tib:
		return fmt.Sprintf("%.2f GB", float64(n)/gib)
	default:
		return fmt.Sprintf("%.2f TB", float64(n)/tib)
	}
}

// ParseSize converts a size label back to bytes. Units are binary
// (kb = 1024). Persian digits and separators are accepted.
func ParseSize(label string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(NormalizeDigits(label)))
	s = strings.ReplaceAll(s, ",", "")

	m := sizeLabelPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid size label %q", label)
	}
	mult, ok := sizeUnits[m[2]]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q in %q", m[2], label)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number in %q: %w", label, err)
	}
	n := value*mult + 0.5
	if n >= math.MaxInt64 {
		return 0, fmt.Errorf("size %q exceeds %d bytes", label, int64(math.MaxInt64))
	}
	return int64(n), nil
}
