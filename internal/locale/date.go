package locale

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// The list shows dates as "YYYY/MM/DD - HH:mm". Right-to-left layouts
// put the clock first so it reads correctly: "HH:mm - YYYY/MM/DD".
const dateSeparator = " - "

// timestampLayouts are the server-side forms accepted by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-like created_date sent by the API.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatDate renders t for the list in the settings' calendar and direction.
func FormatDate(t time.Time, s Settings, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)

	var y, mo, d int
	if s.Calendar == Jalali {
		pt := ptime.New(t)
		y, mo, d = pt.Year(), int(pt.Month()), pt.Day()
	} else {
		y, mo, d = t.Year(), int(t.Month()), t.Day()
	}

	date := fmt.Sprintf("%04d/%02d/%02d", y, mo, d)
	clock := fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	if s.IsRTL() {
		return clock + dateSeparator + date
	}
	return date + dateSeparator + clock
}

// ParseDate turns a FormatDate string back into an instant. In RTL the
// clock comes first and is moved behind the date before parsing. Jalali
// dates are converted through the Persian calendar. Strings that are
// not in list form are tried as server timestamps.
func ParseDate(display string, s Settings, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	str := strings.TrimSpace(NormalizeDigits(display))

	parts := strings.SplitN(str, dateSeparator, 2)
	if len(parts) != 2 {
		return ParseTimestamp(str)
	}
	if s.IsRTL() && strings.Contains(parts[0], ":") {
		parts[0], parts[1] = parts[1], parts[0]
	}

	y, mo, d, err := splitTriple(parts[0], "/")
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", display, err)
	}
	h, mi, err := splitClock(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", display, err)
	}

	if s.Calendar == Jalali {
		return ptime.Date(y, ptime.Month(mo), d, h, mi, 0, 0, loc).Time(), nil
	}
	return time.Date(y, time.Month(mo), d, h, mi, 0, 0, loc), nil
}

func splitTriple(s, sep string) (int, int, int, error) {
	fields := strings.Split(strings.TrimSpace(s), sep)
	if len(fields) != 3 {
		return 0, 0, 0, fmt.Errorf("want three fields, got %d", len(fields))
	}
	var out [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, 0, 0, err
		}
		out[i] = n
	}
	if out[1] < 1 || out[1] > 12 || out[2] < 1 || out[2] > 31 {
		return 0, 0, 0, fmt.Errorf("month/day out of range")
	}
	return out[0], out[1], out[2], nil
}

func splitClock(s string) (int, int, error) {
	fields := strings.Split(strings.TrimSpace(s), ":")
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("want HH:mm")
	}
	h, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("clock out of range")
	}
	return h, m, nil
}
