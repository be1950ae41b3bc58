package state

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"

	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/models"
)

// SortKey is a sortable column of the file list.
type SortKey string

const (
	SortName        SortKey = "name"
	SortType        SortKey = "type"
	SortSize        SortKey = "size"
	SortCreatedDate SortKey = "createdDate"
	SortCreatedBy   SortKey = "createdBy"
)

// SortKeys lists the sortable columns in display order.
var SortKeys = []SortKey{SortName, SortType, SortSize, SortCreatedDate, SortCreatedBy}

// ParseSortKey accepts a column name, case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == Asc {
		return Desc
	}
	return Asc
}

// sortable carries an entry with its parsed sort value.
type sortable struct {
	entry models.FileListEntry
	size  int64
	date  time.Time
}

// SortEntries orders entries in place: new entries first, then by key
// and direction. Equal entries keep their relative order.
func SortEntries(entries []models.FileListEntry, key SortKey, dir SortDirection, s locale.Settings) {
	items := make([]sortable, len(entries))
	for i, e := range entries {
		items[i] = sortable{entry: e}
		switch key {
		case SortSize:
			items[i].size = SizeValue(e.Size)
		case SortCreatedDate:
			items[i].date = ParseCreatedDate(e.CreatedDate, s)
		}
	}

	col := s.Collator()
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.entry.IsNew != b.entry.IsNew {
			return a.entry.IsNew
		}
		c := compareBy(key, a, b, col)
		if dir == Desc {
			c = -c
		}
		return c < 0
	})

	for i := range items {
		entries[i] = items[i].entry
	}
}

func compareBy(key SortKey, a, b sortable, col *collate.Collator) int {
	switch key {
	case SortType:
		return col.CompareString(a.entry.Type, b.entry.Type)
	case SortCreatedBy:
		return col.CompareString(a.entry.CreatedBy, b.entry.CreatedBy)
	case SortSize:
		return compareInt64(a.size, b.size)
	case SortCreatedDate:
		return a.date.Compare(b.date)
	default:
		return col.CompareString(a.entry.Name, b.entry.Name)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SizeValue returns the byte magnitude of a size, parsing formatted
// labels. Unparseable labels count as zero.
func SizeValue(s models.Size) int64 {
	if !s.IsFormatted() {
		return s.Bytes
	}
	n, err := locale.ParseSize(s.Label)
	if err != nil {
		return 0
	}
	return n
}

// ParseCreatedDate turns a displayed creation date back into an instant.
// Right-to-left dates ("HH:mm - YYYY/MM/DD") are reassembled before
// parsing and Jalali dates are converted. Unparseable input yields the
// zero time, which sorts first.
func ParseCreatedDate(display string, s locale.Settings) time.Time {
	t, err := locale.ParseDate(display, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
