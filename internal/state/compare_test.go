package state

import (
	"testing"
	"time"

	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/models"
)

func ids(entries []models.FileListEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortEntries_FormattedSizes(t *testing.T) {
	entries := []models.FileListEntry{
		{ID: "mb", Size: models.LabelSize("1.00 MB")},
		{ID: "kb", Size: models.LabelSize("512 KB")},
		{ID: "b", Size: models.LabelSize("900 B")},
	}

	SortEntries(entries, SortSize, Asc, locale.Default)
	if got := ids(entries); !equalIDs(got, []string{"b", "kb", "mb"}) {
		t.Errorf("asc = %v", got)
	}
	SortEntries(entries, SortSize, Desc, locale.Default)
	if got := ids(entries); !equalIDs(got, []string{"mb", "kb", "b"}) {
		t.Errorf("desc = %v", got)
	}
}

func TestSortEntries_RawAndMixedSizes(t *testing.T) {
	entries := []models.FileListEntry{
		{ID: "raw-big", Size: models.RawSize(2 << 20)},
		{ID: "label", Size: models.LabelSize("1.5 MB")},
		{ID: "raw-small", Size: models.RawSize(10)},
	}
	SortEntries(entries, SortSize, Asc, locale.Default)
	if got := ids(entries); !equalIDs(got, []string{"raw-small", "label", "raw-big"}) {
		t.Errorf("asc = %v", got)
	}
}

func TestSortEntries_NewEntriesFirst(t *testing.T) {
	for _, key := range SortKeys {
		for _, dir := range []SortDirection{Asc, Desc} {
			entries := []models.FileListEntry{
				{ID: "a", Name: "alpha", Type: "doc", Size: models.RawSize(1), CreatedBy: "amir", CreatedDate: "2024/01/01 - 10:00"},
				{ID: "z", Name: "zulu", Type: "zip", Size: models.RawSize(99), CreatedBy: "zahra", CreatedDate: "2020/01/01 - 10:00", IsNew: true},
				{ID: "m", Name: "mike", Type: "mp4", Size: models.RawSize(50), CreatedBy: "maryam", CreatedDate: "2022/01/01 - 10:00"},
			}
			SortEntries(entries, key, dir, locale.Default)
			if entries[0].ID != "z" {
				t.Errorf("%s %s: first = %s, want the new entry", key, dir, entries[0].ID)
			}
		}
	}
}

func TestSortEntries_TiesAreStable(t *testing.T) {
	entries := []models.FileListEntry{
		{ID: "1", Type: "pdf"},
		{ID: "2", Type: "png"},
		{ID: "3", Type: "pdf"},
		{ID: "4", Type: "pdf"},
	}
	SortEntries(entries, SortType, Asc, locale.Default)
	if got := ids(entries); !equalIDs(got, []string{"1", "3", "4", "2"}) {
		t.Errorf("asc = %v", got)
	}
	SortEntries(entries, SortType, Desc, locale.Default)
	if got := ids(entries); !equalIDs(got, []string{"2", "1", "3", "4"}) {
		t.Errorf("desc = %v", got)
	}
}

func TestSortEntries_RTLDates(t *testing.T) {
	fa := locale.For(locale.Persian)
	entries := []models.FileListEntry{
		{ID: "later-day", CreatedDate: "08:00 - 1403/01/02"},
		{ID: "earlier", CreatedDate: "23:59 - 1402/12/29"},
		{ID: "same-day-late", CreatedDate: "18:30 - 1403/01/01"},
		{ID: "same-day-early", CreatedDate: "09:15 - 1403/01/01"},
	}
	SortEntries(entries, SortCreatedDate, Asc, fa)
	want := []string{"earlier", "same-day-early", "same-day-late", "later-day"}
	if got := ids(entries); !equalIDs(got, want) {
		t.Errorf("asc = %v, want %v", got, want)
	}
}

func TestSortEntries_LTRDates(t *testing.T) {
	entries := []models.FileListEntry{
		{ID: "b", CreatedDate: "2024/03/20 - 14:05"},
		{ID: "a", CreatedDate: "2023/12/31 - 23:59"},
		{ID: "c", CreatedDate: "2024/03/20 - 14:06"},
	}
	SortEntries(entries, SortCreatedDate, Desc, locale.Default)
	if got := ids(entries); !equalIDs(got, []string{"c", "b", "a"}) {
		t.Errorf("desc = %v", got)
	}
}

func TestSortEntries_NamesUseCollation(t *testing.T) {
	entries := []models.FileListEntry{
		{ID: "B", Name: "Banana"},
		{ID: "a", Name: "apple"},
		{ID: "c", Name: "cherry"},
	}
	SortEntries(entries, SortName, Asc, locale.Default)
	if got := ids(entries); !equalIDs(got, []string{"a", "B", "c"}) {
		t.Errorf("asc = %v", got)
	}
}

func TestParseCreatedDate(t *testing.T) {
	fa := locale.For(locale.Persian)
	got := ParseCreatedDate("14:05 - 1403/01/01", fa)
	want := time.Date(2024, time.March, 20, 14, 5, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("ParseCreatedDate = %v, want %v", got, want)
	}
	if !ParseCreatedDate("not a date", fa).IsZero() {
		t.Error("garbage should parse to the zero time")
	}
}

func TestParseSortKey(t *testing.T) {
	if k, err := ParseSortKey("createddate"); err != nil || k != SortCreatedDate {
		t.Errorf("ParseSortKey = %v, %v", k, err)
	}
	if _, err := ParseSortKey("owner"); err == nil {
		t.Error("ParseSortKey(owner) should fail")
	}
}
