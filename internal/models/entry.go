package models

// Size is either a raw byte count or a pre-formatted, localized label
// such as "1.23 MB". Which one a call site produces depends on the
// configured size mode; comparators handle both.
type Size struct {
	Bytes int64
	Label string
}

// RawSize builds a numeric Size.
func RawSize(n int64) Size {
	return Size{Bytes: n}
}

// LabelSize builds a pre-formatted Size.
func LabelSize(label string) Size {
	return Size{Label: label}
}

// IsFormatted reports whether the size carries a display label.
func (s Size) IsFormatted() bool {
	return s.Label != ""
}

// FileListEntry is the presentation projection of a FileItem.
type FileListEntry struct {
	ID              string
	CorrelationGUID string
	Name            string
	Type            string // lowercase extension without the dot
	Size            Size
	CreatedBy       string
	CreatedDate     string // display string, layout depends on direction
	Description     string
	Permission      Permission
	IsLocked        bool

	// IsNew marks an entry created or renamed locally in the last highlight
	// window. Never sent to the server.
	IsNew bool
}

// FileListPage is one transformed page of the listing endpoint.
// TotalRecords and PageSize are the server-reported values.
type FileListPage struct {
	Entries      []FileListEntry
	TotalRecords int
	PageSize     int
	PageNumber   int
}
