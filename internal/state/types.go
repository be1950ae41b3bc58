// Package state provides observable state containers for the media center
// views. These containers emit events when state changes, allowing any
// frontend to subscribe and update its UI accordingly.
package state

import (
	"time"

	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/hierarchy"
	"github.com/nexx/mediacenter/internal/models"
)

// State event types
const (
	// File list events
	EventFileListChanged  events.EventType = "file_list_changed"
	EventFileListLoading  events.EventType = "file_list_loading"
	EventFileListError    events.EventType = "file_list_error"
	EventSortChanged      events.EventType = "sort_changed"
	EventPageChanged      events.EventType = "page_changed"
	EventHighlightChanged events.EventType = "highlight_changed"

	// Folder tree events
	EventFolderTreeChanged events.EventType = "folder_tree_changed"
)

// PageInfo is the pagination metadata of a list view.
type PageInfo struct {
	Current      int
	Size         int
	TotalRecords int
	TotalPages   int
}

// FileListChangedEvent is published when the fetched page or a local
// patch changes the entries.
type FileListChangedEvent struct {
	events.BaseEvent
	View     string
	FolderID int
	Entries  []models.FileListEntry
	Page     PageInfo
}

// FileListLoadingEvent is published when a page fetch starts or stops.
type FileListLoadingEvent struct {
	events.BaseEvent
	View     string
	FolderID int
	Loading  bool
}

// FileListErrorEvent is published when a page fetch fails.
type FileListErrorEvent struct {
	events.BaseEvent
	View     string
	FolderID int
	Error    error
}

// SortChangedEvent is published when the sort column or direction changes.
type SortChangedEvent struct {
	events.BaseEvent
	View      string
	Key       SortKey
	Direction SortDirection
}

// PageChangedEvent is published when the requested page or page size changes.
type PageChangedEvent struct {
	events.BaseEvent
	View string
	Page PageInfo
}

// HighlightChangedEvent is published when an entry is highlighted or the
// highlight decays. ID is empty when cleared.
type HighlightChangedEvent struct {
	events.BaseEvent
	View string
	ID   string
}

// FolderTreeChangedEvent is published after every load or local patch.
type FolderTreeChangedEvent struct {
	events.BaseEvent
	Roots []*hierarchy.Node
}

func base(t events.EventType) events.BaseEvent {
	return events.BaseEvent{EventType: t, Time: time.Now()}
}

// NewFileListChangedEvent creates a new FileListChangedEvent.
func NewFileListChangedEvent(view string, folderID int, entries []models.FileListEntry, page PageInfo) *FileListChangedEvent {
	return &FileListChangedEvent{
		BaseEvent: base(EventFileListChanged),
		View:      view,
		FolderID:  folderID,
		Entries:   entries,
		Page:      page,
	}
}

// NewFileListLoadingEvent creates a new FileListLoadingEvent.
func NewFileListLoadingEvent(view string, folderID int, loading bool) *FileListLoadingEvent {
	return &FileListLoadingEvent{
		BaseEvent: base(EventFileListLoading),
		View:      view,
		FolderID:  folderID,
		Loading:   loading,
	}
}

// NewFileListErrorEvent creates a new FileListErrorEvent.
func NewFileListErrorEvent(view string, folderID int, err error) *FileListErrorEvent {
	return &FileListErrorEvent{
		BaseEvent: base(EventFileListError),
		View:      view,
		FolderID:  folderID,
		Error:     err,
	}
}

// NewSortChangedEvent creates a new SortChangedEvent.
func NewSortChangedEvent(view string, key SortKey, dir SortDirection) *SortChangedEvent {
	return &SortChangedEvent{
		BaseEvent: base(EventSortChanged),
		View:      view,
		Key:       key,
		Direction: dir,
	}
}

// NewPageChangedEvent creates a new PageChangedEvent.
func NewPageChangedEvent(view string, page PageInfo) *PageChangedEvent {
	return &PageChangedEvent{
		BaseEvent: base(EventPageChanged),
		View:      view,
		Page:      page,
	}
}

// NewHighlightChangedEvent creates a new HighlightChangedEvent.
func NewHighlightChangedEvent(view, id string) *HighlightChangedEvent {
	return &HighlightChangedEvent{
		BaseEvent: base(EventHighlightChanged),
		View:      view,
		ID:        id,
	}
}

// NewFolderTreeChangedEvent creates a new FolderTreeChangedEvent.
func NewFolderTreeChangedEvent(roots []*hierarchy.Node) *FolderTreeChangedEvent {
	return &FolderTreeChangedEvent{
		BaseEvent: base(EventFolderTreeChanged),
		Roots:     roots,
	}
}
