package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/fetch"
	"github.com/nexx/mediacenter/internal/filetypes"
	"github.com/nexx/mediacenter/internal/logging"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/scope"
)

var (
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrInvalidPageSize = errors.New("page size not allowed")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrClosed          = errors.New("list view closed")

	// ErrSuperseded is returned by a transition whose fetch was overtaken
	// by a newer one; the newer one owns the state.
	ErrSuperseded = fetch.ErrSuperseded
)

// Loader fetches one page of the listing for a view.
type Loader interface {
	LoadPage(ctx context.Context, view string, q models.ListQuery, refetch bool) (models.FileListPage, error)
}

// Timer is the part of *time.Timer the highlight decay needs.
type Timer interface {
	Stop() bool
}

// ListViewOptions configures a ListView. Zero values take defaults.
type ListViewOptions struct {
	EventBus          *events.EventBus
	Logger            *logging.Logger
	PageSize          int
	HighlightDuration time.Duration

	// AfterFunc schedules highlight decay; tests replace it.
	AfterFunc func(d time.Duration, f func()) Timer
}

// ViewState is a snapshot of the user-controlled view state.
type ViewState struct {
	FolderID      int
	Page          int
	PageSize      int
	Keyword       string
	TypeFilter    filetypes.Category
	SortKey       SortKey
	SortDirection SortDirection
	HighlightedID string
	Loading       bool
	LastError     error
}

// ListView is the view-state machine of one rendered file list. It owns
// the fetched page, applies the client-side type filter and sort, and
// guarantees that only the most recent fetch is applied.
// Thread-safe for concurrent access.
type ListView struct {
	id     string
	loader Loader
	scope  *scope.Scope
	bus    *events.EventBus
	logger *logging.Logger

	highlightFor time.Duration
	afterFunc    func(time.Duration, func()) Timer

	// View state
	folderID   int
	page       int
	pageSize   int
	keyword    string
	typeFilter filetypes.Category
	sortKey    SortKey
	sortDir    SortDirection

	// Fetched data
	entries      []models.FileListEntry
	totalRecords int
	loading      bool
	lastError    error

	highlighted string
	timers      map[string]Timer

	gen    uint64
	cancel context.CancelFunc
	closed bool

	mu sync.Mutex
}

// NewListView creates a view bound to sc. Nothing is fetched until a
// transition or Reload is called.
func NewListView(loader Loader, sc *scope.Scope, opts ListViewOptions) *ListView {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if !constants.IsAllowedPageSize(opts.PageSize) {
		opts.PageSize = constants.DefaultPageSize
	}
	if opts.HighlightDuration <= 0 {
		opts.HighlightDuration = constants.HighlightDuration
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}

	return &ListView{
		id:           uuid.NewString(),
		loader:       loader,
		scope:        sc,
		bus:          opts.EventBus,
		logger:       opts.Logger,
		highlightFor: opts.HighlightDuration,
		afterFunc:    opts.AfterFunc,
		folderID:     sc.Get().FolderID,
		page:         1,
		pageSize:     opts.PageSize,
		typeFilter:   filetypes.All,
		sortKey:      SortName,
		sortDir:      Asc,
		entries:      make([]models.FileListEntry, 0),
		timers:       make(map[string]Timer),
	}
}

// ID identifies the view in events and query slots.
func (v *ListView) ID() string {
	return v.id
}

// State returns a snapshot of the view state.
func (v *ListView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ViewState{
		FolderID:      v.folderID,
		Page:          v.page,
		PageSize:      v.pageSize,
		Keyword:       v.keyword,
		TypeFilter:    v.typeFilter,
		SortKey:       v.sortKey,
		SortDirection: v.sortDir,
		HighlightedID: v.highlighted,
		Loading:       v.loading,
		LastError:     v.lastError,
	}
}

// Page returns the pagination metadata.
func (v *ListView) Page() PageInfo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pageInfoLocked()
}

func (v *ListView) pageInfoLocked() PageInfo {
	return PageInfo{
		Current:      v.page,
		Size:         v.pageSize,
		TotalRecords: v.totalRecords,
		TotalPages:   v.totalPagesLocked(),
	}
}

func (v *ListView) totalPagesLocked() int {
	if v.pageSize <= 0 || v.totalRecords <= 0 {
		return 1
	}
	return (v.totalRecords + v.pageSize - 1) / v.pageSize
}

// Rows derives the rendered sequence: the fetched page, type-filtered,
// then sorted with new entries first.
func (v *ListView) Rows() []models.FileListEntry {
	v.mu.Lock()
	rows := make([]models.FileListEntry, 0, len(v.entries))
	for _, e := range v.entries {
		if v.typeFilter.Matches(e.Type) {
			rows = append(rows, e)
		}
	}
	key, dir := v.sortKey, v.sortDir
	v.mu.Unlock()

	SortEntries(rows, key, dir, v.scope.Locale())
	return rows
}

// Entries returns the fetched page in server order, local patches applied.
func (v *ListView) Entries() []models.FileListEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.FileListEntry, len(v.entries))
	copy(out, v.entries)
	return out
}

// CanGoTo reports whether page n is within [1, totalPages].
func (v *ListView) CanGoTo(n int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return n >= 1 && n <= v.totalPagesLocked()
}

// HasNext reports whether a next page exists.
func (v *ListView) HasNext() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page < v.totalPagesLocked()
}

// HasPrev reports whether a previous page exists.
func (v *ListView) HasPrev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page > 1
}

// SelectFolder switches folder and resets page, keyword, type filter and
// highlight before fetching.
func (v *ListView) SelectFolder(ctx context.Context, id int) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.folderID = id
	v.page = 1
	v.keyword = ""
	v.typeFilter = filetypes.All
	v.clearHighlightLocked()
	page := v.pageInfoLocked()
	v.mu.Unlock()

	v.publish(NewPageChangedEvent(v.id, page))
	return v.load(ctx, false)
}

// SetSearch sets the server-side keyword filter and returns to page 1.
func (v *ListView) SetSearch(ctx context.Context, keyword string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.keyword = strings.TrimSpace(keyword)
	v.page = 1
	page := v.pageInfoLocked()
	v.mu.Unlock()

	v.publish(NewPageChangedEvent(v.id, page))
	return v.load(ctx, false)
}

// SetTypeFilter changes the client-side category filter. The page and the
// fetched entries are untouched.
func (v *ListView) SetTypeFilter(c filetypes.Category) {
	v.mu.Lock()
	v.typeFilter = c
	entries := v.snapshotLocked()
	folderID := v.folderID
	page := v.pageInfoLocked()
	v.mu.Unlock()

	v.publish(NewFileListChangedEvent(v.id, folderID, entries, page))
}

// ToggleSort handles a click on a column header: the current column flips
// direction, another column starts ascending.
func (v *ListView) ToggleSort(key SortKey) (SortKey, SortDirection) {
	v.mu.Lock()
	if key == v.sortKey {
		v.sortDir = v.sortDir.Flip()
	} else {
		v.sortKey = key
		v.sortDir = Asc
	}
	key, dir := v.sortKey, v.sortDir
	v.mu.Unlock()

	v.publish(NewSortChangedEvent(v.id, key, dir))
	return key, dir
}

// SetSort sets column and direction directly.
func (v *ListView) SetSort(key SortKey, dir SortDirection) {
	v.mu.Lock()
	v.sortKey = key
	v.sortDir = dir
	v.mu.Unlock()

	v.publish(NewSortChangedEvent(v.id, key, dir))
}

// SetPageSize changes the page size and returns to page 1.
func (v *ListView) SetPageSize(ctx context.Context, n int) error {
	if !constants.IsAllowedPageSize(n) {
		return fmt.Errorf("%w: %d (allowed %v)", ErrInvalidPageSize, n, constants.AllowedPageSizes)
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.pageSize = n
	v.page = 1
	page := v.pageInfoLocked()
	v.mu.Unlock()

	v.publish(NewPageChangedEvent(v.id, page))
	return v.load(ctx, false)
}

// GoToPage fetches page n. Pages outside [1, totalPages] are refused
// without a request.
func (v *ListView) GoToPage(ctx context.Context, n int) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if total := v.totalPagesLocked(); n < 1 || n > total {
		v.mu.Unlock()
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, n, total)
	}
	v.page = n
	page := v.pageInfoLocked()
	v.mu.Unlock()

	v.publish(NewPageChangedEvent(v.id, page))
	return v.load(ctx, false)
}

// NextPage moves one page forward.
func (v *ListView) NextPage(ctx context.Context) error {
	v.mu.Lock()
	n := v.page + 1
	v.mu.Unlock()
	return v.GoToPage(ctx, n)
}

// PrevPage moves one page back.
func (v *ListView) PrevPage(ctx context.Context) error {
	v.mu.Lock()
	n := v.page - 1
	v.mu.Unlock()
	return v.GoToPage(ctx, n)
}

// Reload re-issues the current query, bypassing the cache.
func (v *ListView) Reload(ctx context.Context) error {
	return v.load(ctx, true)
}

// Refresh re-applies the current query, served from the cache when fresh.
// Rows are projected again, so it follows a locale change.
func (v *ListView) Refresh(ctx context.Context) error {
	return v.load(ctx, false)
}

// load fetches the current query and applies the result if no newer
// fetch was started meanwhile. If the current page no longer exists it
// returns to page 1 and fetches once more, bypassing the cache.
func (v *ListView) load(ctx context.Context, refetch bool) error {
	recovered := false
	for {
		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return ErrClosed
		}
		if v.cancel != nil {
			v.cancel()
		}
		v.gen++
		gen := v.gen
		q := models.ListQuery{
			EntityID: v.scope.Get().EntityID,
			FolderID: v.folderID,
			Page:     v.page,
			PageSize: v.pageSize,
			Keyword:  v.keyword,
		}
		fctx, cancel := context.WithCancel(ctx)
		v.cancel = cancel
		v.loading = true
		v.mu.Unlock()

		v.publish(NewFileListLoadingEvent(v.id, q.FolderID, true))
		result, err := v.loader.LoadPage(fctx, v.id, q, refetch)
		cancel()

		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return ErrClosed
		}
		if gen != v.gen {
			v.mu.Unlock()
			v.logger.Debug().Str("view", v.id).Int("page", q.Page).Msg("discarding superseded page")
			return ErrSuperseded
		}
		v.cancel = nil
		v.loading = false

		if err != nil {
			v.lastError = err
			v.mu.Unlock()
			v.logger.Warn().Err(err).Str("view", v.id).Int("folder", q.FolderID).Int("page", q.Page).Msg("failed to load page")
			v.publish(NewFileListLoadingEvent(v.id, q.FolderID, false))
			v.publish(NewFileListErrorEvent(v.id, q.FolderID, err))
			return err
		}

		v.entries = result.Entries
		if v.entries == nil {
			v.entries = make([]models.FileListEntry, 0)
		}
		v.totalRecords = result.TotalRecords
		if result.PageSize > 0 {
			v.pageSize = result.PageSize
		}
		v.lastError = nil

		outOfRange := v.page > v.totalPagesLocked()
		if outOfRange && !recovered {
			v.page = 1
		}
		entries := v.snapshotLocked()
		page := v.pageInfoLocked()
		v.mu.Unlock()

		v.publish(NewFileListLoadingEvent(v.id, q.FolderID, false))
		v.publish(NewFileListChangedEvent(v.id, q.FolderID, entries, page))

		if !outOfRange || recovered {
			return nil
		}
		v.logger.Debug().Str("view", v.id).Int("page", q.Page).Int("total_pages", page.TotalPages).Msg("page beyond end, returning to page 1")
		v.publish(NewPageChangedEvent(v.id, page))
		recovered = true
		refetch = true
	}
}

// InsertLocal prepends an optimistic entry and highlights it. A closed
// view ignores the call.
func (v *ListView) InsertLocal(e models.FileListEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.IsNew = true

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.entries = append([]models.FileListEntry{e}, v.entries...)
	v.highlightLocked(e.ID)
	entries := v.snapshotLocked()
	folderID := v.folderID
	page := v.pageInfoLocked()
	v.mu.Unlock()

	v.publish(NewFileListChangedEvent(v.id, folderID, entries, page))
	v.publish(NewHighlightChangedEvent(v.id, e.ID))
}

// RenameLocal renames an entry, moves it to the front and highlights it.
func (v *ListView) RenameLocal(id, name string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	idx := -1
	for i := range v.entries {
		if v.entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		v.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	e := v.entries[idx]
	e.Name = name
	if ext := filetypes.FromName(name); ext != "" {
		e.Type = ext
	}
	e.IsNew = true

	next := make([]models.FileListEntry, 0, len(v.entries))
	next = append(next, e)
	next = append(next, v.entries[:idx]...)
	next = append(next, v.entries[idx+1:]...)
	v.entries = next
	v.highlightLocked(id)
	entries := v.snapshotLocked()
	folderID := v.folderID
	page := v.pageInfoLocked()
	v.mu.Unlock()

	v.publish(NewFileListChangedEvent(v.id, folderID, entries, page))
	v.publish(NewHighlightChangedEvent(v.id, id))
	return nil
}

// RemoveLocal drops the entry with the given correlation GUID.
func (v *ListView) RemoveLocal(correlationGUID string) bool {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return false
	}
	next := make([]models.FileListEntry, 0, len(v.entries))
	for _, e := range v.entries {
		if e.CorrelationGUID != correlationGUID {
			next = append(next, e)
		}
	}
	removed := len(next) != len(v.entries)
	v.entries = next
	entries := v.snapshotLocked()
	folderID := v.folderID
	page := v.pageInfoLocked()
	v.mu.Unlock()

	if removed {
		v.publish(NewFileListChangedEvent(v.id, folderID, entries, page))
	}
	return removed
}

// Close cancels the in-flight fetch and pending highlight timers. Results
// arriving afterwards are discarded.
func (v *ListView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.loading = false
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	for id, t := range v.timers {
		t.Stop()
		delete(v.timers, id)
	}
}

// highlightLocked marks id as highlighted and schedules its decay.
func (v *ListView) highlightLocked(id string) {
	v.highlighted = id
	if t, ok := v.timers[id]; ok {
		t.Stop()
	}
	v.timers[id] = v.afterFunc(v.highlightFor, func() { v.expire(id) })
}

// expire ends the highlight window of id. The entry stays in the list.
func (v *ListView) expire(id string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	delete(v.timers, id)
	for i := range v.entries {
		if v.entries[i].ID == id {
			v.entries[i].IsNew = false
		}
	}
	cleared := v.highlighted == id
	if cleared {
		v.highlighted = ""
	}
	entries := v.snapshotLocked()
	folderID := v.folderID
	page := v.pageInfoLocked()
	v.mu.Unlock()

	v.publish(NewFileListChangedEvent(v.id, folderID, entries, page))
	if cleared {
		v.publish(NewHighlightChangedEvent(v.id, ""))
	}
}

func (v *ListView) clearHighlightLocked() {
	v.highlighted = ""
	for id, t := range v.timers {
		t.Stop()
		delete(v.timers, id)
	}
	for i := range v.entries {
		v.entries[i].IsNew = false
	}
}

func (v *ListView) snapshotLocked() []models.FileListEntry {
	out := make([]models.FileListEntry, len(v.entries))
	copy(out, v.entries)
	return out
}

func (v *ListView) publish(e events.Event) {
	if v.bus != nil {
		v.bus.Publish(e)
	}
}
