package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/fetch"
	"github.com/nexx/mediacenter/internal/filetypes"
	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/scope"
)

type fakeLoader struct {
	mu      sync.Mutex
	queries []models.ListQuery
	respond func(ctx context.Context, q models.ListQuery) (models.FileListPage, error)
}

func (l *fakeLoader) LoadPage(ctx context.Context, view string, q models.ListQuery, refetch bool) (models.FileListPage, error) {
	l.mu.Lock()
	l.queries = append(l.queries, q)
	respond := l.respond
	l.mu.Unlock()
	return respond(ctx, q)
}

func (l *fakeLoader) calls() []models.ListQuery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ListQuery(nil), l.queries...)
}

// pageOf answers every query with total records and n generated entries.
func pageOf(total int) func(context.Context, models.ListQuery) (models.FileListPage, error) {
	return func(_ context.Context, q models.ListQuery) (models.FileListPage, error) {
		n := q.PageSize
		if rest := total - (q.Page-1)*q.PageSize; rest < n {
			n = rest
		}
		if n < 0 {
			n = 0
		}
		entries := make([]models.FileListEntry, n)
		for i := range entries {
			id := fmt.Sprintf("f%d-%d", q.Page, i)
			entries[i] = models.FileListEntry{ID: id, CorrelationGUID: "g-" + id, Name: id + ".txt", Type: "txt"}
		}
		return models.FileListPage{Entries: entries, TotalRecords: total, PageSize: q.PageSize, PageNumber: q.Page}, nil
	}
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu      sync.Mutex
	pending []*fakeTimer
	lastDur time.Duration
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.pending = append(c.pending, t)
	c.lastDur = d
	return t
}

func (c *fakeClock) FireAll() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, t := range pending {
		if !t.stopped {
			t.stopped = true
			t.f()
		}
	}
}

func newTestView(loader Loader) (*ListView, *fakeClock) {
	clock := &fakeClock{}
	sc := scope.New(scope.Value{Locale: locale.Default, EntityID: "media", FolderID: 1}, nil)
	v := NewListView(loader, sc, ListViewOptions{
		EventBus:  events.NewEventBus(100),
		AfterFunc: clock.AfterFunc,
	})
	return v, clock
}

func TestListView_GoToBeyondLastPageIsRejected(t *testing.T) {
	loader := &fakeLoader{respond: func(_ context.Context, q models.ListQuery) (models.FileListPage, error) {
		return models.FileListPage{
			Entries:      []models.FileListEntry{{ID: "A", Name: "a"}, {ID: "B", Name: "b"}},
			TotalRecords: 25,
			PageSize:     10,
			PageNumber:   q.Page,
		}, nil
	}}
	v, _ := newTestView(loader)

	if err := v.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := v.Page().TotalPages; got != 3 {
		t.Fatalf("TotalPages = %d, want 3", got)
	}
	if v.CanGoTo(4) {
		t.Error("CanGoTo(4) = true, want false")
	}
	if err := v.GoToPage(context.Background(), 4); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("GoToPage(4) err = %v, want ErrPageOutOfRange", err)
	}
	if err := v.GoToPage(context.Background(), 0); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("GoToPage(0) err = %v, want ErrPageOutOfRange", err)
	}
	if n := len(loader.calls()); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}

	if err := v.GoToPage(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if v.HasNext() || !v.HasPrev() {
		t.Errorf("on last page HasNext=%v HasPrev=%v", v.HasNext(), v.HasPrev())
	}
}

func TestListView_ResetRules(t *testing.T) {
	loader := &fakeLoader{respond: pageOf(200)}
	v, _ := newTestView(loader)
	ctx := context.Background()

	if err := v.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if err := v.SetSearch(ctx, "  report "); err != nil {
		t.Fatal(err)
	}
	if err := v.GoToPage(ctx, 4); err != nil {
		t.Fatal(err)
	}
	v.SetTypeFilter(filetypes.Document)

	if err := v.SetPageSize(ctx, 50); err != nil {
		t.Fatal(err)
	}
	st := v.State()
	if st.Page != 1 || st.PageSize != 50 || st.Keyword != "report" {
		t.Errorf("after SetPageSize: %+v", st)
	}

	if err := v.GoToPage(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := v.SelectFolder(ctx, 9); err != nil {
		t.Fatal(err)
	}
	st = v.State()
	if st.Page != 1 || st.Keyword != "" || st.TypeFilter != filetypes.All || st.FolderID != 9 {
		t.Errorf("after SelectFolder: %+v", st)
	}

	calls := loader.calls()
	last := calls[len(calls)-1]
	if last.FolderID != 9 || last.Page != 1 || last.Keyword != "" || last.EntityID != "media" {
		t.Errorf("last query = %+v", last)
	}
	if calls[1].Keyword != "report" || calls[1].Page != 1 {
		t.Errorf("search query = %+v", calls[1])
	}
}

func TestListView_SetPageSizeRejectsUnknownSize(t *testing.T) {
	loader := &fakeLoader{respond: pageOf(5)}
	v, _ := newTestView(loader)

	if err := v.SetPageSize(context.Background(), 15); !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("err = %v, want ErrInvalidPageSize", err)
	}
	if len(loader.calls()) != 0 {
		t.Error("invalid page size must not fetch")
	}
}

func TestListView_TypeFilterIsClientSide(t *testing.T) {
	loader := &fakeLoader{respond: func(_ context.Context, q models.ListQuery) (models.FileListPage, error) {
		return models.FileListPage{
			Entries: []models.FileListEntry{
				{ID: "1", Name: "a.png", Type: "png"},
				{ID: "2", Name: "b.pdf", Type: "pdf"},
				{ID: "3", Name: "c.jpg", Type: "jpg"},
			},
			TotalRecords: 30, PageSize: 10, PageNumber: q.Page,
		}, nil
	}}
	v, _ := newTestView(loader)
	ctx := context.Background()

	if err := v.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if err := v.GoToPage(ctx, 2); err != nil {
		t.Fatal(err)
	}
	v.SetTypeFilter(filetypes.Image)

	rows := v.Rows()
	if len(rows) != 2 || rows[0].ID != "1" || rows[1].ID != "3" {
		t.Errorf("Rows() = %+v", rows)
	}
	if v.State().Page != 2 {
		t.Error("type filter reset the page")
	}
	if n := len(loader.calls()); n != 2 {
		t.Errorf("loader called %d times, want 2", n)
	}
}

func TestListView_ToggleSort(t *testing.T) {
	v, _ := newTestView(&fakeLoader{respond: pageOf(0)})

	steps := []struct {
		click SortKey
		key   SortKey
		dir   SortDirection
	}{
		{SortName, SortName, Desc},
		{SortName, SortName, Asc},
		{SortName, SortName, Desc},
		{SortSize, SortSize, Asc},
		{SortSize, SortSize, Desc},
		{SortCreatedDate, SortCreatedDate, Asc},
	}
	for i, s := range steps {
		key, dir := v.ToggleSort(s.click)
		if key != s.key || dir != s.dir {
			t.Errorf("step %d: ToggleSort(%s) = %s %s, want %s %s", i, s.click, key, dir, s.key, s.dir)
		}
	}
}

func TestListView_InsertLocalHighlightDecays(t *testing.T) {
	loader := &fakeLoader{respond: pageOf(3)}
	v, clock := newTestView(loader)
	if err := v.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	v.InsertLocal(models.FileListEntry{ID: "new", Name: "report.docx", Type: "docx"})

	rows := v.Rows()
	if rows[0].ID != "new" || !rows[0].IsNew {
		t.Fatalf("first row = %+v, want new entry marked IsNew", rows[0])
	}
	if v.State().HighlightedID != "new" {
		t.Error("inserted entry is not highlighted")
	}
	if clock.lastDur != 2000*time.Millisecond {
		t.Errorf("highlight window = %v, want 2s", clock.lastDur)
	}

	clock.FireAll()

	rows = v.Rows()
	if len(rows) != 4 {
		t.Fatalf("entry was removed after decay: %d rows", len(rows))
	}
	for _, r := range rows {
		if r.IsNew {
			t.Errorf("entry %s still IsNew after decay", r.ID)
		}
	}
	if v.State().HighlightedID != "" {
		t.Error("highlight not cleared")
	}
}

func TestListView_InsertLocalAssignsID(t *testing.T) {
	v, _ := newTestView(&fakeLoader{respond: pageOf(0)})
	v.InsertLocal(models.FileListEntry{Name: "x.mp4"})
	if v.Rows()[0].ID == "" {
		t.Error("optimistic entry has no id")
	}
}

func TestListView_RenameLocal(t *testing.T) {
	v, clock := newTestView(&fakeLoader{respond: pageOf(3)})
	if err := v.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := v.RenameLocal("f1-2", "zeta.pdf"); err != nil {
		t.Fatal(err)
	}
	entries := v.Entries()
	if entries[0].ID != "f1-2" || entries[0].Name != "zeta.pdf" || entries[0].Type != "pdf" || !entries[0].IsNew {
		t.Errorf("renamed entry = %+v", entries[0])
	}
	// Name sort ascending would put zeta last; IsNew keeps it first.
	if v.Rows()[0].ID != "f1-2" {
		t.Error("renamed entry does not float to the top")
	}

	clock.FireAll()
	if v.Rows()[2].ID != "f1-2" {
		t.Error("after decay the entry should sort by name")
	}

	if err := v.RenameLocal("missing", "x"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("err = %v, want ErrEntryNotFound", err)
	}
}

func TestListView_RemoveLocal(t *testing.T) {
	v, _ := newTestView(&fakeLoader{respond: pageOf(3)})
	if err := v.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !v.RemoveLocal("g-f1-1") {
		t.Fatal("RemoveLocal returned false")
	}
	if v.RemoveLocal("g-f1-1") {
		t.Error("second RemoveLocal returned true")
	}
	for _, e := range v.Entries() {
		if e.ID == "f1-1" {
			t.Error("entry still present")
		}
	}
}

func TestListView_FailedFetchKeepsPreviousState(t *testing.T) {
	boom := errors.New("gateway timeout")
	loader := &fakeLoader{respond: pageOf(25)}
	v, _ := newTestView(loader)
	ctx := context.Background()

	if err := v.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	before := v.Entries()

	loader.mu.Lock()
	loader.respond = func(context.Context, models.ListQuery) (models.FileListPage, error) {
		return models.FileListPage{}, boom
	}
	loader.mu.Unlock()

	if err := v.GoToPage(ctx, 2); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	st := v.State()
	if st.Loading || !errors.Is(st.LastError, boom) {
		t.Errorf("state = %+v", st)
	}
	if got := v.Entries(); len(got) != len(before) || got[0].ID != before[0].ID {
		t.Error("entries were overwritten by a failed fetch")
	}
	if v.Page().TotalRecords != 25 {
		t.Error("pagination metadata was overwritten")
	}
}

func TestListView_ServerPageSizeIsAuthoritative(t *testing.T) {
	loader := &fakeLoader{respond: func(_ context.Context, q models.ListQuery) (models.FileListPage, error) {
		return models.FileListPage{Entries: []models.FileListEntry{}, TotalRecords: 100, PageSize: 25, PageNumber: q.Page}, nil
	}}
	v, _ := newTestView(loader)
	if err := v.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p := v.Page(); p.Size != 25 || p.TotalPages != 4 {
		t.Errorf("Page() = %+v", p)
	}
}

func TestListView_PageBeyondEndReturnsToFirstPage(t *testing.T) {
	total := 30
	var mu sync.Mutex
	loader := &fakeLoader{}
	loader.respond = func(ctx context.Context, q models.ListQuery) (models.FileListPage, error) {
		mu.Lock()
		defer mu.Unlock()
		return pageOf(total)(ctx, q)
	}
	v, _ := newTestView(loader)
	ctx := context.Background()

	if err := v.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if err := v.GoToPage(ctx, 3); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	total = 5
	mu.Unlock()

	if err := v.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if v.State().Page != 1 {
		t.Errorf("page = %d, want 1", v.State().Page)
	}
	calls := loader.calls()
	if last := calls[len(calls)-1]; last.Page != 1 {
		t.Errorf("last query page = %d, want 1", last.Page)
	}
	if len(v.Entries()) != 5 {
		t.Errorf("got %d entries, want 5", len(v.Entries()))
	}
}

// cachedLoader routes a fakeLoader through the query cache the services use.
type cachedLoader struct {
	cache *fetch.Client[models.FileListPage]
	next  *fakeLoader
}

func (l *cachedLoader) LoadPage(ctx context.Context, view string, q models.ListQuery, refetch bool) (models.FileListPage, error) {
	key := fetch.Key{
		Scope:    fetch.ScopeFiles,
		View:     view,
		EntityID: q.EntityID,
		FolderID: q.FolderID,
		Page:     q.Page,
		PageSize: q.PageSize,
		Keyword:  q.Keyword,
	}
	return l.cache.Query(ctx, key, refetch, func(ctx context.Context) (models.FileListPage, error) {
		return l.next.LoadPage(ctx, view, q, refetch)
	})
}

func TestListView_PageRecoveryBypassesCache(t *testing.T) {
	total := 30
	var mu sync.Mutex
	inner := &fakeLoader{}
	inner.respond = func(ctx context.Context, q models.ListQuery) (models.FileListPage, error) {
		mu.Lock()
		defer mu.Unlock()
		return pageOf(total)(ctx, q)
	}
	loader := &cachedLoader{
		cache: fetch.NewClient[models.FileListPage](fetch.Options{StaleTime: 30 * time.Second}),
		next:  inner,
	}
	v, _ := newTestView(loader)
	ctx := context.Background()

	if err := v.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if err := v.GoToPage(ctx, 3); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	total = 5
	mu.Unlock()

	if err := v.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	page := v.Page()
	if page.Current != 1 {
		t.Errorf("page = %d, want 1", page.Current)
	}
	if page.TotalRecords != 5 || page.TotalPages != 1 {
		t.Errorf("pagination = %+v, want 5 records on 1 page", page)
	}
	if n := len(v.Entries()); n != 5 {
		t.Errorf("got %d entries, want 5", n)
	}
	if calls := inner.calls(); len(calls) != 4 {
		t.Errorf("server saw %d requests, want 4", len(calls))
	}
}

func TestListView_LastFetchWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	loader := &fakeLoader{}
	loader.respond = func(ctx context.Context, q models.ListQuery) (models.FileListPage, error) {
		if q.Keyword == "slow" {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return models.FileListPage{
				Entries:      []models.FileListEntry{{ID: "stale"}},
				TotalRecords: 1, PageSize: 10, PageNumber: 1,
			}, nil
		}
		return models.FileListPage{
			Entries:      []models.FileListEntry{{ID: "fresh"}},
			TotalRecords: 1, PageSize: 10, PageNumber: 1,
		}, nil
	}
	v, _ := newTestView(loader)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- v.SetSearch(ctx, "slow") }()
	<-started

	if err := v.SetSearch(ctx, "fast"); err != nil {
		t.Fatal(err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Errorf("slow search err = %v, want ErrSuperseded", err)
	}
	if e := v.Entries(); len(e) != 1 || e[0].ID != "fresh" {
		t.Errorf("entries = %+v, want the fresh result", e)
	}
}

func TestListView_CloseDiscardsInFlight(t *testing.T) {
	started := make(chan struct{})
	loader := &fakeLoader{respond: func(ctx context.Context, q models.ListQuery) (models.FileListPage, error) {
		close(started)
		<-ctx.Done()
		return models.FileListPage{}, ctx.Err()
	}}
	v, clock := newTestView(loader)
	v.InsertLocal(models.FileListEntry{ID: "x"})

	errc := make(chan error, 1)
	go func() { errc <- v.Reload(context.Background()) }()
	<-started

	v.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("err = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the fetch")
	}

	clock.FireAll()
	if !v.Entries()[0].IsNew {
		t.Error("highlight timer ran after Close")
	}
	if err := v.NextPage(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("NextPage after Close err = %v, want ErrClosed", err)
	}
}

func TestListView_CloseStopsLoadingAndLocalPatches(t *testing.T) {
	started := make(chan struct{})
	loader := &fakeLoader{respond: func(ctx context.Context, q models.ListQuery) (models.FileListPage, error) {
		if q.Page == 1 && q.Keyword == "" {
			return pageOf(3)(ctx, q)
		}
		close(started)
		<-ctx.Done()
		return models.FileListPage{}, ctx.Err()
	}}
	v, clock := newTestView(loader)
	ctx := context.Background()
	if err := v.Reload(ctx); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- v.SetSearch(ctx, "clip") }()
	<-started
	v.Close()
	<-errc

	if v.State().Loading {
		t.Error("view still loading after Close")
	}

	before := len(v.Entries())
	v.InsertLocal(models.FileListEntry{ID: "late"})
	if got := len(v.Entries()); got != before {
		t.Errorf("InsertLocal after Close changed entries: %d -> %d", before, got)
	}
	if err := v.RenameLocal("f1-0", "renamed.txt"); !errors.Is(err, ErrClosed) {
		t.Errorf("RenameLocal after Close err = %v, want ErrClosed", err)
	}
	if v.RemoveLocal("g-f1-0") {
		t.Error("RemoveLocal after Close reported a removal")
	}
	clock.mu.Lock()
	pending := len(clock.pending)
	clock.mu.Unlock()
	if pending != 0 {
		t.Errorf("%d highlight timers scheduled after Close", pending)
	}
}

func TestListView_PublishesEvents(t *testing.T) {
	bus := events.NewEventBus(100)
	ch := bus.Subscribe(EventFileListChanged, EventFileListLoading)
	defer bus.Unsubscribe(ch)

	sc := scope.New(scope.Value{Locale: locale.Default, EntityID: "media"}, bus)
	v := NewListView(&fakeLoader{respond: pageOf(2)}, sc, ListViewOptions{EventBus: bus})
	if err := v.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	var seen []string
	for len(seen) < 3 {
		select {
		case ev := <-ch:
			switch e := ev.(type) {
			case *FileListLoadingEvent:
				seen = append(seen, fmt.Sprintf("loading=%v", e.Loading))
			case *FileListChangedEvent:
				seen = append(seen, fmt.Sprintf("changed=%d", len(e.Entries)))
			}
		case <-time.After(time.Second):
			t.Fatalf("events so far: %v", seen)
		}
	}
	want := []string{"loading=true", "loading=false", "changed=2"}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, seen[i], want[i])
		}
	}
}
