package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nexx/mediacenter/internal/api"
	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/filetypes"
	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/scope"
	"github.com/nexx/mediacenter/internal/services"
	"github.com/nexx/mediacenter/internal/state"
)

const browseHelp = `Commands:
  n, p            next / previous page
  g N             go to page N
  size N          rows per page (10, 20, 50, 100)
  s KEY           sort by name, type, size, createdDate, createdBy (again flips)
  f TYPE          type filter: all, image, video, audio, document, archive, other
  / [KEYWORD]     server-side search (empty clears)
  cd ID | .. | /  change folder
  u PATH          upload a file into this folder
  mv ID NAME      rename a file
  rm GUID         delete a file by correlation guid
  r               reload, bypassing the cache
  lang en|fa      switch language, direction and calendar
  h               this help
  q               quit`

// browseOp is one interactive command.
type browseOp int

const (
	opNone browseOp = iota
	opNext
	opPrev
	opGoto
	opPageSize
	opSort
	opFilter
	opSearch
	opCd
	opUpload
	opRename
	opDelete
	opReload
	opLang
	opHelp
	opQuit
)

type browseAction struct {
	op   browseOp
	n    int
	arg  string
	arg2 string
}

var errUnknownCommand = errors.New("unknown command (h for help)")

// parseBrowseCommand parses one line typed at the browse prompt.
func parseBrowseCommand(line string) (browseAction, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return browseAction{op: opNone}, nil
	}
	if strings.HasPrefix(line, "/") {
		return browseAction{op: opSearch, arg: strings.TrimSpace(line[1:])}, nil
	}

	fields := strings.Fields(line)
	cmd, rest := strings.ToLower(fields[0]), fields[1:]
	needArgs := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("%s: missing argument", cmd)
		}
		return nil
	}
	number := func() (int, error) {
		if err := needArgs(1); err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", cmd, rest[0])
		}
		return n, nil
	}

	switch cmd {
	case "n", "next":
		return browseAction{op: opNext}, nil
	case "p", "prev":
		return browseAction{op: opPrev}, nil
	case "g", "goto":
		n, err := number()
		return browseAction{op: opGoto, n: n}, err
	case "size":
		n, err := number()
		return browseAction{op: opPageSize, n: n}, err
	case "s", "sort":
		if err := needArgs(1); err != nil {
			return browseAction{}, err
		}
		return browseAction{op: opSort, arg: rest[0]}, nil
	case "f", "filter":
		if err := needArgs(1); err != nil {
			return browseAction{}, err
		}
		return browseAction{op: opFilter, arg: rest[0]}, nil
	case "cd":
		if err := needArgs(1); err != nil {
			return browseAction{}, err
		}
		return browseAction{op: opCd, arg: rest[0]}, nil
	case "u", "upload":
		if err := needArgs(1); err != nil {
			return browseAction{}, err
		}
		return browseAction{op: opUpload, arg: strings.Join(rest, " ")}, nil
	case "mv":
		if err := needArgs(2); err != nil {
			return browseAction{}, err
		}
		return browseAction{op: opRename, arg: rest[0], arg2: strings.Join(rest[1:], " ")}, nil
	case "rm":
		if err := needArgs(1); err != nil {
			return browseAction{}, err
		}
		return browseAction{op: opDelete, arg: rest[0]}, nil
	case "r", "reload":
		return browseAction{op: opReload}, nil
	case "lang":
		if err := needArgs(1); err != nil {
			return browseAction{}, err
		}
		return browseAction{op: opLang, arg: rest[0]}, nil
	case "h", "help", "?":
		return browseAction{op: opHelp}, nil
	case "q", "quit", "exit":
		return browseAction{op: opQuit}, nil
	}
	return browseAction{}, fmt.Errorf("%q: %w", cmd, errUnknownCommand)
}

// browseBackend performs the mutations a browse session can make.
type browseBackend interface {
	Upload(ctx context.Context, path string, folderID int) (models.FileListEntry, error)
	Rename(ctx context.Context, folderID int, fileID, name string) error
	Delete(ctx context.Context, folderID int, correlationGUID string) error
}

type sessionBackend struct {
	sess *services.Session
}

func (b sessionBackend) Upload(ctx context.Context, path string, folderID int) (models.FileListEntry, error) {
	return b.sess.Transfers.Upload(ctx, path, folderID, nil)
}

func (b sessionBackend) Rename(ctx context.Context, folderID int, fileID, name string) error {
	return b.sess.Files.Rename(ctx, folderID, fileID, name)
}

func (b sessionBackend) Delete(ctx context.Context, folderID int, correlationGUID string) error {
	return b.sess.Files.Delete(ctx, folderID, correlationGUID)
}

// syncWriter serializes writes from the command loop and the redraw watcher.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// browser drives one list view from typed commands.
type browser struct {
	view    *state.ListView
	tree    *state.FolderTree
	scope   *scope.Scope
	backend browseBackend
	out     io.Writer

	// bus carries the view's events. With a bus, highlight decay and
	// language switches are redrawn by watch instead of the loop.
	bus *events.EventBus

	// unlock asks for a protected folder's password; nil disables it.
	unlock func(folderID int) error

	frame sync.Mutex
}

// apply runs a; quit is true for opQuit.
func (b *browser) apply(ctx context.Context, a browseAction) (quit bool, err error) {
	folderID := b.view.State().FolderID

	switch a.op {
	case opNone:
	case opNext:
		return false, b.view.NextPage(ctx)
	case opPrev:
		return false, b.view.PrevPage(ctx)
	case opGoto:
		return false, b.view.GoToPage(ctx, a.n)
	case opPageSize:
		return false, b.view.SetPageSize(ctx, a.n)
	case opSort:
		key, err := state.ParseSortKey(a.arg)
		if err != nil {
			return false, err
		}
		b.view.ToggleSort(key)
	case opFilter:
		c, err := filetypes.Parse(a.arg)
		if err != nil {
			return false, err
		}
		b.view.SetTypeFilter(c)
	case opSearch:
		return false, b.view.SetSearch(ctx, a.arg)
	case opCd:
		target, err := b.resolveFolder(folderID, a.arg)
		if err != nil {
			return false, err
		}
		if err := b.tree.Select(target); err != nil {
			return false, err
		}
		err = b.view.SelectFolder(ctx, target)
		if err != nil && api.IsForbidden(err) && b.unlock != nil {
			if uerr := b.unlock(target); uerr != nil {
				return false, uerr
			}
			return false, b.view.Reload(ctx)
		}
		return false, err
	case opUpload:
		entry, err := b.backend.Upload(ctx, a.arg, folderID)
		if err != nil {
			return false, err
		}
		b.view.InsertLocal(entry)
	case opRename:
		if err := b.backend.Rename(ctx, folderID, a.arg, a.arg2); err != nil {
			return false, err
		}
		return false, b.view.RenameLocal(a.arg, a.arg2)
	case opDelete:
		if err := b.backend.Delete(ctx, folderID, a.arg); err != nil {
			return false, err
		}
		b.view.RemoveLocal(a.arg)
	case opReload:
		return false, b.view.Reload(ctx)
	case opLang:
		lang, err := locale.ParseLanguage(a.arg)
		if err != nil {
			return false, err
		}
		b.scope.SetLanguage(lang)
	case opHelp:
		fmt.Fprintln(b.out, browseHelp)
	case opQuit:
		return true, nil
	}
	return false, nil
}

// resolveFolder maps a cd argument to a folder id.
func (b *browser) resolveFolder(current int, arg string) (int, error) {
	switch arg {
	case "/":
		return scope.NoFolder, nil
	case "..":
		if current == scope.NoFolder {
			return scope.NoFolder, nil
		}
		rec, ok := b.tree.Lookup(current)
		if !ok || rec.ParentID == nil {
			return scope.NoFolder, nil
		}
		return *rec.ParentID, nil
	}
	return parseFolderID(arg)
}

// render prints the breadcrumb, the visible rows and the footer.
func (b *browser) render() {
	b.frame.Lock()
	defer b.frame.Unlock()

	s := b.scope.Locale()
	st := b.view.State()

	if crumbs, err := b.tree.Breadcrumb(st.FolderID); err == nil {
		fmt.Fprintln(b.out, formatBreadcrumb(crumbs, s))
	} else {
		fmt.Fprintln(b.out, label(s, "root"))
	}
	renderRows(b.out, b.view.Rows(), s, st.HighlightedID)
	renderPage(b.out, b.view.Page(), s)

	var status []string
	status = append(status, fmt.Sprintf("sort=%s %s", st.SortKey, st.SortDirection))
	if st.TypeFilter != filetypes.All {
		status = append(status, "type="+string(st.TypeFilter))
	}
	if st.Keyword != "" {
		status = append(status, fmt.Sprintf("search=%q", st.Keyword))
	}
	fmt.Fprintln(b.out, strings.Join(status, "  "))
}

// watch redraws the list for changes the command loop did not draw: a
// highlight that decayed and a language switch, which is followed by a
// refresh so dates are shown in the new calendar. Call stop to end it.
func (b *browser) watch(ctx context.Context) (stop func()) {
	if b.bus == nil {
		return func() {}
	}
	viewEvents := b.bus.Subscribe(state.EventHighlightChanged)
	scopeEvents := b.scope.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-viewEvents:
				if !ok {
					return
				}
				h, isHighlight := ev.(*state.HighlightChangedEvent)
				if !isHighlight || h.View != b.view.ID() || h.ID != "" {
					continue
				}
			case ev, ok := <-scopeEvents:
				if !ok {
					return
				}
				c, isScope := ev.(*scope.ChangedEvent)
				if !isScope || !c.LocaleChanged() {
					continue
				}
				if err := b.view.Refresh(ctx); err != nil && !errors.Is(err, state.ErrSuperseded) {
					if errors.Is(err, state.ErrClosed) {
						return
					}
					fmt.Fprintln(b.out, "Error:", err)
				}
			}
			b.render()
			fmt.Fprint(b.out, "> ")
		}
	}()

	return func() {
		b.bus.Unsubscribe(viewEvents)
		b.scope.Unsubscribe(scopeEvents)
		<-done
	}
}

// run reads commands from in until quit or EOF.
func (b *browser) run(ctx context.Context, in io.Reader) error {
	if _, ok := b.out.(*syncWriter); !ok {
		b.out = &syncWriter{w: b.out}
	}
	stop := b.watch(ctx)
	defer stop()

	r := bufio.NewReader(in)
	b.render()
	for {
		line, err := readLine(r, b.out, "> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		a, err := parseBrowseCommand(line)
		if err != nil {
			fmt.Fprintln(b.out, "Error:", err)
			continue
		}
		quit, err := b.apply(ctx, a)
		if quit {
			return nil
		}
		if err != nil {
			if errors.Is(err, state.ErrClosed) || ctx.Err() != nil {
				return err
			}
			if !errors.Is(err, state.ErrSuperseded) {
				fmt.Fprintln(b.out, "Error:", err)
			}
		}
		if a.op == opHelp || (a.op == opLang && b.bus != nil && err == nil) {
			continue
		}
		b.render()
	}
}

func newBrowseCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse files interactively",
		Long: `Open an interactive file list. Type h at the prompt for the
available commands.

Examples:
  mediacenter browse
  mediacenter browse --folder 12 --page-size 20 --lang fa`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			view, err := openView(sess, opts)
			if err != nil {
				return err
			}
			defer view.Close()

			b := &browser{
				view:    view,
				tree:    sess.Folders.Tree(),
				scope:   sess.Scope,
				backend: sessionBackend{sess: sess},
				out:     cmd.OutOrStdout(),
				bus:     sess.Bus,
				unlock: func(folderID int) error {
					rec, _ := sess.Folders.Tree().Lookup(folderID)
					pw, err := readPassword(os.Stdin, os.Stderr, fmt.Sprintf("Password for folder %q: ", rec.Name))
					if err != nil {
						return err
					}
					return sess.Folders.Unlock(folderID, pw)
				},
			}
			return b.run(GetContext(), os.Stdin)
		},
	}

	opts.bind(cmd)
	return cmd
}
