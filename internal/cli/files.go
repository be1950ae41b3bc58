package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nexx/mediacenter/internal/cloud"
	"github.com/nexx/mediacenter/internal/config"
	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/filetypes"
	"github.com/nexx/mediacenter/internal/http"
	"github.com/nexx/mediacenter/internal/localfs"
	"github.com/nexx/mediacenter/internal/progress"
	"github.com/nexx/mediacenter/internal/scope"
	"github.com/nexx/mediacenter/internal/services"
	"github.com/nexx/mediacenter/internal/state"
)

// newFilesCmd creates the 'files' command group.
func newFilesCmd() *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "File operations (list, upload, download, rename, lock, delete, export)",
		Long:  `Commands for listing and managing the files of a folder.`,
	}

	filesCmd.AddCommand(newFilesListCmd())
	filesCmd.AddCommand(newFilesUploadCmd())
	filesCmd.AddCommand(newFilesDownloadCmd())
	filesCmd.AddCommand(newFilesRenameCmd())
	filesCmd.AddCommand(newFilesDescribeCmd())
	filesCmd.AddCommand(newFilesLockCmd(true))
	filesCmd.AddCommand(newFilesLockCmd(false))
	filesCmd.AddCommand(newFilesDeleteCmd())
	filesCmd.AddCommand(newFilesExportCmd())

	return filesCmd
}

// listOptions are the flags of 'files list'.
type listOptions struct {
	folder   int
	page     int
	pageSize int
	search   string
	typ      string
	sort     string
	desc     bool
	refresh  bool
	guid     bool
}

func (o *listOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.folder, "folder", "f", scope.NoFolder, "Folder id (default: entity root)")
	cmd.Flags().IntVarP(&o.page, "page", "p", 1, "Page number")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 0, fmt.Sprintf("Rows per page, one of %v (default from config)", constants.AllowedPageSizes))
	cmd.Flags().StringVarP(&o.search, "search", "s", "", "Server-side keyword filter")
	cmd.Flags().StringVarP(&o.typ, "type", "t", "all", "Type filter: all, image, video, audio, document, archive, other")
	cmd.Flags().StringVar(&o.sort, "sort", "name", "Sort column: name, type, size, createdDate, createdBy")
	cmd.Flags().BoolVar(&o.desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "Bypass the cache")
	cmd.Flags().BoolVar(&o.guid, "guid", false, "Also print each file's correlation guid")
}

// openView creates a list view positioned at the requested folder, search
// and page. Protected folders prompt for their password.
func openView(sess *services.Session, o listOptions) (*state.ListView, error) {
	ctx := GetContext()
	if o.pageSize != 0 {
		if !constants.IsAllowedPageSize(o.pageSize) {
			return nil, fmt.Errorf("%w: %d (allowed %v)", state.ErrInvalidPageSize, o.pageSize, constants.AllowedPageSizes)
		}
		sess.Config.PageSize = o.pageSize
	}
	category, err := filetypes.Parse(o.typ)
	if err != nil {
		return nil, err
	}
	sortKey, err := state.ParseSortKey(o.sort)
	if err != nil {
		return nil, err
	}
	if err := sess.Folders.Load(ctx, false); err != nil {
		return nil, err
	}
	if o.folder != scope.NoFolder {
		if err := sess.Folders.Tree().Select(o.folder); err != nil {
			return nil, err
		}
	}

	view := sess.NewListView()
	err = withFolderPassword(sess, o.folder, func() error {
		if o.refresh {
			return view.Reload(ctx)
		}
		return view.SetSearch(ctx, o.search)
	})
	if err == nil && o.refresh && o.search != "" {
		err = view.SetSearch(ctx, o.search)
	}
	if err == nil && o.page > 1 {
		err = view.GoToPage(ctx, o.page)
	}
	if err != nil {
		view.Close()
		return nil, err
	}

	view.SetTypeFilter(category)
	dir := state.Asc
	if o.desc {
		dir = state.Desc
	}
	view.SetSort(sortKey, dir)
	return view, nil
}

func newFilesListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the files of a folder",
		Long: `List one page of a folder's files.

The keyword filter runs on the server; the type filter and the sort
apply to the fetched page only.

Examples:
  mediacenter files list
  mediacenter files list --folder 12 --page 2 --page-size 20
  mediacenter files list --search trailer --type video --sort size --desc
  mediacenter files list --lang fa`,
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

			out := cmd.OutOrStdout()
			if opts.folder != scope.NoFolder {
				if crumbs, err := sess.Folders.Tree().Breadcrumb(opts.folder); err == nil {
					fmt.Fprintln(out, formatBreadcrumb(crumbs, sess.Scope.Locale()))
				}
			}
			rows := view.Rows()
			renderRows(out, rows, sess.Scope.Locale(), "")
			renderPage(out, view.Page(), sess.Scope.Locale())
			if opts.guid {
				for _, e := range rows {
					fmt.Fprintf(out, "%s\t%s\n", e.ID, e.CorrelationGUID)
				}
			}
			return nil
		},
	}

	opts.bind(cmd)
	return cmd
}

func newFilesUploadCmd() *cobra.Command {
	var folderID int
	var maxConcurrent int
	var walk localfs.Options

	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload files to a folder",
		Long: `Upload one or more files, several at a time.

Examples:
  mediacenter files upload trailer.mp4
  mediacenter files upload *.jpg --folder 12
  mediacenter files upload *.mov --max-concurrent 1
  mediacenter files upload ./shoot --recursive`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeUpload(cmd.OutOrStdout(), args, walk, folderID, maxConcurrent)
		},
	}

	cmd.Flags().IntVarP(&folderID, "folder", "f", scope.NoFolder, "Target folder id (default: entity root)")
	cmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "m", constants.DefaultMaxConcurrent,
		fmt.Sprintf("Maximum concurrent uploads (1-%d)", constants.MaxMaxConcurrent))
	cmd.Flags().BoolVarP(&walk.Recursive, "recursive", "r", false, "Upload the files inside directory arguments")
	cmd.Flags().BoolVar(&walk.IncludeHidden, "hidden", false, "Include dot files found in directories")
	return cmd
}

// executeUpload is shared by 'files upload' and the 'upload' shortcut.
func executeUpload(out io.Writer, args []string, walk localfs.Options, folderID, maxConcurrent int) error {
	if maxConcurrent < 1 || maxConcurrent > constants.MaxMaxConcurrent {
		return fmt.Errorf("--max-concurrent must be between 1 and %d, got %d", constants.MaxMaxConcurrent, maxConcurrent)
	}
	paths, err := localfs.Collect(args, walk)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files to upload")
	}
	sess, err := newSession()
	if err != nil {
		return err
	}
	ctx := GetContext()
	if err := sess.Folders.Load(ctx, false); err != nil {
		return err
	}
	if folderID != scope.NoFolder {
		if _, ok := sess.Folders.Tree().Lookup(folderID); !ok {
			return fmt.Errorf("folder %d not found", folderID)
		}
		if sess.Folders.NeedsPassword(folderID) {
			pw, err := readPassword(os.Stdin, os.Stderr, "Folder password: ")
			if err != nil {
				return err
			}
			if err := sess.Folders.Unlock(folderID, pw); err != nil {
				return err
			}
		}
	}
	sess.ConfigureTransfers(services.TransferServiceConfig{MaxConcurrent: maxConcurrent})

	dest := "/"
	if crumbs, err := sess.Folders.Tree().Breadcrumb(folderID); err == nil && len(crumbs) > 0 {
		dest = formatBreadcrumb(crumbs, sess.Scope.Locale())
	}
	ui := progress.NewMultiUI("Uploading", len(paths))
	GetLogger().SetOutput(ui.Writer())
	defer GetLogger().SetOutput(os.Stderr)

	results := sess.Transfers.UploadMany(ctx, paths, folderID, func(path string, size int64) progress.Reporter {
		return ui.AddBar(filepath.Base(path), dest, size)
	})
	ui.Wait()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "FAILED  %s: %v\n", r.Path, r.Err)
			continue
		}
		fmt.Fprintf(out, "OK      %s -> %s (%s)\n", r.Path, r.Entry.ID, sizeCell(r.Entry.Size))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(paths))
	}
	return nil
}

// conflictResolver serializes the overwrite prompt across concurrent
// downloads and remembers "for all" answers.
type conflictResolver struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	sticky *bool
	prompt func(r *bufio.Reader, w io.Writer, path string) (DownloadConflictAction, error)
}

var errDownloadAborted = errors.New("download aborted by user")

func newConflictResolver(overwrite, skipExisting bool, in io.Reader, out io.Writer) *conflictResolver {
	c := &conflictResolver{in: bufio.NewReader(in), out: out, prompt: promptDownloadConflict}
	switch {
	case overwrite:
		yes := true
		c.sticky = &yes
	case skipExisting:
		no := false
		c.sticky = &no
	}
	return c
}

func (c *conflictResolver) resolve(path string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sticky != nil {
		return *c.sticky, nil
	}
	action, err := c.prompt(c.in, c.out, path)
	if err != nil {
		return false, err
	}
	switch action {
	case DownloadOverwriteOnce:
		return true, nil
	case DownloadSkipOnce:
		return false, nil
	case DownloadOverwriteAll:
		v := true
		c.sticky = &v
		return true, nil
	case DownloadSkipAll:
		v := false
		c.sticky = &v
		return false, nil
	default:
		return false, errDownloadAborted
	}
}

func newFilesDownloadCmd() *cobra.Command {
	var outDir string
	var maxConcurrent int
	var overwrite, skipExisting bool

	cmd := &cobra.Command{
		Use:   "download <file-id> [file-id...]",
		Short: "Download files",
		Long: `Download files by id into a local directory.

Free disk space is checked before writing. Files are written under a
temporary name and renamed when complete. When a file exists you are
asked whether to overwrite it unless --overwrite or --skip-existing
is given.

Examples:
  mediacenter files download 4f1c
  mediacenter files download 4f1c 77ab --outdir ./media --overwrite`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := executeDownload(cmd.OutOrStdout(), args, outDir, maxConcurrent,
				newConflictResolver(overwrite, skipExisting, os.Stdin, cmd.ErrOrStderr()))
			return err
		},
	}

	cmd.Flags().StringVarP(&outDir, "outdir", "o", config.DefaultDownloadDir(), "Output directory")
	cmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "m", constants.DefaultMaxConcurrent,
		fmt.Sprintf("Maximum concurrent downloads (1-%d)", constants.MaxMaxConcurrent))
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files without asking")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Keep existing files without asking")
	cmd.MarkFlagsMutuallyExclusive("overwrite", "skip-existing")
	return cmd
}

// executeDownload downloads ids into outDir and returns the written paths.
// A single file gets a progressbar, several files share a multi-bar UI.
func executeDownload(out io.Writer, ids []string, outDir string, maxConcurrent int, conflicts *conflictResolver) ([]string, error) {
	if maxConcurrent < 1 || maxConcurrent > constants.MaxMaxConcurrent {
		return nil, fmt.Errorf("--max-concurrent must be between 1 and %d, got %d", constants.MaxMaxConcurrent, maxConcurrent)
	}
	sess, err := newSession()
	if err != nil {
		return nil, err
	}
	sess.ConfigureTransfers(services.TransferServiceConfig{
		MaxConcurrent: maxConcurrent,
		OnExists:      conflicts.resolve,
	})
	ctx := GetContext()

	var (
		paths []string
		errs  error
	)
	if len(ids) == 1 {
		var p string
		p, errs = sess.Transfers.Download(ctx, ids[0], outDir, progress.NewCLIProgress())
		paths = []string{p}
	} else {
		ui := progress.NewMultiUI("Downloading", len(ids))
		GetLogger().SetOutput(ui.Writer())
		paths, errs = sess.Transfers.DownloadMany(ctx, ids, outDir, func(id string) progress.Reporter {
			return ui.AddBar(id, outDir, -1)
		})
		ui.Wait()
		GetLogger().SetOutput(os.Stderr)
	}

	var written []string
	for i, p := range paths {
		if p == "" {
			continue
		}
		written = append(written, p)
		fmt.Fprintf(out, "OK      %s -> %s\n", ids[i], p)
	}
	if skipped := countSkipped(sess); skipped > 0 {
		fmt.Fprintf(out, "Skipped %d existing file(s)\n", skipped)
		if sess.Transfers.GetStats().Failed == 0 && ctx.Err() == nil {
			return written, nil
		}
	}
	return written, errs
}

// countSkipped counts downloads declined by the conflict prompt.
func countSkipped(sess *services.Session) int {
	n := 0
	for _, t := range sess.Transfers.GetTasks() {
		if t.Type == services.TransferTypeDownload && errors.Is(t.Error, services.ErrSkipped) {
			n++
		}
	}
	return n
}

func newFilesRenameCmd() *cobra.Command {
	var folderID int

	cmd := &cobra.Command{
		Use:   "rename <file-id> <new-name>",
		Short: "Rename a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			if err := sess.Files.Rename(GetContext(), folderID, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().IntVarP(&folderID, "folder", "f", scope.NoFolder, "Folder holding the file")
	return cmd
}

func newFilesDescribeCmd() *cobra.Command {
	var folderID int

	cmd := &cobra.Command{
		Use:   "describe <file-id> <description>",
		Short: "Set a file's description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			return sess.Files.SetDescription(GetContext(), folderID, args[0], args[1])
		},
	}

	cmd.Flags().IntVarP(&folderID, "folder", "f", scope.NoFolder, "Folder holding the file")
	return cmd
}

// newFilesLockCmd creates 'files lock' or 'files unlock'.
func newFilesLockCmd(locked bool) *cobra.Command {
	var folderID int
	use, short := "lock", "Lock files against changes"
	if !locked {
		use, short = "unlock", "Unlock files"
	}

	cmd := &cobra.Command{
		Use:   use + " <file-id> [file-id...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			var errs []error
			for _, id := range args {
				if err := sess.Files.SetLocked(GetContext(), folderID, id, locked); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%sed %s\n", use, id)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().IntVarP(&folderID, "folder", "f", scope.NoFolder, "Folder holding the files")
	return cmd
}

func newFilesDeleteCmd() *cobra.Command {
	var folderID int
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <correlation-guid> [correlation-guid...]",
		Short: "Delete files",
		Long: `Delete files by correlation guid. The guid is shown by
'files list --guid' and printed by uploads.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(bufio.NewReader(os.Stdin), cmd.ErrOrStderr(), fmt.Sprintf("Delete %d file(s)?", len(args))) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
				return nil
			}
			sess, err := newSession()
			if err != nil {
				return err
			}
			var errs []error
			for _, guid := range args {
				if err := sess.Files.Delete(GetContext(), folderID, guid); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", guid)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().IntVarP(&folderID, "folder", "f", scope.NoFolder, "Folder holding the files")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newFilesExportCmd() *cobra.Command {
	var maxConcurrent int
	var keep bool

	cmd := &cobra.Command{
		Use:   "export <target> <file-id> [file-id...]",
		Short: "Copy files to S3 or Azure Blob Storage",
		Long: `Download files and copy them to object storage.

Targets are s3://bucket/prefix or azblob://container/prefix.

S3 uses the AWS credential chain; MEDIACENTER_S3_ENDPOINT,
MEDIACENTER_S3_REGION, MEDIACENTER_S3_ACCESS_KEY and
MEDIACENTER_S3_SECRET_KEY select an S3-compatible server.
Azure reads AZURE_STORAGE_CONNECTION_STRING, or AZURE_STORAGE_ACCOUNT
with AZURE_STORAGE_SAS_TOKEN.

Examples:
  mediacenter files export s3://media-archive/2024 4f1c 77ab
  mediacenter files export azblob://clips/raw 4f1c --keep`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := cloud.ParseTarget(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			httpClient, err := http.CreateTransferClient(cfg)
			if err != nil {
				return err
			}
			ctx := GetContext()
			sink, err := cloud.NewSink(ctx, target, cloud.OptionsFromEnv(nil), httpClient)
			if err != nil {
				return err
			}

			staging, err := os.MkdirTemp("", "mediacenter-export-*")
			if err != nil {
				return err
			}
			if !keep {
				defer os.RemoveAll(staging)
			}

			paths, err := executeDownload(cmd.ErrOrStderr(), args[1:], staging, maxConcurrent,
				newConflictResolver(true, false, os.Stdin, cmd.ErrOrStderr()))
			if len(paths) == 0 {
				return err
			}
			downloadErr := err

			exporter := cloud.NewExporter(sink, target, cloud.WithMaxConcurrent(maxConcurrent))
			var errs []error
			for _, r := range exporter.ExportAll(ctx, paths) {
				if r.Err != nil {
					errs = append(errs, r.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s -> %s\n", filepath.Base(r.Path), r.URL)
			}
			if keep {
				fmt.Fprintf(cmd.ErrOrStderr(), "Local copies kept in %s\n", staging)
			}
			return errors.Join(append(errs, downloadErr)...)
		},
	}

	cmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "m", constants.DefaultMaxConcurrent,
		fmt.Sprintf("Maximum concurrent transfers (1-%d)", constants.MaxMaxConcurrent))
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the downloaded copies")
	return cmd
}
