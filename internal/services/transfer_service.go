package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nexx/mediacenter/internal/api"
	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/diskspace"
	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/filetypes"
	"github.com/nexx/mediacenter/internal/http"
	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/logging"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/progress"
	"github.com/nexx/mediacenter/internal/scope"
	"github.com/nexx/mediacenter/internal/validation"
)

// TransferServiceConfig configures the TransferService.
type TransferServiceConfig struct {
	// MaxConcurrent bounds parallel transfers in a batch.
	// Defaults to constants.DefaultMaxConcurrent.
	MaxConcurrent int
	Retry         http.RetryConfig

	// OnExists decides whether a download may replace an existing file.
	// Nil always replaces. It may be called from several goroutines.
	OnExists func(path string) (overwrite bool, err error)
}

// ErrSkipped is returned by Download when OnExists declined to replace
// the existing file.
var ErrSkipped = errors.New("skipped: file exists")

// TransferService uploads and downloads files. It is frontend-agnostic:
// progress goes to a progress.Reporter and to the event bus.
type TransferService struct {
	api    *api.Client
	scope  *scope.Scope
	bus    *events.EventBus
	files  *FileService
	logger *logging.Logger

	maxConcurrent int
	retry         http.RetryConfig
	onExists      func(path string) (bool, error)
	now           func() time.Time

	mu    sync.RWMutex
	tasks map[string]*TransferTask
	order []string
}

// NewTransferService creates a new TransferService.
func NewTransferService(apiClient *api.Client, sc *scope.Scope, bus *events.EventBus, files *FileService, cfg TransferServiceConfig) *TransferService {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = constants.DefaultMaxConcurrent
	}
	if cfg.MaxConcurrent > constants.MaxMaxConcurrent {
		cfg.MaxConcurrent = constants.MaxMaxConcurrent
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = http.DefaultRetryConfig()
	}
	return &TransferService{
		api:           apiClient,
		scope:         sc,
		bus:           bus,
		files:         files,
		logger:        logging.NewLogger("transfer-service"),
		maxConcurrent: cfg.MaxConcurrent,
		retry:         cfg.Retry,
		onExists:      cfg.OnExists,
		now:           time.Now,
		tasks:         make(map[string]*TransferTask),
	}
}

func (ts *TransferService) newTask(typ TransferType, name, source, dest string, size int64) *TransferTask {
	t := &TransferTask{
		ID:     uuid.NewString(),
		Type:   typ,
		Name:   name,
		Source: source,
		Dest:   dest,
		Size:   size,
		State:  TransferStateQueued,
	}
	ts.mu.Lock()
	ts.tasks[t.ID] = t
	ts.order = append(ts.order, t.ID)
	ts.mu.Unlock()
	return t
}

func (ts *TransferService) setState(t *TransferTask, state TransferState, err error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t.State = state
	t.Error = err
	switch state {
	case TransferStateActive:
		t.StartedAt = ts.now()
	case TransferStateCompleted, TransferStateFailed, TransferStateCancelled:
		t.CompletedAt = ts.now()
	}
}

func (ts *TransferService) finish(t *TransferTask, err error) {
	switch {
	case err == nil:
		ts.setState(t, TransferStateCompleted, nil)
	case errors.Is(err, context.Canceled), errors.Is(err, ErrSkipped):
		ts.setState(t, TransferStateCancelled, err)
	default:
		ts.setState(t, TransferStateFailed, err)
	}
}

func (ts *TransferService) reporter(t *TransferTask, r progress.Reporter) progress.Reporter {
	ev := progress.NewEventProgress(ts.bus, t.ID, string(t.Type), t.Name)
	if r == nil {
		return ev
	}
	return progress.Tee{ev, r}
}

func (ts *TransferService) retryConfig(t *TransferTask, r progress.Reporter) http.RetryConfig {
	cfg := ts.retry
	cfg.OnRetry = func(attempt int, err error, typ http.ErrorType) {
		ts.mu.Lock()
		t.Retries = attempt
		ts.mu.Unlock()
		ts.logger.Warn().Err(err).Str("name", t.Name).Int("attempt", attempt).
			Str("class", http.ErrorTypeName(typ)).Msg("Transfer failed, retrying")
		r.Update(0)
	}
	return cfg
}

// Upload sends a local file to a folder and returns the optimistic list
// entry for it. The caller inserts it into the view; the folder's cached
// pages are dropped so the next fetch shows the server's version. The
// POST is sent once.
func (ts *TransferService) Upload(ctx context.Context, path string, folderID int, r progress.Reporter) (models.FileListEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.FileListEntry{}, fmt.Errorf("upload %s: %w", path, err)
	}
	if info.IsDir() {
		return models.FileListEntry{}, fmt.Errorf("upload %s: is a directory", path)
	}

	name := filepath.Base(path)
	task := ts.newTask(TransferTypeUpload, name, path, fmt.Sprint(folderID), info.Size())
	rep := ts.reporter(task, r)
	rep.Start(info.Size(), name)
	ts.setState(task, TransferStateActive, nil)

	result, err := ts.sendUpload(ctx, path, name, folderID, info.Size(), rep)
	ts.finish(task, err)
	if err != nil {
		rep.Error(err)
		return models.FileListEntry{}, fmt.Errorf("upload %s: %w", name, err)
	}
	rep.Finish()

	ts.files.InvalidateFolder(folderID)
	ts.logger.Info().Str("name", name).Str("file_id", result.FileID).Int("folder_id", folderID).Msg("Upload complete")
	return ts.optimisticEntry(result, name, info.Size()), nil
}

func (ts *TransferService) sendUpload(ctx context.Context, path, name string, folderID int, size int64, rep progress.Reporter) (*models.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ts.api.UploadFile(ctx, api.Upload{
		FileName: name,
		FolderID: folderID,
		EntityID: ts.scope.Get().EntityID,
		Size:     size,
		Body:     progress.NewProgressReader(f, rep),
	}, api.FolderPassword(ts.files.Passwords().Get(folderID)))
}

// optimisticEntry synthesizes the row shown until the next fetch.
func (ts *TransferService) optimisticEntry(res *models.UploadResult, name string, size int64) models.FileListEntry {
	if res.FileName != "" {
		name = res.FileName
	}
	if res.Size > 0 {
		size = res.Size
	}
	settings := ts.scope.Locale()
	return models.FileListEntry{
		ID:              res.FileID,
		CorrelationGUID: res.CorrelationGUID,
		Name:            name,
		Type:            filetypes.FromName(name),
		Size:            ts.files.size(size),
		CreatedDate:     locale.FormatDate(ts.now(), settings, ts.files.loc),
		Permission:      models.PermissionOwner,
		IsNew:           true,
	}
}

// UploadResult is the outcome of one file of a batch.
type UploadResult struct {
	Path  string
	Entry models.FileListEntry
	Err   error
}

// UploadMany uploads files in parallel, at most MaxConcurrent at a time.
// Failures do not stop the batch; every file gets a result in input order.
// newReporter may be nil.
func (ts *TransferService) UploadMany(ctx context.Context, paths []string, folderID int, newReporter func(path string, size int64) progress.Reporter) []UploadResult {
	results := make([]UploadResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ts.maxConcurrent)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			var r progress.Reporter
			if newReporter != nil {
				var size int64
				if info, err := os.Stat(p); err == nil {
					size = info.Size()
				}
				r = newReporter(p, size)
			}
			entry, err := ts.Upload(gctx, p, folderID, r)
			results[i] = UploadResult{Path: p, Entry: entry, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Download writes a file into destDir and returns the written path.
// Free space is checked once the size is known, and the file is written
// to a temporary name and renamed so a partial download never looks
// complete.
func (ts *TransferService) Download(ctx context.Context, fileID, destDir string, r progress.Reporter) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", destDir, err)
	}

	task := ts.newTask(TransferTypeDownload, fileID, fileID, destDir, -1)
	rep := ts.reporter(task, r)
	ts.setState(task, TransferStateActive, nil)

	var (
		target  string
		skipped bool
	)
	err := http.ExecuteWithRetry(ctx, ts.retryConfig(task, rep), func() error {
		d, err := ts.api.DownloadFile(ctx, fileID)
		if err != nil {
			return err
		}
		defer d.Body.Close()

		name := validation.LocalFileName(d.FileName, fileID)
		target = filepath.Join(destDir, name)
		if err := validation.InDirectory(target, destDir); err != nil {
			return err
		}
		ts.mu.Lock()
		task.Name, task.Size = name, d.Size
		ts.mu.Unlock()

		if _, err := os.Stat(target); err == nil && ts.onExists != nil {
			overwrite, err := ts.onExists(target)
			if err != nil {
				return err
			}
			if !overwrite {
				skipped = true
				return nil
			}
		}
		if err := diskspace.CheckForDownload(target, d.Size); err != nil {
			return err
		}
		rep.Start(d.Size, name)
		return writeAtomic(target, progress.NewProgressReader(d.Body, rep))
	})
	if err == nil && skipped {
		err = ErrSkipped
	}
	ts.finish(task, err)
	if err != nil {
		rep.Error(err)
		return "", fmt.Errorf("download %s: %w", fileID, err)
	}
	rep.Finish()
	ts.logger.Info().Str("file_id", fileID).Str("path", target).Msg("Download complete")
	return target, nil
}

// DownloadMany downloads files in parallel into destDir.
func (ts *TransferService) DownloadMany(ctx context.Context, fileIDs []string, destDir string, newReporter func(fileID string) progress.Reporter) ([]string, error) {
	paths := make([]string, len(fileIDs))
	errs := make([]error, len(fileIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ts.maxConcurrent)

	for i, id := range fileIDs {
		i, id := i, id
		g.Go(func() error {
			var r progress.Reporter
			if newReporter != nil {
				r = newReporter(id)
			}
			paths[i], errs[i] = ts.Download(gctx, id, destDir, r)
			return nil
		})
	}
	_ = g.Wait()
	return paths, errors.Join(errs...)
}

// writeAtomic streams r into path via a temp file in the same directory.
func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// GetTasks returns copies of all tasks in creation order.
func (ts *TransferService) GetTasks() []TransferTask {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]TransferTask, 0, len(ts.order))
	for _, id := range ts.order {
		out = append(out, *ts.tasks[id])
	}
	return out
}

// GetStats returns current transfer statistics.
func (ts *TransferService) GetStats() TransferStats {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	var s TransferStats
	for _, t := range ts.tasks {
		switch t.State {
		case TransferStateQueued:
			s.Queued++
		case TransferStateActive:
			s.Active++
		case TransferStateCompleted:
			s.Completed++
		case TransferStateFailed:
			s.Failed++
		case TransferStateCancelled:
			s.Cancelled++
		}
	}
	return s
}

// ClearCompleted removes all terminal tasks.
func (ts *TransferService) ClearCompleted() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	kept := ts.order[:0]
	for _, id := range ts.order {
		if ts.tasks[id].IsTerminal() {
			delete(ts.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	ts.order = kept
}
