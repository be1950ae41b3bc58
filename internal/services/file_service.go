package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nexx/mediacenter/internal/api"
	"github.com/nexx/mediacenter/internal/config"
	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/fetch"
	"github.com/nexx/mediacenter/internal/filetypes"
	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/logging"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/scope"
	"github.com/nexx/mediacenter/internal/validation"
)

// FileServiceConfig configures a FileService.
type FileServiceConfig struct {
	// SizeMode is config.SizeModeFormatted (default) or config.SizeModeRaw.
	SizeMode  string
	StaleTime time.Duration
	Passwords *Passwords

	// Location for displayed dates; nil means time.Local.
	Location *time.Location
}

// FileService serves file listings through the query cache and performs
// file mutations. It implements state.Loader.
type FileService struct {
	api       *api.Client
	scope     *scope.Scope
	cache     *fetch.Client[*models.FileListResponse]
	passwords *Passwords
	sizeMode  string
	loc       *time.Location
	logger    *logging.Logger
}

// NewFileService creates a FileService.
func NewFileService(apiClient *api.Client, sc *scope.Scope, cfg FileServiceConfig) *FileService {
	logger := logging.NewLogger("file-service")
	if cfg.StaleTime == 0 {
		cfg.StaleTime = constants.QueryStaleTime
	}
	if cfg.SizeMode == "" {
		cfg.SizeMode = config.SizeModeFormatted
	}
	if cfg.Passwords == nil {
		cfg.Passwords = NewPasswords()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &FileService{
		api:       apiClient,
		scope:     sc,
		cache:     fetch.NewClient[*models.FileListResponse](fetch.Options{StaleTime: cfg.StaleTime, Logger: logger}),
		passwords: cfg.Passwords,
		sizeMode:  cfg.SizeMode,
		loc:       cfg.Location,
		logger:    logger,
	}
}

// LoadPage fetches one page for the view and transforms it. The wire
// response is what gets cached; dates are rendered per call so a
// language switch needs no refetch.
func (fs *FileService) LoadPage(ctx context.Context, view string, q models.ListQuery, refetch bool) (models.FileListPage, error) {
	key := fetch.Key{
		Scope:    fetch.ScopeFiles,
		View:     view,
		EntityID: q.EntityID,
		FolderID: q.FolderID,
		Page:     q.Page,
		PageSize: q.PageSize,
		Keyword:  strings.TrimSpace(q.Keyword),
	}
	return fs.ListPage(ctx, key, refetch)
}

// ListPage fetches the page identified by key.
func (fs *FileService) ListPage(ctx context.Context, key fetch.Key, refetch bool) (models.FileListPage, error) {
	resp, err := fs.cache.Query(ctx, key, refetch, func(ctx context.Context) (*models.FileListResponse, error) {
		q := models.ListQuery{
			EntityID: key.EntityID,
			FolderID: key.FolderID,
			Page:     key.Page,
			PageSize: key.PageSize,
			Keyword:  key.Keyword,
		}
		return fs.api.ListFiles(ctx, q, api.FolderPassword(fs.passwords.Get(key.FolderID)))
	})
	if err != nil {
		return models.FileListPage{}, err
	}

	settings := fs.scope.Locale()
	page := models.FileListPage{
		Entries:      make([]models.FileListEntry, 0, len(resp.Items)),
		TotalRecords: resp.TotalRecords,
		PageSize:     resp.PageSize,
		PageNumber:   resp.PageNumber,
	}
	for _, item := range resp.Items {
		page.Entries = append(page.Entries, fs.ToEntry(item, settings))
	}
	return page, nil
}

// ToEntry projects a wire item into a list row.
func (fs *FileService) ToEntry(item models.FileItem, settings locale.Settings) models.FileListEntry {
	ext := filetypes.Normalize(item.Extension)
	if ext == "" {
		ext = filetypes.FromName(item.FileName)
	}
	return models.FileListEntry{
		ID:              item.FileID,
		CorrelationGUID: item.CorrelationGUID,
		Name:            item.FileName,
		Type:            ext,
		Size:            fs.size(item.Size),
		CreatedBy:       item.CreatedBy,
		CreatedDate:     fs.formatDate(item.CreatedDate, settings),
		Description:     item.Description,
		Permission:      permissionOf(item),
		IsLocked:        item.IsLocked,
	}
}

func (fs *FileService) size(n int64) models.Size {
	if fs.sizeMode == config.SizeModeRaw {
		return models.RawSize(n)
	}
	return models.LabelSize(locale.FormatSize(n))
}

// formatDate renders the server timestamp. Unparseable values are shown
// as sent.
func (fs *FileService) formatDate(raw string, settings locale.Settings) string {
	t, err := locale.ParseTimestamp(raw)
	if err != nil {
		if raw != "" {
			fs.logger.Debug().Str("created_date", raw).Msg("Unrecognized timestamp")
		}
		return raw
	}
	return locale.FormatDate(t, settings, fs.loc)
}

// permissionOf prefers the explicit permission and falls back to
// can_delete: deletable means owner.
func permissionOf(item models.FileItem) models.Permission {
	if item.Permission.Valid() {
		return item.Permission
	}
	if item.CanDelete {
		return models.PermissionOwner
	}
	return models.PermissionViewer
}

// Rename renames a file and drops the cached pages of its folder.
func (fs *FileService) Rename(ctx context.Context, folderID int, fileID, name string) error {
	name, err := validation.ItemName(name)
	if err != nil {
		return err
	}
	if err := fs.api.UpdateFile(ctx, fileID, models.UpdateFileRequest{Name: name}); err != nil {
		return fmt.Errorf("rename %s: %w", fileID, err)
	}
	fs.InvalidateFolder(folderID)
	fs.logger.Info().Str("file_id", fileID).Str("name", name).Msg("File renamed")
	return nil
}

// SetDescription updates a file's description.
func (fs *FileService) SetDescription(ctx context.Context, folderID int, fileID, description string) error {
	if err := fs.api.UpdateFile(ctx, fileID, models.UpdateFileRequest{Description: description}); err != nil {
		return fmt.Errorf("update %s: %w", fileID, err)
	}
	fs.InvalidateFolder(folderID)
	return nil
}

// SetLocked locks or unlocks a file.
func (fs *FileService) SetLocked(ctx context.Context, folderID int, fileID string, locked bool) error {
	if err := fs.api.SetLocked(ctx, fileID, locked); err != nil {
		return fmt.Errorf("lock %s: %w", fileID, err)
	}
	fs.InvalidateFolder(folderID)
	return nil
}

// Delete deletes a file by correlation guid.
func (fs *FileService) Delete(ctx context.Context, folderID int, correlationGUID string) error {
	if err := fs.api.DeleteFile(ctx, correlationGUID); err != nil {
		return fmt.Errorf("delete %s: %w", correlationGUID, err)
	}
	fs.InvalidateFolder(folderID)
	fs.logger.Info().Str("correlation_guid", correlationGUID).Msg("File deleted")
	return nil
}

// InvalidateFolder drops every cached page of a folder in the current entity.
func (fs *FileService) InvalidateFolder(folderID int) {
	fs.cache.Invalidate(fetch.FolderPrefix(fetch.ScopeFiles, fs.scope.Get().EntityID, folderID))
}

// InvalidateAll drops every cached page.
func (fs *FileService) InvalidateAll() {
	fs.cache.Invalidate("")
}

// Passwords returns the folder password store.
func (fs *FileService) Passwords() *Passwords {
	return fs.passwords
}
