package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nexx/mediacenter/internal/api"
	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/fetch"
	"github.com/nexx/mediacenter/internal/logging"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/scope"
	"github.com/nexx/mediacenter/internal/state"
	"github.com/nexx/mediacenter/internal/validation"
)

// folderView is the single view slot of the folder sidebar.
const folderView = "tree"

// FolderService loads the folder tree and performs folder mutations.
// Mutations invalidate the cache and patch the tree without a refetch.
type FolderService struct {
	api       *api.Client
	scope     *scope.Scope
	cache     *fetch.Client[[]models.FolderRecord]
	tree      *state.FolderTree
	files     *FileService
	passwords *Passwords
	logger    *logging.Logger
}

// NewFolderService creates the service and the tree it maintains. files
// may be nil; when set, deleting a folder drops its cached pages.
func NewFolderService(apiClient *api.Client, sc *scope.Scope, bus *events.EventBus, files *FileService, staleTime time.Duration) *FolderService {
	if staleTime == 0 {
		staleTime = constants.FolderQueryStaleTime
	}
	logger := logging.NewLogger("folder-service")
	s := &FolderService{
		api:    apiClient,
		scope:  sc,
		cache:  fetch.NewClient[[]models.FolderRecord](fetch.Options{StaleTime: staleTime, Logger: logger}),
		files:  files,
		logger: logger,
	}
	if files != nil {
		s.passwords = files.Passwords()
	} else {
		s.passwords = NewPasswords()
	}
	s.tree = state.NewFolderTree(s, sc, bus)
	return s
}

// Tree returns the folder tree fed by this service.
func (s *FolderService) Tree() *state.FolderTree {
	return s.tree
}

// LoadFolders implements state.FolderLoader.
func (s *FolderService) LoadFolders(ctx context.Context, entityID string, refetch bool) ([]models.FolderRecord, error) {
	key := fetch.Key{Scope: fetch.ScopeFolders, View: folderView, EntityID: entityID}
	records, err := s.cache.Query(ctx, key, refetch, func(ctx context.Context) ([]models.FolderRecord, error) {
		return s.api.ListFolders(ctx, entityID)
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.FolderRecord, len(records))
	copy(out, records)
	return out, nil
}

// Load refreshes the tree.
func (s *FolderService) Load(ctx context.Context, refetch bool) error {
	return s.tree.Load(ctx, refetch)
}

// Create creates a folder under parentID (scope.NoFolder for top level).
func (s *FolderService) Create(ctx context.Context, name string, parentID int, password string) (models.FolderRecord, error) {
	name, err := validation.ItemName(name)
	if err != nil {
		return models.FolderRecord{}, err
	}
	req := models.CreateFolderRequest{
		Name:     name,
		EntityID: s.scope.Get().EntityID,
		Password: password,
	}
	if parentID != scope.NoFolder {
		if _, ok := s.tree.Lookup(parentID); !ok {
			return models.FolderRecord{}, fmt.Errorf("parent folder %d not found", parentID)
		}
		req.ParentID = models.IntPtr(parentID)
	}

	rec, err := s.api.CreateFolder(ctx, req)
	if err != nil {
		return models.FolderRecord{}, fmt.Errorf("create folder %q: %w", name, err)
	}
	if password != "" {
		s.passwords.Set(rec.ID, password)
	}
	s.invalidate()
	s.tree.AddLocal(*rec)
	s.logger.Info().Int("folder_id", rec.ID).Str("name", rec.Name).Msg("Folder created")
	return *rec, nil
}

// Rename renames a folder.
func (s *FolderService) Rename(ctx context.Context, id int, name string) error {
	name, err := validation.ItemName(name)
	if err != nil {
		return err
	}
	if err := s.api.RenameFolder(ctx, id, name, api.FolderPassword(s.passwords.Get(id))); err != nil {
		return fmt.Errorf("rename folder %d: %w", id, err)
	}
	s.invalidate()
	s.tree.RenameLocal(id, name)
	return nil
}

// Delete deletes a folder. A selected folder is deselected.
func (s *FolderService) Delete(ctx context.Context, id int) error {
	if err := s.api.DeleteFolder(ctx, id, api.FolderPassword(s.passwords.Get(id))); err != nil {
		return fmt.Errorf("delete folder %d: %w", id, err)
	}
	s.invalidate()
	if s.files != nil {
		s.files.InvalidateFolder(id)
	}
	s.passwords.Set(id, "")
	s.tree.RemoveLocal(id)
	s.logger.Info().Int("folder_id", id).Msg("Folder deleted")
	return nil
}

// Unlock remembers the password of a password-required folder.
func (s *FolderService) Unlock(id int, password string) error {
	rec, ok := s.tree.Lookup(id)
	if !ok {
		return fmt.Errorf("folder %d not found", id)
	}
	if !rec.PasswordRequired {
		return nil
	}
	s.passwords.Set(id, password)
	if s.files != nil {
		s.files.InvalidateFolder(id)
	}
	return nil
}

// NeedsPassword reports whether a folder is protected and no password is known.
func (s *FolderService) NeedsPassword(id int) bool {
	rec, ok := s.tree.Lookup(id)
	return ok && rec.PasswordRequired && s.passwords.Get(id) == ""
}

func (s *FolderService) invalidate() {
	s.cache.Invalidate(fetch.Prefix(fetch.ScopeFolders, s.scope.Get().EntityID))
}
