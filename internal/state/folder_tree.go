package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/hierarchy"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/scope"
)

// FolderLoader fetches the flat folder listing of an entity.
type FolderLoader interface {
	LoadFolders(ctx context.Context, entityID string, refetch bool) ([]models.FolderRecord, error)
}

// FolderTree holds the folder snapshot of the sidebar. Every load or
// local patch replaces the flat records and rebuilds the forest; the
// nodes handed out are never modified afterwards.
type FolderTree struct {
	loader FolderLoader
	scope  *scope.Scope
	bus    *events.EventBus

	records []models.FolderRecord
	index   map[int]models.FolderRecord
	roots   []*hierarchy.Node

	mu sync.RWMutex
}

// NewFolderTree creates an empty tree bound to sc.
func NewFolderTree(loader FolderLoader, sc *scope.Scope, bus *events.EventBus) *FolderTree {
	return &FolderTree{
		loader: loader,
		scope:  sc,
		bus:    bus,
		index:  make(map[int]models.FolderRecord),
		roots:  make([]*hierarchy.Node, 0),
	}
}

// Load fetches the folders of the scope's entity. On failure the
// previous snapshot is kept.
func (t *FolderTree) Load(ctx context.Context, refetch bool) error {
	records, err := t.loader.LoadFolders(ctx, t.scope.Get().EntityID, refetch)
	if err != nil {
		return fmt.Errorf("failed to load folders: %w", err)
	}
	t.replace(records)
	return nil
}

// Set replaces the snapshot with records.
func (t *FolderTree) Set(records []models.FolderRecord) {
	t.replace(records)
}

func (t *FolderTree) replace(records []models.FolderRecord) {
	deduped := hierarchy.Dedupe(records)
	roots := hierarchy.Build(deduped)
	index := hierarchy.Index(deduped)

	t.mu.Lock()
	t.records = deduped
	t.index = index
	t.roots = roots
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.Publish(NewFolderTreeChangedEvent(roots))
	}
}

// Roots returns the current forest.
func (t *FolderTree) Roots() []*hierarchy.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.roots
}

// Records returns the deduplicated flat records.
func (t *FolderTree) Records() []models.FolderRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.FolderRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Lookup returns the record of id.
func (t *FolderTree) Lookup(id int) (models.FolderRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.index[id]
	return r, ok
}

// Breadcrumb returns the path from the root to id.
func (t *FolderTree) Breadcrumb(id int) ([]hierarchy.Crumb, error) {
	t.mu.RLock()
	index := t.index
	t.mu.RUnlock()
	return hierarchy.Breadcrumb(id, index)
}

// Select makes id the scope's selected folder. scope.NoFolder clears it.
func (t *FolderTree) Select(id int) error {
	if id != scope.NoFolder {
		if _, ok := t.Lookup(id); !ok {
			return fmt.Errorf("folder %d not found", id)
		}
	}
	t.scope.SelectFolder(id)
	return nil
}

// RenameLocal renames a folder without a refetch.
func (t *FolderTree) RenameLocal(id int, name string) {
	t.replace(hierarchy.Rename(t.Records(), id, name))
}

// RemoveLocal removes a folder without a refetch. Its descendants become
// unreachable and disappear from the forest.
func (t *FolderTree) RemoveLocal(id int) {
	t.replace(hierarchy.Remove(t.Records(), id))
	if t.scope.Get().FolderID == id {
		t.scope.SelectFolder(scope.NoFolder)
	}
}

// AddLocal appends a folder without a refetch.
func (t *FolderTree) AddLocal(rec models.FolderRecord) {
	t.replace(hierarchy.Add(t.Records(), rec))
}
