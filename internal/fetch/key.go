package fetch

import (
	"fmt"
	"strings"
)

// Query scopes.
const (
	ScopeFiles   = "files"
	ScopeFolders = "folders"
)

// Key is the logical identity of one remote query.
//
// View names the rendered view the query belongs to. All keys of a view
// share one slot, so a new page or keyword request supersedes the one in
// flight for that view.
type Key struct {
	Scope    string
	View     string
	EntityID string
	FolderID int
	Page     int
	PageSize int
	Keyword  string
}

// String is the cache key. Its prefix structure matches Prefix and FolderPrefix.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d/%d/%d/%s", k.Scope, k.EntityID, k.FolderID, k.Page, k.PageSize, k.Keyword)
}

// Slot identifies the view a request is issued for.
func (k Key) Slot() string {
	return k.Scope + ":" + k.View
}

// Prefix matches every cached query of a scope and entity.
func Prefix(scope, entityID string) string {
	return scope + "/" + entityID + "/"
}

// FolderPrefix matches every cached page of one folder.
func FolderPrefix(scope, entityID string, folderID int) string {
	return fmt.Sprintf("%s%d/", Prefix(scope, entityID), folderID)
}

func hasPrefix(key, prefix string) bool {
	return prefix == "" || strings.HasPrefix(key, prefix)
}
