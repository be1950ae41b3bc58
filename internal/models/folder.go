package models

import "fmt"

// FolderRecord is a folder as returned by the folder listing endpoint.
// ParentID is nil for top-level folders.
type FolderRecord struct {
	ID               int    `json:"id"`
	ParentID         *int   `json:"parent_id"`
	Name             string `json:"name"`
	PasswordRequired bool   `json:"password_required"`
}

// IsRoot reports whether the folder has no parent.
func (f FolderRecord) IsRoot() bool {
	return f.ParentID == nil
}

// Validate checks the fields the tree builder relies on.
func (f FolderRecord) Validate() error {
	if f.ID <= 0 {
		return fmt.Errorf("folder id must be positive, got %d", f.ID)
	}
	if f.ParentID != nil && *f.ParentID == f.ID {
		return fmt.Errorf("folder %d is its own parent", f.ID)
	}
	return nil
}

// IntPtr is a small helper for building FolderRecord literals.
func IntPtr(v int) *int {
	return &v
}

// CreateFolderRequest is the body of POST /api/folders.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int   `json:"parent_id,omitempty"`
	EntityID string `json:"entity_id"`
	Password string `json:"password,omitempty"`
}

// RenameFolderRequest is the body of PUT /api/folders/{id}.
type RenameFolderRequest struct {
	Name string `json:"name"`
}
