package models

import (
	"errors"
	"fmt"
	"strings"
)

// Permission is the caller's access level on a file.
type Permission string

const (
	PermissionOwner       Permission = "owner"
	PermissionViewer      Permission = "viewer"
	PermissionCooperative Permission = "cooperative"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermissionOwner, PermissionViewer, PermissionCooperative:
		return true
	}
	return false
}

// FileItem is one row of the remote listing endpoint.
type FileItem struct {
	FileID          string     `json:"file_id"`
	CorrelationGUID string     `json:"correlation_guid"`
	FileName        string     `json:"file_name"`
	Extension       string     `json:"extension"`
	Size            int64      `json:"size"`
	CreatedBy       string     `json:"created_by"`
	CreatedDate     string     `json:"created_date"`
	Description     string     `json:"description,omitempty"`
	CanDelete       bool       `json:"can_delete"`
	Permission      Permission `json:"permission,omitempty"`
	IsLocked        bool       `json:"is_locked"`
}

// Validate checks the fields the list view depends on.
func (f FileItem) Validate() error {
	if strings.TrimSpace(f.FileID) == "" {
		return errors.New("file_id is empty")
	}
	if strings.TrimSpace(f.FileName) == "" {
		return fmt.Errorf("file %s: file_name is empty", f.FileID)
	}
	if f.Size < 0 {
		return fmt.Errorf("file %s: negative size %d", f.FileID, f.Size)
	}
	if f.Permission != "" && !f.Permission.Valid() {
		return fmt.Errorf("file %s: unknown permission %q", f.FileID, f.Permission)
	}
	return nil
}

// FileListResponse is the paginated envelope of GET /api/files.
type FileListResponse struct {
	Items        []FileItem `json:"items"`
	TotalRecords int        `json:"total_records"`
	PageSize     int        `json:"page_size"`
	PageNumber   int        `json:"page_number"`
}

// Validate checks envelope consistency and every item.
func (r *FileListResponse) Validate() error {
	if r.Items == nil {
		return errors.New("items is missing")
	}
	if r.TotalRecords < 0 {
		return fmt.Errorf("negative total_records %d", r.TotalRecords)
	}
	if r.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", r.PageSize)
	}
	if r.PageNumber <= 0 {
		return fmt.Errorf("page_number must be positive, got %d", r.PageNumber)
	}
	if len(r.Items) > r.PageSize {
		return fmt.Errorf("%d items exceed page_size %d", len(r.Items), r.PageSize)
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// ListQuery identifies one request to the listing endpoint.
type ListQuery struct {
	EntityID string
	FolderID int
	Page     int
	PageSize int
	Keyword  string
}

// UpdateFileRequest is the body of PUT /api/files/{id}.
type UpdateFileRequest struct {
	Name        string `json:"file_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// LockRequest is the body of PUT /api/files/{id}/lock.
type LockRequest struct {
	Locked bool `json:"is_locked"`
}

// UploadResult is returned by the upload endpoint.
type UploadResult struct {
	FileID          string `json:"file_id"`
	CorrelationGUID string `json:"correlation_guid"`
	FileName        string `json:"file_name"`
	Size            int64  `json:"size"`
}
