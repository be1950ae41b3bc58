package api

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/nexx/mediacenter/internal/models"
)

// ListFolders returns every folder of an entity as a flat list. The
// endpoint is not paginated.
func (c *Client) ListFolders(ctx context.Context, entityID string) ([]models.FolderRecord, error) {
	q := url.Values{}
	if entityID != "" {
		q.Set("entity_id", entityID)
	}

	var records []models.FolderRecord
	if err := c.call(ctx, nethttp.MethodGet, "/api/folders", q, nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, malformed("folders", fmt.Errorf("expected an array"))
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, malformed("folders", fmt.Errorf("record %d: %w", i, err))
		}
	}
	return records, nil
}

// CreateFolder creates a folder and returns the stored record.
func (c *Client) CreateFolder(ctx context.Context, req models.CreateFolderRequest) (*models.FolderRecord, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidInput("folder name is empty")
	}
	if req.ParentID != nil && *req.ParentID <= 0 {
		return nil, invalidInput("parent id must be positive")
	}

	var rec models.FolderRecord
	if err := c.call(ctx, nethttp.MethodPost, "/api/folders", nil, req, &rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, malformed("created folder", err)
	}
	return &rec, nil
}

// RenameFolder renames a folder.
func (c *Client) RenameFolder(ctx context.Context, id int, name string, opts ...RequestOption) error {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return invalidInput("folder id must be positive")
	}
	if name == "" {
		return invalidInput("folder name is empty")
	}
	path := fmt.Sprintf("/api/folders/%d", id)
	return c.call(ctx, nethttp.MethodPut, path, nil, models.RenameFolderRequest{Name: name}, nil, opts...)
}

// DeleteFolder deletes a folder.
func (c *Client) DeleteFolder(ctx context.Context, id int, opts ...RequestOption) error {
	if id <= 0 {
		return invalidInput("folder id must be positive")
	}
	return c.call(ctx, nethttp.MethodDelete, fmt.Sprintf("/api/folders/%d", id), nil, nil, nil, opts...)
}
