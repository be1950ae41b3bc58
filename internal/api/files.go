package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nexx/mediacenter/internal/models"
)

// ListFiles fetches one page of a folder listing.
func (c *Client) ListFiles(ctx context.Context, q models.ListQuery, opts ...RequestOption) (*models.FileListResponse, error) {
	if q.Page < 1 {
		return nil, invalidInput("page number must be at least 1, got %d", q.Page)
	}
	if q.PageSize < 1 {
		return nil, invalidInput("page size must be positive, got %d", q.PageSize)
	}

	v := url.Values{}
	v.Set("page_number", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.EntityID != "" {
		v.Set("entity_id", q.EntityID)
	}
	if q.FolderID > 0 {
		v.Set("folder_id", strconv.Itoa(q.FolderID))
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		v.Set("keyword", kw)
	}

	var resp models.FileListResponse
	if err := c.call(ctx, nethttp.MethodGet, "/api/files", v, nil, &resp, opts...); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, malformed("file list", err)
	}
	return &resp, nil
}

// UpdateFile renames a file or changes its description.
func (c *Client) UpdateFile(ctx context.Context, id string, req models.UpdateFileRequest) error {
	if strings.TrimSpace(id) == "" {
		return invalidInput("file id is empty")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" && req.Description == "" {
		return invalidInput("nothing to update")
	}
	return c.call(ctx, nethttp.MethodPut, "/api/files/"+url.PathEscape(id), nil, req, nil)
}

// SetLocked locks or unlocks a file.
func (c *Client) SetLocked(ctx context.Context, id string, locked bool) error {
	if strings.TrimSpace(id) == "" {
		return invalidInput("file id is empty")
	}
	path := "/api/files/" + url.PathEscape(id) + "/lock"
	return c.call(ctx, nethttp.MethodPut, path, nil, models.LockRequest{Locked: locked}, nil)
}

// DeleteFile deletes a file by its correlation guid.
func (c *Client) DeleteFile(ctx context.Context, correlationGUID string) error {
	if strings.TrimSpace(correlationGUID) == "" {
		return invalidInput("correlation guid is empty")
	}
	return c.call(ctx, nethttp.MethodDelete, "/api/files/"+url.PathEscape(correlationGUID), nil, nil, nil)
}

// Upload describes one multipart upload.
type Upload struct {
	FileName    string
	FolderID    int
	EntityID    string
	Description string
	Size        int64
	Body        io.Reader
}

// UploadFile streams a file to POST /api/files. The body is sent once;
// retries are the caller's business since only the caller can reopen it.
func (c *Client) UploadFile(ctx context.Context, up Upload, opts ...RequestOption) (*models.UploadResult, error) {
	if strings.TrimSpace(up.FileName) == "" {
		return nil, invalidInput("file name is empty")
	}
	if up.Body == nil {
		return nil, invalidInput("upload body is nil")
	}
	const path = "/api/files"

	limiter, err := c.wait(ctx, nethttp.MethodPost, path)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, up))
	}()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+path, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.decorate(req, opts)

	resp, err := c.transferClient.Do(req)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()
	c.observe(limiter, resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp)
	}

	var result models.UploadResult
	if err := decodeJSON(resp.Body, &result); err != nil {
		return nil, malformed("upload result", err)
	}
	if result.FileID == "" {
		return nil, malformed("upload result", fmt.Errorf("file_id is empty"))
	}
	return &result, nil
}

func writeMultipart(mw *multipart.Writer, up Upload) error {
	fields := map[string]string{
		"entity_id":   up.EntityID,
		"description": up.Description,
	}
	if up.FolderID > 0 {
		fields["folder_id"] = strconv.Itoa(up.FolderID)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", up.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return err
	}
	return mw.Close()
}

// Download is an open download stream. The caller closes Body.
type Download struct {
	Body     io.ReadCloser
	FileName string
	// Size is -1 when the server sent no Content-Length.
	Size int64
}

// DownloadFile opens GET /api/files/{id}/download.
func (c *Client) DownloadFile(ctx context.Context, id string, opts ...RequestOption) (*Download, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidInput("file id is empty")
	}
	path := "/api/files/" + url.PathEscape(id) + "/download"

	limiter, err := c.wait(ctx, nethttp.MethodGet, path)
	if err != nil {
		return nil, err
	}
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.decorate(req, opts)
	req.Header.Set("Accept", "*/*")

	resp, err := c.transferClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	c.observe(limiter, resp)
	if resp.StatusCode != nethttp.StatusOK {
		defer resp.Body.Close()
		return nil, newStatusError(resp)
	}

	d := &Download{Body: resp.Body, Size: resp.ContentLength}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			d.FileName = params["filename"]
		}
	}
	return d, nil
}
