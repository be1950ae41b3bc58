package api

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nexx/mediacenter/internal/models"
)

// ShareOptions configures a share link.
type ShareOptions struct {
	// Protect requires Password to be set.
	Protect   bool
	Password  string
	ExpiresAt *time.Time
}

func (o ShareOptions) validate(now time.Time) error {
	if o.Protect && strings.TrimSpace(o.Password) == "" {
		return invalidInput("a password is required for a protected share")
	}
	if !o.Protect && o.Password != "" {
		return invalidInput("password given for an unprotected share")
	}
	if o.ExpiresAt != nil && !o.ExpiresAt.After(now) {
		return invalidInput("expiry %s is in the past", o.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// CreateShare creates a share link for a file.
func (c *Client) CreateShare(ctx context.Context, fileID string, opts ShareOptions) (*models.ShareLink, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, invalidInput("file id is empty")
	}
	if err := opts.validate(time.Now()); err != nil {
		return nil, err
	}

	req := models.ShareLinkRequest{FileID: fileID, Password: opts.Password, ExpiresAt: opts.ExpiresAt}
	var link models.ShareLink
	if err := c.call(ctx, nethttp.MethodPost, "/api/shares", nil, req, &link); err != nil {
		return nil, err
	}
	if err := link.Validate(); err != nil {
		return nil, malformed("share link", err)
	}
	return &link, nil
}

// UpdateShare changes protection or expiry. With Protect unset any
// existing password is removed.
func (c *Client) UpdateShare(ctx context.Context, token string, opts ShareOptions) (*models.ShareLink, error) {
	if strings.TrimSpace(token) == "" {
		return nil, invalidInput("share token is empty")
	}
	if err := opts.validate(time.Now()); err != nil {
		return nil, err
	}

	req := models.ShareLinkRequest{
		Password:       opts.Password,
		ExpiresAt:      opts.ExpiresAt,
		RemovePassword: !opts.Protect,
	}
	var link models.ShareLink
	if err := c.call(ctx, nethttp.MethodPut, "/api/shares/"+url.PathEscape(token), nil, req, &link); err != nil {
		return nil, err
	}
	if err := link.Validate(); err != nil {
		return nil, malformed("share link", err)
	}
	return &link, nil
}

// DeleteShare revokes a share link.
func (c *Client) DeleteShare(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return invalidInput("share token is empty")
	}
	return c.call(ctx, nethttp.MethodDelete, "/api/shares/"+url.PathEscape(token), nil, nil, nil)
}

// OpenShare resolves a share link. A protected link answers 403 until
// the right password is given.
func (c *Client) OpenShare(ctx context.Context, token, password string) (*models.SharedFile, error) {
	if strings.TrimSpace(token) == "" {
		return nil, invalidInput("share token is empty")
	}
	var f models.SharedFile
	err := c.call(ctx, nethttp.MethodGet, "/api/shares/"+url.PathEscape(token), nil, nil, &f, SharePassword(password))
	if err != nil {
		return nil, err
	}
	if f.FileName == "" || f.DownloadURL == "" {
		return nil, malformed("shared file", fmt.Errorf("file_name and download_url are required"))
	}
	return &f, nil
}
