package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexx/mediacenter/internal/api"
	"github.com/nexx/mediacenter/internal/logging"
	"github.com/nexx/mediacenter/internal/models"
)

// ShareService manages public share links.
type ShareService struct {
	api    *api.Client
	logger *logging.Logger
	now    func() time.Time
}

// NewShareService creates a ShareService.
func NewShareService(apiClient *api.Client) *ShareService {
	return &ShareService{api: apiClient, logger: logging.NewLogger("share-service"), now: time.Now}
}

// ShareRequest describes the desired state of a link. A non-empty
// password protects it; TTL zero means no expiry.
type ShareRequest struct {
	Password string
	TTL      time.Duration
}

func (r ShareRequest) options(now time.Time) api.ShareOptions {
	opts := api.ShareOptions{Protect: r.Password != "", Password: r.Password}
	if r.TTL > 0 {
		exp := now.Add(r.TTL).UTC()
		opts.ExpiresAt = &exp
	}
	return opts
}

// Create creates a share link for a file.
func (s *ShareService) Create(ctx context.Context, fileID string, req ShareRequest) (*models.ShareLink, error) {
	link, err := s.api.CreateShare(ctx, fileID, req.options(s.now()))
	if err != nil {
		return nil, fmt.Errorf("share %s: %w", fileID, err)
	}
	s.logger.Info().Str("file_id", fileID).Bool("protected", link.PasswordRequired).Msg("Share link created")
	return link, nil
}

// Update replaces protection and expiry of a link.
func (s *ShareService) Update(ctx context.Context, token string, req ShareRequest) (*models.ShareLink, error) {
	link, err := s.api.UpdateShare(ctx, token, req.options(s.now()))
	if err != nil {
		return nil, fmt.Errorf("update share: %w", err)
	}
	return link, nil
}

// Delete revokes a link.
func (s *ShareService) Delete(ctx context.Context, token string) error {
	if err := s.api.DeleteShare(ctx, token); err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

// ErrSharePasswordRequired is returned by Open when the link is protected
// and the password is missing or wrong.
var ErrSharePasswordRequired = errors.New("share link requires a password")

// Open resolves a link to its file.
func (s *ShareService) Open(ctx context.Context, token, password string) (*models.SharedFile, error) {
	f, err := s.api.OpenShare(ctx, token, password)
	if err != nil {
		if api.IsForbidden(err) {
			return nil, fmt.Errorf("%w: %v", ErrSharePasswordRequired, err)
		}
		return nil, fmt.Errorf("open share: %w", err)
	}
	if !f.ExpiresAt.IsZero() && s.now().After(f.ExpiresAt) {
		return nil, fmt.Errorf("share link expired at %s", f.ExpiresAt.Format(time.RFC3339))
	}
	return f, nil
}
