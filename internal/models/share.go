package models

import (
	"errors"
	"time"
)

// ShareLink is a public link to a file, optionally password protected.
type ShareLink struct {
	Token            string     `json:"token"`
	FileID           string     `json:"file_id"`
	URL              string     `json:"url"`
	PasswordRequired bool       `json:"password_required"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Validate checks the fields a caller needs to hand the link out.
func (s *ShareLink) Validate() error {
	if s.Token == "" {
		return errors.New("share token is empty")
	}
	if s.URL == "" {
		return errors.New("share url is empty")
	}
	return nil
}

// Expired reports whether the link has passed its expiry.
func (s *ShareLink) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// ShareLinkRequest is the body of POST /api/shares and PUT /api/shares/{token}.
type ShareLinkRequest struct {
	FileID    string     `json:"file_id,omitempty"`
	Password  string     `json:"password,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// RemovePassword clears protection on update.
	RemovePassword bool `json:"remove_password,omitempty"`
}

// SharedFile is what an opened share link resolves to.
type SharedFile struct {
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
