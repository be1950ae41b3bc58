// Package services provides frontend-agnostic media center operations.
// It sits between the view state and the API client: listings go through
// the query cache, mutations invalidate it and patch the local state.
package services

import (
	"sync"
	"time"
)

// TransferType identifies whether a transfer is an upload or download.
type TransferType string

const (
	TransferTypeUpload   TransferType = "upload"
	TransferTypeDownload TransferType = "download"
)

// TransferState represents the current state of a transfer.
type TransferState string

const (
	TransferStateQueued    TransferState = "queued"
	TransferStateActive    TransferState = "active"
	TransferStateCompleted TransferState = "completed"
	TransferStateFailed    TransferState = "failed"
	TransferStateCancelled TransferState = "cancelled"
)

// TransferTask is the record of one upload or download.
type TransferTask struct {
	ID          string
	Type        TransferType
	Name        string
	Source      string // local path for uploads, file id for downloads
	Dest        string // folder id for uploads, local path for downloads
	Size        int64
	State       TransferState
	Error       error
	Retries     int
	StartedAt   time.Time
	CompletedAt time.Time
}

// IsTerminal returns true if the task has reached a final state.
func (t *TransferTask) IsTerminal() bool {
	return t.State == TransferStateCompleted ||
		t.State == TransferStateFailed ||
		t.State == TransferStateCancelled
}

// TransferStats summarizes the tasks of a TransferService.
type TransferStats struct {
	Queued    int
	Active    int
	Completed int
	Failed    int
	Cancelled int
}

// Total returns the total number of tasks.
func (s TransferStats) Total() int {
	return s.Queued + s.Active + s.Completed + s.Failed + s.Cancelled
}

// Passwords remembers the passwords of password-required folders for the
// session. They are sent with every request touching the folder.
type Passwords struct {
	mu sync.RWMutex
	m  map[int]string
}

// NewPasswords creates an empty store.
func NewPasswords() *Passwords {
	return &Passwords{m: make(map[int]string)}
}

// Set stores the password of a folder. An empty password forgets it.
func (p *Passwords) Set(folderID int, pw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pw == "" {
		delete(p.m, folderID)
		return
	}
	p.m[folderID] = pw
}

// Get returns the stored password of a folder.
func (p *Passwords) Get(folderID int) string {
	if p == nil {
		return ""
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.m[folderID]
}
