package models

import (
	"strings"
	"testing"
	"time"
)

func TestFileListResponse_Validate(t *testing.T) {
	good := func() *FileListResponse {
		return &FileListResponse{
			Items: []FileItem{
				{FileID: "1", FileName: "a.mp4", Size: 10, Permission: PermissionOwner},
			},
			TotalRecords: 1,
			PageSize:     10,
			PageNumber:   1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *FileListResponse)
		wantErr string
	}{
		{"valid", func(r *FileListResponse) {}, ""},
		{"missing items", func(r *FileListResponse) { r.Items = nil }, "items is missing"},
		{"zero page size", func(r *FileListResponse) { r.PageSize = 0 }, "page_size"},
		{"zero page number", func(r *FileListResponse) { r.PageNumber = 0 }, "page_number"},
		{"too many items", func(r *FileListResponse) { r.PageSize = 1; r.Items = append(r.Items, r.Items[0]) }, "exceed"},
		{"blank name", func(r *FileListResponse) { r.Items[0].FileName = " " }, "file_name is empty"},
		{"negative size", func(r *FileListResponse) { r.Items[0].Size = -1 }, "negative size"},
		{"bad permission", func(r *FileListResponse) { r.Items[0].Permission = "admin" }, "unknown permission"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := good()
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFolderRecord_Validate(t *testing.T) {
	if err := (FolderRecord{ID: 1}).Validate(); err != nil {
		t.Errorf("root folder: %v", err)
	}
	if err := (FolderRecord{ID: 2, ParentID: IntPtr(1)}).Validate(); err != nil {
		t.Errorf("child folder: %v", err)
	}
	if err := (FolderRecord{ID: 0}).Validate(); err == nil {
		t.Error("expected error for zero id")
	}
	if err := (FolderRecord{ID: 3, ParentID: IntPtr(3)}).Validate(); err == nil {
		t.Error("expected error for self parent")
	}
	if !(FolderRecord{ID: 1}).IsRoot() {
		t.Error("IsRoot() = false for nil parent")
	}
}

func TestShareLink_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if (&ShareLink{}).Expired(now) {
		t.Error("link without expiry reported expired")
	}
	if !(&ShareLink{ExpiresAt: &past}).Expired(now) {
		t.Error("past expiry not reported")
	}
	if (&ShareLink{ExpiresAt: &future}).Expired(now) {
		t.Error("future expiry reported expired")
	}
	if err := (&ShareLink{Token: "t"}).Validate(); err == nil {
		t.Error("expected error for missing url")
	}
}

func TestSize_IsFormatted(t *testing.T) {
	if RawSize(1024).IsFormatted() {
		t.Error("raw size reported formatted")
	}
	if !LabelSize("1 KB").IsFormatted() {
		t.Error("label size not reported formatted")
	}
}
