package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexx/mediacenter/internal/config"
	"github.com/nexx/mediacenter/internal/models"
)

func newTestClient(t *testing.T, h nethttp.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.APIURL = srv.URL
	cfg.Token = "test-token"
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func writeJSON(w nethttp.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	cfg := config.New()
	cfg.Token = "test-key"

	_, err := NewClient(cfg)
	if !errors.Is(err, config.ErrMissingAPIURL) {
		t.Fatalf("NewClient() error = %v, want ErrMissingAPIURL", err)
	}
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	cfg := config.New()
	cfg.APIURL = "media.example.com"
	cfg.Token = "k"
	if _, err := NewClient(cfg); err == nil {
		t.Fatal("NewClient() should reject a URL without scheme")
	}
}

func TestListFiles(t *testing.T) {
	var gotQuery, gotAuth, gotLang string
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotLang = r.Header.Get("Accept-Language")
		writeJSON(w, 200, map[string]interface{}{
			"items": []map[string]interface{}{
				{"file_id": "1", "correlation_guid": "g1", "file_name": "a.mp4", "extension": "MP4", "size": 1024, "created_date": "2024-03-01T10:00:00Z", "can_delete": true},
			},
			"total_records": 11,
			"page_size":     10,
			"page_number":   2,
		})
	})
	c.SetLanguageSource(func() string { return "fa" })

	resp, err := c.ListFiles(context.Background(), models.ListQuery{EntityID: "e1", FolderID: 7, Page: 2, PageSize: 10, Keyword: " clip "})
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if resp.TotalRecords != 11 || len(resp.Items) != 1 || resp.Items[0].FileName != "a.mp4" {
		t.Errorf("unexpected response %+v", resp)
	}
	for _, want := range []string{"page_number=2", "page_size=10", "entity_id=e1", "folder_id=7", "keyword=clip"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotLang != "fa" {
		t.Errorf("Accept-Language = %q", gotLang)
	}
}

func TestListFiles_InvalidInputSendsNothing(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		atomic.AddInt32(&calls, 1)
	})
	_, err := c.ListFiles(context.Background(), models.ListQuery{Page: 0, PageSize: 10})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if calls != 0 {
		t.Error("no request should be sent for invalid input")
	}
}

func TestListFiles_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"missing items", `{"total_records":1,"page_size":10,"page_number":1}`},
		{"empty file id", `{"items":[{"file_name":"x"}],"total_records":1,"page_size":10,"page_number":1}`},
		{"bad permission", `{"items":[{"file_id":"1","file_name":"x","permission":"admin"}],"total_records":1,"page_size":10,"page_number":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
				io.WriteString(w, tt.body)
			})
			_, err := c.ListFiles(context.Background(), models.ListQuery{Page: 1, PageSize: 10})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		body   string
		check  func(error) bool
		name   string
	}{
		{404, `{"message":"no such folder"}`, IsNotFound, "not found"},
		{401, `{"error":"token expired"}`, IsUnauthorized, "unauthorized"},
		{403, `folder password required`, IsForbidden, "forbidden"},
		{409, `{}`, IsFileExistsError, "conflict"},
		{400, `{"detail":"a file with this name already exists"}`, IsFileExistsError, "duplicate name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			err := c.RenameFolder(context.Background(), 3, "x")
			if !tt.check(err) {
				t.Errorf("check failed for %v", err)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Status != tt.status || se.Method != "PUT" {
				t.Errorf("StatusError = %+v", se)
			}
		})
	}
}

func TestStatusError_MessageFromBody(t *testing.T) {
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, 404, map[string]string{"message": "no such folder"})
	})
	err := c.DeleteFolder(context.Background(), 9)
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "no such folder" || se.Path != "/api/folders/9" {
		t.Errorf("err = %v", err)
	}
}

func TestListFolders(t *testing.T) {
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Query().Get("entity_id") != "e1" {
			t.Errorf("entity_id = %q", r.URL.Query().Get("entity_id"))
		}
		io.WriteString(w, `[{"id":1,"parent_id":null,"name":"root"},{"id":2,"parent_id":1,"name":"child","password_required":true}]`)
	})
	recs, err := c.ListFolders(context.Background(), "e1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || !recs[0].IsRoot() || recs[1].ParentID == nil || *recs[1].ParentID != 1 || !recs[1].PasswordRequired {
		t.Errorf("records = %+v", recs)
	}
}

func TestListFolders_RejectsSelfParent(t *testing.T) {
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		io.WriteString(w, `[{"id":4,"parent_id":4,"name":"loop"}]`)
	})
	if _, err := c.ListFolders(context.Background(), ""); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestCreateFolder(t *testing.T) {
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %s", r.Method)
		}
		var req models.CreateFolderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, 201, models.FolderRecord{ID: 10, ParentID: req.ParentID, Name: req.Name})
	})

	if _, err := c.CreateFolder(context.Background(), models.CreateFolderRequest{Name: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty name err = %v", err)
	}
	rec, err := c.CreateFolder(context.Background(), models.CreateFolderRequest{Name: " clips ", ParentID: models.IntPtr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 10 || rec.Name != "clips" {
		t.Errorf("rec = %+v", rec)
	}
}

func TestFolderPasswordHeader(t *testing.T) {
	var got string
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		got = r.Header.Get("X-Folder-Password")
		writeJSON(w, 200, map[string]interface{}{"items": []interface{}{}, "total_records": 0, "page_size": 10, "page_number": 1})
	})
	_, err := c.ListFiles(context.Background(), models.ListQuery{FolderID: 2, Page: 1, PageSize: 10}, FolderPassword("s3cret"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "s3cret" {
		t.Errorf("X-Folder-Password = %q", got)
	}
}

func TestFileMutations(t *testing.T) {
	type call struct{ method, path, body string }
	var calls []call
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, strings.TrimSpace(string(b))})
		w.WriteHeader(204)
	})
	ctx := context.Background()

	if err := c.UpdateFile(ctx, "f1", models.UpdateFileRequest{Name: "new.mp4"}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetLocked(ctx, "f1", true); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteFile(ctx, "guid-1"); err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateFile(ctx, "f1", models.UpdateFileRequest{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty update err = %v", err)
	}

	want := []call{
		{"PUT", "/api/files/f1", `{"file_name":"new.mp4"}`},
		{"PUT", "/api/files/f1/lock", `{"is_locked":true}`},
		{"DELETE", "/api/files/guid-1", ""},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %+v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestUploadFile(t *testing.T) {
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("folder_id") != "5" {
			t.Errorf("folder_id = %q", r.FormValue("folder_id"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		data, _ := io.ReadAll(f)
		writeJSON(w, 201, models.UploadResult{FileID: "99", CorrelationGUID: "g", FileName: hdr.Filename, Size: int64(len(data))})
	})

	res, err := c.UploadFile(context.Background(), Upload{FileName: "clip.mp4", FolderID: 5, Body: strings.NewReader("hello")})
	if err != nil {
		t.Fatal(err)
	}
	if res.FileID != "99" || res.FileName != "clip.mp4" || res.Size != 5 {
		t.Errorf("result = %+v", res)
	}
}

func TestDownloadFile(t *testing.T) {
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/api/files/7/download" {
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		io.WriteString(w, "%PDF")
	})

	d, err := c.DownloadFile(context.Background(), "7")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Body.Close()
	body, _ := io.ReadAll(d.Body)
	if string(body) != "%PDF" || d.FileName != "report.pdf" {
		t.Errorf("download = %q, name %q", body, d.FileName)
	}

	if _, err := c.DownloadFile(context.Background(), "8"); !IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestShares(t *testing.T) {
	var sharePassword string
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/api/shares":
			var req models.ShareLinkRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			writeJSON(w, 201, models.ShareLink{Token: "tok", FileID: req.FileID, URL: "https://m/s/tok", PasswordRequired: req.Password != ""})
		case r.Method == "GET" && r.URL.Path == "/api/shares/tok":
			sharePassword = r.Header.Get("X-Share-Password")
			if sharePassword != "pw" {
				w.WriteHeader(403)
				return
			}
			writeJSON(w, 200, models.SharedFile{FileName: "a.mp4", DownloadURL: "https://m/d/1"})
		case r.Method == "DELETE":
			w.WriteHeader(204)
		default:
			w.WriteHeader(405)
		}
	})
	ctx := context.Background()

	if _, err := c.CreateShare(ctx, "1", ShareOptions{Protect: true}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("protected share without password err = %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if _, err := c.CreateShare(ctx, "1", ShareOptions{ExpiresAt: &past}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("past expiry err = %v", err)
	}

	link, err := c.CreateShare(ctx, "1", ShareOptions{Protect: true, Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if !link.PasswordRequired || link.Token != "tok" {
		t.Errorf("link = %+v", link)
	}

	if _, err := c.OpenShare(ctx, "tok", "wrong"); !IsForbidden(err) {
		t.Errorf("wrong password err = %v", err)
	}
	f, err := c.OpenShare(ctx, "tok", "pw")
	if err != nil || f.FileName != "a.mp4" {
		t.Fatalf("OpenShare = %+v, %v", f, err)
	}
	if err := c.DeleteShare(ctx, "tok"); err != nil {
		t.Fatal(err)
	}
}

func TestThrottleIsReturnedAsStatus(t *testing.T) {
	c := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(429)
	})
	_, err := c.ListFolders(context.Background(), "")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 429 {
		t.Fatalf("err = %v, want 429", err)
	}
	limiter, _ := c.limiter.ForRequest(c.baseURL, c.token, "GET", "/api/folders")
	if limiter.CooldownRemaining() <= 0 {
		t.Error("limiter should be cooling down after 429")
	}
}

func newRetryingClient(t *testing.T, h nethttp.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.APIURL = srv.URL
	cfg.Token = "test-token"
	cfg.MaxRetries = 2
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.retrying.RetryWaitMin = time.Millisecond
	c.retrying.RetryWaitMax = time.Millisecond
	return c
}

func TestReadsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{"list files", func(c *Client) error {
			_, err := c.ListFiles(context.Background(), models.ListQuery{EntityID: "e1", FolderID: 1, Page: 1, PageSize: 10})
			return err
		}},
		{"list folders", func(c *Client) error {
			_, err := c.ListFolders(context.Background(), "e1")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			c := newRetryingClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(500)
			})
			err := tt.call(c)
			var se *StatusError
			if !errors.As(err, &se) || se.Status != 500 {
				t.Fatalf("err = %v, want status 500", err)
			}
			if got := atomic.LoadInt32(&hits); got != 1 {
				t.Errorf("server hit %d times, want 1", got)
			}
		})
	}
}

func TestMutationsRetryWhenConfigured(t *testing.T) {
	var hits int32
	c := newRetryingClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(503)
			return
		}
		w.WriteHeader(204)
	})
	if err := c.SetLocked(context.Background(), "f1", true); err != nil {
		t.Fatalf("SetLocked() error = %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestCreateIsNotRetried(t *testing.T) {
	var hits int32
	c := newRetryingClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(500)
	})
	_, err := c.CreateFolder(context.Background(), models.CreateFolderRequest{Name: "clips", EntityID: "e1"})
	if err == nil {
		t.Fatal("CreateFolder() should fail")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}
