// Package filetypes maps the list's type-filter categories to extensions.
package filetypes

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Category is one entry of the type filter dropdown.
type Category string

const (
	All      Category = "all"
	Image    Category = "image"
	Video    Category = "video"
	Audio    Category = "audio"
	Document Category = "document"
	Archive  Category = "archive"
	Other    Category = "other"
)

// Categories lists the filter options in display order.
var Categories = []Category{All, Image, Video, Audio, Document, Archive, Other}

var extensions = map[Category][]string{
	Image:    {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "tif", "tiff", "heic"},
	Video:    {"mp4", "mkv", "avi", "mov", "wmv", "flv", "webm", "m4v"},
	Audio:    {"mp3", "wav", "ogg", "flac", "aac", "m4a", "wma"},
	Document: {"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "csv", "rtf", "odt", "ods"},
	Archive:  {"zip", "rar", "7z", "tar", "gz", "bz2", "xz"},
}

var byExtension = func() map[string]Category {
	m := make(map[string]Category)
	for cat, exts := range extensions {
		for _, ext := range exts {
			m[ext] = cat
		}
	}
	return m
}()

// Parse validates a category name.
func Parse(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return All, nil
	}
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown type filter %q", s)
}

// Normalize lowercases an extension and strips a leading dot.
func Normalize(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// FromName returns the normalized extension of a file name.
func FromName(name string) string {
	return Normalize(filepath.Ext(name))
}

// Of returns the category of an extension; unknown extensions are Other.
func Of(ext string) Category {
	if c, ok := byExtension[Normalize(ext)]; ok {
		return c
	}
	return Other
}

// Matches reports whether an extension passes the filter.
func (c Category) Matches(ext string) bool {
	if c == All || c == "" {
		return true
	}
	return Of(ext) == c
}

// Extensions returns the sorted extensions of a category.
func (c Category) Extensions() []string {
	out := append([]string(nil), extensions[c]...)
	sort.Strings(out)
	return out
}
