// Package storage uploads catalog images to a blob backend and returns their public URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPath is returned when an object name escapes the store root or is empty.
var ErrInvalidPath = errors.New("storage: invalid object path")

// Store persists uploaded blobs.
type Store interface {
	// Put writes body under name and returns the URL clients use to fetch it.
	Put(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error)
	// Delete removes name. Missing objects are not an error.
	Delete(ctx context.Context, name string) error
}

var unsafeChars = regexp.MustCompile(`\s+`)

// Namer builds object names for uploaded media.
type Namer struct {
	Now    func() time.Time
	Suffix func() string
}

// DefaultNamer stamps names with the wall clock and a random suffix.
func DefaultNamer() Namer {
	return Namer{
		Now: time.Now,
		Suffix: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		},
	}
}

// ProductMedia returns products/{id}/{folder}/{safeName}-{unixms}-{suffix}{ext}.
func (n Namer) ProductMedia(productID uint, folder, original string) string {
	ext := path.Ext(original)
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(original, "\\", "/")), ext)
	safe := unsafeChars.ReplaceAllString(strings.TrimSpace(base), "_")
	if safe == "" || safe == "." || safe == "/" {
		safe = "file"
	}
	return fmt.Sprintf("products/%d/%s/%s-%d-%s%s", productID, folder, safe, n.now().UnixMilli(), n.suffix(), strings.ToLower(ext))
}

// CategoryMedia returns categories/category-{kind}-{unixms}-{suffix}{ext}.
func (n Namer) CategoryMedia(kind, original string) string {
	ext := strings.ToLower(path.Ext(original))
	return fmt.Sprintf("categories/category-%s-%d-%s%s", kind, n.now().UnixMilli(), n.suffix(), ext)
}

func (n Namer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

func (n Namer) suffix() string {
	if n.Suffix == nil {
		return DefaultNamer().Suffix()
	}
	return n.Suffix()
}

// cleanName normalises an object name to a relative slash separated path.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + name)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func joinURL(base, name string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return "/" + name
	}
	return base + "/" + name
}
