// Package archive stores exported result lists as JSON documents in a blob
// backend (local directory, S3/MinIO or memory).
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"genecross/api/internal/cross"
	"genecross/api/internal/rows"
)

type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrUnsupported is returned when a backend cannot produce a link.
var ErrUnsupported = errors.New("archive: unsupported operation")

// ErrExists is returned by Put when the key is already taken.
var ErrExists = errors.New("archive: object already exists")

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the minimal blob surface the exporter needs.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	// PresignURL returns a time-limited GET link or ErrUnsupported.
	PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Driver() Driver
}

// Document is the exported JSON body.
type Document struct {
	ChatID     int64          `json:"chat_id"`
	Mode       rows.Mode      `json:"mode"`
	ExportedAt time.Time      `json:"exported_at"`
	Results    []cross.Result `json:"results"`
}

// Key returns exports/<chat>/<unix-nano>.json.
func Key(chatID int64, at time.Time) string {
	return fmt.Sprintf("exports/%d/%d.json", chatID, at.UnixNano())
}

const linkExpiry = 24 * time.Hour

// Export writes doc under Key(doc.ChatID, doc.ExportedAt). The returned link is
// empty when the backend has none.
func Export(ctx context.Context, st Store, doc Document) (Info, string, error) {
	if doc.Results == nil {
		doc.Results = []cross.Result{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Info{}, "", fmt.Errorf("archive: marshal: %w", err)
	}
	key := Key(doc.ChatID, doc.ExportedAt)
	info, err := st.Put(ctx, key, bytes.NewReader(b), "application/json")
	if err != nil {
		return Info{}, "", fmt.Errorf("archive: put %s: %w", key, err)
	}
	link, err := st.PresignURL(ctx, key, linkExpiry)
	if errors.Is(err, ErrUnsupported) {
		return info, "", nil
	}
	if err != nil {
		return info, "", fmt.Errorf("archive: presign %s: %w", key, err)
	}
	return info, link, nil
}

// Load reads one exported document back.
func Load(ctx context.Context, st Store, key string) (Document, error) {
	rc, err := st.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	defer rc.Close()
	var doc Document
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("archive: decode %s: %w", key, err)
	}
	return doc, nil
}

// Open builds the store for driver. An empty driver disables archiving and
// returns a nil Store.
func Open(ctx context.Context, driver Driver, dir string, s3cfg S3Config) (Store, error) {
	switch driver {
	case "":
		return nil, nil
	case DriverFilesystem:
		st, err := NewFS(dir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case DriverS3:
		st, err := NewS3(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	case DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("archive: unknown driver %q", driver)
}
