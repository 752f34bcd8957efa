// Package upload spools files on their way through the gateway:
// incoming documents waiting to be relayed, and generated artifacts
// waiting to be downloaded.
//
// Entries are addressed by an opaque spool ID and are claimed exactly
// once; a claim hands back a read handle and removes the entry.
// Expired entries are swept periodically:
//
//	store, _ := upload.NewDiskStore("/var/spool/slidegate", 200<<20)
//	id, _ := store.Save(ctx, "deck.zip", "application/zip", size, r)
//	f, _ := store.Claim(ctx, id)
//	defer f.Close()
package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a spool entry does not exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the store's size limit.
var ErrTooLarge = errors.New("upload: file too large")

// Store is a spool storage backend. DiskStore serves single-host
// deployments; S3Store serves deployments where the gateway and the
// download path do not share a filesystem.
type Store interface {
	// Save spools a file and returns its spool ID.
	Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error)

	// Claim retrieves a spooled file and removes the entry. A spool ID
	// can be claimed once; later claims return ErrNotFound.
	Claim(ctx context.Context, id string) (*File, error)

	// Cleanup removes entries older than maxAge. Run it on a ticker.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File is a claimed spool entry.
type File struct {
	// ID is the spool ID the entry was stored under.
	ID string

	// Filename is the name the file was uploaded as.
	Filename string

	// ContentType is the MIME type recorded at save time.
	ContentType string

	// Size is the spooled size in bytes.
	Size int64

	// Reader streams the file contents. Closing it releases the
	// underlying storage.
	Reader io.ReadCloser
}

// Close releases the claimed file.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// newSpoolID generates a cryptographically random spool ID.
func newSpoolID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
