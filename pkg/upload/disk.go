package upload

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DiskStore spools files on the local filesystem. Metadata lives in a
// JSON sidecar next to each entry so the spool survives a restart.
type DiskStore struct {
	dir     string
	maxSize int64

	mu      sync.Mutex
	entries map[string]*diskMeta
}

type diskMeta struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskStore creates a DiskStore rooted at dir. maxSize caps entry
// size in bytes; zero means no limit.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{
		dir:     dir,
		maxSize: maxSize,
		entries: make(map[string]*diskMeta),
	}, nil
}

// Save spools a file and returns its spool ID.
func (s *DiskStore) Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	id := newSpoolID()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// The declared size is client-supplied; enforce the cap on the
	// actual bytes. One extra byte detects overflow.
	reader := r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return "", ErrTooLarge
	}

	meta := &diskMeta{
		Filename:    filename,
		ContentType: contentType,
		Size:        written,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.entries[id] = meta
	s.mu.Unlock()

	if err := s.writeMeta(id, meta); err != nil {
		return "", err
	}
	return id, nil
}

// Claim retrieves a spooled file and removes the entry. The returned
// reader deletes the underlying files on close.
func (s *DiskStore) Claim(ctx context.Context, id string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	meta, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	// Entries written before a restart exist only as sidecars.
	if !ok {
		loaded, err := s.readMeta(id)
		if err != nil {
			return nil, ErrNotFound
		}
		meta = loaded
	}

	path := filepath.Join(s.dir, id)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &File{
		ID:          id,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Reader: &deleteOnClose{
			File:     f,
			path:     path,
			metaPath: s.metaPath(id),
		},
	}, nil
}

// Cleanup removes entries older than maxAge, including orphaned files
// that have no in-memory record.
func (s *DiskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	for id, meta := range s.entries {
		if meta.CreatedAt.Before(cutoff) {
			delete(s.entries, id)
			os.Remove(filepath.Join(s.dir, id))
			os.Remove(s.metaPath(id))
		}
	}
	s.mu.Unlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}
	return nil
}

func (s *DiskStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".meta")
}

func (s *DiskStore) writeMeta(id string, meta *diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(id), data, 0o644)
}

func (s *DiskStore) readMeta(id string) (*diskMeta, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		return nil, err
	}
	var meta diskMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// deleteOnClose removes the spool entry once the claimed file has been
// fully consumed.
type deleteOnClose struct {
	*os.File
	path     string
	metaPath string
}

func (d *deleteOnClose) Close() error {
	err := d.File.Close()
	os.Remove(d.path)
	os.Remove(d.metaPath)
	return err
}
