package upload_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slidegate-dev/slidegate/pkg/upload"
)

func newDiskStore(t *testing.T, maxSize int64) (*upload.DiskStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := upload.NewDiskStore(dir, maxSize)
	if err != nil {
		t.Fatal(err)
	}
	return store, dir
}

func TestDiskSaveAndClaim(t *testing.T) {
	store, _ := newDiskStore(t, 0)
	ctx := context.Background()

	id, err := store.Save(ctx, "deck.zip", "application/zip", 9, strings.NewReader("zip bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty spool ID")
	}

	f, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if f.Filename != "deck.zip" || f.ContentType != "application/zip" || f.Size != 9 {
		t.Errorf("unexpected metadata: %+v", f)
	}
	data, err := io.ReadAll(f.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "zip bytes" {
		t.Errorf("contents = %q", data)
	}
}

func TestDiskClaimIsOneShot(t *testing.T) {
	store, _ := newDiskStore(t, 0)
	ctx := context.Background()

	id, err := store.Save(ctx, "a.png", "image/png", 3, strings.NewReader("png"))
	if err != nil {
		t.Fatal(err)
	}

	f, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, f.Reader)
	f.Close()

	if _, err := store.Claim(ctx, id); !errors.Is(err, upload.ErrNotFound) {
		t.Fatalf("second claim: got %v, want ErrNotFound", err)
	}
}

func TestDiskClaimUnknownID(t *testing.T) {
	store, _ := newDiskStore(t, 0)

	_, err := store.Claim(context.Background(), "no-such-id")
	if !errors.Is(err, upload.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDiskRejectsOversizedDeclaredSize(t *testing.T) {
	store, _ := newDiskStore(t, 8)

	_, err := store.Save(context.Background(), "big.zip", "application/zip", 100, strings.NewReader("x"))
	if !errors.Is(err, upload.ErrTooLarge) {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}
}

func TestDiskRejectsOversizedActualBytes(t *testing.T) {
	store, dir := newDiskStore(t, 8)

	// Declared size lies; the byte count is what gets enforced.
	_, err := store.Save(context.Background(), "big.zip", "application/zip", 4, strings.NewReader("way more than eight"))
	if !errors.Is(err, upload.ErrTooLarge) {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected upload left %d files behind", len(entries))
	}
}

func TestDiskClaimSurvivesRestart(t *testing.T) {
	store, dir := newDiskStore(t, 0)
	ctx := context.Background()

	id, err := store.Save(ctx, "deck.zip", "application/zip", 3, strings.NewReader("zip"))
	if err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same directory only has the sidecars.
	reopened, err := upload.NewDiskStore(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	f, err := reopened.Claim(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if f.Filename != "deck.zip" {
		t.Errorf("metadata lost across restart: %+v", f)
	}
}

func TestDiskCleanupRemovesExpired(t *testing.T) {
	store, dir := newDiskStore(t, 0)
	ctx := context.Background()

	id, err := store.Save(ctx, "old.zip", "application/zip", 3, strings.NewReader("old"))
	if err != nil {
		t.Fatal(err)
	}

	// Age the entry on disk.
	past := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{id, id + ".meta"} {
		if err := os.Chtimes(filepath.Join(dir, name), past, past); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.Cleanup(ctx, time.Hour); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Claim(ctx, id); !errors.Is(err, upload.ErrNotFound) {
		t.Fatalf("expired entry still claimable: %v", err)
	}
}

func TestDiskCleanupKeepsFresh(t *testing.T) {
	store, _ := newDiskStore(t, 0)
	ctx := context.Background()

	id, err := store.Save(ctx, "fresh.zip", "application/zip", 5, strings.NewReader("fresh"))
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Cleanup(ctx, time.Hour); err != nil {
		t.Fatal(err)
	}

	f, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatalf("fresh entry was swept: %v", err)
	}
	f.Close()
}
