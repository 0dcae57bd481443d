package fileutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestDirCacheEnsureConcurrent(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "images")
	cache := NewDirCache(0)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- cache.Ensure(target)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s: %v", target, err)
	}
}

func TestDirCacheRejectsFile(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "images")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewDirCache(4).Ensure(blocker); err == nil {
		t.Fatal("expected error when a file occupies the directory path")
	}
}

func TestDirCacheForget(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "audio")
	cache := NewDirCache(4)
	if err := cache.Ensure(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(dir); err != nil {
		t.Fatal(err)
	}
	cache.Forget(dir)
	if err := cache.Ensure(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected directory recreated: %v", err)
	}
}
