package prune_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"sortdir/internal/faults"
	"sortdir/internal/prune"
	"sortdir/internal/testsupport"
)

func TestPruneRemovesEmptyBranchesBottomUp(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"old/":               "",
		"deep/a/b/c/":        "",
		"mixed/empty/":       "",
		"mixed/keep.txt":     "k",
		"images/a.jpg":       "a",
		"video/":             "",
		"nested/images/":     "",
		"nested/sub/d.xyz":   "d",
		"nested/sub/gone/x/": "",
	})

	result, err := prune.New(prune.Options{}).Prune(context.Background(), root)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	want := []string{
		"images/", "images/a.jpg",
		"mixed/", "mixed/keep.txt",
		"nested/", "nested/sub/", "nested/sub/d.xyz",
	}
	if got := testsupport.Snapshot(t, root); !slices.Equal(got, want) {
		t.Fatalf("unexpected tree:\n got %v\nwant %v", got, want)
	}
	if !slices.Contains(result.Removed, filepath.Join(root, "deep", "a", "b", "c")) ||
		!slices.Contains(result.Removed, filepath.Join(root, "deep")) {
		t.Fatalf("expected nested chain removed, got %v", result.Removed)
	}
	if !slices.IsSorted(result.Removed) {
		t.Fatal("expected sorted removals")
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root must survive: %v", err)
	}
}

func TestPruneEmptyRootSurvives(t *testing.T) {
	root := t.TempDir()
	result, err := prune.New(prune.Options{}).Prune(context.Background(), root)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(result.Removed) != 0 {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root must survive: %v", err)
	}
}

func TestPruneProtectsTopLevelCategories(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"video/":        "",
		"audio/":        "",
		"old/":          "",
		"nested/video/": "",
	})

	_, err := prune.New(prune.Options{Protect: []string{"video", "audio"}}).Prune(context.Background(), root)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if got := testsupport.Snapshot(t, root); !slices.Equal(got, []string{"audio/", "video/"}) {
		t.Fatalf("unexpected tree %v", got)
	}
}

func TestPruneHonorsExclusions(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		".state/locks/": "",
		"old/":          "",
	})

	_, err := prune.New(prune.Options{Exclude: []string{filepath.Join(root, ".state")}}).Prune(context.Background(), root)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if got := testsupport.Snapshot(t, root); !slices.Equal(got, []string{".state/", ".state/locks/"}) {
		t.Fatalf("unexpected tree %v", got)
	}
}

func TestPruneDryRun(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"old/":          "",
		"sub/a.jpg":     "a",
		"stay/keep.txt": "k",
	})
	before := testsupport.Snapshot(t, root)

	result, err := prune.New(prune.Options{
		DryRun:  true,
		Vacated: map[string]struct{}{filepath.Join(root, "sub", "a.jpg"): {}},
	}).Prune(context.Background(), root)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if after := testsupport.Snapshot(t, root); !slices.Equal(before, after) {
		t.Fatalf("dry run changed the tree: %v", after)
	}
	want := []string{filepath.Join(root, "old"), filepath.Join(root, "sub")}
	if !slices.Equal(result.Removed, want) {
		t.Fatalf("removable = %v, want %v", result.Removed, want)
	}
}

func TestPruneUnreadableDirectory(t *testing.T) {
	testsupport.RequireUnprivileged(t)
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"locked/inner/": "",
		"old/":          "",
	})
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	result, err := prune.New(prune.Options{}).Prune(context.Background(), root)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(result.Failures) != 1 || !errors.Is(result.Failures[0].Err, faults.ErrTraversalSkip) {
		t.Fatalf("expected one traversal skip, got %v", result.Failures)
	}
	if _, err := os.Stat(filepath.Join(root, "old")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("sibling branch should still be pruned")
	}
	if _, err := os.Stat(locked); err != nil {
		t.Fatalf("unreadable directory must be left: %v", err)
	}
}

func TestPruneCanceled(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{"old/": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := prune.New(prune.Options{}).Prune(ctx, root)
	if !errors.Is(err, faults.ErrCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(root, "old")); statErr != nil {
		t.Fatal("nothing should be removed after cancellation")
	}
}
