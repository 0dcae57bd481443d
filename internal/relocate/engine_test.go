package relocate_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"

	"sortdir/internal/archive"
	"sortdir/internal/faults"
	"sortdir/internal/relocate"
	"sortdir/internal/testsupport"
)

func paths(root string, rels ...string) []string {
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, filepath.Join(root, filepath.FromSlash(rel)))
	}
	slices.Sort(out)
	return out
}

func TestRelocateMovesIntoCategories(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"a.jpg":          "a",
		"nested/b.MP3":   "bb",
		"c.xyz":          "ccc",
		"deep/x/y/d.pdf": "dddd",
		"README":         "r",
	})
	files := paths(root, "a.jpg", "nested/b.MP3", "c.xyz", "deep/x/y/d.pdf", "README")

	result, err := relocate.New(relocate.Options{Workers: 3}).Relocate(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}
	if result.Moved != 5 || result.Bytes != 11 {
		t.Fatalf("moved %d files / %d bytes", result.Moved, result.Bytes)
	}

	want := []string{
		"Unknown/", "Unknown/README", "Unknown/c.xyz",
		"audio/", "audio/b.MP3",
		"deep/", "deep/x/", "deep/x/y/",
		"documents/", "documents/d.pdf",
		"images/", "images/a.jpg",
		"nested/",
	}
	if got := testsupport.Snapshot(t, root); !slices.Equal(got, want) {
		t.Fatalf("unexpected tree:\n got %v\nwant %v", got, want)
	}
	if result.Categories["Unknown"] != 2 || result.Categories["images"] != 1 {
		t.Fatalf("unexpected category counts %v", result.Categories)
	}
	for _, m := range result.Moves {
		if m.Status != relocate.StatusMoved {
			t.Fatalf("unexpected status for %s: %s", m.Source, m.Status)
		}
	}
}

func TestRelocateExistingDestinationIsCollision(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"images/a.jpg": "original",
		"sub/a.jpg":    "incoming",
	})
	src := filepath.Join(root, "sub", "a.jpg")

	result, err := relocate.New(relocate.Options{}).Relocate(context.Background(), root, []string{src})
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected one failure, got %v", result.Failures)
	}
	failure := result.Failures[0]
	if failure.Kind != "NameCollision" || !errors.Is(failure.Err, faults.ErrNameCollision) {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if got := testsupport.ReadFile(t, root, "images/a.jpg"); got != "original" {
		t.Fatalf("destination overwritten: %q", got)
	}
	if got := testsupport.ReadFile(t, root, "sub/a.jpg"); got != "incoming" {
		t.Fatalf("source should remain: %q", got)
	}
	if result.Moved != 0 || result.Moves[0].Status != relocate.StatusFailed {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRelocateSameNameWithinOnePass(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"x/song.mp3": "x",
		"y/song.mp3": "y",
		"z/song.mp3": "z",
	})
	files := paths(root, "x/song.mp3", "y/song.mp3", "z/song.mp3")

	result, err := relocate.New(relocate.Options{Workers: 8}).Relocate(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if result.Moved != 1 || len(result.Failures) != 2 {
		t.Fatalf("expected 1 move and 2 collisions, got %d moves, failures %v", result.Moved, result.Failures)
	}
	for _, f := range result.Failures {
		if !errors.Is(f.Err, faults.ErrNameCollision) {
			t.Fatalf("expected collision, got %v", f.Err)
		}
	}
	remaining := 0
	for _, rel := range []string{"x/song.mp3", "y/song.mp3", "z/song.mp3"} {
		if _, err := os.Stat(filepath.Join(root, rel)); err == nil {
			remaining++
		}
	}
	if remaining != 2 {
		t.Fatalf("expected two sources left in place, found %d", remaining)
	}
}

func TestRelocateDryRun(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"a.jpg":        "a",
		"b.doc":        "b",
		"images/c.png": "c",
		"sub/c.png":    "c2",
	})
	before := testsupport.Snapshot(t, root)
	files := paths(root, "a.jpg", "b.doc", "sub/c.png")

	result, err := relocate.New(relocate.Options{DryRun: true}).Relocate(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if after := testsupport.Snapshot(t, root); !slices.Equal(before, after) {
		t.Fatalf("dry run changed the tree:\nbefore %v\nafter  %v", before, after)
	}
	if result.Moved != 2 || len(result.Failures) != 1 {
		t.Fatalf("expected 2 planned and 1 collision, got %d / %v", result.Moved, result.Failures)
	}
	for _, m := range result.Moves {
		if m.Source == filepath.Join(root, "a.jpg") && (m.Status != relocate.StatusPlanned || m.Destination != filepath.Join(root, "images", "a.jpg")) {
			t.Fatalf("unexpected plan %+v", m)
		}
	}
}

func TestRelocateVanishedSource(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{"present.txt": "p"})
	files := paths(root, "gone.jpg", "present.txt")

	result, err := relocate.New(relocate.Options{}).Relocate(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if len(result.Failures) != 1 || result.Failures[0].Kind != "RelocationError" {
		t.Fatalf("expected one relocation error, got %v", result.Failures)
	}
	if result.Moved != 1 {
		t.Fatalf("sibling relocation should proceed, moved %d", result.Moved)
	}
	if got := testsupport.ReadFile(t, root, "documents/present.txt"); got != "p" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestRelocateBlockedCategoryFolder(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"audio":     "not a folder",
		"sub/a.mp3": "a",
		"sub/b.jpg": "b",
	})
	files := paths(root, "sub/a.mp3", "sub/b.jpg")

	result, err := relocate.New(relocate.Options{}).Relocate(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if len(result.Failures) != 1 || result.Failures[0].Path != files[0] {
		t.Fatalf("expected a.mp3 to fail, got %v", result.Failures)
	}
	if !errors.Is(result.Failures[0].Err, faults.ErrRelocation) {
		t.Fatalf("expected relocation error, got %v", result.Failures[0].Err)
	}
	if _, err := os.Stat(filepath.Join(root, "images", "b.jpg")); err != nil {
		t.Fatalf("sibling should be relocated: %v", err)
	}
}

func TestRelocateIndependentOfPoolSize(t *testing.T) {
	for _, workers := range []int{1, 2, 7, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			root := t.TempDir()
			var files []string
			for i := range 50 {
				rel := fmt.Sprintf("d%02d/f%02d.%s", i%5, i, []string{"jpg", "mp3", "pdf", "mkv", "zzz"}[i%5])
				testsupport.Tree(t, root, map[string]string{rel: "x"})
				files = append(files, filepath.Join(root, filepath.FromSlash(rel)))
			}

			var progressed atomic.Int64
			engine := relocate.New(relocate.Options{
				Workers:  workers,
				Progress: func(done, total int) { progressed.Add(1) },
			})
			result, err := engine.Relocate(context.Background(), root, files)
			if err != nil {
				t.Fatalf("Relocate: %v", err)
			}
			if result.Moved != 50 || len(result.Failures) != 0 {
				t.Fatalf("moved %d, failures %v", result.Moved, result.Failures)
			}
			if progressed.Load() != 50 {
				t.Fatalf("expected 50 progress callbacks, got %d", progressed.Load())
			}
			for _, cat := range []string{"images", "audio", "documents", "video", "Unknown"} {
				if result.Categories[cat] != 10 {
					t.Fatalf("category %s has %d files", cat, result.Categories[cat])
				}
			}
		})
	}
}

func TestRelocateCanceledBeforeStart(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{"a.jpg": "a", "b.jpg": "b"})
	files := paths(root, "a.jpg", "b.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := relocate.New(relocate.Options{}).Relocate(ctx, root, files)
	if !errors.Is(err, faults.ErrCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if result.Unstarted != 2 || result.Moved != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := testsupport.Snapshot(t, root); !slices.Equal(got, []string{"a.jpg", "b.jpg"}) {
		t.Fatalf("tree changed after cancellation: %v", got)
	}
}

type fakeExpander struct {
	err error
}

func (f fakeExpander) Expand(context.Context, string, string) (int, error) {
	return 0, f.err
}

func TestRelocateUnsupportedArchivePolicy(t *testing.T) {
	unsupported := faults.Wrap(faults.ErrUnsupportedArchive, "expand", "detect format", "x.gz", nil)
	tests := []struct {
		policy   string
		failures int
		notices  int
	}{
		{policy: relocate.UnsupportedKeep, failures: 0, notices: 1},
		{policy: relocate.UnsupportedFail, failures: 1, notices: 0},
	}
	for _, tc := range tests {
		t.Run(tc.policy, func(t *testing.T) {
			root := t.TempDir()
			testsupport.Tree(t, root, map[string]string{"x.gz": "not really"})

			result, err := relocate.New(relocate.Options{
				Expander:          fakeExpander{err: unsupported},
				UnsupportedPolicy: tc.policy,
			}).Relocate(context.Background(), root, paths(root, "x.gz"))
			if err != nil {
				t.Fatalf("Relocate: %v", err)
			}
			if len(result.Failures) != tc.failures || len(result.Notices) != tc.notices {
				t.Fatalf("failures %v notices %v", result.Failures, result.Notices)
			}
			if _, err := os.Stat(filepath.Join(root, "archives", "x.gz")); err != nil {
				t.Fatalf("archive should be moved regardless of policy: %v", err)
			}
			if result.Moved != 1 {
				t.Fatalf("expected the move to count, got %d", result.Moved)
			}
		})
	}
}

func TestRelocateExpandsArchives(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "incoming", "bundle.zip")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("inside/photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("jpeg")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	result, err := relocate.New(relocate.Options{
		Expander: archive.New(archive.Options{}),
	}).Relocate(context.Background(), root, []string{src})
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures %v", result.Failures)
	}
	m := result.Moves[0]
	if m.Status != relocate.StatusExpanded || m.Entries != 1 || m.ExpandedTo != filepath.Join(root, "archives", "bundle") {
		t.Fatalf("unexpected move %+v", m)
	}
	if got := testsupport.ReadFile(t, root, "archives/bundle/inside/photo.jpg"); got != "jpeg" {
		t.Fatalf("unexpected expanded content %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "archives", "bundle.zip")); err != nil {
		t.Fatalf("archive should be kept next to its contents: %v", err)
	}
}
