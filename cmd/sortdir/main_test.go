package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"sortdir/internal/faults"
	"sortdir/internal/journal"
	"sortdir/internal/organizer"
	"sortdir/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	root       string
}

func setupCLITestEnv(t *testing.T, extra string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[workers]
walk = 4
relocate = 4

[logging]
level = "error"
%s`, filepath.Join(base, "state"), filepath.Join(base, "state", "logs"), extra)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := t.TempDir()
	testsupport.Tree(t, root, map[string]string{
		"a/photo.JPG":       "img",
		"a/b/song.mp3":      "mp3",
		"notes.txt":         "txt",
		"c/d/e/movie.mkv":   "mkv",
		"c/d/mystery.bin":   "bin",
		"empty/nested/dir/": "",
	})

	return &cliTestEnv{baseDir: base, configPath: configPath, root: root}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

var organizedTree = []string{
	"Unknown/",
	"Unknown/mystery.bin",
	"audio/",
	"audio/song.mp3",
	"documents/",
	"documents/notes.txt",
	"images/",
	"images/photo.JPG",
	"video/",
	"video/movie.mkv",
}

func TestCLIRunOrganizesTree(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"run", env.root}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "Images")
	requireContains(t, out, "Discovered 5 files, moved 5")

	if got := testsupport.Snapshot(t, env.root); !slices.Equal(got, organizedTree) {
		t.Fatalf("unexpected tree %v", got)
	}
}

func TestCLIRunJSON(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"run", "--json", env.root}, env.configPath)
	if err != nil {
		t.Fatalf("run --json: %v", err)
	}
	var report organizer.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Status != journal.StatusCompleted {
		t.Fatalf("unexpected status %q", report.Status)
	}
	if report.Discovered != 5 || report.Moved != 5 {
		t.Fatalf("unexpected counts discovered=%d moved=%d", report.Discovered, report.Moved)
	}
	if report.Categories["Unknown"] != 1 || report.Categories["images"] != 1 {
		t.Fatalf("unexpected categories %v", report.Categories)
	}
	if len(report.Pruned) == 0 {
		t.Fatal("expected pruned directories in report")
	}
}

func TestCLIRunDryRunLeavesTree(t *testing.T) {
	env := setupCLITestEnv(t, "")
	before := testsupport.Snapshot(t, env.root)

	out, _, err := runCLI(t, []string{"run", "--dry-run", env.root}, env.configPath)
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	requireContains(t, out, "Dry run")
	requireContains(t, out, "would move 5")

	if got := testsupport.Snapshot(t, env.root); !slices.Equal(got, before) {
		t.Fatalf("dry run changed the tree: %v", got)
	}
}

func TestCLIRunNoPrune(t *testing.T) {
	env := setupCLITestEnv(t, "")

	if _, _, err := runCLI(t, []string{"run", "--no-prune", env.root}, env.configPath); err != nil {
		t.Fatalf("run --no-prune: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.root, "empty", "nested", "dir")); err != nil {
		t.Fatalf("empty directory should remain: %v", err)
	}
}

func TestCLIRunMissingRoot(t *testing.T) {
	env := setupCLITestEnv(t, "")

	_, _, err := runCLI(t, []string{"run", filepath.Join(env.baseDir, "missing")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if !errors.Is(err, faults.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if code := exitCode(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestCLIRunRejectsBadWorkerOverride(t *testing.T) {
	env := setupCLITestEnv(t, "")

	_, _, err := runCLI(t, []string{"run", "--relocate-workers=-3", env.root}, env.configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCLIHistory(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	out, _, err = runCLI(t, []string{"run", "--json", env.root}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var report organizer.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, report.RunID[:8])
	requireContains(t, out, journal.StatusCompleted)

	out, _, err = runCLI(t, []string{"history", "--json", "--entries", report.RunID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history detail: %v", err)
	}
	var detail runDetail
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode detail: %v\n%s", err, out)
	}
	if detail.ID != report.RunID || detail.Moved != 5 || len(detail.Entries) != 5 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	_, _, err = runCLI(t, []string{"history", "ffffffff-nope"}, env.configPath)
	if !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCLIHistoryJournalDisabled(t *testing.T) {
	env := setupCLITestEnv(t, "\n[journal]\nenabled = false\n")

	if _, _, err := runCLI(t, []string{"run", env.root}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	_, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err == nil {
		t.Fatal("expected error with journal disabled")
	}
	requireContains(t, err.Error(), "disabled")
}

func TestCLIClassify(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"classify", "--json", "a/b/Photo.PNG", "clip.mov", "README", "data.tar"}, env.configPath)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var results []classification
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"images", "video", "Unknown", "archives"}
	if len(results) != len(want) {
		t.Fatalf("unexpected results %+v", results)
	}
	for i, r := range results {
		if r.Category != want[i] {
			t.Fatalf("%s: expected %s, got %s", r.Name, want[i], r.Category)
		}
	}

	out, _, err = runCLI(t, []string{"classify", "song.MP3"}, env.configPath)
	if err != nil {
		t.Fatalf("classify table: %v", err)
	}
	requireContains(t, out, "audio/")
}

func TestCLIConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t, "")
	target := filepath.Join(env.baseDir, "generated", "sortdir.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	requireContains(t, out, filepath.Join(env.baseDir, "state"))
}

func TestCLIConfigValidateRejectsBadConfig(t *testing.T) {
	env := setupCLITestEnv(t, "\n[archives]\nunsupported_policy = \"explode\"\n")

	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	requireContains(t, err.Error(), "invalid configuration")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"partial", &partialError{failures: 3}, 2},
		{"wrapped partial", fmt.Errorf("run: %w", &partialError{failures: 1}), 2},
		{"canceled", context.Canceled, 1},
		{"fatal", errors.New("boom"), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode = %d, want %d", got, tc.want)
			}
		})
	}
}
