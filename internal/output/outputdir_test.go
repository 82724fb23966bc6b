package output

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spiegelsync/spiegel/internal/report"
)

// yesNoPrompter is a test Prompter returning a fixed answer.
type yesNoPrompter struct {
	answer bool
	asked  int
}

// YesNo implements Prompter.
func (p *yesNoPrompter) YesNo(_ context.Context, _ string, _ bool) (bool, error) {
	p.asked++
	return p.answer, nil
}

// newTestDirectory creates a prepared Directory in a temp dir.
func newTestDirectory(t *testing.T, root string, redownload Redownload, onConflict OnConflict, opts ...Option) *Directory {
	t.Helper()

	d := NewDirectory(root, redownload, onConflict, opts...)
	if err := d.Prepare(); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if err := d.LoadPrevReport(context.Background()); err != nil {
		t.Fatalf("load prev report failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// download runs one full approved download through the sink.
func download(t *testing.T, d *Directory, path, content string, mtime time.Time) {
	t.Helper()

	tok, err := d.Download(context.Background(), path, mtime, nil, nil)
	if err != nil {
		t.Fatalf("download %s failed: %v", path, err)
	}
	if tok == nil {
		t.Fatalf("download %s was declined", path)
	}

	sink, err := tok.Open()
	if err != nil {
		t.Fatalf("open sink for %s failed: %v", path, err)
	}
	if _, err := io.WriteString(sink, content); err != nil {
		t.Fatalf("write %s failed: %v", path, err)
	}
	if err := sink.Commit(); err != nil {
		t.Fatalf("commit %s failed: %v", path, err)
	}
}

// finishRun persists the ledger and closes the directory.
func finishRun(t *testing.T, d *Directory) {
	t.Helper()

	if err := d.StoreReport(context.Background()); err != nil {
		t.Fatalf("store report failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

// TestDownloadFreshFile tests approval when no local file exists.
func TestDownloadFreshFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d := newTestDirectory(t, root, RedownloadNeverSmart, OnConflictSkip)

	download(t, d, "a/b.txt", "hello", time.Time{})

	data, err := os.ReadFile(filepath.Join(root, "a", "b.txt"))
	if err != nil {
		t.Fatalf("committed file missing: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected %q, got %q", "hello", string(data))
	}
	if !d.Report().Contains("a/b.txt") {
		t.Error("expected ledger entry for the downloaded path")
	}
}

// TestDownloadDuplicate tests the at-most-one-writer guarantee.
func TestDownloadDuplicate(t *testing.T) {
	t.Parallel()

	var warnings []error
	d := newTestDirectory(t, t.TempDir(), RedownloadAlways, OnConflictSkip,
		WithWarningHandler(func(err error) { warnings = append(warnings, err) }))

	first, err := d.Download(context.Background(), "same.txt", time.Time{}, nil, nil)
	if err != nil || first == nil {
		t.Fatalf("first download should be approved, got tok=%v err=%v", first, err)
	}

	second, err := d.Download(context.Background(), "same.txt", time.Time{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != nil {
		t.Error("second download for the same path must be declined")
	}

	if len(warnings) != 1 || !errors.Is(warnings[0], report.ErrDuplicatePath) {
		t.Errorf("expected one duplicate warning, got %v", warnings)
	}
	if d.Report().Len() != 1 {
		t.Errorf("expected one ledger entry, got %d", d.Report().Len())
	}
}

// TestRedownloadPolicies tests policy decisions for explained local files.
func TestRedownloadPolicies(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	// seedRun downloads one file with mtime t1 and persists the ledger,
	// so follow-up runs see it as explained local content.
	seedRun := func(t *testing.T) string {
		root := t.TempDir()
		d := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)
		download(t, d, "file.txt", "v1", t1)
		finishRun(t, d)
		return root
	}

	tests := []struct {
		name    string
		policy  Redownload
		mtime   time.Time
		approve bool
	}{
		{name: "never declines even for newer mtime", policy: RedownloadNever, mtime: t2, approve: false},
		{name: "never-smart declines for equal mtime", policy: RedownloadNeverSmart, mtime: t1, approve: false},
		{name: "never-smart approves for strictly newer mtime", policy: RedownloadNeverSmart, mtime: t2, approve: true},
		{name: "never-smart declines without supplied mtime", policy: RedownloadNeverSmart, mtime: time.Time{}, approve: false},
		{name: "always approves for equal mtime", policy: RedownloadAlways, mtime: t1, approve: true},
		{name: "always-smart declines for equal mtime", policy: RedownloadAlwaysSmart, mtime: t1, approve: false},
		{name: "always-smart approves for differing mtime", policy: RedownloadAlwaysSmart, mtime: t2, approve: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := seedRun(t)
			d := newTestDirectory(t, root, tt.policy, OnConflictSkip)

			tok, err := d.Download(context.Background(), "file.txt", tt.mtime, nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (tok != nil) != tt.approve {
				t.Errorf("approve = %v, want %v", tok != nil, tt.approve)
			}
		})
	}

	t.Run("explicit override beats section default", func(t *testing.T) {
		t.Parallel()

		root := seedRun(t)
		d := newTestDirectory(t, root, RedownloadNever, OnConflictSkip)

		always := RedownloadAlways
		tok, err := d.Download(context.Background(), "file.txt", t1, &always, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok == nil {
			t.Error("override to always should approve")
		}
	})
}

// TestConflictResolution tests handling of unexplained local content.
func TestConflictResolution(t *testing.T) {
	t.Parallel()

	// foreignFile creates local content with no ledger entry behind it.
	foreignFile := func(t *testing.T, root string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(root, "foreign.txt"), []byte("local edit"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("overwrite replaces and marks conflict", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		var warnings []error
		d := newTestDirectory(t, root, RedownloadNever, OnConflictOverwrite,
			WithWarningHandler(func(err error) { warnings = append(warnings, err) }))
		foreignFile(t, root)

		download(t, d, "foreign.txt", "remote content", time.Time{})

		data, err := os.ReadFile(filepath.Join(root, "foreign.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "remote content" {
			t.Errorf("expected replacement, got %q", string(data))
		}
		if e := d.Report().Entries()[0]; !e.Conflict {
			t.Error("expected conflict marking")
		}
		if len(warnings) == 0 {
			t.Error("expected a conflict warning")
		}
	})

	t.Run("skip keeps local content and declines", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		d := newTestDirectory(t, root, RedownloadNever, OnConflictSkip)
		foreignFile(t, root)

		tok, err := d.Download(context.Background(), "foreign.txt", time.Time{}, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok != nil {
			t.Error("skip policy must decline")
		}

		data, err := os.ReadFile(filepath.Join(root, "foreign.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "local edit" {
			t.Errorf("local content must be retained, got %q", string(data))
		}
		if e := d.Report().Entries()[0]; !e.Conflict {
			t.Error("expected conflict marking even on skip")
		}
	})

	t.Run("prompt acts on the user's answer", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		prompter := &yesNoPrompter{answer: true}
		d := newTestDirectory(t, root, RedownloadNever, OnConflictPrompt, WithPrompter(prompter))
		foreignFile(t, root)

		tok, err := d.Download(context.Background(), "foreign.txt", time.Time{}, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok == nil {
			t.Error("expected approval after a yes answer")
		}
		if prompter.asked != 1 {
			t.Errorf("expected exactly one prompt, got %d", prompter.asked)
		}
	})
}

// TestUnsafePaths tests that escaping destinations are declined.
func TestUnsafePaths(t *testing.T) {
	t.Parallel()

	var warnings []error
	d := newTestDirectory(t, t.TempDir(), RedownloadAlways, OnConflictSkip,
		WithWarningHandler(func(err error) { warnings = append(warnings, err) }))

	for _, p := range []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd", ".."} {
		tok, err := d.Download(context.Background(), p, time.Time{}, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", p, err)
		}
		if tok != nil {
			t.Errorf("path %q must be declined", p)
		}
	}

	if len(warnings) != 4 {
		t.Errorf("expected 4 warnings, got %d", len(warnings))
	}
	for _, w := range warnings {
		if !errors.Is(w, ErrUnsafePath) {
			t.Errorf("expected ErrUnsafePath, got %v", w)
		}
	}
}

// TestReservedPaths tests that the ledger database cannot be written
// through the download path.
func TestReservedPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var warnings []error
	d := newTestDirectory(t, root, RedownloadAlways, OnConflictOverwrite,
		WithWarningHandler(func(err error) { warnings = append(warnings, err) }))

	for _, p := range []string{
		report.StoreFileName,
		report.StoreFileName + "/nested.txt",
		"sub/../" + report.StoreFileName,
	} {
		tok, err := d.Download(context.Background(), p, time.Time{}, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", p, err)
		}
		if tok != nil {
			t.Errorf("path %q must be declined", p)
		}
	}

	if len(warnings) != 3 {
		t.Errorf("expected 3 warnings, got %d", len(warnings))
	}
	for _, w := range warnings {
		if !errors.Is(w, ErrReservedPath) {
			t.Errorf("expected ErrReservedPath, got %v", w)
		}
	}

	// The live ledger must still be usable afterwards.
	download(t, d, "normal.txt", "n", time.Time{})
	finishRun(t, d)

	verify := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)
	if prev := verify.PrevReport(); prev == nil || !prev.Contains("normal.txt") {
		t.Error("ledger database was damaged by reserved-path downloads")
	}
}

// TestSink tests staging and atomic commit behavior.
func TestSink(t *testing.T) {
	t.Parallel()

	t.Run("abort leaves no trace", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		d := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)

		tok, err := d.Download(context.Background(), "doomed.txt", time.Time{}, nil, nil)
		if err != nil || tok == nil {
			t.Fatalf("expected approval, got tok=%v err=%v", tok, err)
		}

		sink, err := tok.Open()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := io.WriteString(sink, "partial"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sink.Abort()

		if _, err := os.Stat(filepath.Join(root, "doomed.txt")); !os.IsNotExist(err) {
			t.Error("aborted download must not create the destination")
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if e.Name() != report.StoreFileName {
				t.Errorf("unexpected leftover %s", e.Name())
			}
		}
	})

	t.Run("abort after commit is a no-op", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		d := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)

		tok, err := d.Download(context.Background(), "kept.txt", time.Time{}, nil, nil)
		if err != nil || tok == nil {
			t.Fatalf("expected approval, got tok=%v err=%v", tok, err)
		}
		sink, err := tok.Open()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := io.WriteString(sink, "content"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := sink.Commit(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sink.Abort()

		if _, err := os.Stat(filepath.Join(root, "kept.txt")); err != nil {
			t.Errorf("committed file must survive a late abort: %v", err)
		}
	})

	t.Run("commit applies the modification time", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		d := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)
		mtime := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

		download(t, d, "dated.txt", "x", mtime)

		info, err := os.Stat(filepath.Join(root, "dated.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if !info.ModTime().Equal(mtime) {
			t.Errorf("expected mtime %v, got %v", mtime, info.ModTime())
		}
	})
}

// TestCleanup tests stale-file deletion against the previous ledger.
func TestCleanup(t *testing.T) {
	t.Parallel()

	t.Run("deletes only stale paths and prunes empty dirs", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		run1 := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)
		download(t, run1, "keep.txt", "k", time.Time{})
		download(t, run1, "old/dir/gone.txt", "g", time.Time{})
		finishRun(t, run1)

		run2 := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)
		download(t, run2, "keep.txt", "k2", time.Time{})
		if err := run2.Cleanup(context.Background()); err != nil {
			t.Fatalf("cleanup failed: %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "keep.txt")); err != nil {
			t.Errorf("kept file must survive cleanup: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "old", "dir", "gone.txt")); !os.IsNotExist(err) {
			t.Error("stale file must be deleted")
		}
		if _, err := os.Stat(filepath.Join(root, "old")); !os.IsNotExist(err) {
			t.Error("emptied directories must be pruned")
		}
	})

	t.Run("first run deletes nothing", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, "untracked.txt"), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}

		d := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)
		if err := d.Cleanup(context.Background()); err != nil {
			t.Fatalf("cleanup failed: %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "untracked.txt")); err != nil {
			t.Errorf("cleanup without a previous ledger must delete nothing: %v", err)
		}
	})

	t.Run("never touches the ledger database", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		run1 := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)
		download(t, run1, "a.txt", "a", time.Time{})
		finishRun(t, run1)

		run2 := newTestDirectory(t, root, RedownloadAlways, OnConflictSkip)
		if err := run2.Cleanup(context.Background()); err != nil {
			t.Fatalf("cleanup failed: %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, report.StoreFileName)); err != nil {
			t.Errorf("ledger database must survive cleanup: %v", err)
		}
	})
}

// TestParsePolicies tests policy string parsing.
func TestParsePolicies(t *testing.T) {
	t.Parallel()

	t.Run("parses all redownload values", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{"never", "never-smart", "always", "always-smart"} {
			if _, err := ParseRedownload(s); err != nil {
				t.Errorf("ParseRedownload(%q) failed: %v", s, err)
			}
		}
		if _, err := ParseRedownload("sometimes"); err == nil {
			t.Error("expected error for unknown policy")
		}
	})

	t.Run("parses all on_conflict values", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{"prompt", "overwrite", "skip"} {
			if _, err := ParseOnConflict(s); err != nil {
				t.Errorf("ParseOnConflict(%q) failed: %v", s, err)
			}
		}
		if _, err := ParseOnConflict("merge"); err == nil {
			t.Error("expected error for unknown policy")
		}
	})
}
