// Package snapshot provides an immutable view of a repository's source files.
// A Snapshot is loaded once, read by any number of concurrent analyzers, and
// discarded when the run completes.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/src-d/enry/v2"
)

// ErrEmptySnapshot is returned when a snapshot contains no analyzable files.
var ErrEmptySnapshot = errors.New("snapshot contains no files")

// MaxFileSize is the per-file size cap. Files larger than this are skipped
// during loading so a single generated artifact cannot dominate a run.
const MaxFileSize = 2 << 20 // 2 MiB

// skippedDirs are directory names never descended into.
var skippedDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	".venv":        {},
	"venv":         {},
	"__pycache__":  {},
}

// File is one source file inside a snapshot. Content is owned by the
// snapshot and must not be mutated.
type File struct {
	// Path is the slash-separated path relative to the snapshot root.
	Path string

	// Content is the raw file bytes.
	Content []byte

	// Size is len(Content) in bytes.
	Size int64

	// Language is the detected language name, empty when unknown.
	Language string
}

// Snapshot is an immutable set of source files. Safe for concurrent reads;
// nothing in it changes after Load returns.
type Snapshot struct {
	root  string
	files []File
	total int64
}

// Load walks root and collects source files into a snapshot. VCS metadata,
// vendored trees, binaries, and files over MaxFileSize are skipped. Files
// are sorted by path so two loads of the same tree are identical.
func Load(root string) (*Snapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot root: %w", err)
	}

	info, statErr := os.Stat(absRoot)
	if statErr != nil {
		return nil, fmt.Errorf("stat snapshot root: %w", statErr)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot root %s: not a directory", absRoot)
	}

	snap := &Snapshot{root: absRoot}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries below the root are skipped like unreadable
			// files; only a failure on the root itself aborts the load.
			if path == absRoot {
				return err
			}

			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip && path != absRoot {
				return filepath.SkipDir
			}

			return nil
		}

		return snap.addFile(absRoot, path, d)
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, walkErr)
	}

	if len(snap.files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySnapshot, absRoot)
	}

	sort.Slice(snap.files, func(i, j int) bool {
		return snap.files[i].Path < snap.files[j].Path
	})

	return snap, nil
}

// addFile reads one regular file and appends it to the snapshot.
// Oversized, unreadable, and binary files are skipped silently.
func (snap *Snapshot) addFile(root, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil || !info.Mode().IsRegular() || info.Size() > MaxFileSize {
		return nil //nolint:nilerr // unreadable entries are skipped, not fatal.
	}

	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil //nolint:nilerr // racing deletes are skipped, not fatal.
	}

	if enry.IsBinary(content) {
		return nil
	}

	rel, relErr := filepath.Rel(root, path)
	if relErr != nil {
		return fmt.Errorf("relativize %s: %w", path, relErr)
	}

	rel = filepath.ToSlash(rel)

	snap.files = append(snap.files, File{
		Path:     rel,
		Content:  content,
		Size:     int64(len(content)),
		Language: enry.GetLanguage(filepath.Base(path), content),
	})
	snap.total += int64(len(content))

	return nil
}

// FromFiles builds a snapshot directly from in-memory files. Used by tests
// and by callers that already hold file content. Files are sorted by path;
// language is detected when unset.
func FromFiles(root string, files []File) (*Snapshot, error) {
	if len(files) == 0 {
		return nil, ErrEmptySnapshot
	}

	copied := make([]File, len(files))
	copy(copied, files)

	var total int64

	for i := range copied {
		copied[i].Size = int64(len(copied[i].Content))
		total += copied[i].Size

		if copied[i].Language == "" {
			copied[i].Language = enry.GetLanguage(filepath.Base(copied[i].Path), copied[i].Content)
		}
	}

	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Path < copied[j].Path
	})

	return &Snapshot{root: root, files: copied, total: total}, nil
}

// Root returns the absolute path the snapshot was loaded from.
func (snap *Snapshot) Root() string {
	return snap.root
}

// Files returns the snapshot's files in path order. Callers must not mutate
// the returned slice or the file contents.
func (snap *Snapshot) Files() []File {
	return snap.files
}

// Len returns the number of files in the snapshot.
func (snap *Snapshot) Len() int {
	return len(snap.files)
}

// TotalSize returns the sum of all file sizes in bytes.
func (snap *Snapshot) TotalSize() int64 {
	return snap.total
}

// Identity returns a short identifier for the repository: the base name of
// the root directory.
func (snap *Snapshot) Identity() string {
	return filepath.Base(strings.TrimRight(snap.root, string(filepath.Separator)))
}
