package slc

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ligustah/slcflow/internal/batch"
	"github.com/ligustah/slcflow/internal/discover"
	"github.com/ligustah/slcflow/internal/progress"
	"github.com/ligustah/slcflow/internal/tasklog"
)

// ArchivePattern matches Sentinel-1 archives in a download directory.
var ArchivePattern = discover.Pattern{Prefix: "S1", Suffix: ".zip"}

// ErrUnsafePath is returned for archive entries that would be written
// outside the target directory.
var ErrUnsafePath = errors.New("archive entry escapes target directory")

// Archive is one SLC zip file.
type Archive struct {
	Path    string
	Product string
}

// SafeDir is the directory name the archive extracts to.
func (a Archive) SafeDir() string {
	return a.Product + ".SAFE"
}

// TaskID names the extraction task and its log file.
func (a Archive) TaskID() string {
	return "unzip_" + a.Product
}

// FindArchives lists the S1*.zip archives in dir, sorted by name.
func FindArchives(dir string) ([]Archive, error) {
	files, err := discover.Files(dir, ArchivePattern)
	if err != nil {
		return nil, err
	}
	archives := make([]Archive, 0, len(files))
	for _, f := range files {
		archives = append(archives, Archive{Path: f, Product: ProductName(f)})
	}
	return archives, nil
}

// UniqueProducts drops archives that would extract to the same SAFE
// directory or write the same task log as an earlier archive. Archives are
// taken in the given order, so with FindArchives the first by name wins.
func UniqueProducts(archives []Archive) (unique, duplicates []Archive) {
	seen := make(map[string]bool, len(archives))
	for _, a := range archives {
		key := tasklog.FileName(a.TaskID())
		if seen[a.SafeDir()] || seen[key] {
			duplicates = append(duplicates, a)
			continue
		}
		seen[a.SafeDir()] = true
		seen[key] = true
		unique = append(unique, a)
	}
	return unique, duplicates
}

// Extractor builds extraction tasks for a target directory.
type Extractor struct {
	TargetDir string

	// Progress, when set, receives extracted byte counts.
	Progress *progress.Reporter
}

// Tasks returns one task per archive. Archives whose SAFE directory already
// exists in the target directory are marked as skipped.
func (e *Extractor) Tasks(archives []Archive) []batch.Task {
	tasks := make([]batch.Task, 0, len(archives))
	for _, a := range archives {
		t := batch.Task{ID: a.TaskID()}
		if info, err := os.Stat(filepath.Join(e.TargetDir, a.SafeDir())); err == nil && info.IsDir() {
			t.SkipReason = "already extracted: " + a.SafeDir()
		} else {
			t.Action = func(ctx context.Context, log *tasklog.Log) error {
				return e.extract(ctx, a, log)
			}
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// extract unpacks one archive into the target directory. A partially
// extracted SAFE directory is removed on failure.
func (e *Extractor) extract(ctx context.Context, a Archive, log *tasklog.Log) (err error) {
	safeDir := filepath.Join(e.TargetDir, a.SafeDir())

	defer func() {
		if err == nil {
			return
		}
		if _, statErr := os.Stat(safeDir); statErr == nil {
			if rmErr := os.RemoveAll(safeDir); rmErr != nil {
				log.Printf("Failed to clean up partial extraction %s: %v", safeDir, rmErr)
			} else {
				log.Printf("Cleaned up partial extraction: %s", a.SafeDir())
			}
		}
	}()

	log.Printf("unzip_%s:", filepath.Base(a.Path))

	r, err := zip.OpenReader(a.Path)
	if errors.Is(err, zip.ErrInsecurePath) {
		r.Close()
		return fmt.Errorf("%w: %s", ErrUnsafePath, filepath.Base(a.Path))
	}
	if err != nil {
		return fmt.Errorf("open archive %s: %w", filepath.Base(a.Path), err)
	}
	defer r.Close()

	total := len(r.File)
	log.Printf("Total files to extract: %d", total)
	log.Printf("Extracting files:")

	for i, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Progress(i+1, total, f.Name)

		n, err := extractFile(f, e.TargetDir)
		if err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
		if e.Progress != nil {
			e.Progress.AddBytes(n)
		}
	}

	if _, err := os.Stat(safeDir); err != nil {
		log.Printf("Warning: archive did not contain %s; re-runs will extract it again", a.SafeDir())
	}
	log.Printf("Extraction completed successfully.")
	return nil
}

// extractFile writes one zip entry below targetDir and returns the number
// of bytes written.
func extractFile(f *zip.File, targetDir string) (int64, error) {
	name := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(name) {
		return 0, fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
	}
	dest := filepath.Join(targetDir, name)

	mode := f.Mode()
	switch {
	case mode.IsDir() || strings.HasSuffix(f.Name, "/"):
		return 0, os.MkdirAll(dest, 0755)
	case mode&os.ModeSymlink != 0:
		return 0, fmt.Errorf("symbolic links are not supported: %s", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}

	src, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n, err
}
