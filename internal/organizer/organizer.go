// Package organizer moves a finished torrent's files into the movie library.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Organizer places completed downloads into {libraryRoot}/{name}/.
type Organizer struct {
	libraryRoot   string
	downloadsRoot string
	rename        func(oldpath, newpath string) error
	log           *slog.Logger
}

// New creates an organizer for the given library and downloads roots.
func New(libraryRoot, downloadsRoot string, log *slog.Logger) *Organizer {
	return &Organizer{
		libraryRoot:   libraryRoot,
		downloadsRoot: downloadsRoot,
		rename:        os.Rename,
		log:           log.With("component", "organizer"),
	}
}

// Place moves the movie and subtitle files into the library folder for name,
// renamed to share its stem, then removes everything the torrent wrote under
// downloadDir. files are paths relative to downloadDir as the daemon reports them.
func (o *Organizer) Place(ctx context.Context, name, downloadDir string, files []string) error {
	if filepath.Clean(downloadDir) != filepath.Clean(o.downloadsRoot) {
		return fmt.Errorf("%w: got %q, want %q", ErrDownloadDirMismatch, downloadDir, o.downloadsRoot)
	}

	plan, err := Plan(name, files)
	if err != nil {
		return err
	}
	for _, p := range plan {
		if err := validatePath(filepath.Join(downloadDir, p.File), downloadDir); err != nil {
			return fmt.Errorf("%s: %w", p.File, err)
		}
	}

	folder := filepath.Join(o.libraryRoot, SanitizeName(name))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("create movie folder: %w", err)
	}

	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.Class == ClassJunk {
			continue
		}
		src := filepath.Join(downloadDir, p.File)
		dst := filepath.Join(folder, p.Dest)
		if err := o.move(src, dst); err != nil {
			return fmt.Errorf("place %s: %w", p.File, err)
		}
		o.log.Debug("file placed", "file", p.File, "class", p.Class.String(), "dest", dst)
	}

	for _, top := range topLevel(plan) {
		target := filepath.Join(downloadDir, top)
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("remove download output %s: %w", top, err)
		}
	}

	o.log.Info("download organized", "name", name, "folder", folder, "files", len(plan))
	return nil
}

// move renames src to dst, copying across devices. A missing source whose
// destination already exists counts as placed, so a retried placement resumes.
func (o *Organizer) move(src, dst string) error {
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		if _, derr := os.Stat(dst); derr == nil {
			return nil
		}
		return fmt.Errorf("source missing: %w", err)
	}
	if _, err := os.Stat(dst); err == nil {
		return ErrDestinationExists
	}

	err := o.rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if _, err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// topLevel returns the distinct first path elements of the torrent's files,
// i.e. what the torrent created directly inside the download directory.
func topLevel(plan []Placement) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range plan {
		rel := filepath.Clean(filepath.FromSlash(p.File))
		top := strings.SplitN(rel, string(filepath.Separator), 2)[0]
		if top == "." || top == ".." || top == "" || seen[top] {
			continue
		}
		seen[top] = true
		out = append(out, top)
	}
	return out
}

// validatePath ensures path stays within root.
func validatePath(path, root string) error {
	cleanPath := filepath.Clean(path)
	cleanRoot := filepath.Clean(root)
	prefix := cleanRoot
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if cleanPath == cleanRoot || !strings.HasPrefix(cleanPath, prefix) {
		return ErrPathTraversal
	}
	return nil
}

// CopyFile copies src to dst, refusing to overwrite an existing file.
func CopyFile(src, dst string) (int64, error) {
	if _, err := os.Stat(dst); err == nil {
		return 0, ErrDestinationExists
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("%w: create directory: %v", ErrCopyFailed, err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: open source: %v", ErrCopyFailed, err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("%w: create destination: %v", ErrCopyFailed, err)
	}
	defer func() { _ = dstFile.Close() }()

	size, err := io.Copy(dstFile, srcFile)
	if err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("%w: copy content: %v", ErrCopyFailed, err)
	}
	if err := dstFile.Sync(); err != nil {
		return 0, fmt.Errorf("%w: sync: %v", ErrCopyFailed, err)
	}
	return size, nil
}
