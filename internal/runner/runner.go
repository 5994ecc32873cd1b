// Package runner abstracts every mutating filesystem operation boom's
// stores perform (profile/entry/cache/legacy writes) behind a single
// interface, so a dry-run mode can log intent instead of touching disk.
package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Runner defines the interface for performing durable filesystem mutations.
// WriteFileAtomic is the only way any store in this module writes a file:
// temp file in the same directory, full content, fdatasync, rename, chmod.
// CopyFileAtomic is the streaming counterpart used by the image cache, which
// moves multi-megabyte kernel/initramfs files without buffering them whole.
type Runner interface {
	WriteFileAtomic(path string, content []byte, perm os.FileMode, description string) error
	CopyFileAtomic(srcPath, dstPath string, perm os.FileMode, description string) error
	Chown(path string, uid, gid int, description string) error
	Remove(path string, description string) error
	MkdirAll(path string, perm os.FileMode, description string) error
	IsDryRun() bool
}

// RealRunner performs operations for real.
type RealRunner struct{}

func (r *RealRunner) WriteFileAtomic(path string, content []byte, perm os.FileMode, description string) error {
	log.Debug().
		Str("path", path).
		Str("description", description).
		Int("size", len(content)).
		Msg("writing file atomically")

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".boom-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file %s: %w", tmpPath, err)
	}
	// Sync flushes file data and metadata; the stdlib has no dedicated
	// fdatasync call, so this is the closest equivalent without adding a
	// golang.org/x/sys dependency for a single syscall.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

// CopyFileAtomic streams srcPath's contents into a temp file in dstPath's
// directory, then syncs, renames, and chmods exactly like WriteFileAtomic,
// without ever holding the whole file in memory (spec.md §4.6's
// copy2-equivalent insert/restore steps).
func (r *RealRunner) CopyFileAtomic(srcPath, dstPath string, perm os.FileMode, description string) error {
	log.Debug().
		Str("src", srcPath).
		Str("dst", dstPath).
		Str("description", description).
		Msg("copying file atomically")

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source file %s: %w", srcPath, err)
	}
	defer src.Close()

	dir := filepath.Dir(dstPath)
	tmp, err := os.CreateTemp(dir, ".boom-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.CopyBuffer(tmp, src, make([]byte, 1<<20)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("copy %s to %s: %w", srcPath, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, dstPath, err)
	}
	if err := os.Chmod(dstPath, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", dstPath, err)
	}
	return nil
}

// Chown sets the owning uid/gid of path, used when restoring a cached image
// to reproduce the original source file's ownership.
func (r *RealRunner) Chown(path string, uid, gid int, description string) error {
	log.Debug().Str("path", path).Int("uid", uid).Int("gid", gid).Str("description", description).Msg("chowning file")
	return os.Chown(path, uid, gid)
}

func (r *RealRunner) Remove(path string, description string) error {
	log.Debug().Str("path", path).Str("description", description).Msg("removing file")
	return os.Remove(path)
}

func (r *RealRunner) MkdirAll(path string, perm os.FileMode, description string) error {
	log.Debug().Str("path", path).Str("description", description).Msg("creating directory")
	return os.MkdirAll(path, perm)
}

func (r *RealRunner) IsDryRun() bool { return false }

// DryRunner logs operations without executing them.
type DryRunner struct{}

func (r *DryRunner) WriteFileAtomic(path string, content []byte, perm os.FileMode, description string) error {
	log.Info().
		Str("path", path).
		Str("description", description).
		Int("size", len(content)).
		Msg("[dry run] would write file")
	return nil
}

func (r *DryRunner) CopyFileAtomic(srcPath, dstPath string, perm os.FileMode, description string) error {
	log.Info().Str("src", srcPath).Str("dst", dstPath).Str("description", description).Msg("[dry run] would copy file")
	return nil
}

func (r *DryRunner) Chown(path string, uid, gid int, description string) error {
	log.Info().Str("path", path).Int("uid", uid).Int("gid", gid).Str("description", description).Msg("[dry run] would chown file")
	return nil
}

func (r *DryRunner) Remove(path string, description string) error {
	log.Info().Str("path", path).Str("description", description).Msg("[dry run] would remove file")
	return nil
}

func (r *DryRunner) MkdirAll(path string, perm os.FileMode, description string) error {
	log.Info().Str("path", path).Str("description", description).Msg("[dry run] would create directory")
	return nil
}

func (r *DryRunner) IsDryRun() bool { return true }

// New creates the appropriate runner based on dry-run mode.
func New(dryRun bool) Runner {
	if dryRun {
		return &DryRunner{}
	}
	return &RealRunner{}
}
