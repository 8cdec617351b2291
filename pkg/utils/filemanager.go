// =============================================================================
// Tabular Loader - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the loader, including:
//   - Input file fingerprinting
//   - File archival (moving loaded files out of the input directory)
//   - Writing output files atomically
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to the archive directory after a successful load
//   - Failed and skipped files remain in their original location
//   - A name clash in the archive gets a timestamp suffix instead of
//     overwriting the earlier file
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the loader.
type FileManager struct {
	// ArchiveDir is the directory for archived input files. Archival is
	// disabled when it is empty.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/file.csv
	UseTimestampSubdirs bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewFileManager creates a new FileManager for the archive directory.
func NewFileManager(archiveDir string) *FileManager {
	return &FileManager{
		ArchiveDir: archiveDir,
		Now:        time.Now,
	}
}

// Enabled reports whether archival is configured.
func (fm *FileManager) Enabled() bool {
	return fm != nil && fm.ArchiveDir != ""
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file, or filePath when archival is disabled.
//   - An error if archival fails. The original file is left in place.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.Enabled() {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath)

	archiveDir := filepath.Dir(archivePath)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// If rename fails (e.g., cross-device), try copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			os.Remove(archivePath)
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs a free archive path for a file.
func (fm *FileManager) getArchivePath(filePath string) string {
	fileName := filepath.Base(filePath)
	now := fm.now()

	dir := fm.ArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(
			dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	path := filepath.Join(dir, fileName)
	if !FileExists(path) {
		return path
	}

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, now.Format("20060102_150405.000000"), ext))
}

// =============================================================================
// FINGERPRINTS
// =============================================================================

// Fingerprint returns the hex xxh3-128 hash of a file's content. Two loads of
// the same bytes share a fingerprint regardless of the file name.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	sum := h.Sum128().Bytes()
	return fmt.Sprintf("%x", sum[:]), nil
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// WriteFileAtomic writes data next to path and renames it into place, so a
// reader never sees a half-written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
