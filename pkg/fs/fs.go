package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type LocalFileSystem struct{}

func NewLocalFileSystem() *LocalFileSystem {
	return &LocalFileSystem{}
}

// Creates a directory and any missing parents. Existing directories are left as is.
func (lfs *LocalFileSystem) CreateDir(dirPath string, permission os.FileMode) error {
	if err := os.MkdirAll(dirPath, permission); err != nil {
		return fmt.Errorf("error creating directory %s : %w", dirPath, err)
	}
	return nil
}

// Reads the directory and retrieves all file names matching the glob pattern.
func (lfs *LocalFileSystem) ReadDir(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	return files, err
}

// Creates a hard link at destPath pointing to the file at srcPath.
func (lfs *LocalFileSystem) HardLink(srcPath, destPath string) error {
	if err := os.Link(srcPath, destPath); err != nil {
		return fmt.Errorf("error creating hard link %s -> %s : %w", destPath, srcPath, err)
	}
	return nil
}

// Deletes a file.
func (lfs *LocalFileSystem) DeleteFile(filePath string) error {
	return os.Remove(filePath)
}

// Checks if a file exists or not.
func (lfs *LocalFileSystem) Exists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Retrieves file metadata.
func (lfs *LocalFileSystem) Stat(filePath string) (os.FileInfo, error) {
	return os.Stat(filePath)
}

// Retrieves the size of a single file in bytes.
func (lfs *LocalFileSystem) FileSize(filePath string) (int64, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

// Walks the directory tree rooted at dirPath and sums the sizes of all regular
// files beneath it.
func (lfs *LocalFileSystem) DirSize(dirPath string) (int64, error) {
	var total int64

	if err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("error walking directory %s : %w", dirPath, err)
	}

	return total, nil
}
