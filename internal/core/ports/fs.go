package ports

import "os"

// FileSystemPort abstracts the filesystem operations the segment manager
// performs, so tests can substitute a fake and the manager never touches the
// os package directly.
type FileSystemPort interface {
	CreateDir(dirPath string, permission os.FileMode) error
	ReadDir(pattern string) ([]string, error)

	HardLink(srcPath, destPath string) error
	DeleteFile(filePath string) error

	Exists(filePath string) (bool, error)
	Stat(filePath string) (os.FileInfo, error)
	FileSize(filePath string) (int64, error)

	// DirSize walks the directory recursively and returns the sum of all
	// regular file sizes beneath it.
	DirSize(dirPath string) (int64, error)
}
