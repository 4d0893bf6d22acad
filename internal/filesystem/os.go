// Package filesystem abstracts the file operations the publisher performs so that
// tests can substitute an in-memory or failing implementation.
package filesystem

import (
	"io/fs"
	"os"
)

// FileSystem exposes the filesystem operations needed to materialize an upload.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string, permissions fs.FileMode) error
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem implements FileSystem using the operating system primitives.
type OSFileSystem struct{}

// Stat retrieves file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// WriteFile writes data to a file, truncating any existing content.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}

// ReadFile returns the full content of a file.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
