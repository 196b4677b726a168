package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Blob is an uploaded file: its metadata and a way to read its bytes.
type Blob interface {
	Name() string
	Size() int64
	ModTime() time.Time
	Bytes() ([]byte, error)
}

// LocalFile is a Blob backed by a file on disk.
type LocalFile struct {
	path string
	info os.FileInfo
}

// OpenLocalFile stats path and returns a Blob for it.
func OpenLocalFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &LocalFile{path: path, info: info}, nil
}

func (f *LocalFile) Name() string       { return filepath.Base(f.path) }
func (f *LocalFile) Size() int64        { return f.info.Size() }
func (f *LocalFile) ModTime() time.Time { return f.info.ModTime() }

// Bytes reads the whole file.
func (f *LocalFile) Bytes() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return data, nil
}

// MemFile is a Blob held in memory, e.g. an HTTP upload.
type MemFile struct {
	name    string
	data    []byte
	modTime time.Time
}

// NewMemFile creates a MemFile. data is not copied.
func NewMemFile(name string, data []byte, modTime time.Time) *MemFile {
	return &MemFile{name: name, data: data, modTime: modTime}
}

func (f *MemFile) Name() string           { return f.name }
func (f *MemFile) Size() int64            { return int64(len(f.data)) }
func (f *MemFile) ModTime() time.Time     { return f.modTime }
func (f *MemFile) Bytes() ([]byte, error) { return f.data, nil }
