// Package mmapfile provides read-only memory-mapped views of log
// files. Each call to Open creates an independent mapping, which is
// what process-style workers rely on: mappings are not shared, every
// worker maps the file for itself.
package mmapfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a read-only memory-mapped file.
type File struct {
	data []byte
	file *os.File
}

// Open maps path read-only. An empty file maps to an empty view.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	size := info.Size()
	if size == 0 {
		return &File{file: f}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap %s: %w", path, err)
	}

	return &File{data: data, file: f}, nil
}

// Bytes returns the mapped view. The slice is valid until Close and
// must be treated as read-only.
func (m *File) Bytes() []byte { return m.data }

// Len returns the file size.
func (m *File) Len() int { return len(m.data) }

// Close unmaps the view and closes the file.
func (m *File) Close() error {
	var err error
	if m.data != nil {
		err = unix.Munmap(m.data)
		m.data = nil
	}
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}
