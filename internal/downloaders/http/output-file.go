package zouhttp

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrIO               = errors.New("local I/O error")
	ErrWriteOutOfBounds = errors.New("write outside the pre-allocated file")
)

// Preallocate creates (or truncates) path and extends it to exactly size
// bytes. It must run once, before any worker writes.
func Preallocate(path string, size uint64) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot create %s: %w", ErrIO, path, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: cannot extend %s to %d bytes: %w", ErrIO, path, size, err)
	}
	return file, nil
}

// OutputFile is a pre-sized file written concurrently at explicit offsets.
// Callers never hold a lock: every worker owns a disjoint byte range.
type OutputFile struct {
	file *os.File
	size int64
}

func NewOutputFile(file *os.File) (*OutputFile, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot stat %s: %w", ErrIO, file.Name(), err)
	}
	return &OutputFile{file: file, size: stat.Size()}, nil
}

// WriteAt writes p at off without moving any shared cursor.
func (o *OutputFile) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > o.size {
		return 0, fmt.Errorf("%w: %d bytes at offset %d, file holds %d bytes", ErrWriteOutOfBounds, len(p), off, o.size)
	}
	n, err := o.file.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return n, nil
}

func (o *OutputFile) Size() uint64 {
	return uint64(o.size)
}

func (o *OutputFile) Name() string {
	return o.file.Name()
}

func (o *OutputFile) Sync() error {
	if err := o.file.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func (o *OutputFile) Close() error {
	return o.file.Close()
}
