package persistence

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/metal/internal/mmap"
)

const ioBufferSize = 256 * 1024

// SaveToFile writes through writeFunc to a temporary file next to filename
// and renames it into place, so readers never observe partial files.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, ioBufferSize)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}
	tmpName = ""

	// Best effort: make the rename durable.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// LoadFromFile streams filename through a buffered reader.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, ioBufferSize))
}

// LoadMapped maps filename into memory and hands readFunc a reader over the
// mapping. readFunc must copy whatever it keeps. Falls back to LoadFromFile
// when the file cannot be mapped.
func LoadMapped(filename string, readFunc func(io.Reader) error) error {
	m, err := mmap.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return LoadFromFile(filename, readFunc)
	}
	defer m.Close()

	_ = m.Advise(mmap.AccessSequential)
	return readFunc(bytes.NewReader(m.Bytes()))
}
