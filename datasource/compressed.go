package datasource

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// compressedBackend holds a decompressed copy of a zstd file and writes it
// back on Close if anything changed.
type compressedBackend struct {
	memoryBackend
	path  string
	dirty bool
}

func (c *compressedBackend) WriteAt(p []byte, off int64) (int, error) {
	n, err := c.memoryBackend.WriteAt(p, off)
	if n > 0 {
		c.dirty = true
	}
	return n, err
}

func (c *compressedBackend) Close() error {
	if !c.dirty {
		return nil
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, bytes.NewReader(c.b)); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	c.dirty = false

	return f.Close()
}

// NewCompressed returns a DataSource over the zstd compressed file at path.
// The whole file is decompressed into memory when the source is opened.
func NewCompressed(key, path string) *DataSource {
	return New(key, strings.TrimSuffix(filepath.Base(path), ".zst"), func() (Backend, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()

		b, err := io.ReadAll(dec)
		if err != nil {
			return nil, err
		}

		return &compressedBackend{
			memoryBackend: memoryBackend{b},
			path:          path,
		}, nil
	})
}
