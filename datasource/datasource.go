/*
Package datasource implements the byte stores graphics are read from and
written back to.

A DataSource wraps a Backend which is opened the first time it is needed and
released again by Close. Reads are bit addressed: ReadUnshifted returns the
bytes covering a span of bits without shifting them, leaving it to a
bitstream.Stream to pick the bits out.
*/
package datasource

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/bodgit/tilekit/bitaddr"
	"github.com/npillmayer/schuko/tracing"
)

// ErrPastEnd is returned for any access beyond the end of the source.
var ErrPastEnd = errors.New("datasource: access past end of source")

// tracer writes to trace with key 'tilekit.datasource'
func tracer() tracing.Trace {
	return tracing.Select("tilekit.datasource")
}

// Backend is an opened byte store.
type Backend interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Size() (int64, error)
}

// Opener opens a Backend.
type Opener func() (Backend, error)

// DataSource is a keyed, lazily opened byte store.
type DataSource struct {
	key  string
	name string
	open Opener

	mu      sync.Mutex
	backend Backend
}

// New returns a DataSource which calls open on first access.
func New(key, name string, open Opener) *DataSource {
	return &DataSource{
		key:  key,
		name: name,
		open: open,
	}
}

// Key returns the stable identifier of the source.
func (ds *DataSource) Key() string { return ds.key }

// Name returns the display name of the source.
func (ds *DataSource) Name() string { return ds.name }

func (ds *DataSource) get() (Backend, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.backend == nil {
		b, err := ds.open()
		if err != nil {
			return nil, fmt.Errorf("datasource: open %s: %w", ds.name, err)
		}
		tracer().Debugf("opened data source %q", ds.key)
		ds.backend = b
	}
	return ds.backend, nil
}

// Open opens the backend if it is not already. Callers sharing a source
// between goroutines can use it to open ahead of time.
func (ds *DataSource) Open() error {
	_, err := ds.get()
	return err
}

// Close flushes and releases the backend. A later access opens it again.
func (ds *DataSource) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.backend == nil {
		return nil
	}
	err := ds.backend.Close()
	ds.backend = nil
	tracer().Debugf("closed data source %q", ds.key)
	return err
}

// Len returns the size of the source in bytes.
func (ds *DataSource) Len() (int64, error) {
	b, err := ds.get()
	if err != nil {
		return 0, err
	}
	return b.Size()
}

// ReadAt implements io.ReaderAt. Short reads at the end of the source return
// ErrPastEnd.
func (ds *DataSource) ReadAt(p []byte, off int64) (int, error) {
	b, err := ds.get()
	if err != nil {
		return 0, err
	}
	size, err := b.Size()
	if err != nil {
		return 0, err
	}
	if off < 0 || off+int64(len(p)) > size {
		return 0, fmt.Errorf("%w: read %d bytes at 0x%X of %s", ErrPastEnd, len(p), off, ds.name)
	}
	n, err := b.ReadAt(p, off)
	if err == io.EOF && n == len(p) {
		err = nil
	}
	return n, err
}

// WriteAt implements io.WriterAt. Writes never grow the source.
func (ds *DataSource) WriteAt(p []byte, off int64) (int, error) {
	b, err := ds.get()
	if err != nil {
		return 0, err
	}
	size, err := b.Size()
	if err != nil {
		return 0, err
	}
	if off < 0 || off+int64(len(p)) > size {
		return 0, fmt.Errorf("%w: write %d bytes at 0x%X of %s", ErrPastEnd, len(p), off, ds.name)
	}
	return b.WriteAt(p, off)
}

// ReadUnshifted returns the bytes covering bits bits starting at addr. The
// first bit sits addr.BitOffset() bits from the most significant end of the
// first byte.
func (ds *DataSource) ReadUnshifted(addr bitaddr.Address, bits int64) ([]byte, error) {
	if addr.ByteOffset() < 0 || bits < 0 {
		return nil, fmt.Errorf("%w: %d bits at %s", ErrPastEnd, bits, addr)
	}
	n := (int64(addr.BitOffset()) + bits + 7) >> 3
	buf := make([]byte, n)
	if _, err := ds.ReadAt(buf, addr.ByteOffset()); err != nil {
		return nil, err
	}
	return buf, nil
}

// Checksum returns the IEEE CRC-32 of the whole source.
func (ds *DataSource) Checksum() (uint32, error) {
	size, err := ds.Len()
	if err != nil {
		return 0, err
	}
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, io.NewSectionReader(ds, 0, size)); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}
