package datasource

import "io"

type memoryBackend struct {
	b []byte
}

func (m *memoryBackend) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memoryBackend) WriteAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > int64(len(m.b)) {
		return 0, ErrPastEnd
	}
	return copy(m.b[off:], p), nil
}

func (m *memoryBackend) Size() (int64, error) { return int64(len(m.b)), nil }

func (m *memoryBackend) Close() error { return nil }

// NewMemory returns a DataSource over b. Writes modify b in place.
func NewMemory(key, name string, b []byte) *DataSource {
	backend := &memoryBackend{b}
	return New(key, name, func() (Backend, error) {
		return backend, nil
	})
}
