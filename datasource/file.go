package datasource

import (
	"os"
	"path/filepath"
)

type fileBackend struct {
	*os.File
}

func (f fileBackend) Size() (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// NewFile returns a DataSource backed by the file at path. The file is opened
// read-write unless readOnly is set, in which case writes fail.
func NewFile(key, path string, readOnly bool) *DataSource {
	return New(key, filepath.Base(path), func() (Backend, error) {
		flag := os.O_RDWR
		if readOnly {
			flag = os.O_RDONLY
		}
		f, err := os.OpenFile(path, flag, 0)
		if err != nil {
			return nil, err
		}
		return fileBackend{f}, nil
	})
}
