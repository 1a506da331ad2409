package datasource

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/vchimishuk/chub/cue"
)

const (
	sectorHeader  = 16
	sectorSize    = 2048
	sectorTrailer = 288
	rawSectorSize = sectorHeader + sectorSize + sectorTrailer
)

var errNoDataTrack = errors.New("datasource: audio-only discs have no data track")

func firstDataTrack(sheet *cue.Sheet) (string, cue.TrackDataType, error) {
	for _, file := range sheet.Files {
		for _, track := range file.Tracks {
			switch track.DataType {
			case cue.DataTypeMode1_2048, cue.DataTypeMode1_2352:
				return file.Name, track.DataType, nil
			}
		}
	}
	return "", cue.DataTypeAudio, errNoDataTrack
}

// sectorBackend exposes the user data of raw 2352 byte sectors as one
// contiguous run of bytes.
type sectorBackend struct {
	f *os.File
}

func (s sectorBackend) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size() / rawSectorSize * sectorSize, nil
}

func (s sectorBackend) physical(off int64) int64 {
	return off/sectorSize*rawSectorSize + sectorHeader + off%sectorSize
}

func (s sectorBackend) span(p []byte, off int64, fn func([]byte, int64) (int, error)) (int, error) {
	var done int
	for done < len(p) {
		chunk := min(int64(len(p)-done), sectorSize-(off%sectorSize))
		n, err := fn(p[done:done+int(chunk)], s.physical(off))
		done += n
		if err != nil {
			return done, err
		}
		off += chunk
	}
	return done, nil
}

func (s sectorBackend) ReadAt(p []byte, off int64) (int, error) {
	return s.span(p, off, s.f.ReadAt)
}

func (s sectorBackend) WriteAt(p []byte, off int64) (int, error) {
	return s.span(p, off, s.f.WriteAt)
}

func (s sectorBackend) Close() error { return s.f.Close() }

// NewCueTrack returns a DataSource over the first data track referenced by
// the cue sheet at path. For MODE1/2352 tracks the sector headers and error
// correction trailers are skipped so offsets address user data only. The
// track is assumed to start at the beginning of its file.
func NewCueTrack(key, path string, readOnly bool) *DataSource {
	return New(key, filepath.Base(path), func() (Backend, error) {
		sheet, err := cue.ParseFile(path)
		if err != nil {
			return nil, err
		}

		fileName, dataType, err := firstDataTrack(sheet)
		if err != nil {
			return nil, err
		}

		flag := os.O_RDWR
		if readOnly {
			flag = os.O_RDONLY
		}
		f, err := os.OpenFile(filepath.Join(filepath.Dir(path), fileName), flag, 0)
		if err != nil {
			return nil, err
		}

		if dataType == cue.DataTypeMode1_2352 {
			return sectorBackend{f}, nil
		}
		return fileBackend{f}, nil
	})
}
