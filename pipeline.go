package tilekit

import (
	"context"
	"slices"
	"sync"

	"github.com/bodgit/tilekit/internal/pipeline"
)

const verifyWorkers = 4

func (w *Workspace) findDataFiles(ctx context.Context) (<-chan DataFileRecord, <-chan error, error) {
	recs, err := w.db.DataFiles()
	if err != nil {
		return nil, nil, err
	}
	out := make(chan DataFileRecord)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, rec := range recs {
			select {
			case out <- rec:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc, nil
}

func (w *Workspace) checksumWorker(ctx context.Context, in <-chan DataFileRecord, mismatch func(string)) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for rec := range in {
			ds, err := openSource(rec, true)
			if err != nil {
				errc <- err
				return
			}
			crc, err := ds.Checksum()
			ds.Close()
			if err != nil {
				w.logger.Printf("Unable to read %q from \"%s\": %v\n", rec.Key, rec.Location, err)
				mismatch(rec.Key)
				continue
			}
			if crc != rec.CRC {
				w.logger.Printf("Mismatch for %q in \"%s\", with CRC \"%08X\", expected \"%08X\"\n", rec.Key, rec.Location, crc, rec.CRC)
				mismatch(rec.Key)
			}
		}
	}()
	return errc, nil
}

// Verify recomputes the checksum of every data file and returns the keys
// of those which no longer match, or could not be read, in key order.
func (w *Workspace) Verify(ctx context.Context) ([]string, error) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	recc, errc, err := w.findDataFiles(ctx)
	if err != nil {
		return nil, err
	}
	errcList = append(errcList, errc)

	var mu sync.Mutex
	bad := make(map[string]struct{})
	mismatch := func(key string) {
		mu.Lock()
		defer mu.Unlock()
		bad[key] = struct{}{}
	}

	for i := 0; i < verifyWorkers; i++ {
		errc, err := w.checksumWorker(ctx, recc, mismatch)
		if err != nil {
			return nil, err
		}
		errcList = append(errcList, errc)
	}

	if err := pipeline.Wait(errcList...); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(bad))
	for key := range bad {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}
