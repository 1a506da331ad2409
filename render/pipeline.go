package render

import (
	"context"
	"image"

	"github.com/bodgit/tilekit/arranger"
	"github.com/bodgit/tilekit/internal/pipeline"
)

const workers = 10

type job struct {
	at image.Point
	e  *arranger.Element
}

// findElements sends every element of a intersecting r down the returned
// channel.
func findElements(ctx context.Context, a arranger.Arranger, r image.Rectangle) (<-chan job, <-chan error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for at, e := range a.ElementsByPixel(r) {
			// Unlinked elements have nothing to decode
			if e.Source() == nil {
				tracer().Debugf("skipping element %v of %q with no data source", at, a.Name())
				continue
			}
			select {
			case out <- job{at: at, e: e}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

func elementWorker(ctx context.Context, in <-chan job, fn func(*arranger.Element) error) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for j := range in {
			if err := ctx.Err(); err != nil {
				errc <- err
				return
			}
			if err := fn(j.e); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc
}

// each calls fn for every element of a intersecting r using a pool of
// workers. fn must only write to the pixels of its own element.
func each(ctx context.Context, a arranger.Arranger, r image.Rectangle, fn func(*arranger.Element) error) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	jobs, errc := findElements(ctx, a, r)
	errcList = append(errcList, errc)

	for i := 0; i < workers; i++ {
		errcList = append(errcList, elementWorker(ctx, jobs, fn))
	}

	return pipeline.Wait(errcList...)
}

