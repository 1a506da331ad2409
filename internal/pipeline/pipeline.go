// Package pipeline collects the error channels of a goroutine pipeline.
package pipeline

import "sync"

// Wait blocks until every channel in errs is closed, returning the first
// error received.
func Wait(errs ...<-chan error) error {
	errc := Merge(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

// Merge fans every channel in cs into one which is closed once they all are.
func Merge(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
