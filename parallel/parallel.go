// Package parallel provides a deterministic fixed-partition fork-join
// driver for data-parallel loops over index ranges.
//
// The partition of [0, n) into contiguous ranges depends only on n and the
// requested part count — never on scheduling — so any computation whose
// workers write exclusively inside their own range produces results that
// are independent of worker count and dispatch order. That property is the
// backbone of the covariance engine's "thread count never changes the
// answer" guarantee.
package parallel

import "golang.org/x/sync/errgroup"

// Range is a half-open index interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Len reports the number of indices in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// Partition splits [0, n) into at most parts contiguous non-empty ranges.
// The first n mod parts ranges are one longer, so sizes differ by at most
// one. Every index is covered exactly once; ranges are ascending.
// parts <= 1 or n <= 1 yields a single range.
func Partition(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	if parts > n {
		parts = n
	}
	if parts <= 1 {
		return []Range{{Lo: 0, Hi: n}}
	}

	out := make([]Range, 0, parts)
	base := n / parts
	extra := n % parts
	lo := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < extra {
			size++
		}
		out = append(out, Range{Lo: lo, Hi: lo + size})
		lo += size
	}

	return out
}

// For runs fn over a fixed partition of [0, n) using at most workers
// goroutines, one per range, and returns the first error. workers <= 1
// runs inline on the calling goroutine. fn must confine its writes to its
// own [lo, hi) range for the determinism guarantee to hold.
func For(n, workers int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 1 {
		return fn(0, n)
	}

	var g errgroup.Group
	for _, r := range Partition(n, workers) {
		r := r
		g.Go(func() error { return fn(r.Lo, r.Hi) })
	}

	return g.Wait()
}
