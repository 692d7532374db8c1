// Package geo resolves the requester's position with a bounded wait and a
// configurable fallback point.
package geo

import (
	"context"
	"errors"
	"time"

	"bloodlink/pkg/types"
)

// ErrUnavailable is returned by sources that have no position to offer,
// for example when the requester declined to share it.
var ErrUnavailable = errors.New("geolocation unavailable")

// Source produces the requester's current position. Implementations may
// block; the Resolver bounds how long it waits.
type Source interface {
	Locate(ctx context.Context) (types.Location, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context) (types.Location, error)

func (f SourceFunc) Locate(ctx context.Context) (types.Location, error) {
	return f(ctx)
}

// Fixed always reports the same position.
func Fixed(loc types.Location) Source {
	return SourceFunc(func(context.Context) (types.Location, error) {
		return loc, nil
	})
}

// Unavailable never has a position.
var Unavailable Source = SourceFunc(func(context.Context) (types.Location, error) {
	return types.Location{}, ErrUnavailable
})

type FallbackReason string

const (
	FallbackNone        FallbackReason = ""
	FallbackError       FallbackReason = "error"
	FallbackInvalid     FallbackReason = "invalid"
	FallbackTimeout     FallbackReason = "timeout"
	FallbackCanceled    FallbackReason = "canceled"
	FallbackUnavailable FallbackReason = "unavailable"
)

type Resolution struct {
	Location types.Location
	Reason   FallbackReason
	Err      error
}

func (r Resolution) UsedFallback() bool {
	return r.Reason != FallbackNone
}

type Resolver struct {
	Fallback types.Location
	Timeout  time.Duration
}

func NewResolver(fallback types.Location, timeout time.Duration) *Resolver {
	return &Resolver{Fallback: fallback, Timeout: timeout}
}

// Resolve waits at most r.Timeout for src and falls back otherwise. A
// non-positive timeout means the source gets no time at all.
func (r *Resolver) Resolve(ctx context.Context, src Source) Resolution {
	if src == nil {
		return r.fallback(FallbackUnavailable, ErrUnavailable)
	}

	if r.Timeout <= 0 {
		return r.fallback(FallbackTimeout, context.DeadlineExceeded)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	type located struct {
		loc types.Location
		err error
	}

	// buffered so the source goroutine can always finish after we stop waiting
	ch := make(chan located, 1)
	go func() {
		loc, err := src.Locate(ctx)
		ch <- located{loc: loc, err: err}
	}()

	select {
	case res := <-ch:
		switch {
		case errors.Is(res.err, ErrUnavailable):
			return r.fallback(FallbackUnavailable, res.err)
		case res.err != nil:
			return r.fallback(FallbackError, res.err)
		case !res.loc.Valid():
			return r.fallback(FallbackInvalid, nil)
		}
		return Resolution{Location: res.loc}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return r.fallback(FallbackTimeout, ctx.Err())
		}
		return r.fallback(FallbackCanceled, ctx.Err())
	}
}

func (r *Resolver) fallback(reason FallbackReason, err error) Resolution {
	return Resolution{Location: r.Fallback, Reason: reason, Err: err}
}
